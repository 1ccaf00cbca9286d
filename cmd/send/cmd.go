package send

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/segmentio/encoding/json"
	"github.com/yusufsyaifudin/tagihan/cmd"
	"github.com/yusufsyaifudin/tagihan/container"
	"github.com/yusufsyaifudin/tagihan/internal/logic/dispatch"
	"github.com/yusufsyaifudin/tagihan/internal/logic/invoice"
	"github.com/yusufsyaifudin/tagihan/pkg/mailaddr"
	"github.com/yusufsyaifudin/tagihan/pkg/mailclient"
	"github.com/yusufsyaifudin/tagihan/pkg/prompt"
	"github.com/yusufsyaifudin/ylog"
)

type Cmd struct {
	flags      *flag.FlagSet
	appName    string
	appVersion string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	selection     cmd.Selection
	dryRun        bool
	resend        bool
	from          string
	cc            mailaddr.List
	bcc           mailaddr.List
	smtpServer    string
	message       string
	subject       string
	subjectPrefix string
	reportFile    string
}

func NewCmd(appName, appVersion string) func() (cli.Command, error) {
	return func() (cli.Command, error) {
		return newCmd(appName, appVersion, os.Stdin, os.Stdout, os.Stderr)
	}
}

func newCmd(appName, appVersion string, in io.Reader, out, errOut io.Writer) (*Cmd, error) {
	c := &Cmd{
		flags:      &flag.FlagSet{},
		appName:    appName,
		appVersion: appVersion,
		in:         in,
		out:        out,
		errOut:     errOut,
	}
	err := c.init()
	return c, err
}

var _ cli.Command = (*Cmd)(nil)
var _ cli.CommandFactory = NewCmd("", "")

func (c *Cmd) init() error {
	c.flags = flag.NewFlagSet("send", flag.ContinueOnError)
	c.flags.SetOutput(c.errOut)
	c.selection.Register(c.flags)

	c.flags.BoolVar(&c.dryRun, "dry-run", false,
		"Go through every prompt but do not send anything")
	c.flags.BoolVar(&c.resend, "resend", false,
		"Send again invoices the journal already has as sent")
	c.flags.StringVar(&c.from, "from", "",
		"Sender, e.g. \"Foo Bar <foo@bar.com>\" (default from config, then asked)")
	c.flags.Var(&c.cc, "cc", "Carbon copy recipient, repeatable")
	c.flags.Var(&c.bcc, "bcc", "Blind carbon copy recipient, repeatable")
	c.flags.StringVar(&c.smtpServer, "smtp-server", "",
		"SMTP relay host[:port] (default from config, then asked)")
	c.flags.StringVar(&c.message, "message", "",
		"Greeting before the invoice details, \\n is a line break (asked per group when empty)")
	c.flags.StringVar(&c.subject, "subject", "",
		"Subject (asked per group when empty)")
	c.flags.StringVar(&c.subjectPrefix, "subject-prefix", "",
		"Text put before every subject (default from config)")
	c.flags.StringVar(&c.reportFile, "report", "",
		"Write the delivery report as JSON to this file")
	return nil
}

func (c *Cmd) Help() string {
	return strings.TrimSpace(`
Usage: ` + c.appName + ` send [options] FILE

  Send invoice reminders for the rows of the exported FILE dated today, on
  -date, or numbered by -index. Invoices sharing the -group-by column are
  previewed once and sent after a single confirmation.

  Exit status is 0 when everything confirmed was delivered, 2 when some
  recipient was refused and 1 on any other error.

Options:
` + cmd.Defaults(c.flags))
}

func (c *Cmd) Synopsis() string {
	return `Send invoice reminders by email`
}

func (c *Cmd) Run(args []string) int {
	err := c.flags.Parse(args)
	if err != nil {
		return cmd.ExitErr
	}

	c.selection.Parsed(c.flags)
	if c.flags.NArg() != 1 {
		fmt.Fprintln(c.errOut, "expect exactly one input file")
		return cmd.ExitErr
	}

	ctx, cfg, closeLog, err := cmd.Bootstrap(c.selection.ConfigFile)
	if err != nil {
		fmt.Fprintf(c.errOut, "error load config: %s\n", err)
		return cmd.ExitErr
	}

	defer func() {
		if _err := closeLog(); _err != nil {
			fmt.Fprintf(c.errOut, "error close log: %s\n", _err)
		}
	}()

	mode, err := c.selection.Mode()
	if err != nil {
		return c.fail(ctx, "invalid selection", err)
	}

	records, err := cmd.LoadInvoices(ctx, cfg, c.flags.Arg(0), mode, c.out)
	if err != nil {
		return c.fail(ctx, "error read invoices", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(c.out, "No invoices to send, exiting")
		return cmd.ExitSuccess
	}

	asker := prompt.NewTerminal(c.in, c.out, c.errOut)

	cred, err := c.credential(asker, cfg.Smtp.Server)
	if err != nil {
		return c.fail(ctx, "invalid smtp server", err)
	}

	cred.Username = cfg.Smtp.Username
	cred.Password = cfg.Smtp.Password
	cred.StartTLS = cfg.Smtp.StartTLS
	cred.HeloName = cfg.Smtp.HeloName

	from, err := c.sender(asker, cfg.From)
	if err != nil {
		return c.fail(ctx, "invalid sender", err)
	}

	ylog.Info(ctx, "~ setup container")
	dep, err := container.Setup(ctx, &cfg, c.appVersion)
	if err != nil {
		return c.fail(ctx, "error setup container", err)
	}

	defer func() {
		ylog.Info(ctx, "~ closing container")
		if _err := dep.Close(); _err != nil {
			ylog.Error(ctx, "~ error close container", ylog.KV("error", _err))
		}
	}()

	mailer, err := dep.Mailer(cred)
	if err != nil {
		return c.fail(ctx, "error prepare mailer", err)
	}

	sentJournal, err := dep.Journal()
	if err != nil {
		return c.fail(ctx, "error prepare journal", err)
	}

	domain := cfg.Message.IDDomain
	if domain == "" {
		_, domain, _ = strings.Cut(from.Email, "@")
	}

	messageID, err := dep.MessageID(domain)
	if err != nil {
		return c.fail(ctx, "error prepare message id", err)
	}

	composer, err := invoice.NewComposer(invoice.ComposerConfig{
		Details: cfg.Message.Details,
		Footer:  cfg.Message.Footer,
		Payee: invoice.Payee{
			Name:    cfg.Payee.Name,
			Bank:    cfg.Payee.Bank,
			Account: cfg.Payee.Account,
		},
		MessageID: messageID,
	})
	if err != nil {
		return c.fail(ctx, "error prepare message template", err)
	}

	groupBy := c.selection.GroupColumn(cfg)
	groups, err := invoice.GroupBy(records, groupBy)
	if err != nil {
		return c.fail(ctx, "error group invoices", err)
	}

	subjectPrefix := cfg.SubjectPrefix
	if cmd.IsSet(c.flags, "subject-prefix") {
		subjectPrefix = c.subjectPrefix
	}

	greeting := cfg.Message.Greeting
	if c.message != "" {
		greeting = c.message
	}

	driverCfg := dispatch.Config{
		Mailer:   mailer,
		Prompter: asker,
		Composer: composer,
		Out:      c.out,
		Settings: dispatch.Settings{
			From:          from,
			Cc:            c.cc,
			Bcc:           c.bcc,
			Subject:       c.subject,
			SubjectPrefix: subjectPrefix,
			Greeting:      greeting,
			GroupBy:       groupBy,
			ExtraHeaders:  cfg.Message.Headers,
			DryRun:        c.dryRun,
			Resend:        c.resend,
		},
	}

	// a nil *journal.Journal must stay a nil interface
	if sentJournal != nil {
		driverCfg.Journal = sentJournal
	}

	driver, err := dispatch.New(driverCfg)
	if err != nil {
		return c.fail(ctx, "error prepare dispatch", err)
	}

	ylog.Info(ctx, "start sending",
		ylog.KV("invoices", len(records)),
		ylog.KV("groups", len(groups)),
		ylog.KV("groupBy", groupBy),
		ylog.KV("dryRun", c.dryRun),
	)

	report, runErr := driver.Run(ctx, groups)
	if err = c.writeReport(report); err != nil {
		ylog.Error(ctx, "error write report", ylog.KV("file", c.reportFile), ylog.KV("error", err))
		if runErr == nil {
			runErr = err
		}
	}

	if runErr != nil {
		return c.fail(ctx, "sending stopped", runErr)
	}

	fmt.Fprintf(c.out, "\nSent %d, failed %d\n", report.Sent(), report.Failed())
	if report.Failed() > 0 {
		return cmd.ExitFailed
	}

	return cmd.ExitSuccess
}

// credential takes the relay from -smtp-server, then config, then asks.
func (c *Cmd) credential(asker *prompt.Asker, configured string) (*mailclient.EmailCredential, error) {
	server := c.smtpServer
	if server == "" {
		server = configured
	}

	if server == "" {
		var err error
		server, err = asker.Ask("SMTP server")
		if err != nil {
			return nil, err
		}
	}

	host, port, err := mailclient.ParseServer(server)
	if err != nil {
		return nil, err
	}

	return &mailclient.EmailCredential{
		ServerHost: host,
		ServerPort: port,
	}, nil
}

// sender takes -from, then config, then asks offering $EMAIL.
func (c *Cmd) sender(asker *prompt.Asker, configured string) (mailaddr.Address, error) {
	from := c.from
	if from == "" {
		from = configured
	}

	if from == "" {
		var opts []prompt.Option
		if env := os.Getenv("EMAIL"); env != "" {
			opts = append(opts, prompt.WithDefault(env))
		}

		var err error
		from, err = asker.Ask("Sender", opts...)
		if err != nil {
			return mailaddr.Address{}, err
		}
	}

	return mailaddr.Split(from)
}

func (c *Cmd) writeReport(report *dispatch.Report) error {
	if c.reportFile == "" || report == nil {
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshal report: %w", err)
	}

	err = os.WriteFile(c.reportFile, data, 0o644)
	if err != nil {
		return fmt.Errorf("error write report: %w", err)
	}

	return nil
}

func (c *Cmd) fail(ctx context.Context, msg string, err error) int {
	ylog.Error(ctx, msg, ylog.KV("error", err))
	fmt.Fprintf(c.errOut, "%s: %s\n", msg, err)
	return cmd.ExitErr
}

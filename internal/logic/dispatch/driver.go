// Package dispatch walks the invoice groups with the operator: preview the
// first message of a group, ask for confirmation, then send one message per
// invoice and report who did not get theirs.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yusufsyaifudin/tagihan/internal/logic/invoice"
	"github.com/yusufsyaifudin/tagihan/internal/logic/journal"
	"github.com/yusufsyaifudin/tagihan/pkg/mailaddr"
	"github.com/yusufsyaifudin/tagihan/pkg/mailclient"
	"github.com/yusufsyaifudin/tagihan/pkg/prompt"
	"github.com/yusufsyaifudin/tagihan/pkg/tracer"
	"github.com/yusufsyaifudin/ylog"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultGreeting = `Hei,\n\nOhessa lasku.`

type Mailer interface {
	Send(ctx context.Context, from string, recipients []string, raw []byte) mailclient.Report
}

type Prompter interface {
	Ask(question string, opts ...prompt.Option) (string, error)
}

type Journal interface {
	SentAt(ctx context.Context, number, reference, email string) (journal.Entry, bool, error)
	MarkSent(ctx context.Context, entry journal.Entry) error
}

var (
	_ Mailer   = (*mailclient.SmtpMailer)(nil)
	_ Prompter = (*prompt.Asker)(nil)
	_ Journal  = (*journal.Journal)(nil)
)

// Settings are the run wide choices, from flags and config.
type Settings struct {
	From          mailaddr.Address
	Cc            []mailaddr.Address
	Bcc           []mailaddr.Address
	Subject       string
	SubjectPrefix string

	// Greeting is asked per group when empty, offering DefaultGreeting.
	Greeting        string
	DefaultGreeting string

	GroupBy      string
	ExtraHeaders map[string]string
	DryRun       bool
	Resend       bool
}

type Config struct {
	Mailer   Mailer            `validate:"required"`
	Prompter Prompter          `validate:"required"`
	Journal  Journal           `validate:"-"`
	Composer *invoice.Composer `validate:"required"`
	Out      io.Writer         `validate:"required"`
	Settings Settings          `validate:"-"`
}

type Driver struct {
	mailer   Mailer
	prompter Prompter
	journal  Journal
	composer *invoice.Composer
	out      io.Writer
	settings Settings
}

func New(cfg Config) (*Driver, error) {
	err := validator.New().Struct(cfg)
	if err != nil {
		err = fmt.Errorf("validation error: %w", err)
		return nil, err
	}

	if cfg.Settings.From.Email == "" {
		return nil, fmt.Errorf("%w: sender is empty", mailaddr.ErrAddressFormat)
	}

	if cfg.Settings.DefaultGreeting == "" {
		cfg.Settings.DefaultGreeting = DefaultGreeting
	}

	return &Driver{
		mailer:   cfg.Mailer,
		prompter: cfg.Prompter,
		journal:  cfg.Journal,
		composer: cfg.Composer,
		out:      cfg.Out,
		settings: cfg.Settings,
	}, nil
}

// Run offers every group in order. It stops with an error on the first bad
// address, template or prompt failure; delivery failures only end up in the
// report.
func (d *Driver) Run(ctx context.Context, groups []invoice.Group) (*Report, error) {
	report := &Report{
		DryRun: d.settings.DryRun,
		Groups: make([]GroupReport, 0, len(groups)),
	}

	if err := validateAddresses(groups); err != nil {
		return report, err
	}

	for i, group := range groups {
		gr := GroupReport{
			Index:    i + 1,
			Key:      group.Key,
			Size:     group.Len(),
			State:    StatePreview,
			Sent:     make([]string, 0),
			Skipped:  make([]string, 0),
			Failures: make([]Failure, 0),
		}

		err := d.runGroup(ctx, group, &gr)
		report.Groups = append(report.Groups, gr)
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func validateAddresses(groups []invoice.Group) error {
	for _, group := range groups {
		for _, rec := range group.Records {
			email, err := rec.Value(invoice.ColumnEmail)
			if err != nil {
				return err
			}

			if _, err = mailaddr.Split(email); err != nil {
				return fmt.Errorf("line %d: %w", rec.Line(), err)
			}
		}
	}

	return nil
}

type outgoing struct {
	number    string
	reference string
	env       *invoice.Envelope
	raw       []byte
}

func (d *Driver) runGroup(ctx context.Context, group invoice.Group, gr *GroupReport) error {
	ctx, span := tracer.StartSpan(ctx, "dispatch.group")
	defer span.End()

	span.SetAttributes(
		attribute.Int("group.index", gr.Index),
		attribute.Int("group.size", gr.Size),
	)

	d.printBanner(group, gr.Index)

	greeting := d.settings.Greeting
	if greeting == "" {
		var err error
		greeting, err = d.prompter.Ask("Greeting message", prompt.WithDefault(d.settings.DefaultGreeting))
		if err != nil {
			return err
		}
	}

	greeting = unescape(greeting)

	subject := d.settings.Subject
	if subject == "" {
		var err error
		subject, err = d.prompter.Ask("Subject")
		if err != nil {
			return err
		}
	}

	headers := invoice.Headers{
		From:    d.settings.From,
		Cc:      d.settings.Cc,
		Bcc:     d.settings.Bcc,
		Subject: invoice.Subject(d.settings.SubjectPrefix, subject),
		Extra:   d.settings.ExtraHeaders,
	}

	example, err := d.composer.Compose(headers, greeting, group.First())
	if err != nil {
		return err
	}

	separator := strings.Repeat("-", 79)
	fmt.Fprintf(d.out, "\n%s\n%s%s\n\n", separator, example.Preview(), separator)

	recipients := make([]string, 0, group.Len())
	for _, rec := range group.Records {
		email, _ := rec.Value(invoice.ColumnEmail)
		addr, _ := mailaddr.Split(email)
		recipients = append(recipients, "<"+addr.Email+">")
	}

	proceed, err := d.prompter.Ask("Send an email like above to "+strings.Join(recipients, ", "), prompt.WithChoices("n", "y"))
	if err != nil {
		return err
	}

	if proceed != "y" {
		gr.State = StateDeclined
		gr.Declined = true
		fmt.Fprintln(d.out, "Did not send!")
		ylog.Info(ctx, "group declined", ylog.KV("group", gr.Index))
		gr.State = StateDone
		return nil
	}

	gr.State = StateConfirmed

	// every message of the group is built before the first one goes out
	messages := make([]outgoing, 0, group.Len())
	for _, rec := range group.Records {
		number, _ := rec.Value(invoice.ColumnNumber)
		reference, _ := rec.Get(invoice.ColumnReference)
		env, err := d.composer.Compose(headers, greeting, rec)
		if err != nil {
			return err
		}

		raw, err := env.Bytes()
		if err != nil {
			return fmt.Errorf("line %d: %w", rec.Line(), err)
		}

		messages = append(messages, outgoing{number: number, reference: reference, env: env, raw: raw})
	}

	gr.State = StateSending
	for _, msg := range messages {
		if err = d.send(ctx, msg, gr); err != nil {
			return err
		}
	}

	gr.State = StateDone
	ylog.Info(ctx, "group done",
		ylog.KV("group", gr.Index),
		ylog.KV("sent", len(gr.Sent)),
		ylog.KV("skipped", len(gr.Skipped)),
		ylog.KV("failed", len(gr.Failures)),
	)

	return nil
}

func (d *Driver) send(ctx context.Context, msg outgoing, gr *GroupReport) error {
	to := msg.env.To.Email
	if d.journal != nil && !d.settings.Resend {
		entry, found, err := d.journal.SentAt(ctx, msg.number, msg.reference, to)
		if err != nil {
			return err
		}

		if found {
			fmt.Fprintf(d.out, "Invoice %s already sent to <%s> at %s, skipping\n",
				msg.number, to, entry.SentAt.Local().Format(time.RFC1123))
			gr.Skipped = append(gr.Skipped, msg.number)
			return nil
		}
	}

	fmt.Fprintf(d.out, "Sending email to <%s>...\n", to)
	if d.settings.DryRun {
		gr.Sent = append(gr.Sent, msg.number)
		return nil
	}

	recipients := msg.env.Recipients()
	report := d.mailer.Send(ctx, d.settings.From.Email, recipients, msg.raw)
	failures := report.Failed(recipients)

	toFailed := false
	for _, f := range failures {
		if f.Recipient == to {
			toFailed = true
		}

		gr.Failures = append(gr.Failures, Failure{Number: msg.number, Recipient: f.Recipient, Reason: f.Reason()})
		fmt.Fprintf(d.out, "Mail delivery failed: <%s>: %s\n", f.Recipient, f.Reason())
		ylog.Error(ctx, "mail delivery failed",
			ylog.KV("number", msg.number),
			ylog.KV("recipient", f.Recipient),
			ylog.KV("error", f.Error),
		)
	}

	if toFailed {
		return nil
	}

	gr.Sent = append(gr.Sent, msg.number)
	if d.journal == nil {
		return nil
	}

	err := d.journal.MarkSent(ctx, journal.Entry{
		Number:    msg.number,
		Reference: msg.reference,
		Email:     to,
		MessageID: msg.env.MessageID,
		SentAt:    time.Now(),
	})
	if err != nil {
		// the mail is out already, a rerun would at worst send it twice
		ylog.Error(ctx, "cannot mark invoice as sent", ylog.KV("number", msg.number), ylog.KV("error", err))
	}

	return nil
}

func (d *Driver) printBanner(group invoice.Group, index int) {
	var title, info string
	if group.Len() > 1 {
		title = fmt.Sprintf("#%d: INVOICE GROUP ", index)
		info = fmt.Sprintf("%s: %s\n", strings.ToUpper(d.settings.GroupBy), group.Key)
	} else {
		rec := group.First()
		email, _ := rec.Get(invoice.ColumnEmail)
		column := bannerColumn(rec, d.settings.GroupBy)
		reference, _ := rec.Get(column)
		amount, _ := rec.Get(invoice.ColumnAmount)
		title = fmt.Sprintf("#%d: SINGLE INVOICE ", index)
		info = fmt.Sprintf("EMAIL: %s\n%s: %s\nSUMMA: %s\n", email, strings.ToUpper(column), reference, amount)
	}

	fill := 76 - 5 - len(title)
	if fill < 0 {
		fill = 0
	}

	fmt.Fprintf(d.out, "\n==== %s %s\n%s\n", title, strings.Repeat("=", fill), info)
}

// bannerColumn picks the reference shown for a single invoice: the grouping
// column, then the group reference column, then the invoice reference number.
func bannerColumn(rec invoice.Record, groupBy string) string {
	for _, column := range []string{groupBy, invoice.ColumnGroup} {
		if _, ok := rec.Get(column); ok && column != "" && column != invoice.ColumnEmail {
			return column
		}
	}

	return invoice.ColumnReference
}

var escapes = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t")

// unescape expands the backslash escapes an operator can type on one line.
func unescape(s string) string {
	return escapes.Replace(s)
}

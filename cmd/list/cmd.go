package list

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mitchellh/cli"
	"github.com/yusufsyaifudin/tagihan/cmd"
	"github.com/yusufsyaifudin/tagihan/internal/logic/invoice"
	"github.com/yusufsyaifudin/ylog"
)

// columns printed for every invoice, missing ones are left blank
var columns = []string{
	invoice.ColumnNumber,
	invoice.ColumnDate,
	invoice.ColumnEmail,
	invoice.ColumnAmount,
	invoice.ColumnDueDate,
}

type Cmd struct {
	flags      *flag.FlagSet
	appName    string
	appVersion string

	out    io.Writer
	errOut io.Writer

	selection cmd.Selection
}

func NewCmd(appName, appVersion string) func() (cli.Command, error) {
	return func() (cli.Command, error) {
		return newCmd(appName, appVersion, os.Stdout, os.Stderr)
	}
}

func newCmd(appName, appVersion string, out, errOut io.Writer) (*Cmd, error) {
	c := &Cmd{
		flags:      &flag.FlagSet{},
		appName:    appName,
		appVersion: appVersion,
		out:        out,
		errOut:     errOut,
	}
	err := c.init()
	return c, err
}

var _ cli.Command = (*Cmd)(nil)
var _ cli.CommandFactory = NewCmd("", "")

func (c *Cmd) init() error {
	c.flags = flag.NewFlagSet("list", flag.ContinueOnError)
	c.flags.SetOutput(c.errOut)
	c.selection.Register(c.flags)
	return nil
}

func (c *Cmd) Help() string {
	return strings.TrimSpace(`
Usage: ` + c.appName + ` list [options] FILE

  Print the invoices send would offer, grouped the same way. Nothing is sent
  and no SMTP settings are needed.

Options:
` + cmd.Defaults(c.flags))
}

func (c *Cmd) Synopsis() string {
	return `List the invoices a send would offer`
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
		fmt.Fprintf(c.errOut, "invalid selection: %s\n", err)
		return cmd.ExitErr
	}

	records, err := cmd.LoadInvoices(ctx, cfg, c.flags.Arg(0), mode, c.out)
	if err != nil {
		ylog.Error(ctx, "error read invoices", ylog.KV("error", err))
		fmt.Fprintf(c.errOut, "error read invoices: %s\n", err)
		return cmd.ExitErr
	}

	groupBy := c.selection.GroupColumn(cfg)
	groups, err := invoice.GroupBy(records, groupBy)
	if err != nil {
		fmt.Fprintf(c.errOut, "error group invoices: %s\n", err)
		return cmd.ExitErr
	}

	printGroups(c.out, groupBy, groups)
	fmt.Fprintf(c.out, "\n%d invoices in %d groups (%s)\n", invoice.Count(groups), len(groups), mode)
	return cmd.ExitSuccess
}

func printGroups(out io.Writer, groupBy string, groups []invoice.Group) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for i, group := range groups {
		if groupBy == "" {
			fmt.Fprintf(w, "\n#%d\n", i+1)
		} else {
			fmt.Fprintf(w, "\n#%d %s=%s (%d)\n", i+1, groupBy, group.Key, group.Len())
		}

		for _, rec := range group.Records {
			cells := make([]string, 0, len(columns))
			for _, column := range columns {
				v, _ := rec.Get(column)
				cells = append(cells, v)
			}

			fmt.Fprintf(w, "  %s\n", strings.Join(cells, "\t"))
		}
	}
}

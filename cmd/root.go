// Package cmd holds what the send and list commands share: config and logger
// bootstrap, invoice selection flags and reading the export file.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yusufsyaifudin/tagihan/config"
	"github.com/yusufsyaifudin/tagihan/internal/logic/invoice"
	"github.com/yusufsyaifudin/tagihan/pkg/logger"
	"github.com/yusufsyaifudin/tagihan/pkg/tabular"
	"github.com/yusufsyaifudin/ylog"
)

const (
	ExitSuccess = 0
	ExitErr     = 1

	// ExitFailed means the run went through but some mail was not delivered.
	ExitFailed = 2
)

// Selection are the flags choosing which invoices take part in a run.
type Selection struct {
	ConfigFile string
	Date       string
	Index      string
	GroupBy    string

	groupBySet bool
}

func (s *Selection) Register(flags *flag.FlagSet) {
	flags.StringVar(&s.ConfigFile, "config", config.DefaultPath(),
		"Config file to load")
	flags.StringVar(&s.ConfigFile, "c", config.DefaultPath(),
		"Alias for config file to load")
	flags.StringVar(&s.Date, "date", "",
		"Select invoices dated d.m.yyyy (default today)")
	flags.StringVar(&s.Index, "index", "",
		"Select invoices by number, e.g. 1,3-8,10")
	flags.StringVar(&s.GroupBy, "group-by", "",
		"Column grouping invoices into one confirmation, empty string for none (default from config)")
}

// Parsed must be called after flags.Parse so an explicit empty -group-by is
// told apart from an absent one.
func (s *Selection) Parsed(flags *flag.FlagSet) {
	s.groupBySet = IsSet(flags, "group-by")
}

// Mode turns -date or -index into a selector mode. Neither means today.
func (s *Selection) Mode() (invoice.Mode, error) {
	date := strings.TrimSpace(s.Date)
	index := strings.TrimSpace(s.Index)
	switch {
	case date != "" && index != "":
		return nil, fmt.Errorf("-date and -index cannot be used together")

	case index != "":
		return invoice.ByRange(index), nil

	case date != "":
		t, err := invoice.ParseDate(date)
		if err != nil {
			return nil, err
		}

		return invoice.ByDate(t), nil

	default:
		return invoice.ByDate(time.Time{}), nil
	}
}

// GroupColumn is -group-by when given, the configured column otherwise.
func (s *Selection) GroupColumn(cfg config.Config) string {
	if s.groupBySet {
		return strings.ToLower(strings.TrimSpace(s.GroupBy))
	}

	return strings.ToLower(strings.TrimSpace(cfg.GroupBy))
}

// IsSet reports whether the flag was given on the command line.
func IsSet(flags *flag.FlagSet, name string) bool {
	found := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})

	return found
}

// Bootstrap loads the config file and sets the global logger from it. The
// returned closer flushes the log.
func Bootstrap(configFile string) (context.Context, config.Config, func() error, error) {
	cfg, found, err := config.Load(configFile)
	if err != nil {
		return context.Background(), cfg, nil, err
	}

	ctx, closer, err := logger.Setup(context.Background(), logger.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	if err != nil {
		return ctx, cfg, nil, err
	}

	if found {
		ylog.Info(ctx, "config loaded", ylog.KV("file", configFile))
	} else {
		ylog.Info(ctx, "config file not found, using defaults", ylog.KV("file", configFile))
	}

	return ctx, cfg, closer, nil
}

// LoadInvoices reads the export file and keeps the records mode selects.
func LoadInvoices(ctx context.Context, cfg config.Config, path string, mode invoice.Mode, out io.Writer) ([]invoice.Record, error) {
	table, err := tabular.ReadFile(path,
		tabular.WithEncoding(cfg.Input.Encoding),
		tabular.WithSniffSize(cfg.Input.SniffSize),
	)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "CSV file time stamp: %s\n", table.Timestamp)

	records, err := invoice.Select(table.Records, mode)
	if err != nil {
		return nil, err
	}

	ylog.Info(ctx, "invoices selected",
		ylog.KV("file", path),
		ylog.KV("mode", mode.String()),
		ylog.KV("rows", len(table.Records)),
		ylog.KV("selected", len(records)),
	)

	return records, nil
}

// Defaults renders the flag usage lines for a Help text.
func Defaults(flags *flag.FlagSet) string {
	var b strings.Builder
	out := flags.Output()
	flags.SetOutput(&b)
	flags.PrintDefaults()
	flags.SetOutput(out)

	return b.String()
}

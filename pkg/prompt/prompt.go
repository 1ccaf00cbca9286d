// Package prompt asks the operator questions until the answer is acceptable.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/cli"
)

// Ui is the part of cli.Ui used for asking.
type Ui interface {
	Ask(query string) (string, error)
}

var _ Ui = (cli.Ui)(nil)

type options struct {
	def        string
	hasDefault bool
	choices    []string
}

type Option func(*options)

// WithDefault is returned when the operator enters nothing. An empty default
// is still a default.
func WithDefault(def string) Option {
	return func(o *options) {
		o.def = def
		o.hasDefault = true
	}
}

// WithChoices limits non-empty answers to one of choices.
func WithChoices(choices ...string) Option {
	return func(o *options) {
		o.choices = choices
	}
}

type Asker struct {
	ui Ui
}

func New(ui Ui) *Asker {
	return &Asker{ui: ui}
}

// NewTerminal asks on r and writes questions to w.
func NewTerminal(r io.Reader, w, errW io.Writer) *Asker {
	return New(&cli.BasicUi{
		// one buffered reader for the whole run, BasicUi wraps it again per question
		Reader:      bufio.NewReader(r),
		Writer:      w,
		ErrorWriter: errW,
	})
}

// Ask repeats question until the answer is acceptable: any non-empty answer
// without choices, one of the choices, or empty input when there is a default.
func (a *Asker) Ask(question string, opts ...Option) (string, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	query := formatQuery(question, o)
	for {
		answer, err := a.ui.Ask(query)
		if err != nil {
			return "", fmt.Errorf("error asking '%s': %w", question, err)
		}

		if answer != "" {
			if len(o.choices) == 0 || contains(o.choices, answer) {
				return answer, nil
			}

			continue
		}

		if o.hasDefault {
			return o.def, nil
		}
	}
}

// formatQuery renders "question (a/b): [default]".
func formatQuery(question string, o *options) string {
	var b strings.Builder
	b.WriteString(question)
	if len(o.choices) > 0 {
		b.WriteString(" (" + strings.Join(o.choices, "/") + ")")
	}

	b.WriteString(":")
	if o.hasDefault {
		b.WriteString(" [" + o.def + "]")
	}

	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

package container

import (
	"context"
	"fmt"
	"io"

	"github.com/yusufsyaifudin/ylog"
	"go.uber.org/multierr"
)

type Closer interface {
	io.Closer

	Name() string
}

type NamedCloser struct {
	name   string
	closer io.Closer
}

func (d *NamedCloser) Close() error {
	return d.closer.Close()
}

func (d *NamedCloser) Name() string {
	return d.name
}

var _ Closer = (*NamedCloser)(nil)

func NewNamedCloser(name string, closer io.Closer) *NamedCloser {
	return &NamedCloser{
		name:   name,
		closer: closer,
	}
}

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

// closeAll closes in reverse registration order and keeps going on error.
func closeAll(ctx context.Context, closers []Closer) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		closer := closers[i]
		if closer == nil {
			continue
		}

		ylog.Debug(ctx, fmt.Sprintf("closing %s", closer.Name()))
		if _err := closer.Close(); _err != nil {
			err = multierr.Append(err, fmt.Errorf("close %s error: %w", closer.Name(), _err))
		}
	}

	return err
}

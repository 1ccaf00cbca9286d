package mailaddr

import (
	"flag"
)

// List collects addresses from a repeatable command line flag.
type List []Address

var _ flag.Value = (*List)(nil)

func (l *List) String() string {
	if l == nil {
		return ""
	}

	return Render(*l...)
}

func (l *List) Set(value string) error {
	addr, err := Split(value)
	if err != nil {
		return err
	}

	*l = append(*l, addr)
	return nil
}

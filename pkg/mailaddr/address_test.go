package mailaddr_test

import (
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/tagihan/pkg/mailaddr"
)

func TestSplit(t *testing.T) {
	testCases := []struct {
		In   string
		Name string
		Addr string
	}{
		{In: "foo@bar.com", Addr: "foo@bar.com"},
		{In: "Foo Bar foo@bar.com", Name: "Foo Bar", Addr: "foo@bar.com"},
		{In: `  "Foo Bar" <foo@bar.com>, `, Name: "Foo Bar", Addr: "foo@bar.com"},
		{In: "Foo Bar <foo@bar.com>", Name: "Foo Bar", Addr: "foo@bar.com"},
		{In: "<foo@bar.com>", Addr: "foo@bar.com"},
		{In: `"Foo Bar"<foo@bar.com>`, Name: "Foo Bar", Addr: "foo@bar.com"},
		{In: `"Foo"<foo@bar.com>`, Name: "Foo", Addr: "foo@bar.com"},
		{In: "Bar, Foo <foo@bar.com>", Name: "Bar, Foo", Addr: "foo@bar.com"},
		{In: `'Foo' 'foo@bar.com'`, Name: "Foo", Addr: "foo@bar.com"},
		{In: "-- Foo -- foo@bar.com;", Name: "Foo", Addr: "foo@bar.com"},
		{In: "Jörn Müller <jorn@example.fi>", Name: "Jörn Müller", Addr: "jorn@example.fi"},
		{In: "mailto:foo@bar.com", Addr: "foo@bar.com"},
		{In: "foo.bar+tag@sub.bar.com.", Addr: "foo.bar+tag@sub.bar.com"},
		{In: "foo@bar.c0m1", Addr: "foo@bar.c0m"},
		{In: "a@b@c.com", Addr: "b@c.com"},
		{In: "x@localhost", Addr: "x@localhost"},
		{In: `"Doe, \"JD\" John" <jd@x.org>`, Name: `Doe, "JD" John`, Addr: "jd@x.org"},
		{In: "=?utf-8?q?J=C3=B6rn?= <j@x.fi>", Name: "Jörn", Addr: "j@x.fi"},
		{In: "\tfoo@bar.com\n", Addr: "foo@bar.com"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.In, func(t *testing.T) {
			addr, err := mailaddr.Split(testCase.In)
			require.NoError(t, err)
			assert.Equal(t, testCase.Name, addr.Name)
			assert.Equal(t, testCase.Addr, addr.Email)
			assert.Equal(t, 1, strings.Count(addr.Email, "@"))
		})
	}
}

func TestSplit_Error(t *testing.T) {
	testCases := []string{
		"",
		"   ",
		"Foo Bar",
		"foo@",
		"@bar.com",
		"foo@123",
		"foo@bar.com Foo Bar",
		"<>",
	}

	for _, in := range testCases {
		t.Run(in, func(t *testing.T) {
			_, err := mailaddr.Split(in)
			assert.ErrorIs(t, err, mailaddr.ErrAddressFormat)
		})
	}
}

func TestMustSplit(t *testing.T) {
	assert.Equal(t, mailaddr.Address{Email: "a@b.com"}, mailaddr.MustSplit("a@b.com"))
	assert.Panics(t, func() {
		mailaddr.MustSplit("nope")
	})
}

func TestRender(t *testing.T) {
	testCases := []struct {
		Name  string
		Addrs []mailaddr.Address
		Want  string
	}{
		{
			Name:  "bare",
			Addrs: []mailaddr.Address{{Email: "a@b.com"}},
			Want:  "a@b.com",
		},
		{
			Name:  "named",
			Addrs: []mailaddr.Address{{Name: "Foo Bar", Email: "foo@bar.com"}},
			Want:  "Foo Bar <foo@bar.com>",
		},
		{
			Name:  "specials are quoted",
			Addrs: []mailaddr.Address{{Name: "Bar, Foo", Email: "foo@bar.com"}},
			Want:  `"Bar, Foo" <foo@bar.com>`,
		},
		{
			Name:  "quotes are escaped",
			Addrs: []mailaddr.Address{{Name: `Foo "F" Bar`, Email: "foo@bar.com"}},
			Want:  `"Foo \"F\" Bar" <foo@bar.com>`,
		},
		{
			Name:  "non ascii is encoded",
			Addrs: []mailaddr.Address{{Name: "Jörn", Email: "j@x.fi"}},
			Want:  "=?utf-8?q?J=C3=B6rn?= <j@x.fi>",
		},
		{
			Name: "joined",
			Addrs: []mailaddr.Address{
				{Email: "a@b.com"},
				{Name: "C", Email: "c@d.com"},
			},
			Want: "a@b.com, C <c@d.com>",
		},
		{
			Name: "empty",
			Want: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			assert.Equal(t, testCase.Want, mailaddr.Render(testCase.Addrs...))
		})
	}

	t.Run("header text is ascii only", func(t *testing.T) {
		out := mailaddr.Render(mailaddr.Address{Name: "Äiti, Öljy", Email: "a@b.fi"})
		for _, r := range out {
			assert.Less(t, r, rune(128))
		}
	})
}

func TestSplitIsLeftInverseOfRender(t *testing.T) {
	names := []string{
		"Foo",
		"Foo Bar",
		"Bar, Foo",
		"Foo (PKY) Bar",
		`Foo "F" Bar`,
		"O'Brien",
		"Jörn Müller",
		"Müller, Jörn",
		"Åsa Ödmark-Lindqvist von Überlänge Pitkänimi Joka Ylittää Rivin Pituuden",
		"李小龍",
	}

	emails := []string{"a@b.com", "first.last+tag@sub.example.fi"}

	for _, name := range names {
		for _, email := range emails {
			in := mailaddr.Address{Name: name, Email: email}
			out, err := mailaddr.Split(mailaddr.Render(in))
			require.NoError(t, err, name)
			assert.Equal(t, in, out)
		}
	}
}

func TestEmails(t *testing.T) {
	emails := mailaddr.Emails(
		mailaddr.Address{Name: "A", Email: "a@b.com"},
		mailaddr.Address{Email: "c@d.com"},
	)
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, emails)
}

func TestList(t *testing.T) {
	var cc mailaddr.List

	flagSet := flag.NewFlagSet("", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Var(&cc, "cc", "")

	err := flagSet.Parse([]string{"-cc", "Foo <foo@bar.com>", "-cc", "baz@bar.com"})
	require.NoError(t, err)
	assert.Equal(t, mailaddr.List{
		{Name: "Foo", Email: "foo@bar.com"},
		{Email: "baz@bar.com"},
	}, cc)
	assert.Equal(t, "Foo <foo@bar.com>, baz@bar.com", cc.String())

	err = flagSet.Parse([]string{"-cc", "no address"})
	assert.Error(t, err)
}

func TestDisplay(t *testing.T) {
	out := mailaddr.Display(
		mailaddr.Address{Name: "Jörn, M", Email: "j@x.fi"},
		mailaddr.Address{Email: "a@b.com"},
	)
	assert.Equal(t, "Jörn, M <j@x.fi>, a@b.com", out)
}

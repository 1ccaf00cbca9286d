package send

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/tagihan/cmd"
	"github.com/yusufsyaifudin/tagihan/internal/logic/dispatch"
)

const export = `1.5.2014 12:00:01
Nro;PVM;Email;Selite;Viite;Viitenro;Summa;Eräpäivä
1;1.5.2014;Foo Bar <foo@bar.com>;Jäsenmaksu;10;1232;5;15.5.2014
2;1.5.2014;baz@qux.com;Jäsenmaksu;10;1245;5;15.5.2014
3;2.5.2014;x@y.com;Kuoromatka;20;1258;40;16.5.2014
`

type fixture struct {
	dir    string
	csv    string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	csv := filepath.Join(dir, "laskut.csv")
	require.NoError(t, os.WriteFile(csv, []byte(export), 0o600))

	logFile := filepath.Join(dir, "tagihan.log")
	config := "log:\n  file: " + logFile + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tagihan.yml"), []byte(config), 0o600))

	return &fixture{
		dir:    dir,
		csv:    csv,
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
}

func (f *fixture) run(t *testing.T, input string, args ...string) int {
	t.Helper()

	c, err := newCmd("tagihan", "test", strings.NewReader(input), f.out, f.errOut)
	require.NoError(t, err)

	args = append([]string{"-config", filepath.Join(f.dir, "tagihan.yml")}, args...)
	return c.Run(args)
}

func TestCmd_Run_DryRun(t *testing.T) {
	f := newFixture(t)
	reportFile := filepath.Join(f.dir, "report.json")

	code := f.run(t, "y\n",
		"-dry-run",
		"-index", "1-2",
		"-from", "Kuoro <kuoro@pky.fi>",
		"-smtp-server", "localhost:2525",
		"-message", `Hei,\n\nOhessa lasku.`,
		"-subject", "Lasku",
		"-report", reportFile,
		f.csv,
	)
	require.Equal(t, cmd.ExitSuccess, code, f.errOut.String())

	out := f.out.String()
	assert.Contains(t, out, "CSV file time stamp: 1.5.2014 12:00:01")
	assert.Contains(t, out, "INVOICE GROUP")
	assert.Contains(t, out, "Subject: Lasku")
	assert.Contains(t, out, "Send an email like above to <foo@bar.com>, <baz@qux.com>")
	assert.Contains(t, out, "Sending email to <foo@bar.com>...")
	assert.Contains(t, out, "Sending email to <baz@qux.com>...")
	assert.Contains(t, out, "Sent 2, failed 0")

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)

	var report dispatch.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.DryRun)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, "10", report.Groups[0].Key)
	assert.Equal(t, []string{"1", "2"}, report.Groups[0].Sent)
}

func TestCmd_Run_Prompts(t *testing.T) {
	f := newFixture(t)
	t.Setenv("EMAIL", "kuoro@pky.fi")

	// smtp server, sender (default from EMAIL), greeting (default), subject, confirm
	input := "localhost\n\n\nMuistutus\ny\n"
	code := f.run(t, input, "-dry-run", "-index", "3", "-subject-prefix", "[PKY]", f.csv)
	require.Equal(t, cmd.ExitSuccess, code, f.errOut.String())

	out := f.out.String()
	assert.Contains(t, out, "SINGLE INVOICE")
	assert.Contains(t, out, "From: kuoro@pky.fi")
	assert.Contains(t, out, "Subject: [PKY] Muistutus")
	assert.Contains(t, out, "Ohessa lasku.")
	assert.Contains(t, out, "Sending email to <x@y.com>...")
}

func TestCmd_Run_Declined(t *testing.T) {
	f := newFixture(t)

	code := f.run(t, "n\n",
		"-index", "3",
		"-from", "kuoro@pky.fi",
		"-smtp-server", "localhost",
		"-message", "Hei",
		"-subject", "Lasku",
		f.csv,
	)
	require.Equal(t, cmd.ExitSuccess, code, f.errOut.String())
	assert.Contains(t, f.out.String(), "Did not send!")
	assert.Contains(t, f.out.String(), "Sent 0, failed 0")
}

func TestCmd_Run_NothingSelected(t *testing.T) {
	f := newFixture(t)

	code := f.run(t, "", "-date", "1.1.2000", f.csv)
	assert.Equal(t, cmd.ExitSuccess, code)
	assert.Contains(t, f.out.String(), "No invoices to send, exiting")
}

func TestCmd_Run_Error(t *testing.T) {
	testCases := []struct {
		Name string
		Args func(f *fixture) []string
		Want string
	}{
		{
			Name: "no file",
			Args: func(f *fixture) []string { return []string{"-index", "1"} },
			Want: "expect exactly one input file",
		},
		{
			Name: "missing file",
			Args: func(f *fixture) []string { return []string{"-index", "1", filepath.Join(f.dir, "missing.csv")} },
			Want: "error read invoices",
		},
		{
			Name: "date and index",
			Args: func(f *fixture) []string { return []string{"-index", "1", "-date", "1.5.2014", f.csv} },
			Want: "invalid selection",
		},
		{
			Name: "bad index",
			Args: func(f *fixture) []string { return []string{"-index", "1-x", f.csv} },
			Want: "error read invoices",
		},
		{
			Name: "bad sender",
			Args: func(f *fixture) []string {
				return []string{"-index", "1", "-smtp-server", "localhost", "-from", "nobody", f.csv}
			},
			Want: "invalid sender",
		},
		{
			Name: "bad smtp port",
			Args: func(f *fixture) []string {
				return []string{"-index", "1", "-smtp-server", "localhost:smtp25", "-from", "a@b.com", f.csv}
			},
			Want: "invalid smtp server",
		},
		{
			Name: "unknown group column",
			Args: func(f *fixture) []string {
				return []string{"-index", "1", "-smtp-server", "localhost", "-from", "a@b.com", "-group-by", "ryhmä", f.csv}
			},
			Want: "error group invoices",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			f := newFixture(t)
			code := f.run(t, "", testCase.Args(f)...)
			assert.Equal(t, cmd.ExitErr, code)
			assert.Contains(t, f.errOut.String(), testCase.Want)
		})
	}
}

func TestCmd_Help(t *testing.T) {
	c, err := newCmd("tagihan", "test", strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, c.Help(), "Usage: tagihan send")
	assert.Contains(t, c.Help(), "-dry-run")
	assert.NotEmpty(t, c.Synopsis())
}

package tabular_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/tagihan/pkg/tabular"
)

const semicolonExport = `1.5.2014 12:00:01
Nro;PVM;Email;Selite;Viite;Summa
1;01.05.2014;a@b.com;Jäsenmaksu;10;5
2;02.05.2014;"Foo; Bar <c@d.com>";Kuoromatka;20;40
;;;;;
`

func TestSniff(t *testing.T) {
	testCases := []struct {
		Name   string
		Sample string
		Want   tabular.Dialect
	}{
		{
			Name:   "comma",
			Sample: "ts\na,b,c\n1,2,3\n4,5,6\n",
			Want:   tabular.Dialect{Delimiter: ',', Quote: '"'},
		},
		{
			Name:   "semicolon with times in timestamp",
			Sample: "1.5.2014 12:00:01\nnro;pvm;email\n1;2;3\n4;5;6\n",
			Want:   tabular.Dialect{Delimiter: ';', Quote: '"'},
		},
		{
			Name:   "tab",
			Sample: "ts\nnro\tpvm\temail\n1\t2, 3\t4\n",
			Want:   tabular.Dialect{Delimiter: '\t', Quote: '"'},
		},
		{
			Name:   "quoted delimiter is ignored",
			Sample: "ts\na;b\n\"x;y;z\";1\n2;3\n",
			Want:   tabular.Dialect{Delimiter: ';', Quote: '"'},
		},
		{
			Name:   "single quote",
			Sample: "ts\n'a','b'\n'1','O''Brien'\n",
			Want:   tabular.Dialect{Delimiter: ',', Quote: '\''},
		},
		{
			Name:   "apostrophe inside a word is not a quote",
			Sample: "ts\nname,city\nO'Brien,Cork\n",
			Want:   tabular.Dialect{Delimiter: ',', Quote: '"'},
		},
		{
			Name:   "nothing to guess from",
			Sample: "",
			Want:   tabular.DefaultDialect,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			assert.Equal(t, testCase.Want, tabular.Sniff([]byte(testCase.Sample)))
		})
	}
}

func TestRead(t *testing.T) {
	t.Run("semicolon export", func(t *testing.T) {
		table, err := tabular.Read(strings.NewReader(semicolonExport))
		require.NoError(t, err)

		assert.Equal(t, "1.5.2014 12:00:01", table.Timestamp)
		assert.Equal(t, []string{"nro", "pvm", "email", "selite", "viite", "summa"}, table.Header)
		assert.Equal(t, ';', table.Dialect.Delimiter)
		require.Len(t, table.Records, 3)

		first := table.Records[0]
		assert.Equal(t, 3, first.Line())
		assert.Equal(t, map[string]string{
			"nro": "1", "pvm": "01.05.2014", "email": "a@b.com",
			"selite": "Jäsenmaksu", "viite": "10", "summa": "5",
		}, first.Fields())

		email, err := table.Records[1].Value("email")
		require.NoError(t, err)
		assert.Equal(t, "Foo; Bar <c@d.com>", email)

		nro, ok := table.Records[2].Get("nro")
		assert.True(t, ok)
		assert.Empty(t, nro)
	})

	t.Run("byte order mark and crlf", func(t *testing.T) {
		in := "\xEF\xBB\xBFts\r\nA,B\r\n1,2\r\n"
		table, err := tabular.Read(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, "ts", table.Timestamp)
		assert.Equal(t, []string{"a", "b"}, table.Header)
		require.Len(t, table.Records, 1)
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, table.Records[0].Fields())
	})

	t.Run("single quoted dialect keeps double quotes in cells", func(t *testing.T) {
		in := "ts\n'a','b'\n'say \"hi\"','x,y'\n"
		table, err := tabular.Read(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, table.Records, 1)
		assert.Equal(t, map[string]string{"a": `say "hi"`, "b": "x,y"}, table.Records[0].Fields())
	})

	t.Run("explicit dialect", func(t *testing.T) {
		in := "ts\na|b\n1|2\n"
		table, err := tabular.Read(strings.NewReader(in), tabular.WithDialect(tabular.Dialect{Delimiter: '|', Quote: '"'}))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, table.Records[0].Fields())
	})

	t.Run("sniff only looks at the prefix", func(t *testing.T) {
		var b bytes.Buffer
		b.WriteString("ts\na;b\n")
		for i := 0; i < 100; i++ {
			b.WriteString("1;2\n")
		}

		table, err := tabular.Read(&b, tabular.WithSniffSize(16))
		require.NoError(t, err)
		assert.Len(t, table.Records, 100)
		assert.Equal(t, ';', table.Dialect.Delimiter)
	})

	t.Run("latin-1 cells", func(t *testing.T) {
		in := "ts\nselite\nJ\xe4senmaksu\n"
		table, err := tabular.Read(strings.NewReader(in), tabular.WithEncoding("iso-8859-1"))
		require.NoError(t, err)
		v, err := table.Records[0].Value("selite")
		require.NoError(t, err)
		assert.Equal(t, "Jäsenmaksu", v)
	})

	t.Run("header only", func(t *testing.T) {
		table, err := tabular.Read(strings.NewReader("ts\na,b\n"))
		require.NoError(t, err)
		assert.Empty(t, table.Records)
	})
}

func TestRead_Error(t *testing.T) {
	testCases := []struct {
		Name string
		In   string
		Opts []tabular.Option
		Err  error
	}{
		{Name: "empty", In: "", Err: tabular.ErrSchema},
		{Name: "timestamp only", In: "ts\n", Err: tabular.ErrSchema},
		{Name: "short row", In: "ts\na,b,c\n1,2,3\n1,2\n", Err: tabular.ErrSchema},
		{Name: "long row", In: "ts\na,b\n1,2,3\n", Err: tabular.ErrSchema},
		{Name: "empty header name", In: "ts\na,,c\n1,2,3\n", Err: tabular.ErrSchema},
		{Name: "duplicate header", In: "ts\na,A\n1,2\n", Err: tabular.ErrSchema},
		{Name: "invalid utf-8", In: "ts\na,b\n1,J\xe4\n", Err: tabular.ErrEncoding},
		{Name: "unknown encoding", In: "ts\na\n1\n", Opts: []tabular.Option{tabular.WithEncoding("klingon")}, Err: tabular.ErrEncoding},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			table, err := tabular.Read(strings.NewReader(testCase.In), testCase.Opts...)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, testCase.Err)
		})
	}

	t.Run("error names the line", func(t *testing.T) {
		_, err := tabular.Read(strings.NewReader("ts\na,b\n1,2\n3\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 4")
	})
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laskut.csv")
	require.NoError(t, os.WriteFile(path, []byte(semicolonExport), 0o600))

	table, err := tabular.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Records, 3)

	_, err = tabular.ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, tabular.ErrSchema))
}

func TestRecord(t *testing.T) {
	fields := map[string]string{"nro": "1"}
	rec := tabular.NewRecord(7, fields)
	fields["nro"] = "changed"

	v, err := rec.Value("nro")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, 7, rec.Line())

	_, err = rec.Value("pvm")
	assert.ErrorIs(t, err, tabular.ErrSchema)

	out := rec.Fields()
	out["nro"] = "mutated"
	v, _ = rec.Get("nro")
	assert.Equal(t, "1", v)
}

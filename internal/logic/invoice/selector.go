package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yusufsyaifudin/tagihan/pkg/indexrange"
)

// DateLayout is day.month.year, one or two digit day and month.
const DateLayout = "2.1.2006"

var now = time.Now

// Mode decides which invoice rows are sent.
type Mode interface {
	fmt.Stringer
	prepare() (func(rec Record) (bool, error), error)
}

type byRange string

// ByRange keeps rows whose invoice number is inside expr, see indexrange.
func ByRange(expr string) Mode {
	return byRange(expr)
}

func (m byRange) String() string {
	return "index " + string(m)
}

func (m byRange) prepare() (func(rec Record) (bool, error), error) {
	spec, err := indexrange.Parse(string(m))
	if err != nil {
		return nil, err
	}

	return func(rec Record) (bool, error) {
		nro, err := rec.Value(ColumnNumber)
		if err != nil {
			return false, err
		}

		n, err := strconv.Atoi(strings.TrimSpace(nro))
		if err != nil {
			return false, fmt.Errorf("%w: line %d: invoice number '%s' is not an integer", ErrParse, rec.Line(), nro)
		}

		return spec.Contains(n), nil
	}, nil
}

type byDate time.Time

// ByDate keeps rows dated on the same calendar day as date. The zero time
// means today.
func ByDate(date time.Time) Mode {
	return byDate(date)
}

func (m byDate) target() time.Time {
	if time.Time(m).IsZero() {
		return now()
	}

	return time.Time(m)
}

func (m byDate) String() string {
	return "date " + m.target().Format(DateLayout)
}

func (m byDate) prepare() (func(rec Record) (bool, error), error) {
	year, month, day := m.target().Date()

	return func(rec Record) (bool, error) {
		pvm, err := rec.Value(ColumnDate)
		if err != nil {
			return false, err
		}

		date, err := ParseDate(pvm)
		if err != nil {
			return false, fmt.Errorf("line %d: %w", rec.Line(), err)
		}

		y, m, d := date.Date()
		return y == year && m == month && d == day, nil
	}, nil
}

// ParseDate reads a day.month.year date in the local time zone.
func ParseDate(text string) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(text), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date '%s', want day.month.year", ErrParse, text)
	}

	return date, nil
}

// Select filters records by mode, keeping their order. Rows without an
// invoice number are never selected: they are notes or sums, not invoices.
func Select(records []Record, mode Mode) ([]Record, error) {
	keep, err := mode.prepare()
	if err != nil {
		return nil, err
	}

	selected := make([]Record, 0)
	for _, rec := range records {
		nro, err := rec.Value(ColumnNumber)
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(nro) == "" {
			continue
		}

		ok, err := keep(rec)
		if err != nil {
			return nil, err
		}

		if ok {
			selected = append(selected, rec)
		}
	}

	return selected, nil
}

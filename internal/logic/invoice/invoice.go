// Package invoice holds the invoice pipeline between reading the export and
// sending mail: selecting rows, grouping them and composing the messages.
package invoice

import (
	"errors"

	"github.com/yusufsyaifudin/tagihan/pkg/indexrange"
	"github.com/yusufsyaifudin/tagihan/pkg/tabular"
)

// Column names of the invoice export, after lower-casing.
const (
	ColumnNumber      = "nro"
	ColumnDate        = "pvm"
	ColumnEmail       = "email"
	ColumnDescription = "selite"
	ColumnReference   = "viitenro"
	ColumnAmount      = "summa"
	ColumnDueDate     = "eräpäivä"

	// ColumnGroup holds the shared reference of invoices meant to go out
	// together, the default grouping column.
	ColumnGroup = "viite"
)

var (
	ErrParse    = indexrange.ErrParse
	ErrSchema   = tabular.ErrSchema
	ErrTemplate = errors.New("template error")
)

// Record is one invoice row.
type Record = tabular.Record

package models

import "strings"

// ColumnKind partitions columns into the two families the metric formulas
// dispatch on. It is derived from the declared physical type at read time and
// never stored.
type ColumnKind string

const (
	ColumnKindNumeric     ColumnKind = "numeric"
	ColumnKindCategorical ColumnKind = "categorical"
)

// ColumnSchema is one column of a table's declared schema.
type ColumnSchema struct {
	Name string     `json:"column_name"`
	Type string     `json:"column_type"`
	Kind ColumnKind `json:"column_kind"`
}

// numericTypes are the DuckDB declared types treated as numeric for metric
// dispatch. Everything else (VARCHAR, BOOLEAN, DATE, TIMESTAMP, ...) is
// categorical.
var numericTypes = map[string]struct{}{
	"TINYINT":   {},
	"SMALLINT":  {},
	"INTEGER":   {},
	"BIGINT":    {},
	"HUGEINT":   {},
	"UTINYINT":  {},
	"USMALLINT": {},
	"UINTEGER":  {},
	"UBIGINT":   {},
	"FLOAT":     {},
	"REAL":      {},
	"DOUBLE":    {},
	"DECIMAL":   {},
}

// ClassifyColumnType maps a declared DuckDB type to a ColumnKind.
// DECIMAL carries precision parameters (DECIMAL(18,3)); they are stripped
// before the lookup.
func ClassifyColumnType(declared string) ColumnKind {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	if _, ok := numericTypes[t]; ok {
		return ColumnKindNumeric
	}
	return ColumnKindCategorical
}

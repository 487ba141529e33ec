package database

import (
	"strings"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
)

// tablePrefix namespaces every ingested dataset's physical table.
const tablePrefix = "ds_"

// SanitizeID maps every byte outside [A-Za-z0-9_] to an underscore. The result
// is safe to splice into SQL as an identifier without quoting.
func SanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, ch := range []byte(id) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_':
			b.WriteByte(ch)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// TableName derives the physical table name for a dataset id. It is a pure
// function of the id: re-ingesting the same id always targets the same table.
func TableName(datasetID string) (string, error) {
	if datasetID == "" {
		return "", apperrors.ErrEmptyDatasetID
	}
	return tablePrefix + SanitizeID(datasetID), nil
}

// QuoteIdent double-quotes a column identifier for interpolation into SQL.
// Callers are still expected to validate the column against the table schema
// first; quoting alone only guards against syntax breakage.
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteLiteral single-quotes a string literal (file paths handed to
// read_csv_auto / read_parquet).
func QuoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

package types

import "fmt"

// CellFromValue projects one value produced by the SQLite driver into a Cell.
//
// The driver reports SQLite's storage class directly as int64, float64,
// string, []byte or nil, provided the column has no declared DATE, DATETIME,
// TIMESTAMP or BOOLEAN type (go-sqlite3 converts those to time.Time and bool,
// losing the stored value). Any other Go type is an error. Blobs are copied.
func CellFromValue(v any) (Cell, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Integer(val), nil
	case float64:
		return Real(val), nil
	case string:
		return Text(val), nil
	case []byte:
		b := make([]byte, len(val))
		copy(b, val)
		return Blob(b), nil
	default:
		return Cell{}, fmt.Errorf("unsupported driver value of type %T", v)
	}
}

// RowFromValues projects a scanned result row.
func RowFromValues(values []any) (Row, error) {
	row := make(Row, len(values))
	for i, v := range values {
		c, err := CellFromValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		row[i] = c
	}
	return row, nil
}

package types

import "fmt"

// Image is a complete SQLite database in the engine's native serialized
// page format (schema + data). It is treated as opaque: nothing in this
// module reinterprets or transcodes the bytes.
type Image []byte

// Kind is the storage class of a Cell.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cell is one result value, tagged with the storage class SQLite reported
// for it. Only the field matching Kind is meaningful.
type Cell struct {
	Kind    Kind
	Integer int64
	Real    float64
	Text    string
	Blob    []byte
}

// Row is one result tuple. Cells are position-significant.
type Row []Cell

func Null() Cell            { return Cell{Kind: KindNull} }
func Integer(v int64) Cell  { return Cell{Kind: KindInteger, Integer: v} }
func Real(v float64) Cell   { return Cell{Kind: KindReal, Real: v} }
func Text(v string) Cell    { return Cell{Kind: KindText, Text: v} }
func Blob(v []byte) Cell    { return Cell{Kind: KindBlob, Blob: v} }
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Value returns the cell as a plain Go value (nil, int64, float64, string or
// []byte).
func (c Cell) Value() any {
	switch c.Kind {
	case KindInteger:
		return c.Integer
	case KindReal:
		return c.Real
	case KindText:
		return c.Text
	case KindBlob:
		return c.Blob
	default:
		return nil
	}
}

func (c Cell) String() string {
	switch c.Kind {
	case KindNull:
		return "NULL"
	case KindText:
		return fmt.Sprintf("%q", c.Text)
	case KindBlob:
		return fmt.Sprintf("x'%x'", c.Blob)
	default:
		return fmt.Sprint(c.Value())
	}
}

func (r Row) cell(index int) (Cell, bool) {
	if index < 0 || index >= len(r) {
		return Cell{}, false
	}
	return r[index], true
}

// AsText returns the text stored at index. The second result is false when
// the index is out of range or the cell is not Text; no conversion is done.
func AsText(row Row, index int) (string, bool) {
	c, ok := row.cell(index)
	if !ok || c.Kind != KindText {
		return "", false
	}
	return c.Text, true
}

// AsInteger returns the integer stored at index. A Real cell is absent, not
// truncated.
func AsInteger(row Row, index int) (int64, bool) {
	c, ok := row.cell(index)
	if !ok || c.Kind != KindInteger {
		return 0, false
	}
	return c.Integer, true
}

// AsReal returns the float stored at index. An Integer cell is absent, not
// widened.
func AsReal(row Row, index int) (float64, bool) {
	c, ok := row.cell(index)
	if !ok || c.Kind != KindReal {
		return 0, false
	}
	return c.Real, true
}

// AsBlob returns the bytes stored at index.
func AsBlob(row Row, index int) ([]byte, bool) {
	c, ok := row.cell(index)
	if !ok || c.Kind != KindBlob {
		return nil, false
	}
	return c.Blob, true
}

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --- JSON row encoding ---
//
// A row is a JSON array with one element per column:
//
//	null            Null
//	42              Integer (no '.' and no exponent)
//	42.0, 1e+300    Real (always carries '.' or an exponent)
//	"text"          Text
//	[104, 105]      Blob, one number per byte

// MarshalJSON encodes the cell in the row interchange format.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindInteger:
		return strconv.AppendInt(nil, c.Integer, 10), nil
	case KindReal:
		if math.IsNaN(c.Real) || math.IsInf(c.Real, 0) {
			return nil, fmt.Errorf("cannot encode non-finite real %v", c.Real)
		}
		s := strconv.FormatFloat(c.Real, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case KindText:
		return json.Marshal(c.Text)
	case KindBlob:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, b := range c.Blob {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(int(b)))
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("cannot encode cell of %s", c.Kind)
	}
}

// UnmarshalJSON decodes a cell written by MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty cell")
	}
	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("invalid cell %s", data)
		}
		*c = Null()
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
	case '[':
		var ints []int
		if err := json.Unmarshal(data, &ints); err != nil {
			return fmt.Errorf("invalid blob cell: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return fmt.Errorf("blob byte %d out of range: %d", i, v)
			}
			b[i] = byte(v)
		}
		*c = Blob(b)
	default:
		s := string(data)
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid real cell: %w", err)
			}
			*c = Real(f)
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer cell: %w", err)
		}
		*c = Integer(n)
	}
	return nil
}

// MarshalJSON encodes the row as a JSON array. A nil row encodes as [].
func (r Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Cell(r))
}

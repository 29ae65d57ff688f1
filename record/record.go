// Package record encodes and decodes typed tuples against a table schema:
// a null bitmap header followed by the concatenation of non-null attribute
// encodings, in attribute order (spec §4.4).
package record

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"

	"heapstore/dberr"
	"heapstore/schema"
)

// Value is the dynamic, per-attribute payload of a Record. Exactly one of
// the typed fields is meaningful, selected by Null and the
// attribute's schema.DataType.
type Value struct {
	Null   bool
	Int    int32
	Double float64
	Bool   bool
	Str    string
}

// NullValue returns the null Value.
func NullValue() Value { return Value{Null: true} }

// IntValue, DoubleValue, BoolValue, StringValue build non-null values.
func IntValue(v int32) Value      { return Value{Int: v} }
func DoubleValue(v float64) Value { return Value{Double: v} }
func BoolValue(v bool) Value      { return Value{Bool: v} }
func StringValue(v string) Value  { return Value{Str: v} }

// Record is a fixed-arity sequence of typed values aligned to a table's
// attribute list.
type Record struct {
	Values []Value
}

func bitmapSize(numAttrs int) int {
	return (numAttrs + 7) / 8
}

// EncodedSize reports the byte length attribute v would occupy in a
// Record's payload (zero when null), or an error if v does not conform to
// attr.
func EncodedSize(attr schema.AttributeSchema, v Value) (int, error) {
	if v.Null {
		return 0, nil
	}
	if err := checkShape(attr, v); err != nil {
		return 0, err
	}
	switch attr.Type {
	case schema.Integer:
		return 4, nil
	case schema.Double:
		return 8, nil
	case schema.Boolean:
		return 1, nil
	case schema.Char:
		return attr.MaxLength, nil
	case schema.Varchar:
		if len(v.Str) > attr.MaxLength {
			return 0, errors.Wrapf(dberr.ErrLengthExceeded, "attribute %s: %d bytes exceeds max length %d", attr.Name, len(v.Str), attr.MaxLength)
		}
		return 2 + len(v.Str), nil
	default:
		return 0, errors.Wrapf(dberr.ErrTypeMismatch, "attribute %s: unknown data type", attr.Name)
	}
}

// Encode validates and serializes values against attrs, producing the
// null-bitmap-prefixed byte layout of spec §4.4. It rejects a value that
// violates NOT NULL or exceeds a CHAR/VARCHAR max length, or whose Go
// shape does not match the attribute's DataType.
func Encode(attrs []schema.AttributeSchema, values []Value) ([]byte, error) {
	if len(values) != len(attrs) {
		return nil, errors.Errorf("arity mismatch: schema has %d attributes, got %d values", len(attrs), len(values))
	}

	bmSize := bitmapSize(len(attrs))
	total := bmSize
	for i, attr := range attrs {
		v := values[i]
		if v.Null {
			if attr.NotNull() {
				return nil, errors.Wrapf(dberr.ErrNullInNotNull, "attribute %s", attr.Name)
			}
			continue
		}
		if err := checkShape(attr, v); err != nil {
			return nil, err
		}
		n, err := EncodedSize(attr, v)
		if err != nil {
			return nil, err
		}
		total += n
	}

	buf := make([]byte, total)
	off := bmSize
	for i, attr := range attrs {
		v := values[i]
		if v.Null {
			buf[i/8] |= 1 << uint(i%8)
			continue
		}
		switch attr.Type {
		case schema.Integer:
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v.Int))
			off += 4
		case schema.Double:
			binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v.Double))
			off += 8
		case schema.Boolean:
			if v.Bool {
				buf[off] = 1
			} else {
				buf[off] = 0
			}
			off += 1
		case schema.Char:
			n := copy(buf[off:off+attr.MaxLength], v.Str)
			_ = n // remaining bytes already zero from make()
			off += attr.MaxLength
		case schema.Varchar:
			binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(v.Str)))
			off += 2
			copy(buf[off:off+len(v.Str)], v.Str)
			off += len(v.Str)
		}
	}
	return buf, nil
}

// checkShape rejects values whose Go representation cannot belong to
// attr's DataType: a non-empty string for an INTEGER, DOUBLE or BOOLEAN
// column, or a non-zero number or true boolean for a CHAR/VARCHAR column.
// It also enforces the CHAR/VARCHAR max length.
func checkShape(attr schema.AttributeSchema, v Value) error {
	switch attr.Type {
	case schema.Integer, schema.Double, schema.Boolean:
		// Value carries no type tag and unused fields are zero-valued, so
		// only a non-empty string is checked as foreign to these types.
		if v.Str != "" {
			return errors.Wrapf(dberr.ErrTypeMismatch, "attribute %s: string value supplied for %s", attr.Name, attr.Type)
		}
		return nil
	case schema.Char:
		if v.Int != 0 || v.Double != 0 || v.Bool {
			return errors.Wrapf(dberr.ErrTypeMismatch, "attribute %s: non-string value supplied for CHAR", attr.Name)
		}
		if len(v.Str) > attr.MaxLength {
			return errors.Wrapf(dberr.ErrLengthExceeded, "attribute %s: %d bytes exceeds CHAR(%d)", attr.Name, len(v.Str), attr.MaxLength)
		}
		return nil
	case schema.Varchar:
		if v.Int != 0 || v.Double != 0 || v.Bool {
			return errors.Wrapf(dberr.ErrTypeMismatch, "attribute %s: non-string value supplied for VARCHAR", attr.Name)
		}
		if len(v.Str) > attr.MaxLength {
			return errors.Wrapf(dberr.ErrLengthExceeded, "attribute %s: %d bytes exceeds VARCHAR(%d)", attr.Name, len(v.Str), attr.MaxLength)
		}
		return nil
	default:
		return errors.Wrapf(dberr.ErrTypeMismatch, "attribute %s: unknown data type", attr.Name)
	}
}

// Decode is the inverse of Encode: it reads the null bitmap then each
// non-null attribute in order. CHAR values are trimmed of trailing zero
// bytes then trailing ASCII whitespace, per spec §4.4.
func Decode(attrs []schema.AttributeSchema, buf []byte) ([]Value, error) {
	bmSize := bitmapSize(len(attrs))
	if len(buf) < bmSize {
		return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer shorter than null bitmap")
	}
	values := make([]Value, len(attrs))
	off := bmSize
	for i, attr := range attrs {
		if buf[i/8]&(1<<uint(i%8)) != 0 {
			values[i] = NullValue()
			continue
		}
		switch attr.Type {
		case schema.Integer:
			if off+4 > len(buf) {
				return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer truncated reading INTEGER")
			}
			values[i] = IntValue(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
			off += 4
		case schema.Double:
			if off+8 > len(buf) {
				return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer truncated reading DOUBLE")
			}
			bits := binary.LittleEndian.Uint64(buf[off : off+8])
			values[i] = DoubleValue(math.Float64frombits(bits))
			off += 8
		case schema.Boolean:
			if off+1 > len(buf) {
				return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer truncated reading BOOLEAN")
			}
			values[i] = BoolValue(buf[off] != 0)
			off += 1
		case schema.Char:
			if off+attr.MaxLength > len(buf) {
				return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer truncated reading CHAR")
			}
			raw := buf[off : off+attr.MaxLength]
			values[i] = StringValue(trimChar(raw))
			off += attr.MaxLength
		case schema.Varchar:
			if off+2 > len(buf) {
				return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer truncated reading VARCHAR length")
			}
			n := int(binary.LittleEndian.Uint16(buf[off : off+2]))
			off += 2
			if off+n > len(buf) {
				return nil, errors.Wrap(dberr.ErrInvariantBreach, "record buffer truncated reading VARCHAR payload")
			}
			values[i] = StringValue(string(buf[off : off+n]))
			off += n
		default:
			return nil, errors.Wrapf(dberr.ErrTypeMismatch, "attribute %s: unknown data type", attr.Name)
		}
	}
	return values, nil
}

func trimChar(raw []byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	return strings.TrimRight(string(raw[:end]), " \t\n\r\v\f")
}

// Equal reports whether two values represent the same datum for the
// purposes of primary-key comparison. A null value is never equal to
// anything, including another null (spec §4.3, §8 invariant 6).
func Equal(a, b Value) bool {
	if a.Null || b.Null {
		return false
	}
	return a.Int == b.Int && a.Double == b.Double && a.Bool == b.Bool && a.Str == b.Str
}

// Package schema holds the plain data describing tables and their
// attributes. It has no I/O and no encoding logic of its own — record and
// catalogio both build on these types without depending on each other.
package schema

import (
	"fmt"
	"strings"
)

// DataType tags a column's storage representation. Only CHAR and VARCHAR
// carry a MaxLength; it is zero (ignored) for every other tag.
type DataType int

const (
	Integer DataType = iota
	Double
	Boolean
	Char
	Varchar
)

func (d DataType) String() string {
	switch d {
	case Integer:
		return "INTEGER"
	case Double:
		return "DOUBLE"
	case Boolean:
		return "BOOLEAN"
	case Char:
		return "CHAR"
	case Varchar:
		return "VARCHAR"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// ParseDataType recognizes the tag names used by the catalog file format.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToUpper(s) {
	case "INTEGER":
		return Integer, nil
	case "DOUBLE":
		return Double, nil
	case "BOOLEAN":
		return Boolean, nil
	case "CHAR":
		return Char, nil
	case "VARCHAR":
		return Varchar, nil
	default:
		return 0, fmt.Errorf("unknown data type tag %q", s)
	}
}

// HasLength reports whether MaxLength is meaningful for this tag.
func (d DataType) HasLength() bool {
	return d == Char || d == Varchar
}

// AttributeSchema describes one column of a table.
type AttributeSchema struct {
	Name        string // always lowercase
	Type        DataType
	MaxLength   int // only meaningful when Type.HasLength()
	IsPrimaryKey bool
	IsNotNull   bool // implied true when IsPrimaryKey
	HasDefault  bool
	Default     interface{} // int32, float64, bool, or string depending on Type; nil when !HasDefault
}

// NotNull reports whether this attribute rejects null values, accounting
// for the primary key's implied NOT NULL.
func (a AttributeSchema) NotNull() bool {
	return a.IsNotNull || a.IsPrimaryKey
}

// TableSchema describes a table: its lowercase name, the insertion-ordered
// attribute list, and the id of its first heap page.
type TableSchema struct {
	Name       string // always lowercase
	Attributes []AttributeSchema
	HeadPageID int32
}

// PrimaryKeyIndex returns the index of the sole primary-key attribute, or
// -1 if the schema (invalidly) has none.
func (t *TableSchema) PrimaryKeyIndex() int {
	for i, a := range t.Attributes {
		if a.IsPrimaryKey {
			return i
		}
	}
	return -1
}

// AttributeIndex returns the index of the attribute named name
// (case-insensitive), or -1 if absent.
func (t *TableSchema) AttributeIndex(name string) int {
	lower := strings.ToLower(name)
	for i, a := range t.Attributes {
		if a.Name == lower {
			return i
		}
	}
	return -1
}

// Clone returns a deep-enough copy so that mutating the attribute slice of
// the clone never affects the original (used by ALTER TABLE to derive a
// new schema from an old one without aliasing).
func (t *TableSchema) Clone() *TableSchema {
	cp := &TableSchema{Name: t.Name, HeadPageID: t.HeadPageID}
	cp.Attributes = append([]AttributeSchema{}, t.Attributes...)
	return cp
}

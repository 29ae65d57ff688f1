package schema_test

import (
	"testing"

	"heapstore/schema"
)

func TestPrimaryKeyIndex(t *testing.T) {
	ts := &schema.TableSchema{Attributes: []schema.AttributeSchema{
		{Name: "a"},
		{Name: "b", IsPrimaryKey: true},
		{Name: "c"},
	}}
	if ts.PrimaryKeyIndex() != 1 {
		t.Fatalf("expected primary key at index 1, got %d", ts.PrimaryKeyIndex())
	}
}

func TestAttributeIndexIsCaseInsensitive(t *testing.T) {
	ts := &schema.TableSchema{Attributes: []schema.AttributeSchema{{Name: "name"}}}
	if ts.AttributeIndex("NAME") != 0 {
		t.Fatalf("expected case-insensitive match")
	}
	if ts.AttributeIndex("missing") != -1 {
		t.Fatalf("expected -1 for an absent attribute")
	}
}

func TestCloneDoesNotAliasAttributes(t *testing.T) {
	ts := &schema.TableSchema{Attributes: []schema.AttributeSchema{{Name: "a"}}}
	cp := ts.Clone()
	cp.Attributes[0].Name = "changed"
	if ts.Attributes[0].Name == "changed" {
		t.Fatalf("expected Clone to produce an independent attribute slice")
	}
}

func TestNotNullImpliedByPrimaryKey(t *testing.T) {
	a := schema.AttributeSchema{IsPrimaryKey: true}
	if !a.NotNull() {
		t.Fatalf("expected a primary key attribute to imply NOT NULL")
	}
}

func TestParseDataTypeRoundTrip(t *testing.T) {
	for _, dt := range []schema.DataType{schema.Integer, schema.Double, schema.Boolean, schema.Char, schema.Varchar} {
		parsed, err := schema.ParseDataType(dt.String())
		if err != nil {
			t.Fatalf("parse %s: %v", dt.String(), err)
		}
		if parsed != dt {
			t.Fatalf("expected %v, got %v", dt, parsed)
		}
	}
	if _, err := schema.ParseDataType("NOTATYPE"); err == nil {
		t.Fatalf("expected an error for an unrecognized type tag")
	}
}

func TestHasLength(t *testing.T) {
	if !schema.Char.HasLength() || !schema.Varchar.HasLength() {
		t.Fatalf("expected CHAR and VARCHAR to report HasLength")
	}
	if schema.Integer.HasLength() || schema.Double.HasLength() || schema.Boolean.HasLength() {
		t.Fatalf("expected fixed-size types to report !HasLength")
	}
}

package catalogio_test

import (
	"testing"

	"heapstore/catalogio"
	"heapstore/schema"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalogio.Load(dir, 2048, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.PageSize != 2048 || !cat.Indexing {
		t.Fatalf("expected defaults to be used on a first run, got %+v", cat)
	}
	if cat.FreePageListHead != -1 || cat.LastPageID != 0 {
		t.Fatalf("expected an empty free list and a last page id of 0 (no page allocated yet) on a first run")
	}
	if len(cat.Tables) != 0 {
		t.Fatalf("expected no tables on a first run")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cat := catalogio.New(4096, false)
	cat.FreePageListHead = 3
	cat.LastPageID = 10
	cat.Tables["people"] = &schema.TableSchema{
		Name:       "people",
		HeadPageID: 1,
		Attributes: []schema.AttributeSchema{
			{Name: "id", Type: schema.Integer, IsPrimaryKey: true},
			{Name: "name", Type: schema.Varchar, MaxLength: 32, IsNotNull: true},
			{Name: "tag", Type: schema.Char, MaxLength: 4, HasDefault: true, Default: "none"},
			{Name: "score", Type: schema.Double, HasDefault: true, Default: 0.0},
			{Name: "active", Type: schema.Boolean, HasDefault: true, Default: true},
		},
	}

	if err := cat.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := catalogio.Load(dir, 999, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PageSize != 4096 || loaded.Indexing {
		t.Fatalf("expected the persisted page size/indexing to override the defaults, got %+v", loaded)
	}
	if loaded.FreePageListHead != 3 || loaded.LastPageID != 10 {
		t.Fatalf("unexpected free list head/last page id: %+v", loaded)
	}
	ts, ok := loaded.Tables["people"]
	if !ok {
		t.Fatalf("expected table 'people' to round trip")
	}
	if len(ts.Attributes) != 5 {
		t.Fatalf("expected 5 attributes, got %d", len(ts.Attributes))
	}
	if ts.Attributes[2].Default.(string) != "none" {
		t.Fatalf("expected CHAR default 'none', got %v", ts.Attributes[2].Default)
	}
	if ts.Attributes[3].Default.(float64) != 0.0 {
		t.Fatalf("expected DOUBLE default 0.0, got %v", ts.Attributes[3].Default)
	}
	if ts.Attributes[4].Default.(bool) != true {
		t.Fatalf("expected BOOLEAN default true, got %v", ts.Attributes[4].Default)
	}
}

func TestSaveReplacesPreviousCatalog(t *testing.T) {
	dir := t.TempDir()
	cat := catalogio.New(4096, false)
	if err := cat.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	cat.Tables["t"] = &schema.TableSchema{Name: "t", HeadPageID: 1}
	if err := cat.Save(dir); err != nil {
		t.Fatalf("second save: %v", err)
	}
	loaded, err := catalogio.Load(dir, 4096, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tables) != 1 {
		t.Fatalf("expected the second save's contents to be visible, got %d tables", len(loaded.Tables))
	}
}

package config_test

import (
	"testing"

	"heapstore/config"
)

func TestNewAppliesDefaults(t *testing.T) {
	cfg := config.New("/tmp/db")
	if cfg.DBPath != "/tmp/db" {
		t.Fatalf("expected DBPath /tmp/db, got %s", cfg.DBPath)
	}
	if cfg.PageSize != config.DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", config.DefaultPageSize, cfg.PageSize)
	}
	if cfg.BufferPages != config.DefaultBufferPages {
		t.Fatalf("expected default buffer pages %d, got %d", config.DefaultBufferPages, cfg.BufferPages)
	}
	if cfg.Indexing != config.DefaultIndexing {
		t.Fatalf("expected default indexing %v, got %v", config.DefaultIndexing, cfg.Indexing)
	}
}

func TestFromArgsValid(t *testing.T) {
	cfg, err := config.FromArgs("/tmp/db", "8192", "32", "true")
	if err != nil {
		t.Fatalf("FromArgs: %v", err)
	}
	if cfg.PageSize != 8192 || cfg.BufferPages != 32 || !cfg.Indexing {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestFromArgsInvalidPageSize(t *testing.T) {
	if _, err := config.FromArgs("/tmp/db", "not-a-number", "32", "true"); err == nil {
		t.Fatalf("expected error for invalid page size")
	}
	if _, err := config.FromArgs("/tmp/db", "0", "32", "true"); err == nil {
		t.Fatalf("expected error for non-positive page size")
	}
}

func TestFromArgsInvalidIndexingFlag(t *testing.T) {
	if _, err := config.FromArgs("/tmp/db", "4096", "16", "maybe"); err == nil {
		t.Fatalf("expected error for an unrecognized indexing argument")
	}
}

func TestFromArgsRejectsBufferCapacityBelowMinimum(t *testing.T) {
	if _, err := config.FromArgs("/tmp/db", "4096", "2", "true"); err == nil {
		t.Fatalf("expected error for a buffer capacity below buffer.MinCapacity")
	}
}

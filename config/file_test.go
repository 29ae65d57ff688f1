package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"heapstore/config"
)

func TestLoadFromFileKeyValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.txt")
	content := "dbpath = '../DB'\npagesize = 8192\nbuffer_pages = 4\nindexing = on\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBPath != "../DB" {
		t.Fatalf("expected ../DB got %s", cfg.DBPath)
	}
	if cfg.PageSize != 8192 {
		t.Fatalf("expected pagesize 8192 got %d", cfg.PageSize)
	}
	if cfg.BufferPages != 4 {
		t.Fatalf("expected buffer_pages 4 got %d", cfg.BufferPages)
	}
	if !cfg.Indexing {
		t.Fatalf("expected indexing true")
	}
}

func TestLoadFromFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	content := `{"dbpath": "./data", "pagesize": 16384, "buffer_pages": 3, "indexing": true}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBPath != "./data" || cfg.PageSize != 16384 || cfg.BufferPages != 3 || !cfg.Indexing {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := config.LoadFromFile("does-not-exist.cfg"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.cfg")
	if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	if _, err := config.LoadFromFile(p); err == nil {
		t.Fatalf("expected error for empty config file")
	}
}

func TestLoadFromFileNoDbPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nodbp.cfg")
	if err := os.WriteFile(p, []byte("other=1\n"), 0o644); err != nil {
		t.Fatalf("write file without dbpath: %v", err)
	}
	if _, err := config.LoadFromFile(p); err == nil {
		t.Fatalf("expected error when dbpath is missing")
	}
}

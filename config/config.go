// Package config holds the engine's construction parameters: the four
// positional process arguments from spec §6, and the small set of
// defaults used when a caller constructs a database programmatically
// rather than through a process invocation.
package config

import (
	"strconv"

	"heapstore/buffer"
	"heapstore/dberr"
)

// Defaults mirror the teacher's config.NewDBConfig: a 4 KiB page, a
// 16-page buffer, indexing off (the engine never implements indexing —
// spec §9 — but the flag is still threaded through for forward
// compatibility with the catalog format).
const (
	DefaultPageSize      int32 = 4096
	DefaultBufferPages          = 16
	DefaultIndexing             = false
)

// Config is the construction parameters of a single Database aggregate
// (spec §9 "Global state": CLI arguments become constructor parameters,
// there is no process-wide mutable state).
type Config struct {
	DBPath        string
	PageSize      int32
	BufferPages   int
	Indexing      bool
}

// New returns a Config with the engine's defaults for everything but the
// database directory.
func New(dbPath string) Config {
	return Config{
		DBPath:      dbPath,
		PageSize:    DefaultPageSize,
		BufferPages: DefaultBufferPages,
		Indexing:    DefaultIndexing,
	}
}

// FromArgs maps the four positional process arguments described in spec
// §6 — database directory, initial page size, buffer capacity in pages,
// indexing on/off — onto a Config. It performs no catalog lookup: whether
// the stored catalog overrides PageSize/Indexing on restart is decided
// later, by catalogio.Load.
func FromArgs(dbPath, pageSizeArg, bufferPagesArg, indexingArg string) (Config, error) {
	cfg := New(dbPath)

	pageSize, err := strconv.Atoi(pageSizeArg)
	if err != nil || pageSize <= 0 {
		return Config{}, dberr.Wrapf(dberr.ErrInvariantBreach, "invalid page size argument %q", pageSizeArg)
	}
	cfg.PageSize = int32(pageSize)

	bufferPages, err := strconv.Atoi(bufferPagesArg)
	if err != nil || bufferPages < buffer.MinCapacity {
		return Config{}, dberr.Wrapf(dberr.ErrInvariantBreach, "invalid buffer capacity argument %q (minimum %d)", bufferPagesArg, buffer.MinCapacity)
	}
	cfg.BufferPages = bufferPages

	indexing, err := parseBool(indexingArg)
	if err != nil {
		return Config{}, err
	}
	cfg.Indexing = indexing

	return cfg, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1", "true", "TRUE", "True", "on", "ON":
		return true, nil
	case "0", "false", "FALSE", "False", "off", "OFF":
		return false, nil
	default:
		return false, dberr.Wrapf(dberr.ErrInvariantBreach, "invalid indexing argument %q", s)
	}
}

package config

import (
	"bufio"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"heapstore/dberr"
)

// fileConfig is the on-disk shape accepted by LoadFromFile, supporting
// both JSON and a simple key=value/key:value text format — an
// application embedding the engine may keep its database parameters in a
// small config file rather than passing process arguments directly.
type fileConfig struct {
	DBPath      string `json:"dbpath"`
	PageSize    int32  `json:"pagesize"`
	BufferPages int    `json:"buffer_pages"`
	Indexing    bool   `json:"indexing"`
}

// LoadFromFile reads a Config from filePath. JSON is tried first; if that
// fails or yields no dbpath, the file is parsed line by line as
// "key = value" or "key: value" pairs. Unset numeric fields fall back to
// the package defaults.
func LoadFromFile(filePath string) (Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, dberr.Wrap(err, "read config file")
	}
	if len(data) == 0 {
		return Config{}, dberr.Wrap(dberr.ErrInvariantBreach, "empty config file")
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil || fc.DBPath == "" {
		fc = parseKeyValueConfig(string(data))
	}
	if fc.DBPath == "" {
		return Config{}, dberr.Wrapf(dberr.ErrInvariantBreach, "dbpath not found in config file %s", filePath)
	}

	cfg := New(fc.DBPath)
	if fc.PageSize > 0 {
		cfg.PageSize = fc.PageSize
	}
	if fc.BufferPages > 0 {
		cfg.BufferPages = fc.BufferPages
	}
	cfg.Indexing = fc.Indexing
	return cfg, nil
}

func parseKeyValueConfig(content string) fileConfig {
	var fc fileConfig
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep := "="
		if !strings.Contains(line, "=") && strings.Contains(line, ":") {
			sep = ":"
		}
		parts := strings.SplitN(line, sep, 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		switch key {
		case "dbpath":
			fc.DBPath = val
		case "pagesize":
			if v, err := strconv.Atoi(val); err == nil {
				fc.PageSize = int32(v)
			}
		case "buffer_pages", "bm_buffercount":
			if v, err := strconv.Atoi(val); err == nil {
				fc.BufferPages = v
			}
		case "indexing":
			if v, err := parseBool(val); err == nil {
				fc.Indexing = v
			}
		}
	}
	return fc
}

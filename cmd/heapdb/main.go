// Command heapdb is the process entry point described in spec §6: it
// opens (or creates) a database directory with the given page size,
// buffer capacity, and indexing flag, then runs a small fixed scenario
// against it. It is not a SQL front end — parsing and a REPL are out of
// scope (spec §1 Non-goals) — it only exercises storage.Manager the way
// an embedding application would.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"heapstore/config"
	"heapstore/dberr"
	"heapstore/record"
	"heapstore/schema"
	"heapstore/storage"
)

func main() {
	dbPath := flag.String("db", "./heapdb-data", "database directory")
	pageSize := flag.Int("pagesize", int(config.DefaultPageSize), "page size in bytes (first run only)")
	bufferPages := flag.Int("buffer", config.DefaultBufferPages, "buffer capacity in pages")
	indexing := flag.Bool("indexing", config.DefaultIndexing, "reserve the indexing flag in the catalog (first run only)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.New(*dbPath)
	cfg.PageSize = int32(*pageSize)
	cfg.BufferPages = *bufferPages
	cfg.Indexing = *indexing

	mgr, err := storage.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(2)
	}
	defer func() {
		if err := mgr.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shut down database cleanly: %v\n", err)
			os.Exit(2)
		}
	}()

	if err := demo(mgr); err != nil {
		fmt.Fprintf(os.Stderr, "demo scenario failed: %v\n", err)
		os.Exit(1)
	}
}

// demo exercises create_table/insert/select_all against a single table so
// a fresh checkout has something observable to run. It is not a parser or
// a REPL; a real caller embeds storage.Manager directly.
func demo(mgr *storage.Manager) error {
	people := &schema.TableSchema{
		Name: "people",
		Attributes: []schema.AttributeSchema{
			{Name: "id", Type: schema.Integer, IsPrimaryKey: true},
			{Name: "name", Type: schema.Varchar, MaxLength: 64, IsNotNull: true},
			{Name: "score", Type: schema.Double},
		},
	}

	if _, err := mgr.CreateTable(people); err != nil && !errors.Is(err, dberr.ErrSchemaConflict) {
		return err
	}

	rows := []struct {
		id    int32
		name  string
		score float64
	}{
		{1, "ada", 98.6},
		{2, "grace", 91.2},
		{3, "alan", 99.9},
	}
	for _, row := range rows {
		ok, err := mgr.Insert("people", []record.Value{
			record.IntValue(row.id),
			record.StringValue(row.name),
			record.DoubleValue(row.score),
		})
		if err != nil && !errors.Is(err, dberr.ErrPrimaryKeyViolation) {
			return err
		}
		if !ok {
			fmt.Printf("insert skipped: row with id %d already exists\n", row.id)
		}
	}

	all, err := mgr.SelectAll("people")
	if err != nil {
		return err
	}
	for _, r := range all {
		fmt.Println(formatRow(people, r))
	}
	return nil
}

func formatRow(ts *schema.TableSchema, r record.Record) string {
	out := ""
	for i, v := range r.Values {
		if i > 0 {
			out += ", "
		}
		if v.Null {
			out += "NULL"
			continue
		}
		switch ts.Attributes[i].Type {
		case schema.Integer:
			out += fmt.Sprintf("%d", v.Int)
		case schema.Double:
			out += fmt.Sprintf("%g", v.Double)
		case schema.Boolean:
			out += fmt.Sprintf("%t", v.Bool)
		case schema.Char, schema.Varchar:
			out += v.Str
		}
	}
	return out
}

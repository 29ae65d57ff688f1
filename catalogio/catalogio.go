// Package catalogio persists the database catalog — page size, indexing
// flag, free-page list head, last allocated page id, and table schemas —
// to the sibling "catalog" file described in spec §4.5/§6.
package catalogio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"heapstore/dberr"
	"heapstore/schema"
)

// CatalogFileName is the fixed name of the catalog file within a database
// directory (spec §6).
const CatalogFileName = "catalog"

// Catalog is the persisted tuple of spec §3 "Catalog". PageSize and
// Indexing are fixed at database creation and ignored on restart — the
// caller of Load supplies them only as the defaults for a fresh catalog
// (New) when no catalog file exists yet.
type Catalog struct {
	PageSize         int32
	Indexing         bool
	FreePageListHead int32
	// LastPageID is the highest page id ever allocated, or 0 before any
	// page exists — page ids are positive (spec §3: "Ids start at 1;
	// offset in the heap file equals page_id × page_size"), so
	// buffer.Manager's appendNewPage hands out LastPageID+1.
	LastPageID int32
	Tables     map[string]*schema.TableSchema
}

// New returns a fresh catalog with the given page size/indexing flag and
// no tables — the state of a first run before any table exists (spec
// §4.5 "On first run the file is absent and defaults apply").
func New(pageSize int32, indexing bool) *Catalog {
	return &Catalog{
		PageSize:         pageSize,
		Indexing:         indexing,
		FreePageListHead: -1,
		LastPageID:       0,
		Tables:           make(map[string]*schema.TableSchema),
	}
}

// Path returns the catalog file path for database directory dir.
func Path(dir string) string {
	return filepath.Join(dir, CatalogFileName)
}

// Load reads the catalog file in dir. If absent, it returns a fresh
// Catalog built from defaultPageSize/defaultIndexing (the process's -pagesize
// and -indexing arguments, per spec §6: "on restart, the provided page
// size and indexing arguments are ignored" only applies once a catalog
// already exists).
func Load(dir string, defaultPageSize int32, defaultIndexing bool) (*Catalog, error) {
	path := Path(dir)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.WithField("dir", dir).Debug("no catalog file found, starting a fresh database")
		return New(defaultPageSize, defaultIndexing), nil
	}
	if err != nil {
		return nil, dberr.Wrap(err, "open catalog file")
	}
	defer f.Close()

	r := bufio.NewReader(f)
	c := &Catalog{Tables: make(map[string]*schema.TableSchema)}

	var err32 error
	if c.PageSize, err32 = readInt32(r); err32 != nil {
		return nil, dberr.Wrap(err32, "read catalog page size")
	}
	indexingByte, err := r.ReadByte()
	if err != nil {
		return nil, dberr.Wrap(err, "read catalog indexing flag")
	}
	c.Indexing = indexingByte != 0
	if c.FreePageListHead, err32 = readInt32(r); err32 != nil {
		return nil, dberr.Wrap(err32, "read catalog free page list head")
	}
	if c.LastPageID, err32 = readInt32(r); err32 != nil {
		return nil, dberr.Wrap(err32, "read catalog last page id")
	}
	tableCount, err32 := readInt32(r)
	if err32 != nil {
		return nil, dberr.Wrap(err32, "read catalog table count")
	}

	for i := int32(0); i < tableCount; i++ {
		ts, err := readTableSchema(r)
		if err != nil {
			return nil, dberr.Wrapf(err, "read table %d of %d", i, tableCount)
		}
		c.Tables[ts.Name] = ts
	}
	return c, nil
}

// Save writes the catalog to dir's catalog file, overwriting any previous
// contents. Called on orderly shutdown (spec §6 shutdown()).
func (c *Catalog) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dberr.Wrap(err, "create database directory")
	}
	tmp := Path(dir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return dberr.Wrap(err, "create catalog temp file")
	}

	w := bufio.NewWriter(f)
	writeInt32(w, c.PageSize)
	if c.Indexing {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
	writeInt32(w, c.FreePageListHead)
	writeInt32(w, c.LastPageID)
	writeInt32(w, int32(len(c.Tables)))

	// deterministic order keeps the file byte-stable across saves with an
	// unchanged table set, which is convenient for tests and for diffing.
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeTableSchema(w, c.Tables[name]); err != nil {
			f.Close()
			os.Remove(tmp)
			return dberr.Wrapf(err, "write table %s", name)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return dberr.Wrap(err, "flush catalog file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return dberr.Wrap(err, "sync catalog file")
	}
	if err := f.Close(); err != nil {
		return dberr.Wrap(err, "close catalog file")
	}
	if err := os.Rename(tmp, Path(dir)); err != nil {
		return dberr.Wrap(err, "replace catalog file")
	}
	log.WithFields(log.Fields{"dir": dir, "tables": len(c.Tables)}).Debug("catalog saved")
	return nil
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeInt32(w io.Writer, v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	w.Write(buf[:])
}

func readString(r io.Reader) (string, error) {
	n, err := readInt32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) {
	writeInt32(w, int32(len(s)))
	io.WriteString(w, s)
}

func readTableSchema(r io.Reader) (*schema.TableSchema, error) {
	name, err := readString(r)
	if err != nil {
		return nil, dberr.Wrap(err, "read table name")
	}
	head, err := readInt32(r)
	if err != nil {
		return nil, dberr.Wrap(err, "read table head page id")
	}
	attrCount, err := readInt32(r)
	if err != nil {
		return nil, dberr.Wrap(err, "read attribute count")
	}
	ts := &schema.TableSchema{Name: name, HeadPageID: head, Attributes: make([]schema.AttributeSchema, attrCount)}
	for i := int32(0); i < attrCount; i++ {
		attr, err := readAttribute(r)
		if err != nil {
			return nil, dberr.Wrapf(err, "read attribute %d of table %s", i, name)
		}
		ts.Attributes[i] = attr
	}
	return ts, nil
}

func writeTableSchema(w io.Writer, ts *schema.TableSchema) error {
	writeString(w, ts.Name)
	writeInt32(w, ts.HeadPageID)
	writeInt32(w, int32(len(ts.Attributes)))
	for _, attr := range ts.Attributes {
		writeAttribute(w, attr)
	}
	return nil
}

func readAttribute(r io.Reader) (schema.AttributeSchema, error) {
	var a schema.AttributeSchema
	name, err := readString(r)
	if err != nil {
		return a, err
	}
	typeTag, err := readString(r)
	if err != nil {
		return a, err
	}
	dt, err := schema.ParseDataType(typeTag)
	if err != nil {
		return a, err
	}
	maxLen, err := readInt32(r)
	if err != nil {
		return a, err
	}
	var flags [3]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return a, err
	}
	a = schema.AttributeSchema{
		Name:         name,
		Type:         dt,
		MaxLength:    int(maxLen),
		IsPrimaryKey: flags[0] != 0,
		IsNotNull:    flags[1] != 0,
		HasDefault:   flags[2] != 0,
	}
	if !dt.HasLength() {
		a.MaxLength = 0 // the file stores -1 for tags without a length
	}
	if a.HasDefault {
		def, err := readDefault(r, dt)
		if err != nil {
			return a, err
		}
		a.Default = def
	}
	return a, nil
}

func writeAttribute(w io.Writer, a schema.AttributeSchema) {
	writeString(w, a.Name)
	writeString(w, a.Type.String())
	if a.Type.HasLength() {
		writeInt32(w, int32(a.MaxLength))
	} else {
		writeInt32(w, -1)
	}
	var flags [3]byte
	if a.IsPrimaryKey {
		flags[0] = 1
	}
	if a.IsNotNull {
		flags[1] = 1
	}
	if a.HasDefault {
		flags[2] = 1
	}
	w.Write(flags[:])
	if a.HasDefault {
		writeDefault(w, a.Type, a.Default)
	}
}

func readDefault(r io.Reader, dt schema.DataType) (interface{}, error) {
	switch dt {
	case schema.Integer:
		v, err := readInt32(r)
		return v, err
	case schema.Double:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
	case schema.Boolean:
		var buf [1]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return buf[0] != 0, nil
	case schema.Char, schema.Varchar:
		return readString(r)
	default:
		return nil, dberr.Wrapf(dberr.ErrTypeMismatch, "unknown default-value type tag %v", dt)
	}
}

func writeDefault(w io.Writer, dt schema.DataType, v interface{}) {
	switch dt {
	case schema.Integer:
		writeInt32(w, v.(int32))
	case schema.Double:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.(float64)))
		w.Write(buf[:])
	case schema.Boolean:
		if v.(bool) {
			w.Write([]byte{1})
		} else {
			w.Write([]byte{0})
		}
	case schema.Char, schema.Varchar:
		writeString(w, v.(string))
	}
}


// Package storage implements the table-level façade described in spec
// §4.3: create/drop table, insert with PK enforcement, full scan, and
// ALTER rebuild. Manager owns no page state of its own — it composes
// buffer.Manager and catalogio.Catalog and never touches the heap file
// directly.
package storage

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"heapstore/buffer"
	"heapstore/catalogio"
	"heapstore/config"
	"heapstore/dberr"
	"heapstore/disk"
	"heapstore/page"
	"heapstore/record"
	"heapstore/schema"
)

// Manager is the single Database aggregate (spec §9 "Global state").
type Manager struct {
	dir  string
	disk *disk.File
	buf  *buffer.Manager
	cat  *catalogio.Catalog
}

// Open constructs a Manager for cfg.DBPath, loading the catalog if one
// already exists (in which case its stored page size and indexing flag
// govern, per spec §4.5 — cfg's are used only to seed a first run).
func Open(cfg config.Config) (*Manager, error) {
	cat, err := catalogio.Load(cfg.DBPath, cfg.PageSize, cfg.Indexing)
	if err != nil {
		return nil, dberr.Wrap(err, "load catalog")
	}
	d, err := disk.Open(cfg.DBPath, cat.PageSize)
	if err != nil {
		return nil, dberr.Wrap(err, "open heap file")
	}
	buf := buffer.New(cfg.BufferPages, d, cat)
	log.WithFields(log.Fields{
		"dir":          cfg.DBPath,
		"page_size":    cat.PageSize,
		"buffer_pages": cfg.BufferPages,
		"tables":       len(cat.Tables),
	}).Info("storage manager opened")
	return &Manager{dir: cfg.DBPath, disk: d, buf: buf, cat: cat}, nil
}

// Catalog exposes the live catalog for read-only inspection by callers
// (e.g. the out-of-scope parser/CLI layer listing tables).
func (m *Manager) Catalog() *catalogio.Catalog { return m.cat }

// Shutdown flushes the buffer and saves the catalog (spec §6 shutdown()).
func (m *Manager) Shutdown() error {
	if err := m.buf.EvictAll(); err != nil {
		return dberr.Wrap(err, "shutdown: flush buffer")
	}
	if err := m.cat.Save(m.dir); err != nil {
		return dberr.Wrap(err, "shutdown: save catalog")
	}
	if err := m.disk.Close(); err != nil {
		return dberr.Wrap(err, "shutdown: close heap file")
	}
	log.WithField("dir", m.dir).Info("storage manager shut down")
	return nil
}

// CreateTable registers schema in the catalog and allocates its head
// page. It returns false without mutating state if a table with the same
// (lowercased) name already exists.
func (m *Manager) CreateTable(ts *schema.TableSchema) (bool, error) {
	name := strings.ToLower(ts.Name)
	if _, exists := m.cat.Tables[name]; exists {
		return false, dberr.Wrapf(dberr.ErrSchemaConflict, "table %s already exists", name)
	}

	head, err := m.buf.CreateNewPage()
	if err != nil {
		return false, dberr.Wrapf(err, "create table %s: allocate head page", name)
	}

	cp := ts.Clone()
	cp.Name = name
	for i := range cp.Attributes {
		cp.Attributes[i].Name = strings.ToLower(cp.Attributes[i].Name)
	}
	cp.HeadPageID = head.PageID()
	m.cat.Tables[name] = cp
	log.WithFields(log.Fields{"table": name, "head_page": head.PageID()}).Debug("table created")
	return true, nil
}

// DropTable walks the page chain from head, returning each page to the
// free list, then removes the schema from the catalog.
func (m *Manager) DropTable(name string) error {
	lname := strings.ToLower(name)
	ts, ok := m.cat.Tables[lname]
	if !ok {
		return dberr.Wrapf(dberr.ErrUnknownTable, "table %s", name)
	}

	pid := ts.HeadPageID
	for pid != -1 {
		p, err := m.buf.GetPage(pid)
		if err != nil {
			return dberr.Wrapf(err, "drop table %s: load page %d", lname, pid)
		}
		next := p.NextPageID()
		if err := m.freePageByID(pid); err != nil {
			return dberr.Wrapf(err, "drop table %s: free page %d", lname, pid)
		}
		pid = next
	}
	delete(m.cat.Tables, lname)
	log.WithField("table", lname).Debug("table dropped")
	return nil
}

// Insert validates arity and schema constraints, enforces primary-key
// uniqueness, and appends the record to the table's tail page, splitting
// it if necessary (spec §4.3 steps 1-6).
func (m *Manager) Insert(tableName string, values []record.Value) (bool, error) {
	lname := strings.ToLower(tableName)
	ts, ok := m.cat.Tables[lname]
	if !ok {
		return false, dberr.Wrapf(dberr.ErrUnknownTable, "table %s", tableName)
	}
	if len(values) != len(ts.Attributes) {
		return false, dberr.Wrapf(dberr.ErrTypeMismatch, "table %s: expected %d values, got %d", lname, len(ts.Attributes), len(values))
	}

	encoded, err := record.Encode(ts.Attributes, values)
	if err != nil {
		return false, err
	}

	if pkIdx := ts.PrimaryKeyIndex(); pkIdx >= 0 {
		candidate := values[pkIdx]
		if candidate.Null {
			return false, dberr.Wrapf(dberr.ErrPrimaryKeyViolation, "table %s: primary key value is null", lname)
		}
		conflict, err := m.primaryKeyConflicts(ts, pkIdx, candidate)
		if err != nil {
			return false, err
		}
		if conflict {
			return false, dberr.Wrapf(dberr.ErrPrimaryKeyViolation, "table %s: duplicate primary key", lname)
		}
	}

	ok, err = m.appendEncoded(ts, encoded)
	if ok {
		log.WithField("table", lname).Debug("record inserted")
	}
	return ok, err
}

// SelectAll walks the page chain from head and decodes every record in
// chain order, then within-page order.
func (m *Manager) SelectAll(tableName string) ([]record.Record, error) {
	lname := strings.ToLower(tableName)
	ts, ok := m.cat.Tables[lname]
	if !ok {
		return nil, dberr.Wrapf(dberr.ErrUnknownTable, "table %s", tableName)
	}

	var out []record.Record
	err := m.scanChain(ts, func(raw []byte) (bool, error) {
		values, err := record.Decode(ts.Attributes, raw)
		if err != nil {
			return false, err
		}
		out = append(out, record.Record{Values: values})
		return false, nil
	})
	if err != nil {
		return nil, dberr.Wrapf(err, "select * from %s", lname)
	}
	return out, nil
}

// AlterTable rewrites oldName's table to newSchema: a fresh chain is
// built by copying each old record's matching (case-insensitive) columns
// and filling the rest with defaults or null, and each old page is freed
// as it is drained (spec §4.3 alter_table).
func (m *Manager) AlterTable(oldName string, newSchema *schema.TableSchema) (bool, error) {
	oldLower := strings.ToLower(oldName)
	oldTS, ok := m.cat.Tables[oldLower]
	if !ok {
		return false, dberr.Wrapf(dberr.ErrUnknownTable, "table %s", oldName)
	}

	newTS := newSchema.Clone()
	newTS.Name = strings.ToLower(newTS.Name)
	for i := range newTS.Attributes {
		newTS.Attributes[i].Name = strings.ToLower(newTS.Attributes[i].Name)
	}
	if newTS.Name != oldLower {
		if _, exists := m.cat.Tables[newTS.Name]; exists {
			return false, dberr.Wrapf(dberr.ErrSchemaConflict, "table %s already exists", newTS.Name)
		}
	}

	newHead, err := m.buf.CreateNewPage()
	if err != nil {
		return false, dberr.Wrapf(err, "alter table %s: allocate new head page", oldLower)
	}
	newTS.HeadPageID = newHead.PageID()

	delete(m.cat.Tables, oldLower)
	m.cat.Tables[newTS.Name] = newTS

	pid := oldTS.HeadPageID
	for pid != -1 {
		p, err := m.buf.GetPage(pid)
		if err != nil {
			return false, dberr.Wrapf(err, "alter table %s: load page %d", oldLower, pid)
		}
		next := p.NextPageID()
		for _, raw := range p.GetRecords() {
			oldValues, err := record.Decode(oldTS.Attributes, raw)
			if err != nil {
				return false, dberr.Wrapf(err, "alter table %s: decode row on page %d", oldLower, pid)
			}
			newValues := rebuildRow(oldTS, newTS, oldValues)
			if _, err := m.Insert(newTS.Name, newValues); err != nil {
				return false, dberr.Wrapf(err, "alter table %s: reinsert rewritten row", oldLower)
			}
		}
		if err := m.freePageByID(pid); err != nil {
			return false, dberr.Wrapf(err, "alter table %s: free page %d", oldLower, pid)
		}
		pid = next
	}

	log.WithFields(log.Fields{"table": oldLower, "new_head": newTS.HeadPageID}).Debug("table altered")
	return true, nil
}

// FreePage clears p's data and appends it to the catalog's free-page
// list (spec §4.3 free_page).
func (m *Manager) FreePage(p *page.Page) error {
	return m.freePageByID(p.PageID())
}

// DescribeTable renders a schema as "name (col:TYPE,col:TYPE(n),...)", in
// the teacher's db.DBManager.DescribeTable style. Presentation only — not
// part of spec.md's engine interface, provided for the out-of-scope
// CLI/parser layer.
func (m *Manager) DescribeTable(name string) (string, error) {
	ts, ok := m.cat.Tables[strings.ToLower(name)]
	if !ok {
		return "", dberr.Wrapf(dberr.ErrUnknownTable, "table %s", name)
	}
	var b strings.Builder
	b.WriteString(ts.Name)
	b.WriteString(" (")
	for i, a := range ts.Attributes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(a.Name)
		b.WriteString(":")
		b.WriteString(a.Type.String())
		if a.Type.HasLength() {
			b.WriteString("(")
			b.WriteString(itoa(a.MaxLength))
			b.WriteString(")")
		}
	}
	b.WriteString(")")
	return b.String(), nil
}

// DescribeAllTables returns DescribeTable for every table, sorted by name.
func (m *Manager) DescribeAllTables() []string {
	names := make([]string, 0, len(m.cat.Tables))
	for name := range m.cat.Tables {
		names = append(names, name)
	}
	sortStrings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		if s, err := m.DescribeTable(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

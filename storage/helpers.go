package storage

import (
	"sort"
	"strconv"

	"heapstore/dberr"
	"heapstore/record"
	"heapstore/schema"
)

// tailPageID walks the chain from ts.HeadPageID and returns the id of the
// predecessor of the tail page (-1 if the head is itself the tail) and the
// tail page's own id. It holds no *page.Page reference across iterations,
// so it is safe even when the chain is longer than the buffer's capacity.
func (m *Manager) tailPageID(ts *schema.TableSchema) (predID, tailID int32, err error) {
	predID = -1
	cur := ts.HeadPageID
	for {
		p, err := m.buf.GetPage(cur)
		if err != nil {
			return -1, -1, dberr.Wrapf(err, "walk chain of table %s", ts.Name)
		}
		next := p.NextPageID()
		if next == -1 {
			return predID, cur, nil
		}
		predID = cur
		cur = next
	}
}

// appendEncoded adds an already schema-validated record to ts's tail page,
// splitting the tail into two fresh pages when it does not fit (spec §4.3
// steps 4-6). Every page reference is re-fetched immediately before use,
// since intervening buffer.Manager calls may have evicted it, except the
// freshly allocated halves a and b, which are handed to Split as returned
// by CreateNewPage; buffer.MinCapacity keeps them resident until then.
func (m *Manager) appendEncoded(ts *schema.TableSchema, encoded []byte) (bool, error) {
	predID, tailID, err := m.tailPageID(ts)
	if err != nil {
		return false, err
	}
	tail, err := m.buf.GetPage(tailID)
	if err != nil {
		return false, err
	}
	if tail.AddRecord(encoded) {
		return true, nil
	}

	a, err := m.buf.CreateNewPage()
	if err != nil {
		return false, dberr.Wrapf(err, "table %s: allocate split page a", ts.Name)
	}
	b, err := m.buf.CreateNewPage()
	if err != nil {
		return false, dberr.Wrapf(err, "table %s: allocate split page b", ts.Name)
	}
	a.SetNextPageID(b.PageID())

	tail, err = m.buf.GetPage(tailID)
	if err != nil {
		return false, err
	}
	if err := tail.Split(a, b); err != nil {
		return false, dberr.Wrapf(err, "table %s: split tail page %d", ts.Name, tailID)
	}

	if predID == -1 {
		ts.HeadPageID = a.PageID()
	} else {
		pred, err := m.buf.GetPage(predID)
		if err != nil {
			return false, err
		}
		pred.SetNextPageID(a.PageID())
	}

	if err := m.freePageByID(tailID); err != nil {
		return false, dberr.Wrapf(err, "table %s: free drained tail page %d", ts.Name, tailID)
	}

	b, err = m.buf.GetPage(b.PageID())
	if err != nil {
		return false, err
	}
	if !b.AddRecord(encoded) {
		return false, dberr.Wrap(dberr.ErrInvariantBreach, "record does not fit a fresh empty page after split")
	}
	return true, nil
}

// freePageByID loads page id, clears it, and appends it to the catalog's
// free-page list.
func (m *Manager) freePageByID(id int32) error {
	p, err := m.buf.GetPage(id)
	if err != nil {
		return dberr.Wrapf(err, "free page %d", id)
	}
	p.CleanData()
	p.SetDirty(true)

	if m.cat.FreePageListHead == -1 {
		m.cat.FreePageListHead = id
		return nil
	}

	cur := m.cat.FreePageListHead
	for {
		cp, err := m.buf.GetPage(cur)
		if err != nil {
			return dberr.Wrapf(err, "walk free-page list at page %d", cur)
		}
		next := cp.NextPageID()
		if next == -1 {
			cp.SetNextPageID(id)
			return nil
		}
		cur = next
	}
}

// scanChain visits the raw bytes of every record of ts, in chain then
// within-page order, stopping early if visit returns stop=true.
func (m *Manager) scanChain(ts *schema.TableSchema, visit func(raw []byte) (stop bool, err error)) error {
	pid := ts.HeadPageID
	for pid != -1 {
		p, err := m.buf.GetPage(pid)
		if err != nil {
			return dberr.Wrapf(err, "load page %d", pid)
		}
		next := p.NextPageID()
		for _, raw := range p.GetRecords() {
			stop, err := visit(raw)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		pid = next
	}
	return nil
}

// primaryKeyConflicts scans ts for a row whose primary-key attribute
// equals candidate.
func (m *Manager) primaryKeyConflicts(ts *schema.TableSchema, pkIdx int, candidate record.Value) (bool, error) {
	found := false
	err := m.scanChain(ts, func(raw []byte) (bool, error) {
		values, err := record.Decode(ts.Attributes, raw)
		if err != nil {
			return false, err
		}
		if record.Equal(values[pkIdx], candidate) {
			found = true
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// rebuildRow maps oldValues (shaped by oldTS) onto newTS's attribute list,
// matching by case-insensitive name and falling back to a declared default
// or null for attributes the old schema lacked (spec §4.3 alter_table).
func rebuildRow(oldTS, newTS *schema.TableSchema, oldValues []record.Value) []record.Value {
	out := make([]record.Value, len(newTS.Attributes))
	for i, attr := range newTS.Attributes {
		if idx := oldTS.AttributeIndex(attr.Name); idx >= 0 {
			out[i] = oldValues[idx]
			continue
		}
		if attr.HasDefault {
			out[i] = defaultValue(attr)
		} else {
			out[i] = record.NullValue()
		}
	}
	return out
}

func defaultValue(attr schema.AttributeSchema) record.Value {
	switch attr.Type {
	case schema.Integer:
		return record.IntValue(attr.Default.(int32))
	case schema.Double:
		return record.DoubleValue(attr.Default.(float64))
	case schema.Boolean:
		return record.BoolValue(attr.Default.(bool))
	case schema.Char, schema.Varchar:
		return record.StringValue(attr.Default.(string))
	default:
		return record.NullValue()
	}
}

func sortStrings(s []string) { sort.Strings(s) }

func itoa(n int) string { return strconv.Itoa(n) }

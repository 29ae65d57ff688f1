// Package page implements the slotted-page binary format: a fixed-size
// page holding a header, a slot directory growing from the header, and a
// record area growing down from the end of the page (spec §4.1).
package page

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"heapstore/dberr"
)

const (
	// HeaderSize is the fixed byte length of the page header: page_id(4) +
	// page_size(4) + free_space_end(4) + slot_count(4) + next_page_id(4) +
	// last_access_timestamp(8) + dirty_flag(1).
	HeaderSize = 4 + 4 + 4 + 4 + 4 + 8 + 1
	// SlotEntrySize is offset(4) + length(4).
	SlotEntrySize = 8
	// NoNextPage is the -1 sentinel for a tail page's next-page id.
	NoNextPage int32 = -1
)

// slot is one entry of the slot directory: offset and length into the
// page's record area.
type slot struct {
	offset int32
	length int32
}

// Page is the in-memory representation of one slotted page. All mutation
// happens through its methods; the zero value is not usable, construct
// with New or Deserialize.
type Page struct {
	id           int32
	pageSize     int32
	freeSpaceEnd int32
	nextPageID   int32
	lastAccess   int64
	dirty        bool

	slots []slot
	area  []byte // length == pageSize; area[s.offset:s.offset+s.length] holds record bytes for slot s.
}

// New constructs an empty page with the given id and page size.
func New(id int32, pageSize int32) *Page {
	return &Page{
		id:           id,
		pageSize:     pageSize,
		freeSpaceEnd: pageSize,
		nextPageID:   NoNextPage,
		area:         make([]byte, pageSize),
	}
}

// PageID returns the page's stable identifier.
func (p *Page) PageID() int32 { return p.id }

// NextPageID returns the next page in a chain, or NoNextPage at the tail.
func (p *Page) NextPageID() int32 { return p.nextPageID }

// SetNextPageID rewires the chain pointer and marks the page dirty.
func (p *Page) SetNextPageID(next int32) {
	p.nextPageID = next
	p.dirty = true
}

// IsDirty reports whether in-memory state may differ from the last
// write-through.
func (p *Page) IsDirty() bool { return p.dirty }

// SetDirty marks the page dirty (or clean, though CleanDirty is preferred
// for the write-through path's explicit intent).
func (p *Page) SetDirty(dirty bool) { p.dirty = dirty }

// CleanDirty clears the dirty flag; callers invoke this immediately before
// Serialize so that a persisted page always has dirty_flag == 0.
func (p *Page) CleanDirty() { p.dirty = false }

// Touch assigns ts as the page's LRU ordering key. The caller supplies a
// monotonically increasing value (see buffer.Manager) rather than a wall
// clock, so that two touches are always distinguishable.
func (p *Page) Touch(ts int64) { p.lastAccess = ts }

// LastAccess returns the page's current LRU ordering key.
func (p *Page) LastAccess() int64 { return p.lastAccess }

// NumRecords returns the number of live slots.
func (p *Page) NumRecords() int { return len(p.slots) }

// FreeSpace returns the number of bytes available for a new record's
// payload plus its slot entry (spec §4.1 free-space accounting).
func (p *Page) FreeSpace() int32 {
	return p.freeSpaceEnd - int32(HeaderSize) - int32(len(p.slots))*SlotEntrySize
}

// AddRecord appends data as a new slot. It fails (returning false, no
// partial mutation) iff there is insufficient free space; otherwise the
// page is marked dirty and touched by the caller via Touch.
func (p *Page) AddRecord(data []byte) bool {
	needed := int32(len(data)) + SlotEntrySize
	if p.FreeSpace() < needed {
		return false
	}
	newEnd := p.freeSpaceEnd - int32(len(data))
	copy(p.area[newEnd:p.freeSpaceEnd], data)
	p.slots = append(p.slots, slot{offset: newEnd, length: int32(len(data))})
	p.freeSpaceEnd = newEnd
	p.dirty = true
	return true
}

// GetRecord returns a copy of the bytes stored at slotIndex.
func (p *Page) GetRecord(slotIndex int) ([]byte, bool) {
	if slotIndex < 0 || slotIndex >= len(p.slots) {
		return nil, false
	}
	s := p.slots[slotIndex]
	out := make([]byte, s.length)
	copy(out, p.area[s.offset:s.offset+s.length])
	return out, true
}

// GetRecords returns copies of every live record's bytes, in slot order
// (insertion order — spec §3 "Table page chain").
func (p *Page) GetRecords() [][]byte {
	out := make([][]byte, len(p.slots))
	for i, s := range p.slots {
		b := make([]byte, s.length)
		copy(b, p.area[s.offset:s.offset+s.length])
		out[i] = b
	}
	return out
}

// RemoveRecord compacts the record area by shifting every record whose
// offset is lower than the removed slot's (i.e. added more recently, and
// so positioned closer to the free-space boundary) up by the removed
// length, then drops the slot entry. Returns false for an out-of-range
// index without mutating the page.
func (p *Page) RemoveRecord(slotIndex int) bool {
	if slotIndex < 0 || slotIndex >= len(p.slots) {
		return false
	}
	removed := p.slots[slotIndex]
	for i := range p.slots {
		if i == slotIndex {
			continue
		}
		s := &p.slots[i]
		if s.offset < removed.offset {
			newOff := s.offset + removed.length
			copy(p.area[newOff:newOff+s.length], p.area[s.offset:s.offset+s.length])
			s.offset = newOff
		}
	}
	// the bytes vacated by the shift are the lowest removed.length bytes of
	// the old record area, starting at the old free-space boundary.
	for i := p.freeSpaceEnd; i < p.freeSpaceEnd+removed.length; i++ {
		p.area[i] = 0
	}
	p.freeSpaceEnd += removed.length
	p.slots = append(p.slots[:slotIndex], p.slots[slotIndex+1:]...)
	p.dirty = true
	return true
}

// Split partitions this page's records by index at NumRecords()/2
// (rounded down), inserting the first half into a and the second half
// into b, preserving order. The caller is responsible for wiring chain
// links between a and b and for freeing this page afterward. Both
// destinations must be empty and large enough to hold their halves — the
// split trigger (a single record that overflows a non-empty page)
// guarantees this for the one caller, storage.Manager.Insert.
func (p *Page) Split(a, b *Page) error {
	mid := len(p.slots) / 2
	for i, s := range p.slots {
		rec := make([]byte, s.length)
		copy(rec, p.area[s.offset:s.offset+s.length])
		dest := a
		if i >= mid {
			dest = b
		}
		if !dest.AddRecord(rec) {
			return errors.Wrapf(dberr.ErrInvariantBreach, "split could not place record %d into a fresh empty page", i)
		}
	}
	p.dirty = true
	return nil
}

// CleanData resets the page to empty, preserving its id. It does not mark
// the page dirty — callers that need the cleared state persisted (e.g.
// storage.Manager.FreePage) must call SetDirty(true) explicitly.
func (p *Page) CleanData() {
	p.slots = p.slots[:0]
	p.freeSpaceEnd = p.pageSize
	p.nextPageID = NoNextPage
	for i := range p.area {
		p.area[i] = 0
	}
}

// Serialize produces the exact on-disk representation: header, slot
// directory, zero-filled gap, record area. Always exactly PageSize bytes.
func (p *Page) Serialize() []byte {
	out := make([]byte, p.pageSize)
	binary.LittleEndian.PutUint32(out[0:4], uint32(p.id))
	binary.LittleEndian.PutUint32(out[4:8], uint32(p.pageSize))
	binary.LittleEndian.PutUint32(out[8:12], uint32(p.freeSpaceEnd))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(p.slots)))
	binary.LittleEndian.PutUint32(out[16:20], uint32(p.nextPageID))
	binary.LittleEndian.PutUint64(out[20:28], uint64(p.lastAccess))
	if p.dirty {
		out[28] = 1
	}
	base := HeaderSize
	for i, s := range p.slots {
		off := base + i*SlotEntrySize
		binary.LittleEndian.PutUint32(out[off:off+4], uint32(s.offset))
		binary.LittleEndian.PutUint32(out[off+4:off+8], uint32(s.length))
	}
	// record area: copy every live record's bytes verbatim; everything
	// else (the gap between the slot directory and the first record, plus
	// any bytes vacated by RemoveRecord) is already zero in p.area.
	for _, s := range p.slots {
		copy(out[s.offset:s.offset+s.length], p.area[s.offset:s.offset+s.length])
	}
	return out
}

// Deserialize parses exactly pageSize bytes produced by Serialize. It
// rejects input shorter than pageSize as an invariant breach (spec §7).
func Deserialize(data []byte, pageSize int32) (*Page, error) {
	if int32(len(data)) < pageSize {
		return nil, errors.Wrapf(dberr.ErrInvariantBreach, "page bytes (%d) shorter than page size (%d)", len(data), pageSize)
	}
	p := &Page{pageSize: pageSize}
	p.id = int32(binary.LittleEndian.Uint32(data[0:4]))
	storedSize := int32(binary.LittleEndian.Uint32(data[4:8]))
	if storedSize != pageSize {
		return nil, errors.Wrapf(dberr.ErrInvariantBreach, "page %d: stored page size %d does not match configured %d", p.id, storedSize, pageSize)
	}
	p.freeSpaceEnd = int32(binary.LittleEndian.Uint32(data[8:12]))
	slotCount := binary.LittleEndian.Uint32(data[12:16])
	p.nextPageID = int32(binary.LittleEndian.Uint32(data[16:20]))
	p.lastAccess = int64(binary.LittleEndian.Uint64(data[20:28]))
	p.dirty = data[28] != 0

	p.slots = make([]slot, slotCount)
	base := HeaderSize
	for i := uint32(0); i < slotCount; i++ {
		off := base + int(i)*SlotEntrySize
		s := slot{
			offset: int32(binary.LittleEndian.Uint32(data[off : off+4])),
			length: int32(binary.LittleEndian.Uint32(data[off+4 : off+8])),
		}
		if s.length <= 0 || s.offset < 0 || s.offset+s.length > pageSize {
			return nil, errors.Wrapf(dberr.ErrInvariantBreach, "page %d: slot %d has invalid offset/length (%d/%d)", p.id, i, s.offset, s.length)
		}
		p.slots[i] = s
	}
	p.area = make([]byte, pageSize)
	copy(p.area, data[:pageSize])
	return p, nil
}

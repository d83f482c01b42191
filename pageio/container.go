// Package pageio implements the page container collaborator spec.md §6
// describes only by interface: get/insert/update/remove of whole pages,
// plus a fixed-size id converter. recman's own record manager never
// reads or writes storage any other way.
package pageio

import "github.com/google/uuid"

// PageID is the opaque, totally-ordered page identifier the pages map
// and every strategy key their state on.
type PageID uint64

// IDConverter serializes PageID to and from a fixed-size byte
// representation, exposed so recman's persisted state (spec.md §6) can
// encode pageIds without knowing the container's internal format.
type IDConverter interface {
	Size() int
	Encode(id PageID) []byte
	Decode(b []byte) (PageID, error)
}

// Container is the page container spec.md §1/§6 treats as an external
// collaborator: "any block file will do". recman depends only on this
// interface; pageio.BoltContainer is the concrete implementation this
// repository ships.
type Container interface {
	// Get returns the full pageSize-length byte buffer stored for id.
	Get(id PageID) ([]byte, error)
	// Insert stores data (padded to pageSize) under a freshly allocated
	// PageID and returns it.
	Insert(data []byte) (PageID, error)
	// Update overwrites the page stored under id.
	Update(id PageID, data []byte) error
	// Remove deletes the page stored under id.
	Remove(id PageID) error
	// RemoveAll deletes every page named by ids, used by the record
	// manager's Clear.
	RemoveAll(ids []PageID) error
	// PageSize is the fixed page size every stored page is padded to.
	PageSize() int
	// IDConverter returns the fixed-size PageID serializer.
	IDConverter() IDConverter
	// Flush persists any buffered writes.
	Flush() error
	// Close releases underlying resources. Only read/write of state are
	// legal afterward (spec.md §5).
	Close() error
}

// Stamped is implemented by containers that carry a durable identity
// stamp — currently only BoltContainer. recordmgr.LoadManager uses it,
// when present, to reject a persisted manager state opened against the
// wrong backing file instead of silently producing garbage. A
// Container that does not implement Stamped (spec.md's generic "any
// block file will do" case) simply skips the check.
type Stamped interface {
	Stamp() (uuid.UUID, error)
}

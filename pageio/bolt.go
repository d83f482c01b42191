package pageio

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/sorenkrogh/recman/recerr"
)

var (
	pagesBucket = []byte("pages")
	metaBucket  = []byte("meta")
	stampKey    = []byte("stamp")
)

// beConverter serializes a PageID as 8-byte big-endian, which is also
// bbolt's own key ordering — so the pages map's "ordering on pageId's
// natural order" (spec.md §3) falls directly out of bucket key order.
type beConverter struct{}

func (beConverter) Size() int { return 8 }

func (beConverter) Encode(id PageID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func (beConverter) Decode(b []byte) (PageID, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("pageio: decode pageid: %w", recerr.PersistenceError)
	}
	return PageID(binary.BigEndian.Uint64(b)), nil
}

// BoltContainer is a Container backed by a single go.etcd.io/bbolt
// database file: one bucket holds page bodies keyed by big-endian
// PageID, a second holds a store stamp that guards against opening a
// manager's persisted state against the wrong backing file.
type BoltContainer struct {
	db       *bolt.DB
	pageSize int
	conv     beConverter
}

// Open creates or opens a bbolt-backed page container at path, sized to
// hold pages of pageSize bytes each.
func Open(dataDir, fileName string, pageSize int) (*BoltContainer, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("pageio: invalid page size %d", pageSize)
	}
	path := filepath.Join(dataDir, fileName)
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("pageio: open %s: %w", path, err)
	}

	bc := &BoltContainer{db: db, pageSize: pageSize}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(pagesBucket); err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if stamp := mb.Get(stampKey); stamp == nil {
			id := uuid.New()
			return mb.Put(stampKey, id[:])
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pageio: init buckets: %w", err)
	}
	return bc, nil
}

// Stamp returns the 16-byte identity this container was created with.
// recordmgr.LoadManager uses it (via the pageio.Stamped interface) to
// reject state persisted for a different container.
func (c *BoltContainer) Stamp() (uuid.UUID, error) {
	var out uuid.UUID
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket).Get(stampKey)
		if len(b) != 16 {
			return fmt.Errorf("pageio: missing store stamp: %w", recerr.PersistenceError)
		}
		copy(out[:], b)
		return nil
	})
	return out, err
}

func (c *BoltContainer) PageSize() int { return c.pageSize }

func (c *BoltContainer) IDConverter() IDConverter { return c.conv }

func padded(data []byte, size int) ([]byte, error) {
	if len(data) > size {
		return nil, fmt.Errorf("pageio: page payload %d exceeds page size %d: %w", len(data), size, recerr.PersistenceError)
	}
	if len(data) == size {
		return data, nil
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func (c *BoltContainer) Get(id PageID) ([]byte, error) {
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(pagesBucket).Get(c.conv.Encode(id))
		if v == nil {
			return fmt.Errorf("pageio: page %d: %w", id, recerr.NotFound)
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (c *BoltContainer) Insert(data []byte) (PageID, error) {
	buf, err := padded(data, c.pageSize)
	if err != nil {
		return 0, err
	}
	var id PageID
	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = PageID(seq)
		return b.Put(c.conv.Encode(id), buf)
	})
	if err != nil {
		return 0, fmt.Errorf("pageio: insert: %w", err)
	}
	return id, nil
}

func (c *BoltContainer) Update(id PageID, data []byte) error {
	buf, err := padded(data, c.pageSize)
	if err != nil {
		return err
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		key := c.conv.Encode(id)
		if b.Get(key) == nil {
			return fmt.Errorf("pageio: page %d: %w", id, recerr.NotFound)
		}
		return b.Put(key, buf)
	})
	if err != nil {
		return fmt.Errorf("pageio: update: %w", err)
	}
	return nil
}

func (c *BoltContainer) Remove(id PageID) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		key := c.conv.Encode(id)
		if b.Get(key) == nil {
			return fmt.Errorf("pageio: page %d: %w", id, recerr.NotFound)
		}
		return b.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("pageio: remove: %w", err)
	}
	return nil
}

func (c *BoltContainer) RemoveAll(ids []PageID) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		for _, id := range ids {
			if err := b.Delete(c.conv.Encode(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pageio: removeAll: %w", err)
	}
	return nil
}

func (c *BoltContainer) Flush() error {
	return c.db.Sync()
}

func (c *BoltContainer) Close() error {
	return c.db.Close()
}

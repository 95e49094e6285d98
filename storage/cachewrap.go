package storage

import (
	"github.com/google/btree"
)

var _ KVStore = (*CacheWrap)(nil)

// CacheWrap places a btree write cache over a Backend. Reads fall through to
// the backend for keys the cache has not seen; nothing reaches the backend
// until Write, and Discard drops every cached write.
type CacheWrap struct {
	bt   *btree.BTree
	back Backend
}

func NewCacheWrap(back Backend) *CacheWrap {
	return &CacheWrap{
		bt:   btree.New(btreeDegree),
		back: back,
	}
}

func (c *CacheWrap) Get(key []byte) []byte {
	if res := c.bt.Get(item{key: key}); res != nil {
		it := res.(item)
		if it.deleted {
			return nil
		}
		return clone(it.value)
	}
	return c.back.Get(key)
}

func (c *CacheWrap) Has(key []byte) bool {
	if res := c.bt.Get(item{key: key}); res != nil {
		return !res.(item).deleted
	}
	return c.back.Has(key)
}

func (c *CacheWrap) Put(key, value []byte) {
	c.bt.ReplaceOrInsert(item{key: clone(key), value: clone(value)})
}

func (c *CacheWrap) Delete(key []byte) {
	c.bt.ReplaceOrInsert(item{key: clone(key), deleted: true})
}

// Dirty returns the number of keys written since the last Write or Discard.
func (c *CacheWrap) Dirty() int {
	return c.bt.Len()
}

// Write flushes the cached writes to the backend in one batch.
func (c *CacheWrap) Write() {
	batch := c.back.NewBatch()
	c.bt.Ascend(func(i btree.Item) bool {
		it := i.(item)
		if it.deleted {
			batch.Delete(it.key)
		} else {
			batch.Put(it.key, it.value)
		}
		return true
	})
	batch.Commit()
	c.Discard()
}

// Discard drops all cached writes.
func (c *CacheWrap) Discard() {
	for stop := false; !stop; {
		stop = c.bt.DeleteMin() == nil
	}
}

package storage

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 2

// item is the btree entry shared by MemStore and CacheWrap. A deleted item
// masks the key in the store below it.
type item struct {
	key     []byte
	value   []byte
	deleted bool
}

func (i item) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(item).key) < 0
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

var _ Backend = (*MemStore)(nil)

// MemStore is a btree backed Backend without persistence, useful for tests
// and dev mode.
type MemStore struct {
	mu sync.RWMutex
	bt *btree.BTree
}

func NewMemStore() *MemStore {
	return &MemStore{bt: btree.New(btreeDegree)}
}

func (m *MemStore) Get(key []byte) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := m.bt.Get(item{key: key})
	if res == nil {
		return nil
	}
	return clone(res.(item).value)
}

func (m *MemStore) Has(key []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bt.Has(item{key: key})
}

func (m *MemStore) Put(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bt.ReplaceOrInsert(item{key: clone(key), value: clone(value)})
}

func (m *MemStore) Delete(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bt.Delete(item{key: key})
}

// Len returns the number of stored keys.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bt.Len()
}

func (m *MemStore) NewBatch() Batch {
	return &memBatch{store: m}
}

func (m *MemStore) Close() error {
	return nil
}

type memBatch struct {
	store *MemStore
	ops   []item
}

func (b *memBatch) Put(key, value []byte) {
	b.ops = append(b.ops, item{key: clone(key), value: clone(value)})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, item{key: clone(key), deleted: true})
}

func (b *memBatch) Commit() {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.deleted {
			b.store.bt.Delete(op)
			continue
		}
		b.store.bt.ReplaceOrInsert(op)
	}
	b.ops = nil
}

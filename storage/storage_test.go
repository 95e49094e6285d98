package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	m := NewMemStore()
	assert.Nil(t, m.Get([]byte("a")))
	assert.False(t, m.Has([]byte("a")))

	m.Put([]byte("a"), []byte("1"))
	assert.Equal(t, []byte("1"), m.Get([]byte("a")))
	assert.True(t, m.Has([]byte("a")))

	batch := m.NewBatch()
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("a"))
	assert.True(t, m.Has([]byte("a")), "batch must not apply before commit")
	batch.Commit()

	assert.False(t, m.Has([]byte("a")))
	assert.Equal(t, []byte("2"), m.Get([]byte("b")))
	assert.Equal(t, 1, m.Len())
}

func TestCacheWrap(t *testing.T) {
	back := NewMemStore()
	back.Put([]byte("keep"), []byte("v0"))
	back.Put([]byte("drop"), []byte("v0"))

	cache := NewCacheWrap(back)
	cache.Put([]byte("keep"), []byte("v1"))
	cache.Put([]byte("new"), []byte("v1"))
	cache.Delete([]byte("drop"))

	assert.Equal(t, []byte("v1"), cache.Get([]byte("keep")))
	assert.Nil(t, cache.Get([]byte("drop")))
	assert.False(t, cache.Has([]byte("drop")))
	assert.True(t, cache.Has([]byte("new")))
	assert.Equal(t, 3, cache.Dirty())

	// backend untouched until Write
	assert.Equal(t, []byte("v0"), back.Get([]byte("keep")))
	assert.True(t, back.Has([]byte("drop")))
	assert.False(t, back.Has([]byte("new")))

	cache.Write()
	assert.Equal(t, 0, cache.Dirty())
	assert.Equal(t, []byte("v1"), back.Get([]byte("keep")))
	assert.False(t, back.Has([]byte("drop")))
	assert.Equal(t, []byte("v1"), back.Get([]byte("new")))
}

func TestCacheWrapDiscard(t *testing.T) {
	back := NewMemStore()
	cache := NewCacheWrap(back)
	cache.Put([]byte("k"), []byte("v"))
	cache.Discard()

	assert.Nil(t, cache.Get([]byte("k")))
	cache.Write()
	assert.Equal(t, 0, back.Len())
}

func TestLevelDB(t *testing.T) {
	db, err := OpenLevelDB(filepath.Join(t.TempDir(), "leveldb"))
	require.Nil(t, err)
	defer db.Close()

	cache := NewCacheWrap(db)
	cache.Put([]byte("k"), []byte("v"))
	assert.False(t, db.Has([]byte("k")))
	cache.Write()
	assert.Equal(t, []byte("v"), db.Get([]byte("k")))
}

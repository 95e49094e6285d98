package storage

// KVStore is the key/value surface engine state is read from and written to.
type KVStore interface {
	Get(key []byte) []byte
	Has(key []byte) bool
	Put(key, value []byte)
	Delete(key []byte)
}

// Batch collects writes that become visible together on Commit.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit()
}

// Backend is a durable (or in-memory) KVStore able to apply batches atomically.
type Backend interface {
	KVStore
	NewBatch() Batch
	Close() error
}

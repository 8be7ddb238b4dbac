package server

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// clientTable is a sharded map of connected endpoints. Sharding keeps lobby
// broadcasts from serializing against login/logout churn on one lock.
type clientTable struct {
	shards []clientShard
	mask   uint64
}

type clientShard struct {
	mu      sync.RWMutex
	clients map[int64]ClientIO
}

// newClientTable builds a table with the given shard count, rounded up to a
// power of two so the hash maps to a shard with a mask.
func newClientTable(shardCount int) *clientTable {
	if shardCount < 1 {
		shardCount = 1
	}
	size := 1
	for size < shardCount {
		size <<= 1
	}
	t := &clientTable{
		shards: make([]clientShard, size),
		mask:   uint64(size - 1),
	}
	for i := range t.shards {
		t.shards[i].clients = make(map[int64]ClientIO)
	}
	return t
}

func (t *clientTable) shard(id int64) *clientShard {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return &t.shards[xxhash.Sum64(buf[:])&t.mask]
}

func (t *clientTable) Put(c ClientIO) {
	s := t.shard(c.ID())
	s.mu.Lock()
	s.clients[c.ID()] = c
	s.mu.Unlock()
}

func (t *clientTable) Get(id int64) (ClientIO, bool) {
	s := t.shard(id)
	s.mu.RLock()
	c, ok := s.clients[id]
	s.mu.RUnlock()
	return c, ok
}

func (t *clientTable) Remove(id int64) (ClientIO, bool) {
	s := t.shard(id)
	s.mu.Lock()
	c, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
	}
	s.mu.Unlock()
	return c, ok
}

func (t *clientTable) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every client. Each shard is snapshotted under its read
// lock and fn runs outside it, so fn may call back into the table.
func (t *clientTable) Range(fn func(c ClientIO)) {
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		snapshot := make([]ClientIO, 0, len(s.clients))
		for _, c := range s.clients {
			snapshot = append(snapshot, c)
		}
		s.mu.RUnlock()
		for _, c := range snapshot {
			fn(c)
		}
	}
}

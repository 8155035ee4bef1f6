// Package commitgraph caches the shape of the commit DAG: the parents and
// generation number of every commit that has been parsed once. Commits are
// immutable, so cached nodes never need invalidation.
package commitgraph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/odvcencio/scs/pkg/object"
)

// Node is the cached shape of one commit. Generation is 1 for a root commit
// and 1 + max(parent generations) otherwise.
type Node struct {
	Parents    []object.Hash
	Generation uint64
}

// Cache stores Nodes keyed by commit hash.
type Cache interface {
	Get(h object.Hash) (Node, bool, error)
	Put(h object.Hash, n Node) error
	Close() error
}

// Memory is an in-process Cache.
type Memory struct {
	mu    sync.RWMutex
	nodes map[object.Hash]Node
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{nodes: make(map[object.Hash]Node)}
}

func (m *Memory) Get(h object.Hash) (Node, bool, error) {
	m.mu.RLock()
	n, ok := m.nodes[h]
	m.mu.RUnlock()
	return n, ok, nil
}

func (m *Memory) Put(h object.Hash, n Node) error {
	m.mu.Lock()
	m.nodes[h] = n
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

func (m *Memory) Close() error { return nil }

// Pebble is a Cache persisted in a pebble database, fronted by a Memory
// cache so repeated lookups in one process skip the database.
type Pebble struct {
	db    *pebble.DB
	front *Memory
}

// OpenPebble opens (creating if needed) a pebble database in dir. opts may
// be nil.
func OpenPebble(dir string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open commit graph %s: %w", dir, err)
	}
	return &Pebble{db: db, front: NewMemory()}, nil
}

func (p *Pebble) Get(h object.Hash) (Node, bool, error) {
	if n, ok, _ := p.front.Get(h); ok {
		return n, true, nil
	}
	val, closer, err := p.db.Get([]byte(h))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Node{}, false, nil
		}
		return Node{}, false, fmt.Errorf("commit graph get %s: %w", h, err)
	}
	n, decodeErr := decodeNode(val)
	closer.Close()
	if decodeErr != nil {
		return Node{}, false, fmt.Errorf("commit graph get %s: %w", h, decodeErr)
	}
	p.front.Put(h, n)
	return n, true, nil
}

func (p *Pebble) Put(h object.Hash, n Node) error {
	p.front.Put(h, n)
	if err := p.db.Set([]byte(h), encodeNode(n), pebble.NoSync); err != nil {
		return fmt.Errorf("commit graph put %s: %w", h, err)
	}
	return nil
}

// Close flushes and closes the database.
func (p *Pebble) Close() error {
	if err := p.db.Flush(); err != nil {
		p.db.Close()
		return fmt.Errorf("commit graph flush: %w", err)
	}
	return p.db.Close()
}

// encodeNode lays a node out as uvarint(generation) uvarint(len(parents))
// followed by each parent hash as hex text.
func encodeNode(n Node) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(n.Parents)*2*object.HashSize)
	buf = binary.AppendUvarint(buf, n.Generation)
	buf = binary.AppendUvarint(buf, uint64(len(n.Parents)))
	for _, p := range n.Parents {
		buf = append(buf, p...)
	}
	return buf
}

func decodeNode(data []byte) (Node, error) {
	gen, n := binary.Uvarint(data)
	if n <= 0 {
		return Node{}, fmt.Errorf("decode node: bad generation")
	}
	data = data[n:]
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return Node{}, fmt.Errorf("decode node: bad parent count")
	}
	data = data[n:]

	const width = 2 * object.HashSize
	if uint64(len(data)) != count*width {
		return Node{}, fmt.Errorf("decode node: want %d parent bytes, have %d", count*width, len(data))
	}
	node := Node{Generation: gen}
	for i := uint64(0); i < count; i++ {
		node.Parents = append(node.Parents, object.Hash(data[i*width:(i+1)*width]))
	}
	return node, nil
}

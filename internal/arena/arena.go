// Package arena implements the bump allocator that backs every AST node,
// type, symbol, and module owned by one compiler invocation.
//
// The allocator is block-linked: each type allocated through it gets its own
// growable list of fixed-size blocks, grown one block at a time as the
// current block fills. Reset keeps the first block of every pool (zeroing
// its cursor) and drops the rest. Go's own GC owns the backing memory, so
// there is no manual free path comparable to a C arena's block teardown
// beyond dropping the slice headers in Release; allocation failure is the
// runtime's own unrecoverable out-of-memory fatal error, which this
// package does not attempt to catch.
package arena

import "reflect"

// DefaultBlockSize is the number of elements per block when a caller does
// not request a specific size via New.
const DefaultBlockSize = 256

// Arena owns every pool created lazily by Alloc, keyed by the element type.
// One Arena lives for one compiler invocation (build, run, or one LSP
// document analysis).
type Arena struct {
	blockSize int
	pools     map[reflect.Type]resettable
	bytes     *bytePool
}

// resettable is implemented by every typed pool so Arena.Reset/Release can
// walk them without knowing their element type.
type resettable interface {
	reset()
	release()
}

// New creates an arena whose pools grow in blocks of blockSize elements.
// A non-positive blockSize falls back to DefaultBlockSize.
func New(blockSize int) *Arena {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Arena{
		blockSize: blockSize,
		pools:     make(map[reflect.Type]resettable),
		bytes:     newBytePool(blockSize * 64),
	}
}

// pool is a block-linked free list of T, grown one block at a time.
type pool[T any] struct {
	blockSize int
	blocks    [][]T
	off       int // next free slot in blocks[len(blocks)-1]
}

func newPool[T any](blockSize int) *pool[T] {
	return &pool[T]{
		blockSize: blockSize,
		blocks:    [][]T{make([]T, blockSize)},
	}
}

func (p *pool[T]) alloc() *T {
	last := p.blocks[len(p.blocks)-1]
	if p.off >= len(last) {
		p.blocks = append(p.blocks, make([]T, p.blockSize))
		p.off = 0
		last = p.blocks[len(p.blocks)-1]
	}
	v := &last[p.off]
	p.off++
	return v
}

func (p *pool[T]) reset() {
	p.blocks = p.blocks[:1]
	var zero T
	for i := range p.blocks[0] {
		p.blocks[0][i] = zero
	}
	p.off = 0
}

func (p *pool[T]) release() {
	p.blocks = nil
	p.off = 0
}

// poolFor returns (creating if necessary) the pool backing type T.
func poolFor[T any](a *Arena) *pool[T] {
	var zero T
	key := reflect.TypeOf(zero)
	if existing, ok := a.pools[key]; ok {
		return existing.(*pool[T])
	}
	p := newPool[T](a.blockSize)
	a.pools[key] = p
	return p
}

// Alloc returns a pointer to a fresh, zero-valued T owned by the arena.
// Successive calls with the same T share a block-linked pool; calls with
// different T get independent pools, mirroring the per-kind node storage a
// C arena would subdivide by allocation size.
func Alloc[T any](a *Arena) *T {
	return poolFor[T](a).alloc()
}

// AllocBytes returns an n-byte slice carved out of the arena's shared byte
// pool, used to arena-copy source buffers and string storage.
func (a *Arena) AllocBytes(n int) []byte {
	return a.bytes.alloc(n)
}

// Reset keeps the first block of every pool (zeroed) and drops the rest.
func (a *Arena) Reset() {
	for _, p := range a.pools {
		p.reset()
	}
	a.bytes.reset()
}

// Release frees every block in every pool. The arena must not be used
// afterward.
func (a *Arena) Release() {
	for k, p := range a.pools {
		p.release()
		delete(a.pools, k)
	}
	a.bytes.release()
}

// bytePool is AllocBytes' backing store: a block-linked []byte arena used
// for raw source/string storage. An oversized request gets its own block
// rather than splitting across two.
type bytePool struct {
	blockSize int
	blocks    [][]byte
	off       int
}

func newBytePool(blockSize int) *bytePool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &bytePool{blockSize: blockSize, blocks: [][]byte{make([]byte, blockSize)}}
}

func (b *bytePool) alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	last := b.blocks[len(b.blocks)-1]
	if b.off+n > len(last) {
		size := b.blockSize
		if n > size {
			size = n
		}
		b.blocks = append(b.blocks, make([]byte, size))
		b.off = 0
		last = b.blocks[len(b.blocks)-1]
	}
	out := last[b.off : b.off+n]
	b.off += n
	return out
}

func (b *bytePool) reset() {
	b.blocks = b.blocks[:1]
	for i := range b.blocks[0] {
		b.blocks[0][i] = 0
	}
	b.off = 0
}

func (b *bytePool) release() {
	b.blocks = nil
	b.off = 0
}

// CopyString arena-copies s into the byte pool and returns a string backed
// by the copy, so the caller can drop any reference to the original buffer.
func (a *Arena) CopyString(s string) string {
	if s == "" {
		return ""
	}
	buf := a.AllocBytes(len(s))
	copy(buf, s)
	return string(buf)
}

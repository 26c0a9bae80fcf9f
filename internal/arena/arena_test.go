package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	Kind int
	Name string
}

func TestAllocGrowsAcrossBlocks(t *testing.T) {
	a := New(4)
	var ptrs []*node
	for i := 0; i < 10; i++ {
		n := Alloc[node](a)
		n.Kind = i
		ptrs = append(ptrs, n)
	}
	for i, p := range ptrs {
		assert.Equal(t, i, p.Kind)
	}
}

func TestAllocDifferentTypesGetIndependentPools(t *testing.T) {
	a := New(4)
	n := Alloc[node](a)
	n.Name = "n"

	type other struct{ X int }
	o := Alloc[other](a)
	o.X = 7

	assert.Equal(t, "n", n.Name)
	assert.Equal(t, 7, o.X)
}

func TestResetKeepsFirstBlockZeroed(t *testing.T) {
	a := New(2)
	for i := 0; i < 5; i++ {
		n := Alloc[node](a)
		n.Kind = i + 1
	}
	a.Reset()

	fresh := Alloc[node](a)
	assert.Equal(t, 0, fresh.Kind, "reset must zero the retained block")
}

func TestReleaseDropsEverything(t *testing.T) {
	a := New(4)
	Alloc[node](a)
	a.Release()
	require.Empty(t, a.pools)
}

func TestAllocBytesCarvesFromSharedPool(t *testing.T) {
	a := New(8)
	b1 := a.AllocBytes(4)
	b2 := a.AllocBytes(4)
	copy(b1, "abcd")
	copy(b2, "efgh")
	assert.Equal(t, "abcd", string(b1))
	assert.Equal(t, "efgh", string(b2))
}

func TestAllocBytesGrowsNewBlockWhenOversized(t *testing.T) {
	a := New(4)
	big := a.AllocBytes(100)
	assert.Len(t, big, 100)
}

func TestCopyStringIsIndependentOfSource(t *testing.T) {
	a := New(16)
	src := []byte("hello")
	s := a.CopyString(string(src))
	src[0] = 'H'
	assert.Equal(t, "hello", s)
}

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailbox_LatestWins(t *testing.T) {
	var released []int
	m := NewMailbox(func(v int) { released = append(released, v) })

	m.Put(1)
	m.Put(2)
	m.Put(3)

	assert.Equal(t, 3, <-m.C())
	assert.Equal(t, []int{1, 2}, released)
	assert.Equal(t, uint64(2), m.Dropped())

	select {
	case v := <-m.C():
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestMailbox_PutNeverBlocks(t *testing.T) {
	m := NewMailbox[int](nil)
	for i := 0; i < 1000; i++ {
		m.Put(i)
	}
	assert.Equal(t, 999, <-m.C())
}

func TestMailbox_Drain(t *testing.T) {
	var released []string
	m := NewMailbox(func(v string) { released = append(released, v) })

	m.Drain()
	assert.Empty(t, released)

	m.Put("frame")
	m.Drain()
	assert.Equal(t, []string{"frame"}, released)
	assert.Equal(t, uint64(0), m.Dropped(), "draining is not a drop")
}

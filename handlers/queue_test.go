package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueDrainsInArrivalOrder(t *testing.T) {
	var got []string
	q := NewInboundQueue(10*time.Millisecond, func(msg []byte) {
		got = append(got, string(msg))
	}, zap.NewNop())

	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	require.True(t, q.Drain())
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, q.Len())
}

func TestQueueAtMostOneDrainPass(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	var enterOnce sync.Once
	q := NewInboundQueue(10*time.Millisecond, func(msg []byte) {
		enterOnce.Do(func() { close(entered) })
		<-release
	}, zap.NewNop())
	q.Push([]byte("slow"))

	first := make(chan bool)
	go func() { first <- q.Drain() }()
	<-entered

	// A second trigger while the pass is in flight must observe the guard.
	assert.False(t, q.Drain())

	close(release)
	assert.True(t, <-first)

	// Guard released, draining works again.
	q.Push([]byte("next"))
	assert.True(t, q.Drain())
}

func TestQueueDrainConsumesLateArrivals(t *testing.T) {
	q := NewInboundQueue(10*time.Millisecond, nil, zap.NewNop())

	var processed int
	q.process = func(msg []byte) {
		processed++
		if processed == 1 {
			// Arrives mid-pass; the pass drains to empty before releasing.
			q.Push([]byte("late"))
		}
	}

	q.Push([]byte("first"))
	require.True(t, q.Drain())
	assert.Equal(t, 2, processed)
	assert.Zero(t, q.Len())
}

func TestQueueClear(t *testing.T) {
	q := NewInboundQueue(10*time.Millisecond, func([]byte) {
		t.Fatal("cleared message must not be processed")
	}, zap.NewNop())

	q.Push([]byte("doomed"))
	q.Clear()
	assert.Zero(t, q.Len())
	assert.True(t, q.Drain())
}

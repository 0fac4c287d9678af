package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_AddThenDismissBeforeExpiry(t *testing.T) {
	t.Parallel()

	q := NewQueue(50 * time.Millisecond)
	defer q.Close()

	id := q.Add("X", Error)
	require.Len(t, q.List(), 1)

	q.Remove(id)
	assert.Empty(t, q.List())

	time.Sleep(100 * time.Millisecond)
	assert.NotPanics(t, func() { q.Remove(id) })
	assert.Empty(t, q.List())
}

func TestQueue_Expires(t *testing.T) {
	t.Parallel()

	q := NewQueue(20 * time.Millisecond)
	defer q.Close()

	q.Add("bye", Info)
	require.Eventually(t, func() bool { return len(q.List()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueue_ExpiryThenManualDismiss(t *testing.T) {
	t.Parallel()

	q := NewQueue(10 * time.Millisecond)
	defer q.Close()

	id := q.Add("late", Warning)
	require.Eventually(t, func() bool { return len(q.List()) == 0 }, time.Second, 5*time.Millisecond)

	q.Remove(id)
	q.Remove(id)
	assert.Empty(t, q.List())
}

func TestQueue_IDsStrictlyAscend(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Minute)
	defer q.Close()
	fixed := time.UnixMilli(1_700_000_000_000)
	q.now = func() time.Time { return fixed }

	a := q.Add("a", Info)
	b := q.Add("b", Success)
	c := q.Add("c", "")

	assert.Equal(t, fixed.UnixMilli(), a)
	assert.Greater(t, b, a)
	assert.Greater(t, c, b)

	items := q.List()
	require.Len(t, items, 3)
	assert.Equal(t, Info, items[2].Type)
}

func TestQueue_RemoveKeepsOthers(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Minute)
	defer q.Close()

	a := q.Add("a", Info)
	b := q.Add("b", Info)
	c := q.Add("c", Info)

	q.Remove(b)

	items := q.List()
	require.Len(t, items, 2)
	assert.Equal(t, a, items[0].ID)
	assert.Equal(t, c, items[1].ID)
}

func TestQueue_ConcurrentUse(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Minute)
	defer q.Close()

	var wg sync.WaitGroup
	ids := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- q.Add("m", Info)
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, q.List(), 100)
}

func TestQueue_AddAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Minute)
	q.Add("kept", Info)
	q.Close()

	assert.Zero(t, q.Add("late", Warning))
	require.Len(t, q.List(), 1)
	assert.Equal(t, "kept", q.List()[0].Message)
}

package observability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	created []*Record
	updated []*Record
	failNext bool
}

func (s *memStore) CreateLog(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return assert.AnError
	}
	s.created = append(s.created, record)
	return nil
}

func (s *memStore) UpdateLog(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, record)
	return nil
}

func (s *memStore) snapshot() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created), len(s.updated)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBuilder_SubmitWritesAsynchronously(t *testing.T) {
	store := &memStore{}
	b := NewBuilder(store, Config{}, nil)
	defer b.Close()

	b.Submit(&Record{RequestID: "req-1"})
	waitFor(t, func() bool { c, _ := store.snapshot(); return c == 1 })
}

func TestBuilder_UpdateWritesToUpdatePath(t *testing.T) {
	store := &memStore{}
	b := NewBuilder(store, Config{}, nil)
	defer b.Close()

	b.Update(&Record{RequestID: "req-1"})
	waitFor(t, func() bool { _, u := store.snapshot(); return u == 1 })
}

func TestBuilder_StorageFailureDoesNotPanicOrBlock(t *testing.T) {
	store := &memStore{failNext: true}
	b := NewBuilder(store, Config{}, nil)
	defer b.Close()

	b.Submit(&Record{RequestID: "req-1"})
	b.Submit(&Record{RequestID: "req-2"})
	waitFor(t, func() bool { c, _ := store.snapshot(); return c == 1 })
}

func TestBuilder_CloseDrainsPendingWrites(t *testing.T) {
	store := &memStore{}
	b := NewBuilder(store, Config{AsyncBuffer: 10}, nil)

	for i := 0; i < 5; i++ {
		b.Submit(&Record{RequestID: "req"})
	}
	b.Close()

	c, _ := store.snapshot()
	assert.Equal(t, 5, c)
}

func TestRecord_FinalizeComputesDuration(t *testing.T) {
	r := &Record{StartTimeMS: 100, EndTimeMS: 350}
	r.Finalize()
	require.Equal(t, int64(250), r.DurationMS)
}

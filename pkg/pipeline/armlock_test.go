package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArmLocks_SerializesSameArm(t *testing.T) {
	locks := newArmLocks()
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locks.withArmLock("arm-1", func() {
				time.Sleep(time.Millisecond)
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}(i)
	}
	wg.Wait()
	require.Len(t, order, 5)
}

func TestArmLocks_DifferentArmsDoNotBlock(t *testing.T) {
	locks := newArmLocks()
	release := make(chan struct{})
	started := make(chan struct{})

	go locks.withArmLock("arm-1", func() {
		close(started)
		<-release
	})
	<-started

	done := make(chan struct{})
	go func() {
		locks.withArmLock("arm-2", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("arm-2 lock blocked on an unrelated arm-1 lock")
	}
	close(release)
}

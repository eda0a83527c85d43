package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// exerciseLocker checks mutual exclusion on one key
func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		total   int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "user-1")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			total++
			mu.Unlock()

			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected exclusive access, saw %d holders at once", maxSeen)
	}
	if total != 8 {
		t.Errorf("expected 8 critical sections, got %d", total)
	}
}

func TestLocalLocker_Exclusive(t *testing.T) {
	l := NewLocalLocker()
	exerciseLocker(t, l)

	if n := l.size(); n != 0 {
		t.Errorf("expected no tracked keys after release, got %d", n)
	}
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()

	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock(a) error = %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock(b) should not wait on a: %v", err)
	}
	unlockB()
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() on held key = %v, want deadline exceeded", err)
	}

	unlock()
	unlock() // second call is a no-op

	if n := l.size(); n != 0 {
		t.Errorf("expected no tracked keys, got %d", n)
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})
	return client, s
}

func TestRedisLocker_Exclusive(t *testing.T) {
	client, _ := setupTestRedis(t)
	exerciseLocker(t, NewRedisLocker(client, 5*time.Second, 5*time.Second))
}

func TestRedisLocker_ReleaseDeletesKey(t *testing.T) {
	client, s := setupTestRedis(t)
	l := NewRedisLocker(client, 5*time.Second, time.Second)

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if !s.Exists("mediarank:lock:user-1") {
		t.Fatal("lock key should exist while held")
	}

	unlock()
	if s.Exists("mediarank:lock:user-1") {
		t.Error("lock key should be deleted on release")
	}
}

func TestRedisLocker_Timeout(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewRedisLocker(client, 5*time.Second, 50*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer unlock()

	if _, err := l.Lock(context.Background(), "user-1"); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("second Lock() = %v, want ErrLockTimeout", err)
	}
}

func TestRedisLocker_DoesNotReleaseForeignLease(t *testing.T) {
	client, s := setupTestRedis(t)
	l := NewRedisLocker(client, 100*time.Millisecond, time.Second)

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	// lease expires and another holder takes over
	s.FastForward(200 * time.Millisecond)
	if err := s.Set("mediarank:lock:user-1", "someone-else"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	unlock()
	if got, _ := s.Get("mediarank:lock:user-1"); got != "someone-else" {
		t.Errorf("release must not delete another holder's lease, key = %q", got)
	}
}

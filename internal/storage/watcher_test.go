package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, key string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+key)
	l.mu.Unlock()
}

func (l *eventLog) has(want string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == want {
			return true
		}
	}
	return false
}

func (l *eventLog) containsPrefix(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if strings.Contains(e, prefix) {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_PutReported(t *testing.T) {
	s := tempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log eventLog
	go Watch(ctx, s.Root(), testLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	if _, err := s.Put(ctx, "photo", strings.NewReader("img")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(ObjectPut + ":photo")
	}, "expected put:photo event")

	if log.containsPrefix(tmpPrefix) {
		t.Error("temp upload files must not be reported")
	}
}

func TestWatcher_RemoveReported(t *testing.T) {
	s := tempStore(t)
	_ = os.WriteFile(filepath.Join(s.Root(), "gone"), []byte("x"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log eventLog
	go Watch(ctx, s.Root(), testLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(s.Root(), "gone"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(ObjectRemoved + ":gone")
	}, "expected removed:gone event")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	s := tempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log eventLog
	go Watch(ctx, s.Root(), testLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(s.Root(), "trips"), 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(s.Root(), "trips", "rome"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has(ObjectPut + ":trips/rome")
	}, "object in new subdir not reported")
}

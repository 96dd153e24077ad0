package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryBackend struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{items: make(map[string][]byte)}
}

func (m *memoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	return data, ok, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.sets++
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *memoryBackend) DeletePattern(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func (failingBackend) Delete(context.Context, ...string) error { return errors.New("backend down") }

func (failingBackend) DeletePattern(context.Context, string) error {
	return errors.New("backend down")
}

func TestGetOrSetComputesOnceThenHits(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStore(backend, nil)
	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrSet(context.Background(), store, Key("home", "v1"), time.Minute, compute)
		if err != nil {
			t.Fatalf("getOrSet: %v", err)
		}
		if got != "value" {
			t.Fatalf("unexpected value: %q", got)
		}
	}
	if calls != 1 {
		t.Fatalf("compute should run once, ran %d times", calls)
	}
}

func TestGetOrSetBackendDownFallsBackToCompute(t *testing.T) {
	store := NewStore(failingBackend{}, nil)
	got, err := GetOrSet(context.Background(), store, "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if got != 7 {
		t.Fatalf("unexpected value: %d", got)
	}
}

func TestGetOrSetNilStoreComputes(t *testing.T) {
	got, err := GetOrSet[int](context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) {
		return 3, nil
	})
	if err != nil || got != 3 {
		t.Fatalf("unexpected result: %d %v", got, err)
	}
}

func TestGetOrSetComputeErrorNotCached(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStore(backend, nil)
	wantErr := errors.New("boom")
	_, err := GetOrSet(context.Background(), store, "k", time.Minute, func(context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if backend.sets != 0 {
		t.Fatalf("failed compute must not be stored, sets=%d", backend.sets)
	}
}

func TestInvalidatePattern(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStore(backend, nil)
	ctx := context.Background()

	seed := func(key string) {
		_, err := GetOrSet(ctx, store, key, time.Minute, func(context.Context) (string, error) { return "x", nil })
		if err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	seed(Key("suggest", "v1", "alpha"))
	seed(Key("suggest", "v1", "beta"))
	seed(Key("home", "v1"))

	store.InvalidatePattern(ctx, Key("suggest", "v1"))

	if _, ok, _ := backend.Get(ctx, Key("suggest", "v1", "alpha")); ok {
		t.Fatal("suggest keys should be gone")
	}
	if _, ok, _ := backend.Get(ctx, Key("home", "v1")); !ok {
		t.Fatal("home key should survive")
	}
}

func TestKeyVersionSeparatesPayloads(t *testing.T) {
	a := Key("explore", "v1", "us")
	b := Key("explore", "v2", "us")
	if a == b {
		t.Fatal("version bump must change the key")
	}
}

func TestGetOrSetDropsUndecodablePayload(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStore(backend, nil)
	ctx := context.Background()

	if err := backend.Set(ctx, "k", []byte(`{"old":"shape"`), time.Minute); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := GetOrSet(ctx, store, "k", time.Minute, func(context.Context) (int, error) { return 11, nil })
	if err != nil || got != 11 {
		t.Fatalf("unexpected result: %d %v", got, err)
	}
}

package kvstore

import (
	"context"
	"errors"
	"testing"
)

type snapshot struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	if _, err := mem.GetItem(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mem.SetItem(ctx, "k", "v"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := mem.GetItem(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("get returned (%q, %v)", got, err)
	}

	if err := mem.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("expected empty storage, have %d keys", mem.Len())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	in := snapshot{Items: []string{"a", "b"}, Count: 2}
	SaveSnapshot(ctx, mem, nil, "cart:u1", in)

	var out snapshot
	if !LoadSnapshot(ctx, mem, nil, "cart:u1", &out) {
		t.Fatalf("expected snapshot to load")
	}
	if len(out.Items) != 2 || out.Count != 2 {
		t.Fatalf("unexpected snapshot %+v", out)
	}
}

func TestLoadSnapshotMissingKey(t *testing.T) {
	var out snapshot
	if LoadSnapshot(context.Background(), NewMemory(), nil, "absent", &out) {
		t.Fatalf("missing key should not load")
	}
}

func TestLoadSnapshotCorruptPayload(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	if err := mem.SetItem(ctx, "bad", "{not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	var out snapshot
	if LoadSnapshot(ctx, mem, nil, "bad", &out) {
		t.Fatalf("corrupt payload should not load")
	}
}

type failingStorage struct{}

func (failingStorage) GetItem(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}
func (failingStorage) SetItem(context.Context, string, string) error {
	return errors.New("backend down")
}
func (failingStorage) RemoveItem(context.Context, string) error {
	return errors.New("backend down")
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	// Must not panic or propagate.
	SaveSnapshot(ctx, failingStorage{}, nil, "k", snapshot{})
	Remove(ctx, failingStorage{}, nil, "k")
	var out snapshot
	if LoadSnapshot(ctx, failingStorage{}, nil, "k", &out) {
		t.Fatalf("failed read should report not loaded")
	}
}

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "state", "store.json")

	_, err := NewFileStore(p).Load(ctx, ContentKey)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, NewFileStore(p).Save(ctx, ContentKey, []byte("openapi: 3.0.0\n")))
	require.NoError(t, NewFileStore(p).Save(ctx, "other", []byte("x")))

	got, err := NewFileStore(p).Load(ctx, ContentKey)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.0\n", string(got))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	_, err := NewFileStore(p).Load(context.Background(), ContentKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
	rev  uint64
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = value
	f.rev++
	return f.rev, nil
}

func TestNATSStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &fakeKV{}
	store := NewNATSStore(kv)

	_, err := store.Load(ctx, ContentKey)
	require.ErrorIs(t, err, ErrNotFound)

	s, err := Open(ctx, store)
	require.NoError(t, err)
	_, err = s.Edit(ctx, "paths: {}\n")
	require.NoError(t, err)

	got, err := store.Load(ctx, ContentKey)
	require.NoError(t, err)
	assert.Equal(t, "paths: {}\n", string(got))
	assert.Equal(t, uint64(1), kv.rev)
}

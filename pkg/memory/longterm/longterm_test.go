package longterm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(contents ...string) []Entry {
	out := make([]Entry, len(contents))
	for i, c := range contents {
		out[i] = Entry{Content: c}
	}
	return out
}

func contents(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Content
	}
	return out
}

func TestRank(t *testing.T) {
	pets := entries("the cat sat", "a dog ran", "the cat and dog played")
	five := entries("one", "two", "three", "four", "five")

	tests := []struct {
		name    string
		entries []Entry
		query   string
		limit   int
		want    []string
	}{
		{
			name:    "single keyword keeps insertion order among ties",
			entries: pets,
			query:   "cat",
			limit:   5,
			want:    []string{"the cat sat", "the cat and dog played"},
		},
		{
			name:    "higher score ranks first",
			entries: pets,
			query:   "dog cat",
			limit:   5,
			want:    []string{"the cat and dog played", "the cat sat", "a dog ran"},
		},
		{
			name:    "case insensitive and repeated keywords count once",
			entries: pets,
			query:   "DOG dog",
			limit:   5,
			want:    []string{"a dog ran", "the cat and dog played"},
		},
		{
			name:    "limit truncates scored results",
			entries: pets,
			query:   "the",
			limit:   1,
			want:    []string{"the cat sat"},
		},
		{
			name:    "empty query falls back to trailing slice",
			entries: five,
			query:   "",
			limit:   2,
			want:    []string{"four", "five"},
		},
		{
			name:    "no match falls back to trailing slice",
			entries: five,
			query:   "zebra",
			limit:   2,
			want:    []string{"four", "five"},
		},
		{
			name:    "fallback larger than store",
			entries: five,
			query:   "zebra",
			limit:   10,
			want:    []string{"one", "two", "three", "four", "five"},
		},
		{
			name:    "substring matches count",
			entries: entries("concatenate", "dog"),
			query:   "cat",
			limit:   3,
			want:    []string{"concatenate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contents(Rank(tt.entries, tt.query, tt.limit)))
		})
	}
}

func TestRank_EmptyCases(t *testing.T) {
	assert.Nil(t, Rank(nil, "cat", 3))
	assert.Nil(t, Rank(entries("cat"), "cat", 0))
	assert.Nil(t, Rank(entries("cat"), "cat", -1))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"the", "cat"}, Keywords("  The cat\tTHE\n"))
	assert.Empty(t, Keywords("   "))
}

type backendFactory func(t *testing.T) Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"file": func(t *testing.T) Backend {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "memory", "long_term.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Backend {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) Backend {
			mr := miniredis.RunT(t)
			return NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tick := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			store := New(factory(t), WithClock(func() time.Time {
				tick = tick.Add(time.Second)
				return tick
			}))
			t.Cleanup(func() { _ = store.Close() })

			got, err := store.Retrieve(ctx, "anything", 5)
			require.NoError(t, err)
			assert.Empty(t, got, "empty store")

			for _, c := range []string{"the cat sat", "a dog ran", "the cat and dog played"} {
				_, err := store.AddEntry(ctx, c, []string{"conversation"})
				require.NoError(t, err)
			}
			e, err := store.AddEntry(ctx, "Einstein on relativity", []string{"conversation", "persona:einstein"})
			require.NoError(t, err)
			assert.Equal(t, "2024-05-01T12:00:04.000000Z", e.Timestamp)

			got, err = store.Retrieve(ctx, "cat", 5)
			require.NoError(t, err)
			assert.Equal(t, []string{"the cat sat", "the cat and dog played"}, contents(got))

			got, err = store.Retrieve(ctx, "", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"the cat and dog played", "Einstein on relativity"}, contents(got))

			all, err := store.Entries(ctx)
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, "2024-05-01T12:00:01.000000Z", all[0].Timestamp)
			assert.Equal(t, []string{"conversation"}, all[0].Tags)

			filtered, err := store.Filter(ctx, "persona:*", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"Einstein on relativity"}, contents(filtered))

			filtered, err = store.Filter(ctx, "conv*", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"the cat and dog played", "Einstein on relativity"}, contents(filtered))

			require.NoError(t, store.Clear(ctx))
			all, err = store.Entries(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestStore_FilterInvalidPattern(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "m.json"))
	require.NoError(t, err)

	_, err = New(s).Filter(context.Background(), "[", 0)
	assert.ErrorContains(t, err, "invalid tag pattern")
}

func TestStore_RetrieveCancelled(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "m.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(s).Retrieve(ctx, "x", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore_CreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "long_term.json")
	_, err := NewFileStore(path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "long_term.json")

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = New(s1).AddEntry(ctx, "remember the milk", []string{"chores"})
	require.NoError(t, err)

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := New(s2).Retrieve(ctx, "milk", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"chores"}, got[0].Tags)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n    {\n        \"timestamp\"", "document is indented with four spaces")
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not linger")
}

func TestFileStore_HealsCorruptDocument(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "garbage", data: "{not json"},
		{name: "wrong shape", data: `{"content": "x"}`},
		{name: "empty file", data: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "long_term.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			fs, err := NewFileStore(path)
			require.NoError(t, err)
			store := New(fs)

			got, err := store.Retrieve(ctx, "x", 5)
			require.NoError(t, err)
			assert.Empty(t, got)

			b, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(b), "corrupt document is reinitialized")

			_, err = store.AddEntry(ctx, "fresh start", nil)
			require.NoError(t, err)
			all, err := store.Entries(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"fresh start"}, contents(all))
		})
	}
}

func TestFileStore_ReadFailureIsNotHealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "long_term.json")
	// A directory at the document path cannot be read as a file.
	require.NoError(t, os.Mkdir(path, 0o700))

	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = fs.Load(ctx)
	require.Error(t, err)

	got, err := New(fs).Retrieve(ctx, "x", 5)
	require.NoError(t, err, "reads degrade to empty")
	assert.Empty(t, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "an unreadable path is not overwritten")
}

func TestFileStore_WriteFailureIsStorageError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long_term.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	// A directory where the temp file should go makes the write fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0o700))

	_, err = New(fs).AddEntry(context.Background(), "x", nil)
	require.Error(t, err)
	assert.True(t, IsStorageError(err))

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "append", se.Op)
}

func TestRedisStore_HealsWrongType(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(DefaultRedisKey, "not a list"))

	rs := NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	store := New(rs)
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.Retrieve(ctx, "", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, mr.Exists(DefaultRedisKey))

	_, err = mr.Lpush("custom", "{broken")
	require.NoError(t, err)
	custom := New(NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), WithKey("custom")))
	_, err = custom.AddEntry(ctx, "kept", nil)
	require.NoError(t, err)

	all, err := custom.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, contents(all), "corrupt elements are skipped")
}

func TestRedisStore_UnreachableDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	store := New(NewRedisStore(addr, "", 0))
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.Retrieve(context.Background(), "x", 3)
	require.NoError(t, err)
	assert.Empty(t, got, "reads degrade to empty")

	_, err = store.AddEntry(context.Background(), "x", nil)
	assert.True(t, IsStorageError(err), "writes surface the failure")
}

func TestSQLiteStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	store := New(s)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.AddEntry(ctx, "alpha", nil)
	require.NoError(t, err)

	all, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{}, all[0].Tags)
}

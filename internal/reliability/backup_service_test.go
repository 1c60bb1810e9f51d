package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/ledgersync/internal/clients/objectstore"
	"github.com/aristath/ledgersync/internal/events"
	testhelpers "github.com/aristath/ledgersync/internal/testing"
)

type fakeObjectStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(data), size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []objectstore.Object
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, objectstore.Object{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestCreateAndUpload(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "ledger")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO kv_store (key, value, updated_at) VALUES ('transactions', '[]', 0)`)
	require.NoError(t, err)

	store := newFakeObjectStore()
	bus := events.NewBus(zerolog.Nop())
	var completed []*events.Event
	var mu sync.Mutex
	bus.Subscribe(events.BackupCompleted, func(e *events.Event) {
		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, e)
	})

	svc := NewBackupService(db, store, events.NewManager(bus, zerolog.Nop()), t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC) }

	info, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ledgersync-backup-2024-06-01-030000.db.gz", info.Key)
	assert.True(t, strings.HasPrefix(info.Checksum, "sha256:"))

	data := store.objects[info.Key]
	require.NotEmpty(t, data)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, fmt.Sprintf("sha256:%x", sha256.Sum256(data)), info.Checksum)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("SQLite format 3")))

	bus.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, completed, 1)
	assert.Equal(t, info.Key, completed[0].Data["key"])
}

type failingSnapshotter struct{}

func (failingSnapshotter) Snapshot(ctx context.Context, dest string) error {
	return errors.New("database is locked")
}

func TestCreateAndUpload_Failures(t *testing.T) {
	t.Run("snapshot", func(t *testing.T) {
		store := newFakeObjectStore()
		svc := NewBackupService(failingSnapshotter{}, store, nil, t.TempDir(), zerolog.Nop())

		_, err := svc.CreateAndUpload(context.Background())
		assert.Error(t, err)
		assert.Empty(t, store.keys())
	})

	t.Run("upload", func(t *testing.T) {
		db, cleanup := testhelpers.NewTestDB(t, "ledger")
		defer cleanup()
		store := newFakeObjectStore()
		store.uploadErr = errors.New("bucket not found")
		svc := NewBackupService(db, store, nil, t.TempDir(), zerolog.Nop())

		_, err := svc.CreateAndUpload(context.Background())
		assert.ErrorContains(t, err, "bucket not found")
	})
}

func seedBackups(store *fakeObjectStore, days ...int) {
	for _, day := range days {
		key := fmt.Sprintf("ledgersync-backup-2024-06-%02d-030000.db.gz", day)
		store.objects[key] = []byte("backup")
	}
}

func TestListBackups(t *testing.T) {
	store := newFakeObjectStore()
	seedBackups(store, 1, 3, 2)
	store.objects["ledgersync-backup-garbage.db.gz"] = []byte("x")
	store.objects["other-file.txt"] = []byte("x")

	svc := NewBackupService(failingSnapshotter{}, store, nil, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, 3, backups[0].Timestamp.Day(), "newest first")
	assert.Equal(t, int64(12), backups[0].AgeHours)
	assert.Equal(t, 1, backups[2].Timestamp.Day())
}

func TestRotateBackups(t *testing.T) {
	store := newFakeObjectStore()
	seedBackups(store, 1, 2, 3, 4, 5, 6)
	svc := NewBackupService(failingSnapshotter{}, store, nil, t.TempDir(), zerolog.Nop())

	deleted, err := svc.RotateBackups(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{
		"ledgersync-backup-2024-06-03-030000.db.gz",
		"ledgersync-backup-2024-06-04-030000.db.gz",
		"ledgersync-backup-2024-06-05-030000.db.gz",
		"ledgersync-backup-2024-06-06-030000.db.gz",
	}, store.keys())
}

func TestRotateBackups_KeepsMinimum(t *testing.T) {
	store := newFakeObjectStore()
	seedBackups(store, 1, 2, 3, 4)
	svc := NewBackupService(failingSnapshotter{}, store, nil, t.TempDir(), zerolog.Nop())

	deleted, err := svc.RotateBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Len(t, store.keys(), 3)

	deleted, err = svc.RotateBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestParseBackupKey(t *testing.T) {
	ts, ok := parseBackupKey("ledgersync-backup-2024-06-01-030405.db.gz")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 3, 4, 5, 0, time.UTC), ts)

	_, ok = parseBackupKey("ledgersync-backup-2024-06-01.db.gz")
	assert.False(t, ok)
	_, ok = parseBackupKey("nightly-2024-06-01-030405.tar.gz")
	assert.False(t, ok)
}

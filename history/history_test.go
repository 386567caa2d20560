package history

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/climalink/climalink/txflow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var account = common.HexToAddress("0x00000000000000000000000000000000000A11cE")

func record(title string, finished time.Time) Record {
	return Record{
		ID:         uuid.New(),
		Account:    "0x00000000000000000000000000000000000a11ce",
		Title:      title,
		Status:     string(txflow.StatusSuccess),
		TxHash:     common.HexToHash("0x1").Hex(),
		StartedAt:  finished.Add(-time.Minute).UTC(),
		FinishedAt: finished.UTC(),
	}
}

func TestFromState(t *testing.T) {
	finished := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	st := txflow.State{
		ID:           uuid.New(),
		Title:        "Join DAO",
		Status:       txflow.StatusError,
		ApprovalHash: "0xaa",
		Error:        txflow.MsgAlreadyMember,
		StartedAt:    finished.Add(-time.Second),
		FinishedAt:   &finished,
	}
	r := FromState(account, st)
	assert.Equal(t, st.ID, r.ID)
	assert.Equal(t, "0x00000000000000000000000000000000000a11ce", r.Account)
	assert.Equal(t, "error", r.Status)
	assert.Equal(t, txflow.MsgAlreadyMember, r.Error)
	assert.Equal(t, finished, r.FinishedAt)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer store.Close()
	require.IsType(t, &SQLiteStore{}, store)

	now := time.Now().Truncate(time.Millisecond)
	older, newer := record("Stake", now.Add(-time.Hour)), record("Register", now)
	other := record("Vote", now)
	other.Account = "0xbbbb"

	require.NoError(t, store.Insert(ctx, []Record{older, newer, other}))
	// duplicates are ignored
	require.NoError(t, store.Insert(ctx, []Record{older}))

	got, err := store.List(ctx, account.Hex(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer, got[0])
	assert.Equal(t, older, got[1])

	got, err = store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type fakeStore struct {
	mu       sync.Mutex
	failures int
	inserted []Record
}

func (f *fakeStore) Insert(ctx context.Context, records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("database is locked")
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeStore) List(ctx context.Context, account string, limit int) ([]Record, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestRecorderRetriesAndFlushes(t *testing.T) {
	store := &fakeStore{failures: 2}
	rec := NewRecorder(store, 4, quietLogger())
	rec.retry = time.Millisecond
	rec.Start(context.Background())

	now := time.Now()
	assert.True(t, rec.EnqueueIfPossible(record("a", now)))
	assert.True(t, rec.EnqueueIfPossible(record("b", now), record("c", now)))
	rec.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.inserted, 3)
	assert.Equal(t, "a", store.inserted[0].Title)
}

func TestRecorderQueueFull(t *testing.T) {
	rec := NewRecorder(&fakeStore{}, 1, quietLogger())
	assert.True(t, rec.EnqueueIfPossible(record("a", time.Now())))
	assert.False(t, rec.EnqueueIfPossible(record("b", time.Now())))
	rec.Start(context.Background())
	rec.Stop()
}

func TestRecorderDropsOnCancel(t *testing.T) {
	store := &fakeStore{failures: 1 << 20}
	rec := NewRecorder(store, 1, quietLogger())
	rec.retry = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)
	rec.EnqueueIfPossible(record("a", time.Now()))
	cancel()
	rec.Stop()
	assert.Empty(t, store.inserted)
}

func TestRecorderStopWithin(t *testing.T) {
	store := &fakeStore{failures: 1 << 20}
	rec := NewRecorder(store, 4, quietLogger())
	rec.retry = 10 * time.Millisecond
	rec.Start(context.Background())
	require.True(t, rec.EnqueueIfPossible(record("a", time.Now())))
	require.True(t, rec.EnqueueIfPossible(record("b", time.Now())))

	start := time.Now()
	assert.False(t, rec.StopWithin(50*time.Millisecond))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, store.inserted)
}

func TestRecorderStopWithinFlushes(t *testing.T) {
	store := &fakeStore{failures: 1}
	rec := NewRecorder(store, 4, quietLogger())
	rec.retry = time.Millisecond
	rec.Start(context.Background())
	require.True(t, rec.EnqueueIfPossible(record("a", time.Now())))

	assert.True(t, rec.StopWithin(5*time.Second))
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.inserted, 1)
}

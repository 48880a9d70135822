package manifest

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	b := s.CreateBatch("20260731_150000", "https://www.youtube.com/@example")
	b.AddVideo("vid1", "https://youtu.be/vid1", "Example Video")
	require.NoError(t, s.SaveBatch(b))

	loaded, err := s.LoadBatch(b.BatchID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	if diff := cmp.Diff(b, loaded); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreLoadMissingBatchReturnsNil(t *testing.T) {
	s := newTestStore(t)
	loaded, err := s.LoadBatch("does-not-exist")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestStoreFlushOnlyWritesWhenDirty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Flush())

	b := s.CreateBatch("batch1", "src")
	s.MarkDirty(b)
	require.NoError(t, s.Flush())

	path := filepath.Join(s.dir, "batch1.manifest.json")
	require.FileExists(t, path)
}

func TestStoreShutdownFlushesPendingWrites(t *testing.T) {
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	b := s.CreateBatch("batch2", "src")
	s.MarkDirty(b)
	require.NoError(t, s.Shutdown())

	loaded, err := s.LoadBatch("batch2")
	require.NoError(t, err)
	require.NotNil(t, loaded)
}

func TestStoreListAndDeleteBatch(t *testing.T) {
	s := newTestStore(t)

	b1 := s.CreateBatch("20260801_090000", "src1")
	require.NoError(t, s.SaveBatch(b1))
	b2 := s.CreateBatch("20260801_091000", "src2")
	require.NoError(t, s.SaveBatch(b2))

	ids, err := s.ListBatches()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{b1.BatchID, b2.BatchID}, ids)

	require.NoError(t, s.DeleteBatch(b1.BatchID))

	ids, err = s.ListBatches()
	require.NoError(t, err)
	require.Equal(t, []string{b2.BatchID}, ids)

	loaded, err := s.LoadBatch(b1.BatchID)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

package pagevfs

import (
	"context"
	"testing"
	"time"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/compressors"
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/durable"
	tu "github.com/INLOpen/nexusvfs/internal/testutil"
	"github.com/INLOpen/nexusvfs/syncfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The full durability path: page writes land in the memory image, sync asks
// the coordinator for a flush, the syncer writes blobs to disk and a fresh
// image loaded from disk serves the same content.
func TestDurableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	codec, err := compressors.New(core.CompressionSnappy)
	require.NoError(t, err)

	store := blobstore.NewMemStore()
	syncer, err := durable.New(store, durable.Options{Dir: dir, Compressor: codec})
	require.NoError(t, err)
	coord, err := syncfs.New(syncfs.FlusherFunc(syncer.Sync), syncfs.Options{})
	require.NoError(t, err)
	p, _ := newPageVFS(t, Options{Name: "durable-roundtrip", Store: store, Coordinator: coord})

	page0 := patterned(pageSize)
	page1 := tu.Page(pageSize, 0x5A)
	f := tu.Open(t, p.Table(), "main.db", tu.MainDBFlags)
	tu.Write(t, f, page0, 0)
	tu.Write(t, f, page1, pageSize)
	tu.Sync(t, f)
	j := tu.Open(t, p.Table(), "main.db-journal", tu.MainJournalFlags)
	tu.Write(t, j, []byte("journal"), 0)
	tu.Sync(t, j)
	tu.Close(t, j)
	tu.Close(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, coord.WaitIdle(ctx))
	stats := coord.Stats()
	assert.Equal(t, uint64(2), stats.Requests)
	assert.Zero(t, stats.Failed)
	require.NoError(t, syncer.Close())

	reloaded := blobstore.NewMemStore()
	syncer2, err := durable.New(reloaded, durable.Options{Dir: dir, Compressor: codec})
	require.NoError(t, err)
	defer syncer2.Close()
	require.NoError(t, syncer2.Load(ctx))

	p2, _ := newPageVFS(t, Options{Name: "durable-reloaded", Store: reloaded})
	f = tu.Open(t, p2.Table(), "main.db", core.OpenMainDB|core.OpenReadWrite)
	assert.Equal(t, int64(2*pageSize), tu.Size(t, f))
	assert.Equal(t, page0, tu.Read(t, f, pageSize, 0))
	assert.Equal(t, page1, tu.Read(t, f, pageSize, pageSize))
	tu.Close(t, f)

	j = tu.Open(t, p2.Table(), "main.db-journal", core.OpenMainJournal|core.OpenReadWrite)
	assert.Equal(t, []byte("journal"), tu.Read(t, j, 7, 0))
	tu.Close(t, j)
}

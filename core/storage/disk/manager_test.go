package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blastdb/blastdb/core/storage/bufferpool"
	"github.com/blastdb/blastdb/core/storage/page"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	manager := NewManager(logger)
	t.Cleanup(func() { manager.CloseAll() })
	return manager
}

func TestManagerOpenAssignsFreshIDs(t *testing.T) {
	manager := setupManager(t)
	dir := t.TempDir()

	fd1, err := manager.Open(filepath.Join(dir, "a.blt"), true)
	require.NoError(t, err)
	fd2, err := manager.Open(filepath.Join(dir, "b.blt"), true)
	require.NoError(t, err)
	require.NotEqual(t, fd1, fd2)

	_, err = manager.File(fd1)
	require.NoError(t, err)
	require.NoError(t, manager.Close(fd1))
	_, err = manager.File(fd1)
	require.ErrorIs(t, err, ErrUnknownFile)
}

// The manager's hooks have no failure channel; an unreadable page must
// leave the frame zeroed rather than poisoned.
func TestInitFuncZeroFillsOnFailure(t *testing.T) {
	manager := setupManager(t)

	frame := make([]byte, page.PageSize)
	for i := range frame {
		frame[i] = 0xAA
	}
	manager.InitFunc(page.FileID(42), 1, frame)
	for _, b := range frame {
		require.Zero(t, b)
	}
}

// End-to-end through the buffer pool: pages written via pool frames and
// flushed by FlushAll are durable across a reopen.
func TestManagerBacksBufferPool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.blt")

	manager := setupManager(t)
	fd, err := manager.Open(path, true)
	require.NoError(t, err)
	pf, err := manager.File(fd)
	require.NoError(t, err)

	pageNum, err := pf.AllocatePage()
	require.NoError(t, err)

	pool := bufferpool.New(2, manager.InitFunc, manager.FlushFunc, nil)
	data, err := pool.GetPageData(fd, pageNum)
	require.NoError(t, err)
	copy(data, "written through the pool")
	pool.MarkDirty(fd, pageNum)
	pool.FlushAll()
	require.NoError(t, manager.Close(fd))

	// Reopen and read the raw page back.
	manager2 := setupManager(t)
	fd2, err := manager2.Open(path, false)
	require.NoError(t, err)
	pf2, err := manager2.File(fd2)
	require.NoError(t, err)

	buf := make([]byte, page.PageSize)
	require.NoError(t, pf2.ReadPage(pageNum, buf))
	require.Equal(t, []byte("written through the pool"), buf[:24])
}

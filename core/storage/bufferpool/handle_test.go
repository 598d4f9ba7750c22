package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blastdb/blastdb/core/storage/page"
)

func TestHandleGetDataDelegates(t *testing.T) {
	pool, store := setupPool(t, 1)

	handle := pool.Handle(1, 1)
	defer handle.Close()

	data, err := handle.GetData()
	require.NoError(t, err)
	require.Len(t, data, page.PageSize)
	require.Equal(t, []pageRef{{1, 1}}, store.inits)
}

// Close releases the pin exactly when the handle still holds one, so a
// deferred Close keeps any exit path leak-free.
func TestHandleCloseReleasesPin(t *testing.T) {
	pool, _ := setupPool(t, 1)

	handle := pool.Handle(1, 1)
	_, err := handle.GetData()
	require.NoError(t, err)
	handle.Pin()

	_, err = pool.GetPageData(1, 2)
	require.ErrorIs(t, err, ErrPoolExhausted)

	handle.Close()
	_, err = pool.GetPageData(1, 2)
	require.NoError(t, err)
}

func TestHandleCloseIsReentrant(t *testing.T) {
	pool, _ := setupPool(t, 1)

	handle := pool.Handle(1, 1)
	_, err := handle.GetData()
	require.NoError(t, err)
	handle.Pin()

	handle.Close()
	require.NotPanics(t, func() { handle.Close() }, "second Close must be a no-op")
}

func TestHandleExplicitUnpinClearsFlag(t *testing.T) {
	pool, _ := setupPool(t, 1)

	handle := pool.Handle(1, 1)
	_, err := handle.GetData()
	require.NoError(t, err)
	handle.Pin()
	handle.Unpin()

	// The pin is gone; Close has nothing left to release.
	require.NotPanics(t, func() { handle.Close() })
	_, err = pool.GetPageData(1, 2)
	require.NoError(t, err)
}

// Pin is deliberately not idempotent: two Pins take two pool pins, and
// Close only returns the one the local flag tracks.
func TestHandleDoublePinPinsTwice(t *testing.T) {
	pool, _ := setupPool(t, 1)

	handle := pool.Handle(1, 1)
	_, err := handle.GetData()
	require.NoError(t, err)
	handle.Pin()
	handle.Pin()
	handle.Close()

	// One pool pin remains.
	_, err = pool.GetPageData(1, 2)
	require.ErrorIs(t, err, ErrPoolExhausted)

	pool.Unpin(1, 1)
	_, err = pool.GetPageData(1, 2)
	require.NoError(t, err)
}

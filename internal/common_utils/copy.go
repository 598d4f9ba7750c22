// Package commonutils carries small shared helpers that have no better
// home, currently the throttled file copy behind online backups.
package commonutils

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/time/rate"
)

// chunkSize is the unit of one read/write round while copying.
const chunkSize = 4 * 1024 * 1024 // 4 MiB

// CopyThrottled copies srcPath to dstPath, limited to rateBytesPerSec
// (unlimited when <= 0), and returns the number of bytes copied plus the
// sha256 of the data written. The destination is truncated, written
// chunk by chunk, and synced before returning; cancelling ctx aborts the
// copy between chunks.
func CopyThrottled(ctx context.Context, srcPath, dstPath string, rateBytesPerSec int64) (int64, [sha256.Size]byte, error) {
	var sum [sha256.Size]byte

	src, err := os.Open(srcPath)
	if err != nil {
		return 0, sum, fmt.Errorf("open src: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, sum, fmt.Errorf("open dst: %w", err)
	}
	defer dst.Close()

	var limiter *rate.Limiter
	if rateBytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateBytesPerSec), chunkSize)
	}

	var (
		copied int64
		hasher = sha256.New()
		buf    = make([]byte, chunkSize)
	)
	for {
		n, rerr := src.ReadAt(buf, copied)
		if n > 0 {
			if limiter != nil {
				if err := limiter.WaitN(ctx, n); err != nil {
					return copied, sum, fmt.Errorf("rate limiter: %w", err)
				}
			} else if err := ctx.Err(); err != nil {
				return copied, sum, err
			}

			if _, werr := dst.Write(buf[:n]); werr != nil {
				return copied, sum, fmt.Errorf("write: %w", werr)
			}
			hasher.Write(buf[:n])
			copied += int64(n)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return copied, sum, fmt.Errorf("read: %w", rerr)
		}
	}

	if err := dst.Sync(); err != nil {
		return copied, sum, fmt.Errorf("sync: %w", err)
	}
	copy(sum[:], hasher.Sum(nil))
	return copied, sum, nil
}

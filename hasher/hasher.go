package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	hashBufferSmallSize      = 32 * 1024
	hashBufferLargeSize      = 128 * 1024
	hashLargeBufferThreshold = 256 * 1024
)

// ErrNotReadable reports that the target file does not exist or could not be
// opened. Deny-list hash checks treat this as "no match", not a failure.
var ErrNotReadable = errors.New("file not readable")

var hashBufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSmallSize)
		return &buf
	},
}

var hashBufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferLargeSize)
		return &buf
	},
}

// SHA256File streams path through SHA-256 and returns the lowercase hex
// digest. Safe for concurrent use; each call owns its hash state and borrows
// a read buffer from a shared pool.
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotReadable, path, err)
	}
	defer file.Close()

	bufferPool := &hashBufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= hashLargeBufferThreshold {
		bufferPool = &hashBufferLargePool
	}
	bufferPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufferPtr)
	buffer := *bufferPtr

	h := sha256.New()
	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			h.Write(buffer[:n])
		}
		if readErr != nil {
			if readErr != io.EOF {
				return "", fmt.Errorf("read %s: %w", path, readErr)
			}
			break
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

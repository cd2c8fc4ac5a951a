// Package snapshot copies Paradox table files to a private temporary
// directory before they are opened. Legacy applications keep their
// tables open and rewrite them in place, so reading the live file can
// observe a half-written state; a snapshot gives the reader a stable
// copy.
package snapshot

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

const copyChunkSize = 4 * 1024 * 1024

// stabilityRetries bounds how many times a copy is retried when the
// source keeps changing under it.
const stabilityRetries = 3

// Snapshot holds temporary copies of a table's files.
type Snapshot struct {
	// DBPath is the copied .db file.
	DBPath string
	// MBPath is the copied .MB side file, empty when the table has none.
	MBPath string
	// Hash is the CRC32 of the copied .db file.
	Hash string

	dir string
}

// Take copies dbPath, and mbPath when non-empty, into a fresh temporary
// directory. The .db copy is verified against the source hash and
// retried while the source is being rewritten.
func Take(dbPath, mbPath string) (*Snapshot, error) {
	dir, err := os.MkdirTemp("", "pxread-snapshot-")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	snap := &Snapshot{dir: dir}
	snap.DBPath = filepath.Join(dir, filepath.Base(dbPath))

	hash, err := copyStable(dbPath, snap.DBPath)
	if err != nil {
		snap.Release()
		return nil, err
	}
	snap.Hash = hash

	if mbPath != "" {
		snap.MBPath = filepath.Join(dir, filepath.Base(mbPath))
		if _, err := copyFile(mbPath, snap.MBPath); err != nil {
			snap.Release()
			return nil, err
		}
	}
	return snap, nil
}

// Release removes the snapshot directory. Safe to call more than once.
func (s *Snapshot) Release() error {
	if s == nil || s.dir == "" {
		return nil
	}
	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove snapshot directory: %w", err)
	}
	return nil
}

// copyStable copies source to dest, retrying until the source hash is
// the same before and after the copy.
func copyStable(source, dest string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < stabilityRetries; attempt++ {
		before, err := fileHash(source)
		if err != nil {
			return "", err
		}
		if _, err := copyFile(source, dest); err != nil {
			return "", err
		}
		after, err := fileHash(source)
		if err != nil {
			return "", err
		}
		if before == after {
			return after, nil
		}
		lastErr = fmt.Errorf("source %s changed during copy", source)
	}
	return "", lastErr
}

func copyFile(source, dest string) (int64, error) {
	in, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer out.Close()

	buffer := make([]byte, copyChunkSize)
	var written int64
	for {
		n, err := in.Read(buffer)
		if err != nil && err != io.EOF {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
		if n == 0 {
			break
		}
		if _, err := out.Write(buffer[:n]); err != nil {
			return written, fmt.Errorf("failed to write snapshot: %w", err)
		}
		written += int64(n)
	}
	return written, nil
}

func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer file.Close()

	hash := crc32.NewIEEE()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return fmt.Sprintf("%08x", hash.Sum32()), nil
}

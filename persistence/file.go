package persistence

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/bindex"
	"github.com/hupe1980/bindex/internal/mmap"
)

const fileBufferSize = 256 * 1024

// SaveFile writes idx to path atomically: the index goes to a temp file in
// the same directory, is synced, and renamed over path. Readers of path
// never observe a partial index.
func SaveFile(path string, idx *bindex.Index, optFns ...func(o *Options)) error {
	opts := applyOptions(optFns)
	start := time.Now()

	n, err := saveFile(path, idx)

	opts.Metrics.RecordWrite(n, time.Since(start), err)
	opts.Logger.LogWrite(path, n, err)
	return err
}

func saveFile(path string, idx *bindex.Index) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("persistence: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	bw := bufio.NewWriterSize(tmp, fileBufferSize)
	w := NewWriter(bw)
	if err := w.WriteIndex(idx); err != nil {
		_ = tmp.Close()
		return w.BytesWritten(), fmt.Errorf("persistence: failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return w.BytesWritten(), fmt.Errorf("persistence: failed to flush %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return w.BytesWritten(), fmt.Errorf("persistence: failed to chmod %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return w.BytesWritten(), fmt.Errorf("persistence: failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return w.BytesWritten(), fmt.Errorf("persistence: failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return w.BytesWritten(), fmt.Errorf("persistence: failed to rename %s: %w", path, err)
	}

	// Best-effort: fsync directory so the rename survives a crash.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return w.BytesWritten(), nil
}

// LoadFile reads the index stored at path.
func LoadFile(path string, optFns ...func(o *Options)) (*bindex.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to open %s: %w", path, err)
	}
	defer f.Close()

	return readNamed(path, bufio.NewReaderSize(f, fileBufferSize), optFns)
}

// LoadMmap reads the index stored at path through a read-only memory
// mapping, avoiding read syscalls for large indexes. The mapping is released
// before LoadMmap returns; the index does not alias the file.
func LoadMmap(path string, optFns ...func(o *Options)) (*bindex.Index, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to map %s: %w", path, err)
	}
	defer m.Close()

	_ = m.Advise(mmap.AccessSequential)

	return readNamed(path, bytes.NewReader(m.Bytes()), optFns)
}

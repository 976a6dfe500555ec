package storage

import (
	"os"
	"testing"
)

func setupTestStorage(t *testing.T) (*FileStorage, func()) {
	t.Helper()
	path := t.TempDir() + "/test.jet"
	fs, err := Open(path, 4096)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return fs, func() {
		fs.Close()
		os.Remove(path)
	}
}

func TestFileStorageReserveAndWriteRead(t *testing.T) {
	fs, cleanup := setupTestStorage(t)
	defer cleanup()

	pageNum, err := fs.ReservePageNumber()
	if err != nil {
		t.Fatalf("ReservePageNumber failed: %v", err)
	}
	if pageNum != 0 {
		t.Errorf("expected first reserved page 0, got %d", pageNum)
	}

	buf := fs.CreatePageBuffer()
	if len(buf) != fs.PageSize() {
		t.Fatalf("expected buffer of %d bytes, got %d", fs.PageSize(), len(buf))
	}
	copy(buf, []byte("hello index page"))

	if err := fs.StartWrite(); err != nil {
		t.Fatalf("StartWrite failed: %v", err)
	}
	if err := fs.WritePage(buf, pageNum); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	if err := fs.FinishWrite(); err != nil {
		t.Fatalf("FinishWrite failed: %v", err)
	}

	readBuf := fs.CreatePageBuffer()
	if err := fs.ReadPage(readBuf, pageNum); err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if string(readBuf[:16]) != "hello index page" {
		t.Errorf("unexpected page contents: %q", readBuf[:16])
	}
}

func TestFileStorageFinishWriteWithoutStartFails(t *testing.T) {
	fs, cleanup := setupTestStorage(t)
	defer cleanup()

	if err := fs.FinishWrite(); err == nil {
		t.Error("expected error finishing write with no open epoch")
	}
}

func TestFileStorageNestedEpochsFlushOnce(t *testing.T) {
	fs, cleanup := setupTestStorage(t)
	defer cleanup()

	if err := fs.StartWrite(); err != nil {
		t.Fatalf("outer StartWrite failed: %v", err)
	}
	if err := fs.StartWrite(); err != nil {
		t.Fatalf("inner StartWrite failed: %v", err)
	}

	pageNum, _ := fs.ReservePageNumber()
	buf := fs.CreatePageBuffer()
	if err := fs.WritePage(buf, pageNum); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	if err := fs.FinishWrite(); err != nil {
		t.Fatalf("inner FinishWrite failed: %v", err)
	}
	// The inner FinishWrite must not flush: the file is still empty.
	if stat, err := os.Stat(fs.filePath); err != nil || stat.Size() != 0 {
		t.Fatalf("expected no flush after inner FinishWrite, stat=%v err=%v", stat, err)
	}
	// Still inside the outer epoch: nothing wrong with reading it back
	// through the dirty set.
	readBuf := fs.CreatePageBuffer()
	if err := fs.ReadPage(readBuf, pageNum); err != nil {
		t.Fatalf("ReadPage inside epoch failed: %v", err)
	}

	if err := fs.FinishWrite(); err != nil {
		t.Fatalf("outer FinishWrite failed: %v", err)
	}
	// The outer FinishWrite flushes the buffered page to the file.
	if stat, err := os.Stat(fs.filePath); err != nil || stat.Size() != int64(fs.PageSize()) {
		t.Fatalf("expected one flushed page after outer FinishWrite, stat=%v err=%v", stat, err)
	}
}

func TestFileStorageReadOutOfRangeFails(t *testing.T) {
	fs, cleanup := setupTestStorage(t)
	defer cleanup()

	buf := fs.CreatePageBuffer()
	if err := fs.ReadPage(buf, 42); err == nil {
		t.Error("expected error reading an unreserved page")
	}
}

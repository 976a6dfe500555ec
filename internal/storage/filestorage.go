package storage

import (
	"container/list"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultMaxCacheSize is the default maximum number of pages held in the
// read cache. Can be overridden with WithMaxCacheSize.
const DefaultMaxCacheSize = 1000

// FileStorage is a PagedStorage backed by a single on-disk file, with an
// LRU read cache and epoch-scoped buffered writes.
//
// EDUCATIONAL NOTE:
// -----------------
// Reads go through a small LRU cache so repeated lookups of the same index
// or table-definition page during a single createTable/addRow call don't
// round-trip to disk. Writes inside a write epoch are buffered in a dirty
// set and only hit the file (and get fsynced) when the outermost
// FinishWrite runs, so a caller that writes several pages in one epoch
// pays for one sync, not one per page.
type FileStorage struct {
	file     *os.File
	filePath string
	pageSize int

	pageCount int32

	cache   map[int32][]byte
	lruList *list.List
	lruMap  map[int32]*list.Element

	maxCacheSize int

	// dirty holds pages written during the current write epoch that
	// have not yet been flushed to disk.
	dirty map[int32][]byte

	// epochDepth supports nested StartWrite/FinishWrite calls; only the
	// outermost FinishWrite actually flushes and syncs.
	epochDepth int

	log *logrus.Logger

	mu sync.Mutex
}

// Option configures a FileStorage.
type Option func(*FileStorage)

// WithMaxCacheSize sets the maximum number of pages kept in the read cache.
func WithMaxCacheSize(size int) Option {
	return func(fs *FileStorage) {
		if size > 0 {
			fs.maxCacheSize = size
		}
	}
}

// WithLogger overrides the logger used for operational messages.
func WithLogger(log *logrus.Logger) Option {
	return func(fs *FileStorage) {
		if log != nil {
			fs.log = log
		}
	}
}

// Open opens (creating if necessary) a file-backed PagedStorage using the
// given page size.
func Open(filePath string, pageSize int, opts ...Option) (*FileStorage, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open database file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat database file: %w", err)
	}

	fs := &FileStorage{
		file:         file,
		filePath:     filePath,
		pageSize:     pageSize,
		pageCount:    int32(stat.Size() / int64(pageSize)),
		cache:        make(map[int32][]byte),
		lruList:      list.New(),
		lruMap:       make(map[int32]*list.Element),
		maxCacheSize: DefaultMaxCacheSize,
		dirty:        make(map[int32][]byte),
		log:          logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs, nil
}

// Close flushes any pending write epoch and closes the underlying file.
func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.flushDirtyLocked(); err != nil {
		return err
	}
	return fs.file.Close()
}

// PageSize implements PagedStorage.
func (fs *FileStorage) PageSize() int {
	return fs.pageSize
}

// CreatePageBuffer implements PagedStorage.
func (fs *FileStorage) CreatePageBuffer() []byte {
	return make([]byte, fs.pageSize)
}

// ReadPage implements PagedStorage.
func (fs *FileStorage) ReadPage(buf []byte, pageNumber int32) error {
	if len(buf) != fs.pageSize {
		return fmt.Errorf("read page %d: buffer must be %d bytes, got %d", pageNumber, fs.pageSize, len(buf))
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if data, ok := fs.dirty[pageNumber]; ok {
		copy(buf, data)
		return nil
	}

	if data, ok := fs.cache[pageNumber]; ok {
		if elem, exists := fs.lruMap[pageNumber]; exists {
			fs.lruList.MoveToFront(elem)
		}
		copy(buf, data)
		return nil
	}

	if pageNumber < 0 || pageNumber >= fs.pageCount {
		return fmt.Errorf("read page %d: out of range (page count %d)", pageNumber, fs.pageCount)
	}

	data := make([]byte, fs.pageSize)
	offset := int64(pageNumber) * int64(fs.pageSize)
	n, err := fs.file.ReadAt(data, offset)
	if err != nil {
		return fmt.Errorf("read page %d: %w", pageNumber, err)
	}
	if n != fs.pageSize {
		return fmt.Errorf("read page %d: short read, got %d bytes", pageNumber, n)
	}

	fs.cacheLocked(pageNumber, data)
	copy(buf, data)
	return nil
}

// WritePage implements PagedStorage.
func (fs *FileStorage) WritePage(buf []byte, pageNumber int32) error {
	if len(buf) != fs.pageSize {
		return fmt.Errorf("write page %d: buffer must be %d bytes, got %d", pageNumber, fs.pageSize, len(buf))
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	cp := make([]byte, fs.pageSize)
	copy(cp, buf)
	fs.dirty[pageNumber] = cp

	// Keep the read cache coherent so a read-after-write in the same
	// epoch sees the new bytes even after eviction clears the dirty entry.
	fs.cacheLocked(pageNumber, cp)

	if pageNumber >= fs.pageCount {
		fs.pageCount = pageNumber + 1
	}

	if fs.epochDepth == 0 {
		// No open epoch: treat as an implicit single-page epoch so a
		// lone WritePage call (outside createTable's bracketing) is
		// still durable immediately.
		return fs.flushDirtyLocked()
	}
	return nil
}

// ReservePageNumber implements PagedStorage.
func (fs *FileStorage) ReservePageNumber() (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := fs.pageCount
	fs.pageCount++
	return n, nil
}

// StartWrite implements PagedStorage. Nested calls are supported; only the
// outermost FinishWrite flushes.
func (fs *FileStorage) StartWrite() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.epochDepth++
	fs.log.Debugf("storage: write epoch opened (depth %d)", fs.epochDepth)
	return nil
}

// FinishWrite implements PagedStorage.
func (fs *FileStorage) FinishWrite() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.epochDepth == 0 {
		return fmt.Errorf("finish write: no open write epoch")
	}
	fs.epochDepth--
	if fs.epochDepth > 0 {
		return nil
	}

	fs.log.Debug("storage: write epoch closing, flushing dirty pages")
	return fs.flushDirtyLocked()
}

// cacheLocked inserts or refreshes a page in the LRU read cache. Caller
// must hold mu.
func (fs *FileStorage) cacheLocked(pageNumber int32, data []byte) {
	if elem, exists := fs.lruMap[pageNumber]; exists {
		fs.cache[pageNumber] = data
		fs.lruList.MoveToFront(elem)
		return
	}

	if len(fs.cache) >= fs.maxCacheSize {
		back := fs.lruList.Back()
		if back != nil {
			evictID := back.Value.(int32)
			delete(fs.cache, evictID)
			delete(fs.lruMap, evictID)
			fs.lruList.Remove(back)
		}
	}

	fs.cache[pageNumber] = data
	elem := fs.lruList.PushFront(pageNumber)
	fs.lruMap[pageNumber] = elem
}

// flushDirtyLocked writes every pending dirty page to disk and syncs once.
// Caller must hold mu.
func (fs *FileStorage) flushDirtyLocked() error {
	if len(fs.dirty) == 0 {
		return nil
	}

	for pageNumber, data := range fs.dirty {
		offset := int64(pageNumber) * int64(fs.pageSize)
		n, err := fs.file.WriteAt(data, offset)
		if err != nil {
			return fmt.Errorf("write page %d: %w", pageNumber, err)
		}
		if n != fs.pageSize {
			return fmt.Errorf("write page %d: short write, wrote %d bytes", pageNumber, n)
		}
	}

	if err := fs.file.Sync(); err != nil {
		return fmt.Errorf("sync database file: %w", err)
	}

	fs.dirty = make(map[int32][]byte)
	return nil
}

// PageCount returns the total number of pages currently tracked (including
// reserved-but-unwritten pages).
func (fs *FileStorage) PageCount() int32 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.pageCount
}

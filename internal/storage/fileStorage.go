package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStorage is a MemoryStorage backed by an append-only JSON-lines file.
// The file is replayed on open, every insert appends one line.
type FileStorage struct {
	*MemoryStorage
	file   *os.File
	logger *zap.Logger
}

func NewFileStorage(p string, logger *zap.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(p), 0770); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	file, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0660)
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}

	mem, _ := CreateMemoryStorage()
	fs := &FileStorage{
		MemoryStorage: mem,
		file:          file,
		logger:        logger,
	}

	n, err := fs.load()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	logger.Info("file storage loaded", zap.String("path", p), zap.Int("records", n))

	return fs, nil
}

// load replays the file. Records are decoded as a JSON stream, so a line
// has no length limit.
func (fs *FileStorage) load() (int, error) {
	n := 0
	dec := json.NewDecoder(fs.file)
	for {
		var r URLRecord
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to parse record %d: %w", n+1, err)
		}
		fs.put(r)
		n++
	}
}

// Insert allocates the id and persists the line while holding the write
// lock, so the file order matches id order.
func (fs *FileStorage) Insert(_ context.Context, original string) (*URLRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.byOrig[original]; exists {
		return nil, ErrConflict
	}

	r := URLRecord{ShortID: fs.seq + 1, Original: original}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if _, err = fs.file.Write(append(b, '\n')); err != nil {
		fs.logger.Error("cannot append record", zap.Error(err))
		return nil, fmt.Errorf("write record: %w", err)
	}

	fs.put(r)
	return &r, nil
}

func (fs *FileStorage) Close() error {
	return fs.file.Close()
}

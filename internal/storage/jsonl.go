package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lendingScope/internal/model"
)

// JsonlStorage appends log records to a JSONL file. The file doubles as the
// input of an offline replay.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, record := range logs {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write log record %d/%d: %w", record.BlockNumber, record.LogIndex, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}

// ReadLogs streams the records of a JSONL archive to fn in file order.
// Blank lines are skipped; a malformed line stops the read.
func ReadLogs(ctx context.Context, path string, fn func(model.LogRecord) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var record model.LogRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("parse archive line %d: %w", line, err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan archive: %w", err)
	}
	return nil
}

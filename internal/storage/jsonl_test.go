package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lendingScope/internal/model"
)

func TestArchiveReplaysInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.jsonl")
	archive := NewJsonlStorage(path)

	require.NoError(t, archive.PutLogBatch([]model.LogRecord{
		{BlockNumber: 10, LogIndex: 0, Address: "0xa", Topics: []string{"0x01"}},
		{BlockNumber: 10, LogIndex: 3, Address: "0xb"},
	}))
	require.NoError(t, archive.PutLogBatch(nil))
	require.NoError(t, archive.PutLogBatch([]model.LogRecord{{BlockNumber: 12, LogIndex: 1, Address: "0xa"}}))

	var got []model.LogRecord
	require.NoError(t, ReadLogs(context.Background(), path, func(r model.LogRecord) error {
		got = append(got, r)
		return nil
	}))
	require.Len(t, got, 3)
	require.Equal(t, uint64(3), got[1].LogIndex)
	require.Equal(t, uint64(12), got[2].BlockNumber)
	require.Equal(t, []string{"0x01"}, got[0].Topics)
}

func TestReadLogsReportsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"block_number\":1}\n\n{oops\n"), 0o644))

	calls := 0
	err := ReadLogs(context.Background(), path, func(model.LogRecord) error {
		calls++
		return nil
	})
	require.ErrorContains(t, err, "line 3")
	require.Equal(t, 1, calls)
}

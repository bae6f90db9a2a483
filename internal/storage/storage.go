package storage

import "lendingScope/internal/model"

// Storage archives raw log records as they are fetched.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

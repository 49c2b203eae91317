package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kadoten/drivemaid/pkg/model"
)

// memoryRepo is the process-local fallback used in tests and when no
// Firestore project is configured. Records do not survive a restart; the
// appProperty marker on the files themselves still does.
type memoryRepo struct {
	mu      sync.RWMutex
	records map[model.FileID]*model.OrganizedRecord
}

func NewMemory() Repository {
	return &memoryRepo{
		records: make(map[model.FileID]*model.OrganizedRecord),
	}
}

func (r *memoryRepo) PutRecord(ctx context.Context, record *model.OrganizedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *record
	r.records[record.FileID] = &copied
	return nil
}

func (r *memoryRepo) GetRecord(ctx context.Context, id model.FileID) (*model.OrganizedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, goerr.Wrap(ErrRecordNotFound, "no record in memory", goerr.V("file_id", id))
	}

	copied := *record
	return &copied, nil
}

func (r *memoryRepo) ListRecords(ctx context.Context) ([]*model.OrganizedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*model.OrganizedRecord, 0, len(r.records))
	for _, record := range r.records {
		copied := *record
		records = append(records, &copied)
	}

	return records, nil
}

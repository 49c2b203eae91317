package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kadoten/drivemaid/pkg/model"
)

var ErrRecordNotFound = goerr.New("organized record not found")

// Repository persists which files have been organized, so a restarted
// process does not re-classify them.
type Repository interface {
	// PutRecord saves or overwrites the record for one file
	PutRecord(ctx context.Context, record *model.OrganizedRecord) error

	// GetRecord retrieves the record for one file
	GetRecord(ctx context.Context, id model.FileID) (*model.OrganizedRecord, error)

	// ListRecords retrieves all records, used to seed the organized set
	ListRecords(ctx context.Context) ([]*model.OrganizedRecord, error)
}

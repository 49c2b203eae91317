package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"

	"github.com/kadoten/drivemaid/pkg/model"
)

const defaultCollection = "organized_files"

// firestoreRepo implements Repository on Firestore, one document per file.
type firestoreRepo struct {
	client     *firestore.Client
	collection string
}

type FirestoreOption func(*firestoreRepo)

func WithCollection(name string) FirestoreOption {
	return func(r *firestoreRepo) {
		r.collection = name
	}
}

// NewFirestore creates a Firestore-backed repository.
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	repo := &firestoreRepo{
		client:     client,
		collection: defaultCollection,
	}

	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

func (r *firestoreRepo) PutRecord(ctx context.Context, record *model.OrganizedRecord) error {
	_, err := r.client.Collection(r.collection).Doc(string(record.FileID)).Set(ctx, record)
	if err != nil {
		return goerr.Wrap(err, "failed to put organized record", goerr.V("file_id", record.FileID))
	}

	return nil
}

func (r *firestoreRepo) GetRecord(ctx context.Context, id model.FileID) (*model.OrganizedRecord, error) {
	doc, err := r.client.Collection(r.collection).Doc(string(id)).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(ErrRecordNotFound, "failed to get organized record", goerr.V("file_id", id))
	}

	var record model.OrganizedRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, goerr.Wrap(err, "failed to decode organized record", goerr.V("file_id", id))
	}

	return &record, nil
}

func (r *firestoreRepo) ListRecords(ctx context.Context) ([]*model.OrganizedRecord, error) {
	iter := r.client.Collection(r.collection).Documents(ctx)
	defer iter.Stop()

	var records []*model.OrganizedRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate organized records")
		}

		var record model.OrganizedRecord
		if err := doc.DataTo(&record); err != nil {
			return nil, goerr.Wrap(err, "failed to decode organized record", goerr.V("doc", doc.Ref.ID))
		}
		records = append(records, &record)
	}

	return records, nil
}

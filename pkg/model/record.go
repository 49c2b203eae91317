package model

import "time"

// OrganizedRecord is the durable marker kept per organized file. Restarting
// the process seeds the in-memory organized set from these records.
type OrganizedRecord struct {
	FileID     FileID    `firestore:"file_id" json:"file_id"`
	Name       string    `firestore:"name" json:"name"`
	Category   Category  `firestore:"category" json:"category"`
	Confidence float64   `firestore:"confidence" json:"confidence"`
	Reasoning  string    `firestore:"reasoning" json:"reasoning"`
	MovedAt    time.Time `firestore:"moved_at" json:"moved_at"`
}

package model

import "time"

type FileID string

const (
	// MIMETypeFolder is the Drive MIME type for folders.
	MIMETypeFolder = "application/vnd.google-apps.folder"

	// OrganizedProperty is the appProperty key written on a file when it is
	// moved into a category folder. Files carrying it survive restarts as
	// "already organized".
	OrganizedProperty = "drivemaid.organized"
)

// FileRecord is a point-in-time snapshot of a Drive file from a listing.
// Staleness is tolerated; the organizer re-reads parents before moving.
type FileRecord struct {
	ID            FileID
	Name          string
	MIMEType      string
	Size          int64
	CreatedAt     time.Time
	Parents       []string
	AppProperties map[string]string
}

// IsFolder reports whether the record is a Drive folder.
func (f *FileRecord) IsFolder() bool {
	return f.MIMEType == MIMETypeFolder
}

// IsOrganized reports whether the file carries the organized marker.
func (f *FileRecord) IsOrganized() bool {
	return f.AppProperties[OrganizedProperty] == "true"
}

// Stats accumulates the outcome of one batch pass.
type Stats struct {
	Total     int
	Organized int
	Skipped   int
	Errors    int
}

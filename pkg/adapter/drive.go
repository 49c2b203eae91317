package adapter

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/kadoten/drivemaid/pkg/model"
)

const (
	listFields = "nextPageToken, files(id, name, mimeType, size, createdTime, parents, appProperties)"
	fileFields = "id, name, mimeType, size, createdTime, parents, appProperties"
	exportMIME = "text/plain"
)

// WatchChannel identifies a registered push notification channel.
type WatchChannel struct {
	ID         string
	ResourceID string
	Expiration time.Time
}

// Drive wraps the Drive v3 API surface the organizer needs. Every method
// returns a wrapped error on failure; callers decide whether that is a skip,
// an error counter, or fatal.
type Drive interface {
	ListFiles(ctx context.Context, folderID string) ([]*model.FileRecord, error)
	GetFile(ctx context.Context, id model.FileID) (*model.FileRecord, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	MoveFile(ctx context.Context, id model.FileID, destFolderID string) error
	DownloadContent(ctx context.Context, id model.FileID, mimeType string) ([]byte, error)
	Watch(ctx context.Context, folderID, address string) (*WatchChannel, error)
	StopChannel(ctx context.Context, channelID, resourceID string) error
}

type driveClient struct {
	svc *drive.Service
}

// NewDrive creates a Drive adapter on top of an authenticated HTTP client
// (see NewOAuthClient).
func NewDrive(ctx context.Context, httpClient *http.Client) (Drive, error) {
	svc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create drive service")
	}

	return &driveClient{svc: svc}, nil
}

// ListFiles pages through all non-trashed children of folderID.
func (d *driveClient) ListFiles(ctx context.Context, folderID string) ([]*model.FileRecord, error) {
	var files []*model.FileRecord
	pageToken := ""

	for {
		call := d.svc.Files.List().
			Q("'" + escapeQuery(folderID) + "' in parents and trashed=false").
			Fields(listFields).
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list files", goerr.V("folder_id", folderID))
		}

		for _, f := range resp.Files {
			files = append(files, toFileRecord(f))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return files, nil
}

func (d *driveClient) GetFile(ctx context.Context, id model.FileID) (*model.FileRecord, error) {
	f, err := d.svc.Files.Get(string(id)).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get file", goerr.V("file_id", id))
	}

	return toFileRecord(f), nil
}

// CreateFolder is idempotent: an existing non-trashed folder with the same
// name under the same parent is returned instead of creating a duplicate.
func (d *driveClient) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := "name='" + escapeQuery(name) + "'" +
		" and mimeType='" + model.MIMETypeFolder + "'" +
		" and '" + escapeQuery(parentID) + "' in parents and trashed=false"

	resp, err := d.svc.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", goerr.Wrap(err, "failed to query for existing folder", goerr.V("name", name))
	}
	if len(resp.Files) > 0 {
		return resp.Files[0].Id, nil
	}

	folder, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: model.MIMETypeFolder,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", goerr.Wrap(err, "failed to create folder", goerr.V("name", name), goerr.V("parent_id", parentID))
	}

	return folder.Id, nil
}

// MoveFile replaces all current parents with destFolderID in one update, so
// a file ends up in at most one category folder. The organized appProperty
// is written in the same call.
func (d *driveClient) MoveFile(ctx context.Context, id model.FileID, destFolderID string) error {
	f, err := d.svc.Files.Get(string(id)).Fields("parents").Context(ctx).Do()
	if err != nil {
		return goerr.Wrap(err, "failed to read current parents", goerr.V("file_id", id))
	}

	_, err = d.svc.Files.Update(string(id), &drive.File{
		AppProperties: map[string]string{model.OrganizedProperty: "true"},
	}).
		AddParents(destFolderID).
		RemoveParents(strings.Join(f.Parents, ",")).
		Fields("id, parents").
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to move file",
			goerr.V("file_id", id), goerr.V("dest_folder_id", destFolderID))
	}

	return nil
}

// DownloadContent fetches file bytes. Drive-native documents are exported as
// plain text; everything else is downloaded as-is.
func (d *driveClient) DownloadContent(ctx context.Context, id model.FileID, mimeType string) ([]byte, error) {
	var resp *http.Response
	var err error

	if strings.Contains(mimeType, "google-apps") {
		resp, err = d.svc.Files.Export(string(id), exportMIME).Context(ctx).Download()
	} else {
		resp, err = d.svc.Files.Get(string(id)).Context(ctx).Download()
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download content",
			goerr.V("file_id", id), goerr.V("mime_type", mimeType))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read content body", goerr.V("file_id", id))
	}

	return data, nil
}

// Watch registers a web_hook push channel for changes to folderID.
func (d *driveClient) Watch(ctx context.Context, folderID, address string) (*WatchChannel, error) {
	ch, err := d.svc.Files.Watch(folderID, &drive.Channel{
		Id:      uuid.NewString(),
		Type:    "web_hook",
		Address: address,
	}).Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to register watch channel",
			goerr.V("folder_id", folderID), goerr.V("address", address))
	}

	return &WatchChannel{
		ID:         ch.Id,
		ResourceID: ch.ResourceId,
		Expiration: time.UnixMilli(ch.Expiration),
	}, nil
}

func (d *driveClient) StopChannel(ctx context.Context, channelID, resourceID string) error {
	err := d.svc.Channels.Stop(&drive.Channel{
		Id:         channelID,
		ResourceId: resourceID,
	}).Context(ctx).Do()
	if err != nil {
		return goerr.Wrap(err, "failed to stop channel", goerr.V("channel_id", channelID))
	}

	return nil
}

func toFileRecord(f *drive.File) *model.FileRecord {
	created, _ := time.Parse(time.RFC3339, f.CreatedTime)

	return &model.FileRecord{
		ID:            model.FileID(f.Id),
		Name:          f.Name,
		MIMEType:      f.MimeType,
		Size:          f.Size,
		CreatedAt:     created,
		Parents:       f.Parents,
		AppProperties: f.AppProperties,
	}
}

// escapeQuery escapes a value for embedding in a Drive query string.
func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

package organize_test

import (
	"context"
	"sync"
	"testing"

	"github.com/kadoten/drivemaid/pkg/adapter"
	"github.com/kadoten/drivemaid/pkg/model"
	"github.com/kadoten/drivemaid/pkg/organize"
	"github.com/kadoten/drivemaid/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// Mock Drive
type mockDrive struct {
	mu          sync.Mutex
	files       []*model.FileRecord
	folders     map[string]string
	failFolders map[string]bool
	nextID      int

	downloads   []model.FileID
	moves       map[model.FileID]string
	createCalls map[string]int

	listErr error
	moveErr error
}

func (m *mockDrive) moveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

func newMockDrive(files ...*model.FileRecord) *mockDrive {
	return &mockDrive{
		files:       files,
		folders:     make(map[string]string),
		failFolders: make(map[string]bool),
		moves:       make(map[model.FileID]string),
		createCalls: make(map[string]int),
	}
}

func (m *mockDrive) ListFiles(ctx context.Context, folderID string) ([]*model.FileRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.files, nil
}

func (m *mockDrive) GetFile(ctx context.Context, id model.FileID) (*model.FileRecord, error) {
	for _, f := range m.files {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, goerr.New("file not found")
}

func (m *mockDrive) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	m.createCalls[name]++
	if m.failFolders[name] {
		return "", goerr.New("folder creation refused")
	}
	if id, ok := m.folders[name]; ok {
		return id, nil
	}

	m.nextID++
	id := "folder-" + name
	m.folders[name] = id
	return id, nil
}

func (m *mockDrive) MoveFile(ctx context.Context, id model.FileID, destFolderID string) error {
	if m.moveErr != nil {
		return m.moveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves[id] = destFolderID

	// mirror the real adapter: parents replaced, marker written
	for _, f := range m.files {
		if f.ID == id {
			f.Parents = []string{destFolderID}
			if f.AppProperties == nil {
				f.AppProperties = make(map[string]string)
			}
			f.AppProperties[model.OrganizedProperty] = "true"
		}
	}
	return nil
}

func (m *mockDrive) DownloadContent(ctx context.Context, id model.FileID, mimeType string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, id)
	return []byte("content of " + string(id)), nil
}

func (m *mockDrive) Watch(ctx context.Context, folderID, address string) (*adapter.WatchChannel, error) {
	return &adapter.WatchChannel{ID: "ch", ResourceID: "res"}, nil
}

func (m *mockDrive) StopChannel(ctx context.Context, channelID, resourceID string) error {
	return nil
}

// Mock classifier
type mockClassifier struct {
	mu       sync.Mutex
	verdicts map[string]model.Classification
	calls    []string
}

func (m *mockClassifier) Classify(ctx context.Context, file *model.FileRecord, content string) model.Classification {
	m.mu.Lock()
	m.calls = append(m.calls, file.Name)
	m.mu.Unlock()

	if v, ok := m.verdicts[file.Name]; ok {
		return v
	}
	return model.FallbackClassification("no canned verdict")
}

func (m *mockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func textFile(id, name string) *model.FileRecord {
	return &model.FileRecord{ID: model.FileID(id), Name: name, MIMEType: "text/plain", Size: 100}
}

func TestEndToEndBatch(t *testing.T) {
	ctx := context.Background()

	files := []*model.FileRecord{
		{ID: "f-pdf", Name: "payroll.pdf", MIMEType: "application/pdf", Size: 4096},
		{ID: "f-png", Name: "photo.png", MIMEType: "image/png", Size: 9000},
		{ID: "f-docx", Name: "notes.docx", MIMEType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	}
	drv := newMockDrive(files...)
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"payroll.pdf": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "payroll content"},
		// notes.docx has no verdict: the classifier degrades to fallback
	}}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))

	stats, err := org.Run(ctx)
	gt.NoError(t, err)

	gt.Equal(t, stats.Total, 3)
	gt.Equal(t, stats.Organized, 2)
	gt.Equal(t, stats.Skipped, 1)
	gt.Equal(t, stats.Errors, 0)

	gt.Equal(t, drv.moves["f-pdf"], "folder-HR")
	gt.Equal(t, drv.moves["f-docx"], "folder-Needs Review")

	// the image was never downloaded nor classified
	for _, id := range drv.downloads {
		gt.V(t, id).NotEqual(model.FileID("f-png"))
	}
	for _, name := range cls.calls {
		gt.V(t, name).NotEqual("photo.png")
	}
}

func TestConfidenceGating(t *testing.T) {
	testCases := []struct {
		name       string
		confidence float64
		wantFolder string
	}{
		{"above threshold", 0.95, "folder-Finance"},
		{"exactly threshold", 0.7, "folder-Finance"},
		{"below threshold", 0.69, "folder-Needs Review"},
		{"zero", 0.0, "folder-Needs Review"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			drv := newMockDrive(textFile("f1", "doc.txt"))
			cls := &mockClassifier{verdicts: map[string]model.Classification{
				"doc.txt": {Category: model.CategoryFinance, Confidence: tc.confidence, Reasoning: "x"},
			}}

			org := organize.New(drv, cls, "root", organize.WithDelay(0))
			gt.NoError(t, org.SetupFolders(ctx))

			stats, err := org.Run(ctx)
			gt.NoError(t, err)
			gt.Equal(t, stats.Organized, 1)
			gt.Equal(t, drv.moves["f1"], tc.wantFolder)
		})
	}
}

func TestSkipPredicates(t *testing.T) {
	ctx := context.Background()

	drv := newMockDrive(
		&model.FileRecord{ID: "d1", Name: "Sub", MIMEType: model.MIMETypeFolder},
		&model.FileRecord{ID: "v1", Name: "clip.mp4", MIMEType: "video/mp4"},
		&model.FileRecord{ID: "a1", Name: "song.mp3", MIMEType: "audio/mpeg"},
		&model.FileRecord{ID: "m1", Name: "done.txt", MIMEType: "text/plain",
			AppProperties: map[string]string{model.OrganizedProperty: "true"}},
	)
	cls := &mockClassifier{}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))

	stats, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Total, 4)
	gt.Equal(t, stats.Skipped, 4)
	gt.Equal(t, stats.Organized, 0)
	gt.Equal(t, len(drv.downloads), 0)
	gt.Equal(t, len(cls.calls), 0)
}

func TestFileInCategoryFolderIsSkipped(t *testing.T) {
	ctx := context.Background()

	drv := newMockDrive(textFile("f1", "doc.txt"))
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"doc.txt": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))

	// place the file under the HR folder before the pass
	drv.files[0].Parents = []string{"folder-HR"}
	drv.files[0].AppProperties = nil

	stats, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Skipped, 1)
	gt.Equal(t, len(cls.calls), 0)
}

func TestSecondPassOrganizesNothing(t *testing.T) {
	ctx := context.Background()

	drv := newMockDrive(textFile("f1", "a.txt"), textFile("f2", "b.txt"))
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"a.txt": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "x"},
		"b.txt": {Category: model.CategoryFinance, Confidence: 0.8, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))

	first, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, first.Organized, 2)

	second, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, second.Organized, 0)
	gt.Equal(t, second.Skipped, 2)
	gt.Equal(t, len(cls.calls), 2)
}

func TestMarkerSurvivesRestart(t *testing.T) {
	ctx := context.Background()

	drv := newMockDrive(textFile("f1", "a.txt"))
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"a.txt": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))
	_, err := org.Run(ctx)
	gt.NoError(t, err)

	// a fresh organizer over the same drive must trust the marker
	fresh := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, fresh.SetupFolders(ctx))

	stats, err := fresh.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Organized, 0)
	gt.Equal(t, stats.Skipped, 1)
}

func TestRepositorySeedsOrganizedSet(t *testing.T) {
	ctx := context.Background()

	repo := repository.NewMemory()
	gt.NoError(t, repo.PutRecord(ctx, &model.OrganizedRecord{
		FileID: "f1", Category: model.CategoryHR,
	}))

	drv := newMockDrive(textFile("f1", "a.txt"), textFile("f2", "b.txt"))
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"b.txt": {Category: model.CategoryFinance, Confidence: 0.8, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root",
		organize.WithDelay(0), organize.WithRepository(repo))
	gt.NoError(t, org.SetupFolders(ctx))

	stats, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Skipped, 1)
	gt.Equal(t, stats.Organized, 1)

	// the new move was recorded durably
	record, err := repo.GetRecord(ctx, "f2")
	gt.NoError(t, err)
	gt.Equal(t, record.Category, model.CategoryFinance)
	gt.Equal(t, record.Confidence, 0.8)
}

func TestRoutingErrorWhenFolderMissing(t *testing.T) {
	ctx := context.Background()

	drv := newMockDrive(textFile("f1", "doc.txt"))
	drv.failFolders["HR"] = true
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"doc.txt": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx)) // other categories still set up

	stats, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Errors, 1)
	gt.Equal(t, stats.Organized, 0)
	gt.Equal(t, len(drv.moves), 0)
}

func TestMoveFailureCountsAsError(t *testing.T) {
	ctx := context.Background()

	drv := newMockDrive(textFile("f1", "doc.txt"))
	drv.moveErr = goerr.New("insufficient permissions")
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"doc.txt": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))

	stats, err := org.Run(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Errors, 1)
	gt.Equal(t, stats.Organized, 0)
}

func TestDryRun(t *testing.T) {
	ctx := context.Background()

	repo := repository.NewMemory()
	drv := newMockDrive(textFile("f1", "doc.txt"))
	cls := &mockClassifier{verdicts: map[string]model.Classification{
		"doc.txt": {Category: model.CategoryHR, Confidence: 0.9, Reasoning: "x"},
	}}

	org := organize.New(drv, cls, "root",
		organize.WithDelay(0), organize.WithDryRun(true), organize.WithRepository(repo))
	gt.NoError(t, org.SetupFolders(ctx))

	stats, err := org.Run(ctx)
	gt.NoError(t, err)

	// counted as organized, but nothing moved and nothing recorded
	gt.Equal(t, stats.Organized, 1)
	gt.Equal(t, len(drv.moves), 0)

	records, err := repo.ListRecords(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(records), 0)
}

func TestSetupFoldersIdempotent(t *testing.T) {
	ctx := context.Background()
	drv := newMockDrive()
	org := organize.New(drv, &mockClassifier{}, "root", organize.WithDelay(0))

	gt.NoError(t, org.SetupFolders(ctx))
	gt.NoError(t, org.SetupFolders(ctx))

	// 7 categories + Needs Review, looked up twice, one folder each
	gt.Equal(t, drv.createCalls["HR"], 2)
	gt.Equal(t, len(drv.folders), len(model.Categories())+1)
}

func TestSetupFoldersAllFail(t *testing.T) {
	ctx := context.Background()
	drv := newMockDrive()
	for _, c := range model.Categories() {
		drv.failFolders[string(c)] = true
	}
	drv.failFolders[string(model.CategoryNeedsReview)] = true

	org := organize.New(drv, &mockClassifier{}, "root")
	gt.Error(t, org.SetupFolders(ctx))
}

func TestListFailureAborts(t *testing.T) {
	ctx := context.Background()
	drv := newMockDrive()
	drv.listErr = goerr.New("rate limited")

	org := organize.New(drv, &mockClassifier{}, "root", organize.WithDelay(0))
	gt.NoError(t, org.SetupFolders(ctx))

	_, err := org.Run(ctx)
	gt.Error(t, err)
}

package organize

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kadoten/drivemaid/pkg/adapter"
	"github.com/kadoten/drivemaid/pkg/extract"
	"github.com/kadoten/drivemaid/pkg/model"
	"github.com/kadoten/drivemaid/pkg/repository"
	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

const (
	// DefaultThreshold is the confidence cutoff above which a verdict is
	// trusted; anything below routes to Needs Review.
	DefaultThreshold = 0.7

	// DefaultDelay paces Drive and model calls between files.
	DefaultDelay = 500 * time.Millisecond
)

// DefaultSkipPrefixes are MIME type families that are never classified.
var DefaultSkipPrefixes = []string{"image/", "video/", "audio/"}

// Classifier produces a verdict for one file. It must not fail: degraded
// verdicts carry low confidence instead.
type Classifier interface {
	Classify(ctx context.Context, file *model.FileRecord, content string) model.Classification
}

// Organizer coordinates the list, filter, extract, classify, route and move
// pipeline over one Drive folder. It is single-writer; concurrent passes are
// serialized by Reconciler.
type Organizer struct {
	drive      adapter.Drive
	classifier Classifier
	repo       repository.Repository

	root         string
	categories   []model.Category
	threshold    float64
	delay        time.Duration
	skipPrefixes []string
	dryRun       bool
	now          func() time.Time

	folders   map[model.Category]string
	organized map[model.FileID]struct{}
}

type Option func(*Organizer)

func WithThreshold(threshold float64) Option {
	return func(o *Organizer) {
		o.threshold = threshold
	}
}

func WithDelay(delay time.Duration) Option {
	return func(o *Organizer) {
		o.delay = delay
	}
}

func WithDryRun(dryRun bool) Option {
	return func(o *Organizer) {
		o.dryRun = dryRun
	}
}

func WithSkipPrefixes(prefixes []string) Option {
	return func(o *Organizer) {
		o.skipPrefixes = prefixes
	}
}

func WithCategories(categories []model.Category) Option {
	return func(o *Organizer) {
		o.categories = categories
	}
}

// WithRepository attaches a durable record store. Without one, idempotence
// rests on the in-memory set and the appProperty marker alone.
func WithRepository(repo repository.Repository) Option {
	return func(o *Organizer) {
		o.repo = repo
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Organizer) {
		o.now = now
	}
}

func New(drive adapter.Drive, classifier Classifier, root string, opts ...Option) *Organizer {
	o := &Organizer{
		drive:        drive,
		classifier:   classifier,
		root:         root,
		categories:   model.Categories(),
		threshold:    DefaultThreshold,
		delay:        DefaultDelay,
		skipPrefixes: DefaultSkipPrefixes,
		now:          time.Now,
		folders:      make(map[model.Category]string),
		organized:    make(map[model.FileID]struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// DryRun reports whether moves are suppressed.
func (o *Organizer) DryRun() bool {
	return o.dryRun
}

// SetupFolders resolves or creates one destination folder per category plus
// Needs Review. A failure for one category is logged and leaves that
// category unroutable; the others proceed.
func (o *Organizer) SetupFolders(ctx context.Context) error {
	logger := logging.From(ctx)

	wanted := append(append([]model.Category{}, o.categories...), model.CategoryNeedsReview)
	for _, category := range wanted {
		id, err := o.drive.CreateFolder(ctx, string(category), o.root)
		if err != nil {
			logger.Error("failed to set up category folder",
				"category", category, "error", err)
			continue
		}
		o.folders[category] = id
	}

	if len(o.folders) == 0 {
		return goerr.New("no category folders could be created", goerr.V("root", o.root))
	}

	return nil
}

// Run executes one batch pass over the root folder. Per-file problems are
// converted into counters; only a failed listing aborts the pass.
func (o *Organizer) Run(ctx context.Context) (*model.Stats, error) {
	logger := logging.From(ctx)
	stats := &model.Stats{}

	o.seedOrganized(ctx)

	files, err := o.drive.ListFiles(ctx, o.root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list root folder", goerr.V("root", o.root))
	}

	for i, file := range files {
		stats.Total++

		if reason := o.skipReason(file); reason != "" {
			logger.Info("skipping file", "name", file.Name, "reason", reason)
			stats.Skipped++
			continue
		}

		o.processFile(ctx, file, stats)

		if o.delay > 0 && i < len(files)-1 {
			select {
			case <-time.After(o.delay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}
	}

	logger.Info("batch pass finished",
		"total", stats.Total,
		"organized", stats.Organized,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"dry_run", o.dryRun,
	)

	return stats, nil
}

// seedOrganized loads the durable records once so restarts do not
// re-classify files that were already moved.
func (o *Organizer) seedOrganized(ctx context.Context) {
	if o.repo == nil || len(o.organized) > 0 {
		return
	}

	records, err := o.repo.ListRecords(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to seed organized set from repository", "error", err)
		return
	}

	for _, record := range records {
		o.organized[record.FileID] = struct{}{}
	}
}

// skipReason returns a non-empty reason when the file must not be
// classified. Detecting a file already inside a category folder marks it
// organized as a side effect.
func (o *Organizer) skipReason(file *model.FileRecord) string {
	if file.IsFolder() {
		return "folder"
	}

	for _, prefix := range o.skipPrefixes {
		if strings.HasPrefix(file.MIMEType, prefix) {
			return "media type " + file.MIMEType
		}
	}

	if _, ok := o.organized[file.ID]; ok {
		return "already organized"
	}

	if file.IsOrganized() {
		o.organized[file.ID] = struct{}{}
		return "organized marker present"
	}

	for _, parent := range file.Parents {
		for _, folderID := range o.folders {
			if parent == folderID {
				o.organized[file.ID] = struct{}{}
				return "already in category folder"
			}
		}
	}

	return ""
}

// processFile runs classify and route for one file, converting every
// failure into a stats counter.
func (o *Organizer) processFile(ctx context.Context, file *model.FileRecord, stats *model.Stats) {
	logger := logging.From(ctx)

	content, err := o.drive.DownloadContent(ctx, file.ID, file.MIMEType)
	if err != nil {
		logger.Warn("download failed, classifying by filename",
			"name", file.Name, "error", err)
		content = nil
	}

	text := extract.Extract(content, file.MIMEType, file.Name)
	verdict := o.classifier.Classify(ctx, file, text)

	destination := o.route(verdict)
	folderID, ok := o.folders[destination]
	if !ok {
		logger.Error("no folder for destination, leaving file in place",
			"name", file.Name, "destination", destination)
		stats.Errors++
		return
	}

	if o.dryRun {
		logger.Info("dry run, not moving",
			"name", file.Name,
			"destination", destination,
			"confidence", verdict.Confidence,
		)
		o.organized[file.ID] = struct{}{}
		stats.Organized++
		return
	}

	if err := o.drive.MoveFile(ctx, file.ID, folderID); err != nil {
		logger.Error("failed to move file", "name", file.Name, "error", err)
		stats.Errors++
		return
	}

	o.organized[file.ID] = struct{}{}
	o.record(ctx, file, destination, verdict)
	stats.Organized++

	logger.Info("moved file",
		"name", file.Name,
		"destination", destination,
		"confidence", verdict.Confidence,
		"reasoning", verdict.Reasoning,
	)
}

// route applies the confidence gate.
func (o *Organizer) route(verdict model.Classification) model.Category {
	if verdict.Confidence >= o.threshold {
		return verdict.Category
	}
	return model.CategoryNeedsReview
}

func (o *Organizer) record(ctx context.Context, file *model.FileRecord, destination model.Category, verdict model.Classification) {
	if o.repo == nil {
		return
	}

	err := o.repo.PutRecord(ctx, &model.OrganizedRecord{
		FileID:     file.ID,
		Name:       file.Name,
		Category:   destination,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
		MovedAt:    o.now(),
	})
	if err != nil {
		logging.From(ctx).Warn("failed to persist organized record",
			"name", file.Name, "error", err)
	}
}

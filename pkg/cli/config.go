package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/kadoten/drivemaid/pkg/adapter"
	"github.com/kadoten/drivemaid/pkg/classify"
	"github.com/kadoten/drivemaid/pkg/organize"
	"github.com/kadoten/drivemaid/pkg/repository"
	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	// Drive
	credentialsPath string
	tokenPath       string
	root            string

	// Gemini
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Repository (optional)
	firestoreProject  string
	firestoreDatabase string

	// Routing
	rulesPath string
	threshold float64
	delay     time.Duration

	// Logging
	logLevel string
	logFile  string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "credentials",
			Aliases:     []string{"c"},
			Usage:       "Path to OAuth client secret JSON",
			Sources:     cli.EnvVars("DRIVEMAID_CREDENTIALS"),
			Destination: &cfg.credentialsPath,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Path to the persisted OAuth token",
			Value:       "token.json",
			Sources:     cli.EnvVars("DRIVEMAID_TOKEN"),
			Destination: &cfg.tokenPath,
		},
		&cli.StringFlag{
			Name:        "root",
			Aliases:     []string{"r"},
			Usage:       "Drive folder ID to organize",
			Value:       "root",
			Sources:     cli.EnvVars("DRIVEMAID_ROOT"),
			Destination: &cfg.root,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("DRIVEMAID_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Also append logs to this file",
			Sources:     cli.EnvVars("DRIVEMAID_LOG_FILE"),
			Destination: &cfg.logFile,
		},
	}
}

// organizerFlags returns flags configuring classification and routing
func organizerFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project for the organized-file records (omit to keep records in memory)",
			Sources:     cli.EnvVars("FIRESTORE_PROJECT_ID"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "rules",
			Usage:       "Path to a YAML rules file overriding categories and routing",
			Sources:     cli.EnvVars("DRIVEMAID_RULES"),
			Destination: &cfg.rulesPath,
		},
		&cli.FloatFlag{
			Name:        "threshold",
			Usage:       "Confidence threshold for direct routing",
			Value:       organize.DefaultThreshold,
			Sources:     cli.EnvVars("DRIVEMAID_THRESHOLD"),
			Destination: &cfg.threshold,
		},
		&cli.DurationFlag{
			Name:        "delay",
			Usage:       "Pause between files to respect API rate limits",
			Value:       organize.DefaultDelay,
			Sources:     cli.EnvVars("DRIVEMAID_DELAY"),
			Destination: &cfg.delay,
		},
	}
}

// newLogger installs the configured logger as default and into the context.
func (cfg *config) newLogger(ctx context.Context) (context.Context, error) {
	logger := logging.New(cfg.logLevel, os.Stdout)
	if cfg.logFile != "" {
		var err error
		logger, err = logging.NewWithFile(cfg.logLevel, cfg.logFile, os.Stdout)
		if err != nil {
			return ctx, err
		}
	}

	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// newDrive creates the Drive adapter behind an authenticated client
func (cfg *config) newDrive(ctx context.Context) (adapter.Drive, error) {
	if cfg.credentialsPath == "" {
		return nil, goerr.New("credentials is required")
	}

	httpClient, err := adapter.NewOAuthClient(ctx, cfg.credentialsPath, cfg.tokenPath, os.Stdin, os.Stdout)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to authenticate with Drive")
	}

	return adapter.NewDrive(ctx, httpClient)
}

// newGemini creates the Gemini adapter
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.geminiModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
	}

	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// newRepository creates the organized-record store. Without a Firestore
// project the records live in memory only; the appProperty marker still
// provides restart safety.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.firestoreProject == "" {
		logging.From(ctx).Info("no firestore project configured, keeping records in memory")
		return repository.NewMemory(), nil
	}
	if cfg.firestoreDatabase == "" {
		return nil, goerr.New("firestore-database is required")
	}

	return repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
}

// newOrganizer assembles the pipeline on top of an existing Drive adapter.
func (cfg *config) newOrganizer(ctx context.Context, drv adapter.Drive, dryRun bool) (*organize.Organizer, error) {
	rules, err := loadRules(cfg.rulesPath)
	if err != nil {
		return nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	threshold := cfg.threshold
	if rules.Threshold > 0 {
		threshold = rules.Threshold
	}
	delay := cfg.delay
	if rules.Delay > 0 {
		delay = rules.Delay
	}

	categories := rules.categories()
	classifier := classify.New(gemini, classify.WithCategories(categories))

	opts := []organize.Option{
		organize.WithCategories(categories),
		organize.WithThreshold(threshold),
		organize.WithDelay(delay),
		organize.WithDryRun(dryRun),
		organize.WithRepository(repo),
	}
	if len(rules.SkipPrefixes) > 0 {
		opts = append(opts, organize.WithSkipPrefixes(rules.SkipPrefixes))
	}

	return organize.New(drv, classifier, cfg.root, opts...), nil
}

package cli

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/kadoten/drivemaid/pkg/model"
)

// Rules is the optional YAML overlay for routing behavior. Zero values keep
// the built-in defaults.
type Rules struct {
	Categories   []string `yaml:"categories"`
	SkipPrefixes []string `yaml:"skip_prefixes"`
	Threshold    float64  `yaml:"threshold"`
	RawDelay     string   `yaml:"delay"`

	Delay time.Duration `yaml:"-"`
}

func loadRules(path string) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read rules file", goerr.V("path", path))
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, goerr.Wrap(err, "failed to parse rules file", goerr.V("path", path))
	}

	if rules.Threshold < 0 || rules.Threshold > 1 {
		return nil, goerr.New("threshold must be within [0, 1]", goerr.V("threshold", rules.Threshold))
	}

	if rules.RawDelay != "" {
		delay, err := time.ParseDuration(rules.RawDelay)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid delay in rules file", goerr.V("delay", rules.RawDelay))
		}
		rules.Delay = delay
	}

	return &rules, nil
}

// categories returns the configured category set, or the fixed default.
func (r *Rules) categories() []model.Category {
	if len(r.Categories) == 0 {
		return model.Categories()
	}

	categories := make([]model.Category, 0, len(r.Categories))
	for _, name := range r.Categories {
		categories = append(categories, model.Category(name))
	}
	return categories
}

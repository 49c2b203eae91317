package model

import (
	"github.com/m-mizutani/goerr/v2"
)

var ErrUnknownCategory = goerr.New("unknown category")

type Category string

const (
	CategoryHR            Category = "HR"
	CategoryFinance       Category = "Finance"
	CategoryAcademics     Category = "Academics"
	CategoryProjects      Category = "Projects"
	CategoryMarketing     Category = "Marketing"
	CategoryPersonal      Category = "Personal"
	CategoryMiscellaneous Category = "Miscellaneous"

	// CategoryNeedsReview is the reserved overflow bucket for low-confidence
	// verdicts. It is never offered to the classifier.
	CategoryNeedsReview Category = "Needs Review"

	// CategoryFallback is where failed classifications land, at low
	// confidence, so the router sends them to Needs Review.
	CategoryFallback = CategoryMiscellaneous
)

// Categories returns the fixed classifiable set, without Needs Review.
func Categories() []Category {
	return []Category{
		CategoryHR,
		CategoryFinance,
		CategoryAcademics,
		CategoryProjects,
		CategoryMarketing,
		CategoryPersonal,
		CategoryMiscellaneous,
	}
}

// Validate checks that the category is one of the classifiable set.
func (c Category) Validate() error {
	for _, known := range Categories() {
		if c == known {
			return nil
		}
	}
	return goerr.Wrap(ErrUnknownCategory, "category validation failed", goerr.V("category", c))
}

// Classification is one verdict for one file. Produced once per attempt,
// never persisted except through the moved-file side effect and the
// organized record.
type Classification struct {
	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
	Subcategory string   `json:"subcategory,omitempty"`
}

// Clamp forces confidence into [0, 1]. The model is asked for that range but
// the router must not trust it.
func (c *Classification) Clamp() {
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
}

// FallbackClassification is the fail-closed verdict used when the model call
// or its output cannot be trusted.
func FallbackClassification(reason string) Classification {
	return Classification{
		Category:   CategoryFallback,
		Confidence: 0.5,
		Reasoning:  "classification failed: " + reason,
	}
}

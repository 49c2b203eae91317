package classify

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"google.golang.org/genai"

	"github.com/kadoten/drivemaid/pkg/adapter"
	"github.com/kadoten/drivemaid/pkg/model"
	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

//go:embed prompt/classify.md
var classifyPromptRaw string

var classifyPromptTmpl = template.Must(template.New("classify").Parse(classifyPromptRaw))

// Classifier asks Gemini for a structured verdict on one file.
type Classifier struct {
	gemini     adapter.Gemini
	categories []model.Category
}

type Option func(*Classifier)

// WithCategories overrides the fixed category set offered to the model.
func WithCategories(categories []model.Category) Option {
	return func(c *Classifier) {
		c.categories = categories
	}
}

func New(gemini adapter.Gemini, opts ...Option) *Classifier {
	c := &Classifier{
		gemini:     gemini,
		categories: model.Categories(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify builds a deterministic prompt and parses the model's structured
// verdict. It never fails outward: any transport or parse problem degrades
// to the fallback classification so the router sends the file to review.
func (c *Classifier) Classify(ctx context.Context, file *model.FileRecord, content string) model.Classification {
	verdict, err := c.classify(ctx, file, content)
	if err != nil {
		logging.From(ctx).Warn("classification failed, falling back",
			"file", file.Name, "error", err)
		return model.FallbackClassification(err.Error())
	}

	verdict.Clamp()
	return verdict
}

func (c *Classifier) classify(ctx context.Context, file *model.FileRecord, content string) (model.Classification, error) {
	var buf bytes.Buffer
	if err := classifyPromptTmpl.Execute(&buf, map[string]any{
		"Categories": c.categories,
		"Name":       file.Name,
		"MIMEType":   file.MIMEType,
		"Size":       file.Size,
		"Content":    content,
	}); err != nil {
		return model.Classification{}, err
	}

	names := make([]string, 0, len(c.categories))
	for _, category := range c.categories {
		names = append(names, string(category))
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        names,
					Description: "Chosen category",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence between 0.0 and 1.0",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Short justification",
				},
				"subcategory": {
					Type:        genai.TypeString,
					Description: "Optional finer-grained label",
				},
			},
			Required: []string{"category", "confidence", "reasoning"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := c.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return model.Classification{}, err
	}

	text, err := responseText(resp)
	if err != nil {
		return model.Classification{}, err
	}

	return parseVerdict(text, c.categories)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}

	return "", errEmptyResponse
}

// parseVerdict decodes the model output strictly. Code fences are stripped
// first; some models wrap JSON in them even under a response schema.
func parseVerdict(text string, categories []model.Category) (model.Classification, error) {
	raw := stripFences(text)

	var verdict model.Classification
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return model.Classification{}, err
	}

	known := false
	for _, category := range categories {
		if verdict.Category == category {
			known = true
			break
		}
	}
	if !known {
		return model.Classification{}, model.ErrUnknownCategory
	}
	if verdict.Reasoning == "" {
		return model.Classification{}, errMissingReasoning
	}

	return verdict, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

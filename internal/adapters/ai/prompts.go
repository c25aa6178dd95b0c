package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/templates"
)

var (
	globalTemplates templates.Renderer
	templatesOnce   sync.Once
	templatesErr    error
)

// SetTemplateRenderer overrides the prompt renderer. Called at startup
// or from tests; the embedded templates are used when nothing is set.
func SetTemplateRenderer(renderer templates.Renderer) {
	globalTemplates = renderer
}

func promptRenderer() (templates.Renderer, error) {
	if globalTemplates != nil {
		return globalTemplates, nil
	}
	templatesOnce.Do(func() {
		m, err := templates.NewManager()
		if err != nil {
			templatesErr = err
			return
		}
		globalTemplates = m
	})
	if templatesErr != nil {
		return nil, templatesErr
	}
	return globalTemplates, nil
}

// buildClassifyPrompt renders the headline classification prompt pair
func buildClassifyPrompt(item models.NewsItem) (systemPrompt, userPrompt string, err error) {
	r, err := promptRenderer()
	if err != nil {
		return "", "", err
	}

	ageHours := 0.0
	if !item.PublishedAt.IsZero() {
		ageHours = time.Since(item.PublishedAt).Hours()
	}

	output, err := r.ExecuteTemplate("classify_news.tmpl", map[string]any{
		"Headline": item.Headline,
		"Summary":  truncate(item.Summary, 500),
		"Source":   item.Source,
		"AgeHours": ageHours,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render classify prompt: %w", err)
	}

	systemPrompt, userPrompt = SplitPrompt(output)
	return systemPrompt, userPrompt, nil
}

// buildComparePrompt renders the cross-venue comparison prompt pair
func buildComparePrompt(a, b models.MarketQuote) (systemPrompt, userPrompt string, err error) {
	r, err := promptRenderer()
	if err != nil {
		return "", "", err
	}

	output, err := r.ExecuteTemplate("compare_markets.tmpl", map[string]any{
		"A": a,
		"B": b,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render compare prompt: %w", err)
	}

	systemPrompt, userPrompt = SplitPrompt(output)
	return systemPrompt, userPrompt, nil
}

// SplitPrompt splits template output into system and user prompts
func SplitPrompt(output string) (systemPrompt string, userPrompt string) {
	separator := "=== USER PROMPT ==="
	idx := strings.Index(output, separator)

	if idx == -1 {
		return "", output
	}

	systemPrompt = strings.TrimSpace(output[:idx])
	userPrompt = strings.TrimSpace(output[idx+len(separator):])
	return systemPrompt, userPrompt
}

// === PARSING FUNCTIONS ===

// parseAnalysis parses a classification response into a NewsAnalysis.
// Out-of-enum category and direction values fold to general/neutral;
// only structurally broken JSON is an error.
func parseAnalysis(content string) (models.NewsAnalysis, error) {
	jsonStr := extractJSON(content)

	var response struct {
		Category   string          `json:"category"`
		Magnitude  json.RawMessage `json:"magnitude"`
		Direction  string          `json:"direction"`
		Confidence float64         `json:"confidence"`
		Reasoning  string          `json:"reasoning"`
		Keywords   []string        `json:"keywords"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &response); err != nil {
		return models.NewsAnalysis{}, fmt.Errorf("failed to unmarshal classification: %w (content: %s)", err, truncate(jsonStr, 200))
	}

	return models.NewsAnalysis{
		Category:   models.ParseCategory(response.Category),
		Magnitude:  models.ParseMagnitude(rawScalar(response.Magnitude)),
		Direction:  models.ParseDirection(response.Direction),
		Confidence: models.ClampUnit(response.Confidence),
		Reasoning:  response.Reasoning,
		Keywords:   response.Keywords,
	}, nil
}

// parseAssessment parses a comparison response into a PairAssessment.
// Unknown misalignment types and severities fold to the cautious end of
// the scale rather than being dropped.
func parseAssessment(content string) (models.PairAssessment, error) {
	jsonStr := extractJSON(content)

	var response struct {
		IsMatch       bool    `json:"is_match"`
		Confidence    float64 `json:"confidence"`
		Misalignments []struct {
			Type        string `json:"type"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
		} `json:"misalignments"`
		Reasoning string `json:"reasoning"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &response); err != nil {
		return models.PairAssessment{}, fmt.Errorf("failed to unmarshal assessment: %w (content: %s)", err, truncate(jsonStr, 200))
	}

	assessment := models.PairAssessment{
		IsMatch:         response.IsMatch,
		MatchConfidence: models.ClampUnit(response.Confidence),
		Reasoning:       response.Reasoning,
	}
	for _, m := range response.Misalignments {
		assessment.Misalignments = append(assessment.Misalignments, models.Misalignment{
			Type:        parseMisalignmentType(m.Type),
			Severity:    parseSeverity(m.Severity),
			Description: m.Description,
		})
	}
	return assessment, nil
}

func parseMisalignmentType(s string) models.MisalignmentType {
	switch t := models.MisalignmentType(strings.ToUpper(strings.TrimSpace(s))); t {
	case models.MisalignResolutionDate, models.MisalignResolutionSource,
		models.MisalignScope, models.MisalignThreshold,
		models.MisalignDefinition, models.MisalignEdgeCase:
		return t
	}
	return models.MisalignEdgeCase
}

func parseSeverity(s string) models.Severity {
	switch sev := models.Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
		return sev
	}
	// Unknown severity from the model is treated as HIGH, not dropped
	return models.SeverityHigh
}

// === UTILITY FUNCTIONS ===

// extractJSON extracts JSON from text that might contain markdown or extra content
func extractJSON(text string) string {
	// Remove markdown code blocks
	re := regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	matches := re.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// Try to find JSON object or array
	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")

	var start int
	var endChar string

	// Determine which comes first: object or array
	if startObj >= 0 && (startArr < 0 || startObj < startArr) {
		start = startObj
		endChar = "}"
	} else if startArr >= 0 {
		start = startArr
		endChar = "]"
	} else {
		return strings.TrimSpace(text)
	}

	end := strings.LastIndex(text, endChar)
	if end > start {
		return strings.TrimSpace(text[start : end+1])
	}

	return strings.TrimSpace(text)
}

// rawScalar renders a raw JSON value as bare text so magnitude accepts
// both 0.85 and "HIGH"
func rawScalar(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

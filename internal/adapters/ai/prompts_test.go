package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/templates"
)

// TestPromptTemplatesLoaded verifies that all required templates load successfully
func TestPromptTemplatesLoaded(t *testing.T) {
	m, err := templates.NewManager()
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	requiredTemplates := []string{
		"classify_news.tmpl",
		"compare_markets.tmpl",
	}

	for _, tmpl := range requiredTemplates {
		if !m.TemplateExists(tmpl) {
			t.Errorf("Required template not found: %s", tmpl)
		}
	}
}

// TestBuildClassifyPrompt tests headline classification prompt rendering
func TestBuildClassifyPrompt(t *testing.T) {
	item := models.NewsItem{
		Headline:    "Fed raises rates by 50 basis points",
		Summary:     "The central bank moved faster than markets expected.",
		Source:      "WSJ Markets",
		PublishedAt: time.Now().Add(-2 * time.Hour),
	}

	systemPrompt, userPrompt, err := buildClassifyPrompt(item)
	if err != nil {
		t.Fatalf("Failed to build classify prompt: %v", err)
	}

	// Verify system prompt contains classification instructions
	for _, want := range []string{"category", "magnitude", "direction", "confidence", "federal_reserve"} {
		if !strings.Contains(systemPrompt, want) {
			t.Errorf("System prompt missing %q", want)
		}
	}

	// Verify user prompt contains headline data
	if !strings.Contains(userPrompt, "Fed raises rates") {
		t.Error("User prompt missing headline")
	}
	if !strings.Contains(userPrompt, "The central bank moved faster") {
		t.Error("User prompt missing summary")
	}
	if !strings.Contains(userPrompt, "WSJ Markets") {
		t.Error("User prompt missing source")
	}
	if !strings.Contains(userPrompt, "2.0 hours ago") {
		t.Error("User prompt missing age")
	}
}

// TestBuildComparePrompt tests cross-venue comparison prompt rendering
func TestBuildComparePrompt(t *testing.T) {
	a := models.MarketQuote{
		Venue:     models.VenueKalshi,
		Question:  "Will the Fed cut rates at the March meeting?",
		EndDate:   time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		YesPrice:  0.55,
		Liquidity: 15000,
	}
	b := models.MarketQuote{
		Venue:     models.VenuePolymarket,
		Question:  "Fed rate cut by March?",
		YesPrice:  0.52,
		Liquidity: 32000,
	}

	systemPrompt, userPrompt, err := buildComparePrompt(a, b)
	if err != nil {
		t.Fatalf("Failed to build compare prompt: %v", err)
	}

	for _, want := range []string{"RESOLUTION_DATE", "THRESHOLD", "CRITICAL"} {
		if !strings.Contains(systemPrompt, want) {
			t.Errorf("System prompt missing %q", want)
		}
	}

	for _, want := range []string{
		"Will the Fed cut rates at the March meeting?",
		"Fed rate cut by March?",
		"kalshi",
		"polymarket",
		"2026-03-20",
	} {
		if !strings.Contains(userPrompt, want) {
			t.Errorf("User prompt missing %q", want)
		}
	}
}

// TestSplitPrompt tests prompt separator splitting
func TestSplitPrompt(t *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedSystem string
		expectedUser   string
	}{
		{
			name:           "With separator",
			input:          "System instructions\n\n=== USER PROMPT ===\n\nUser task",
			expectedSystem: "System instructions",
			expectedUser:   "User task",
		},
		{
			name:           "Without separator",
			input:          "All user prompt",
			expectedSystem: "",
			expectedUser:   "All user prompt",
		},
		{
			name:           "Empty input",
			input:          "",
			expectedSystem: "",
			expectedUser:   "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sys, user := SplitPrompt(tc.input)

			if sys != tc.expectedSystem {
				t.Errorf("System prompt mismatch.\nExpected: %q\nGot: %q", tc.expectedSystem, sys)
			}
			if user != tc.expectedUser {
				t.Errorf("User prompt mismatch.\nExpected: %q\nGot: %q", tc.expectedUser, user)
			}
		})
	}
}

// TestExtractJSON tests JSON extraction from various formats
func TestExtractJSON(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain JSON",
			input:    `{"category": "crypto", "confidence": 0.8}`,
			expected: `{"category": "crypto", "confidence": 0.8}`,
		},
		{
			name:     "JSON in markdown code block",
			input:    "```json\n{\"category\": \"crypto\"}\n```",
			expected: `{"category": "crypto"}`,
		},
		{
			name:     "JSON with extra text",
			input:    "Here is my classification: {\"category\": \"crypto\"} - done",
			expected: `{"category": "crypto"}`,
		},
		{
			name:     "Array JSON",
			input:    `[{"type": "SCOPE"}, {"type": "THRESHOLD"}]`,
			expected: `[{"type": "SCOPE"}, {"type": "THRESHOLD"}]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := extractJSON(tc.input)
			if result != tc.expected {
				t.Errorf("JSON extraction failed.\nExpected: %s\nGot: %s", tc.expected, result)
			}
		})
	}
}

// TestParseAnalysis tests classification response parsing
func TestParseAnalysis(t *testing.T) {
	testCases := []struct {
		name               string
		input              string
		expectedCategory   models.NewsCategory
		expectedMagnitude  float64
		expectedDirection  models.Direction
		expectedConfidence float64
		expectedError      bool
	}{
		{
			name:               "Valid response",
			input:              `{"category": "federal_reserve", "magnitude": 0.8, "direction": "negative", "confidence": 0.9, "reasoning": "rate shock"}`,
			expectedCategory:   models.CategoryFederalReserve,
			expectedMagnitude:  0.8,
			expectedDirection:  models.DirectionNegative,
			expectedConfidence: 0.9,
		},
		{
			name:               "Textual magnitude scale",
			input:              `{"category": "crypto", "magnitude": "HIGH", "direction": "positive", "confidence": 0.7}`,
			expectedCategory:   models.CategoryCrypto,
			expectedMagnitude:  0.9,
			expectedDirection:  models.DirectionPositive,
			expectedConfidence: 0.7,
		},
		{
			name:               "Unknown category folds to general",
			input:              `{"category": "sports", "magnitude": 0.5, "direction": "sideways", "confidence": 0.6}`,
			expectedCategory:   models.CategoryGeneral,
			expectedMagnitude:  0.5,
			expectedDirection:  models.DirectionNeutral,
			expectedConfidence: 0.6,
		},
		{
			name:               "Confidence clamped to unit range",
			input:              `{"category": "economy", "magnitude": 1.7, "direction": "positive", "confidence": 1.5}`,
			expectedCategory:   models.CategoryEconomy,
			expectedMagnitude:  1.0,
			expectedDirection:  models.DirectionPositive,
			expectedConfidence: 1.0,
		},
		{
			name:               "Markdown wrapped response",
			input:              "```json\n{\"category\": \"politics\", \"magnitude\": 0.6, \"direction\": \"negative\", \"confidence\": 0.8}\n```",
			expectedCategory:   models.CategoryPolitics,
			expectedMagnitude:  0.6,
			expectedDirection:  models.DirectionNegative,
			expectedConfidence: 0.8,
		},
		{
			name:          "Invalid JSON",
			input:         `not json at all`,
			expectedError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			analysis, err := parseAnalysis(tc.input)

			if tc.expectedError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if analysis.Category != tc.expectedCategory {
				t.Errorf("Category mismatch. Expected: %s, Got: %s", tc.expectedCategory, analysis.Category)
			}
			if analysis.Magnitude != tc.expectedMagnitude {
				t.Errorf("Magnitude mismatch. Expected: %.2f, Got: %.2f", tc.expectedMagnitude, analysis.Magnitude)
			}
			if analysis.Direction != tc.expectedDirection {
				t.Errorf("Direction mismatch. Expected: %s, Got: %s", tc.expectedDirection, analysis.Direction)
			}
			if analysis.Confidence != tc.expectedConfidence {
				t.Errorf("Confidence mismatch. Expected: %.2f, Got: %.2f", tc.expectedConfidence, analysis.Confidence)
			}
		})
	}
}

// TestParseAssessment tests comparison response parsing
func TestParseAssessment(t *testing.T) {
	t.Run("valid response with misalignment", func(t *testing.T) {
		input := `{"is_match": true, "confidence": 0.85, "misalignments": [{"type": "RESOLUTION_DATE", "severity": "HIGH", "description": "dates differ by a week"}], "reasoning": "same event"}`

		assessment, err := parseAssessment(input)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if !assessment.IsMatch {
			t.Error("Expected is_match true")
		}
		if assessment.MatchConfidence != 0.85 {
			t.Errorf("Confidence mismatch. Expected 0.85, got %.2f", assessment.MatchConfidence)
		}
		if len(assessment.Misalignments) != 1 {
			t.Fatalf("Expected 1 misalignment, got %d", len(assessment.Misalignments))
		}
		if assessment.Misalignments[0].Type != models.MisalignResolutionDate {
			t.Errorf("Type mismatch: %s", assessment.Misalignments[0].Type)
		}
		if assessment.Misalignments[0].Severity != models.SeverityHigh {
			t.Errorf("Severity mismatch: %s", assessment.Misalignments[0].Severity)
		}
	})

	t.Run("unknown type and severity fold to cautious values", func(t *testing.T) {
		input := `{"is_match": true, "confidence": 0.6, "misalignments": [{"type": "WEIRD", "severity": "EXTREME", "description": "?"}]}`

		assessment, err := parseAssessment(input)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if assessment.Misalignments[0].Type != models.MisalignEdgeCase {
			t.Errorf("Unknown type should fold to EDGE_CASE, got %s", assessment.Misalignments[0].Type)
		}
		if assessment.Misalignments[0].Severity != models.SeverityHigh {
			t.Errorf("Unknown severity should fold to HIGH, got %s", assessment.Misalignments[0].Severity)
		}
	})

	t.Run("non-match", func(t *testing.T) {
		input := `{"is_match": false, "confidence": 0.2, "reasoning": "different events"}`

		assessment, err := parseAssessment(input)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if assessment.IsMatch {
			t.Error("Expected is_match false")
		}
		if len(assessment.Misalignments) != 0 {
			t.Errorf("Expected no misalignments, got %d", len(assessment.Misalignments))
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := parseAssessment("the markets look similar to me"); err == nil {
			t.Error("Expected error for non-JSON response")
		}
	})
}

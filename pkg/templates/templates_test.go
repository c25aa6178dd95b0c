package templates

import (
	"strings"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("Failed to parse embedded templates: %v", err)
	}

	required := []string{"classify_news.tmpl", "compare_markets.tmpl"}
	for _, name := range required {
		if !m.TemplateExists(name) {
			t.Errorf("Required template not found: %s", name)
		}
	}
}

func TestExecuteTemplate_ClassifyNews(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("Failed to parse embedded templates: %v", err)
	}

	out, err := m.ExecuteTemplate("classify_news.tmpl", map[string]any{
		"Headline": "Fed raises rates by 50 basis points",
		"Summary":  "",
		"Source":   "WSJ Markets",
		"AgeHours": 1.5,
	})
	if err != nil {
		t.Fatalf("Failed to render classify template: %v", err)
	}

	if !strings.Contains(out, "Fed raises rates") {
		t.Error("Rendered prompt missing headline")
	}
	if !strings.Contains(out, "1.5 hours ago") {
		t.Error("Rendered prompt missing age")
	}
	if !strings.Contains(out, "=== USER PROMPT ===") {
		t.Error("Rendered prompt missing system/user separator")
	}
	if strings.Contains(out, "Summary:") {
		t.Error("Empty summary should be omitted")
	}
}

func TestExecuteTemplate_CompareMarkets(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("Failed to parse embedded templates: %v", err)
	}

	type quote struct {
		Venue       string
		Question    string
		Description string
		EndDate     time.Time
		YesPrice    float64
		Liquidity   float64
	}

	out, err := m.ExecuteTemplate("compare_markets.tmpl", map[string]any{
		"A": quote{
			Venue:     "kalshi",
			Question:  "Will the Fed cut rates in March?",
			EndDate:   time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			YesPrice:  0.55,
			Liquidity: 12000,
		},
		"B": quote{
			Venue:     "polymarket",
			Question:  "Fed rate cut by March meeting?",
			YesPrice:  0.52,
			Liquidity: 30000,
		},
	})
	if err != nil {
		t.Fatalf("Failed to render compare template: %v", err)
	}

	for _, want := range []string{
		"Will the Fed cut rates in March?",
		"Fed rate cut by March meeting?",
		"kalshi",
		"polymarket",
		"Closes: 2026-03-20",
		"55%",
		"$12000",
		"RESOLUTION_DATE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Rendered prompt missing %q", want)
		}
	}

	// Listing B has no end date, so only one Closes line renders
	if strings.Count(out, "Closes:") != 1 {
		t.Errorf("Expected exactly one Closes line, got %d", strings.Count(out, "Closes:"))
	}
}

func TestExecuteTemplate_MissingTemplate(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("Failed to parse embedded templates: %v", err)
	}

	if _, err := m.ExecuteTemplate("nope.tmpl", nil); err == nil {
		t.Error("Expected error for unknown template")
	}
}

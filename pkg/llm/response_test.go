package llm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON unchanged",
			input: `{"narratives":[]}`,
			want:  `{"narratives":[]}`,
		},
		{
			name:  "strips json fenced block",
			input: "```json\n{\"narratives\":[]}\n```",
			want:  `{"narratives":[]}`,
		},
		{
			name:  "strips plain fenced block",
			input: "```\n{\"narratives\":[]}\n```",
			want:  `{"narratives":[]}`,
		},
		{
			name:  "trims surrounding whitespace",
			input: "  {\"narratives\":[]}  ",
			want:  `{"narratives":[]}`,
		},
		{
			name:  "drops prose around the object",
			input: "Here you go:\n{\"narratives\":[]}\nHope this helps.",
			want:  `{"narratives":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanJSONResponse(tt.input)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNarrativeSet(t *testing.T) {
	content := "```json\n" + `{
  "narratives": [{
    "id": "ai-capex",
    "name": "AI Capex Supercycle",
    "summary": "Hyperscalers keep raising spend.",
    "confidence_score": 82,
    "confidence_trend": "up",
    "assumptions": [{"id": "a1", "text": "Demand holds", "fragilityScore": 40}],
    "affected_assets": [{"ticker": "NVDA", "name": "Nvidia", "exposureWeight": 0.9}],
    "related_conflicts": ["tech-bubble"],
    "tags": ["tech", "ai"]
  }],
  "edges": [{"id": "e1", "from_narrative_id": "ai-capex", "to_narrative_id": "energy", "relationship": "reinforces", "strength": 0.8}]
}` + "\n```"

	set, err := parseNarrativeSet(content, "test-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.ModelUsed != "test-model" {
		t.Errorf("model used = %q", set.ModelUsed)
	}
	if len(set.Narratives) != 1 || len(set.Edges) != 1 {
		t.Fatalf("got %d narratives and %d edges", len(set.Narratives), len(set.Edges))
	}
	n := set.Narratives[0]
	if n.ID != "ai-capex" || n.ConfidenceScore != 82 || n.ConfidenceTrend != "up" {
		t.Errorf("unexpected narrative: %+v", n)
	}
	if !strings.Contains(string(n.AffectedAssets), "NVDA") {
		t.Errorf("affected assets not kept raw: %s", n.AffectedAssets)
	}
	if len(n.SupportingEvidence) != 0 {
		t.Errorf("absent evidence should stay empty, got %s", n.SupportingEvidence)
	}
	if set.Edges[0].Strength != 0.8 {
		t.Errorf("edge strength = %v", set.Edges[0].Strength)
	}
}

func TestParseNarrativeSetInvalid(t *testing.T) {
	if _, err := parseNarrativeSet("not json at all", "m"); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd..." {
		t.Errorf("got %q", got)
	}
}

func TestLoadTaxonomyDefault(t *testing.T) {
	tax, err := LoadTaxonomy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tax.NarrativeCount != 16 {
		t.Errorf("narrative count = %d", tax.NarrativeCount)
	}
	if len(tax.Themes) != 16 {
		t.Errorf("themes = %d", len(tax.Themes))
	}
	if tax.MinEdges != 15 {
		t.Errorf("min edges = %d", tax.MinEdges)
	}
	if tax.TickersPerNarrative.Min != 3 || tax.TickersPerNarrative.Max != 6 {
		t.Errorf("tickers range = %+v", tax.TickersPerNarrative)
	}
}

func TestLoadTaxonomyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	data := "themes:\n  - Gold Rush\n  - Rate Shock\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tax.NarrativeCount != 2 {
		t.Errorf("narrative count should default to theme count, got %d", tax.NarrativeCount)
	}
	if tax.TickersPerNarrative.Min != 3 || tax.TickersPerNarrative.Max != 3 {
		t.Errorf("tickers range = %+v", tax.TickersPerNarrative)
	}
}

func TestLoadTaxonomyErrors(t *testing.T) {
	if _, err := LoadTaxonomy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("narrative_count: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTaxonomy(path); err == nil {
		t.Error("expected error for taxonomy without themes")
	}
}

func TestBuildNarrativePrompt(t *testing.T) {
	tax, err := LoadTaxonomy("")
	if err != nil {
		t.Fatal(err)
	}

	create := BuildNarrativePrompt(tax, false, nil)
	if !strings.Contains(create, "Create an initial set") {
		t.Error("empty store should ask for an initial set")
	}
	if !strings.Contains(create, "exactly 16 narratives") {
		t.Error("prompt should fix the narrative count")
	}
	if !strings.Contains(create, "AI Capex Supercycle") || !strings.Contains(create, "Healthcare AI Revolution") {
		t.Error("prompt should list the themes")
	}
	if strings.Contains(create, "Recent market headlines") {
		t.Error("no headlines section expected")
	}

	update := BuildNarrativePrompt(tax, true, []string{"Fed holds rates", "Nvidia beats"})
	if !strings.Contains(update, "Update the following existing narratives") {
		t.Error("populated store should ask for an update")
	}
	if !strings.Contains(update, "- Fed holds rates\n") {
		t.Error("headlines should be listed")
	}
	if !strings.HasSuffix(update, "Return ONLY valid JSON, no markdown.") {
		t.Error("prompt should end with the JSON instruction")
	}
}

func TestExplainRequestValidate(t *testing.T) {
	weight := 0.5
	tests := []struct {
		name    string
		req     ExplainRequest
		wantErr bool
	}{
		{"asset exposure ok", ExplainRequest{Type: ExplainAssetExposure, NarrativeName: "AI", AssetTicker: "NVDA", ExposureWeight: &weight}, false},
		{"asset exposure missing ticker", ExplainRequest{Type: ExplainAssetExposure, NarrativeName: "AI"}, true},
		{"evidence ok", ExplainRequest{Type: ExplainEvidence, NarrativeName: "AI", EvidenceDescription: "Capex up"}, false},
		{"evidence missing description", ExplainRequest{Type: ExplainEvidence, NarrativeName: "AI"}, true},
		{"portfolio ok", ExplainRequest{Type: ExplainPortfolioAnalysis, AssetTicker: "AAPL"}, false},
		{"portfolio missing ticker", ExplainRequest{Type: ExplainPortfolioAnalysis}, true},
		{"node ok", ExplainRequest{Type: ExplainGraphNode, NarrativeName: "AI"}, false},
		{"node missing name", ExplainRequest{Type: ExplainGraphNode}, true},
		{"edge ok", ExplainRequest{Type: ExplainGraphEdge, Context: "A reinforces B"}, false},
		{"edge missing context", ExplainRequest{Type: ExplainGraphEdge}, true},
		{"unknown type", ExplainRequest{Type: "poem"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidExplainRequest) {
				t.Errorf("error should wrap ErrInvalidExplainRequest: %v", err)
			}
		})
	}
}

func TestBuildExplainPrompt(t *testing.T) {
	weight := -0.35
	got := BuildExplainPrompt(ExplainRequest{
		Type:             ExplainAssetExposure,
		NarrativeName:    "Fed Rate Cuts",
		NarrativeSummary: "Cuts are coming.",
		AssetTicker:      "TLT",
		AssetName:        "20Y Treasury ETF",
		ExposureWeight:   &weight,
	})
	for _, want := range []string{"TLT (20Y Treasury ETF)", `"Fed Rate Cuts"`, "-0.35", "Narrative summary: Cuts are coming."} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	edge := BuildExplainPrompt(ExplainRequest{Type: ExplainGraphEdge, Context: `"A" reinforces "B"`})
	if !strings.Contains(edge, `Context: "A" reinforces "B"`) {
		t.Errorf("edge prompt missing context:\n%s", edge)
	}
}

func TestNew(t *testing.T) {
	c, err := New("openai", Options{OpenAIKey: "sk-test", OpenAIModel: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ModelName() != "gpt-4o-mini" {
		t.Errorf("model = %q", c.ModelName())
	}

	c, err = New("anthropic", Options{AnthropicKey: "sk-ant"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*AnthropicClient); !ok {
		t.Errorf("expected anthropic client, got %T", c)
	}

	if _, err := New("openai", Options{}); err == nil {
		t.Error("expected error without key")
	}
	if _, err := New("gemini", Options{OpenAIKey: "k"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

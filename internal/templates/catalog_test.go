package templates

import "testing"

func TestVerifyCatalogAcceptsShippedTemplates(t *testing.T) {
	if err := VerifyCatalog(); err != nil {
		t.Fatalf("expected shipped catalog to verify: %v", err)
	}
}

func TestFindReturnsTemplateWithCategory(t *testing.T) {
	template, category, err := Find("resiliation-salle-sport")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if template.ID != "resiliation-salle-sport" {
		t.Fatalf("unexpected template id %q", template.ID)
	}
	if category.ID != "resiliation" {
		t.Fatalf("expected resiliation category, got %q", category.ID)
	}
}

func TestFindRejectsUnknownTemplate(t *testing.T) {
	if _, _, err := Find("no-such-template"); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestEveryTemplateReferencesKnownCategory(t *testing.T) {
	known := make(map[string]bool)
	for _, category := range Categories() {
		known[category.ID] = true
	}
	for _, template := range Catalog() {
		if !known[template.CategoryID] {
			t.Fatalf("template %s references unknown category %q", template.ID, template.CategoryID)
		}
	}
}

func TestParseToneNormalizesInput(t *testing.T) {
	tests := []struct {
		input    string
		expected Tone
	}{
		{"tres_poli", ToneTresPoli},
		{"  FERME  ", ToneFerme},
		{"tres_ferme", ToneTresFerme},
		{"neutre", ToneNeutre},
		{"", ToneNeutre},
		{"aggressive", ToneNeutre},
	}
	for _, test := range tests {
		if parsed := ParseTone(test.input); parsed != test.expected {
			t.Fatalf("ParseTone(%q) = %q, expected %q", test.input, parsed, test.expected)
		}
	}
}

func TestVerifyRejectsUnknownPlaceholder(t *testing.T) {
	template := Template{
		ID:         "broken",
		Fields:     []FormField{{ID: "known", Label: "Known"}},
		Paragraphs: []Paragraph{{Text: "value is {{unknown_field}}"}},
	}
	if err := template.Verify(); err == nil {
		t.Fatalf("expected verification failure for unknown placeholder")
	}
}

func TestVerifyRejectsUnknownIncludeIfGate(t *testing.T) {
	template := Template{
		ID:         "broken",
		Fields:     []FormField{{ID: "known", Label: "Known"}},
		Paragraphs: []Paragraph{{Text: "text", IncludeIf: "missing"}},
	}
	if err := template.Verify(); err == nil {
		t.Fatalf("expected verification failure for unknown includeIf gate")
	}
}

func TestVerifyRejectsDuplicateFieldIDs(t *testing.T) {
	template := Template{
		ID: "broken",
		Fields: []FormField{
			{ID: "twice", Label: "One"},
			{ID: "twice", Label: "Two"},
		},
	}
	if err := template.Verify(); err == nil {
		t.Fatalf("expected verification failure for duplicate field id")
	}
}

func TestVerifyAllowsHeaderAndTonePlaceholders(t *testing.T) {
	template := Template{
		ID:         "header-only",
		Paragraphs: []Paragraph{{Text: "{{tone_opening}} écrire à {{destinataire_nom}}. {{polite_formula}}"}},
	}
	if err := template.Verify(); err != nil {
		t.Fatalf("expected header and tone placeholders to be allowed: %v", err)
	}
}

func TestPlaceholdersExtractionIsCaseInsensitive(t *testing.T) {
	ids := Placeholders("Bonjour {{ Expediteur_Nom }}, ref {{reference_client}}")
	if len(ids) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(ids))
	}
	if ids[0] != "expediteur_nom" || ids[1] != "reference_client" {
		t.Fatalf("unexpected placeholder ids: %v", ids)
	}
}

func TestFormValuesGetTrimsWhitespace(t *testing.T) {
	values := FormValues{"motif": "  déménagement  "}
	if got := values.Get("motif"); got != "déménagement" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := values.Get("absent"); got != "" {
		t.Fatalf("expected empty string for absent field, got %q", got)
	}
}

package templates

import (
	"fmt"
	"regexp"
	"strings"
)

// Tone enumerates the four phrasing registers applied to the reserved
// tone placeholders.
type Tone string

const (
	ToneTresPoli  Tone = "tres_poli"
	ToneNeutre    Tone = "neutre"
	ToneFerme     Tone = "ferme"
	ToneTresFerme Tone = "tres_ferme"
)

// ParseTone normalizes raw input to a known tone, defaulting to neutre.
func ParseTone(value string) Tone {
	switch Tone(strings.ToLower(strings.TrimSpace(value))) {
	case ToneTresPoli:
		return ToneTresPoli
	case ToneFerme:
		return ToneFerme
	case ToneTresFerme:
		return ToneTresFerme
	default:
		return ToneNeutre
	}
}

// ToneOption describes a tone for catalog consumers.
type ToneOption struct {
	ID          Tone   `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ToneOptions returns the selectable tones in display order.
func ToneOptions() []ToneOption {
	return []ToneOption{
		{ID: ToneTresPoli, Label: "Très poli", Description: "Ton courtois et déférent"},
		{ID: ToneNeutre, Label: "Neutre", Description: "Ton professionnel standard"},
		{ID: ToneFerme, Label: "Ferme", Description: "Ton direct et assertif"},
		{ID: ToneTresFerme, Label: "Très ferme", Description: "Ton exigeant et insistant"},
	}
}

// FieldType enumerates form field input kinds.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldDate     FieldType = "date"
	FieldPhone    FieldType = "phone"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
)

// HeaderMode selects the header block layout of a rendered letter.
type HeaderMode string

const (
	HeaderLetter HeaderMode = "letter"
	HeaderSimple HeaderMode = "simple"
	HeaderNone   HeaderMode = "none"
)

// FormField declares one input of a template form.
type FormField struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder"`
	Required    bool      `json:"required"`
	Type        FieldType `json:"type"`
	Section     string    `json:"section,omitempty"`
	Helper      string    `json:"helper,omitempty"`
}

// Paragraph is one body fragment. When IncludeIf names a field id, the
// paragraph is skipped if that field's trimmed value is empty.
type Paragraph struct {
	Text      string `json:"text"`
	IncludeIf string `json:"includeIf,omitempty"`
}

// Template is a declarative letter definition. Paragraph order is
// rendering order.
type Template struct {
	ID          string      `json:"id"`
	Version     string      `json:"version"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CategoryID  string      `json:"categoryId"`
	Fields      []FormField `json:"fields"`
	Subject     string      `json:"subject,omitempty"`
	Opening     string      `json:"opening,omitempty"`
	Paragraphs  []Paragraph `json:"paragraphs"`
	Closing     []string    `json:"closing,omitempty"`
	Footer      []string    `json:"footer,omitempty"`
	ToneEnabled bool        `json:"toneEnabled"`
	HeaderMode  HeaderMode  `json:"headerMode"`
}

// Category groups templates for presentation.
type Category struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// FormValues maps field ids to raw user input. Unset fields read as the
// empty string.
type FormValues map[string]string

// Get returns the trimmed value for the field id.
func (v FormValues) Get(fieldID string) string {
	return strings.TrimSpace(v[fieldID])
}

// Reserved placeholders expanded by the generator instead of form values.
const (
	PlaceholderToneOpening   = "tone_opening"
	PlaceholderPoliteFormula = "polite_formula"
)

// Header field ids shared by every letter-mode template. They are filled
// from the user profile rather than declared per template.
var headerFieldIDs = map[string]bool{
	"expediteur_nom":       true,
	"expediteur_adresse":   true,
	"expediteur_email":     true,
	"expediteur_tel":       true,
	"destinataire_nom":     true,
	"destinataire_adresse": true,
	"lieu":                 true,
	"date":                 true,
}

var placeholderPattern = regexp.MustCompile(`(?i)\{\{\s*([a-z0-9_]+)\s*\}\}`)

// Placeholders returns the field ids referenced by the text fragment.
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.ToLower(match[1]))
	}
	return ids
}

// Verify checks the catalog invariant: every placeholder and includeIf
// gate must name a declared field, a shared header field or a reserved
// tone placeholder.
func (t Template) Verify() error {
	declared := make(map[string]bool, len(t.Fields))
	for _, field := range t.Fields {
		if strings.TrimSpace(field.ID) == "" {
			return fmt.Errorf("template %s: field with empty id", t.ID)
		}
		if declared[field.ID] {
			return fmt.Errorf("template %s: duplicate field id %q", t.ID, field.ID)
		}
		declared[field.ID] = true
	}

	allowed := func(id string) bool {
		if declared[id] || headerFieldIDs[id] {
			return true
		}
		return id == PlaceholderToneOpening || id == PlaceholderPoliteFormula
	}

	fragments := []string{t.Subject, t.Opening}
	for _, paragraph := range t.Paragraphs {
		fragments = append(fragments, paragraph.Text)
		if paragraph.IncludeIf != "" && !declared[paragraph.IncludeIf] && !headerFieldIDs[paragraph.IncludeIf] {
			return fmt.Errorf("template %s: includeIf gate %q names no declared field", t.ID, paragraph.IncludeIf)
		}
	}
	fragments = append(fragments, t.Closing...)
	fragments = append(fragments, t.Footer...)

	for _, fragment := range fragments {
		for _, id := range Placeholders(fragment) {
			if !allowed(id) {
				return fmt.Errorf("template %s: placeholder %q names no declared field", t.ID, id)
			}
		}
	}
	return nil
}

// FindField returns the field declaration for the id, if present.
func (t Template) FindField(fieldID string) (FormField, bool) {
	for _, field := range t.Fields {
		if field.ID == fieldID {
			return field, true
		}
	}
	return FormField{}, false
}

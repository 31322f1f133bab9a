package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kenatst/docgen/internal/templates"
)

// GeneratedDocument is one rendered letter kept in history. Entries are
// write-once: created at generation time, then only deleted.
type GeneratedDocument struct {
	ID               string               `json:"id"`
	TemplateID       string               `json:"templateId"`
	TemplateVersion  string               `json:"templateVersion"`
	TemplateTitle    string               `json:"templateTitle"`
	CategoryTitle    string               `json:"categoryTitle"`
	Content          string               `json:"content"`
	CreatedAt        string               `json:"createdAt"`
	UpdatedAt        string               `json:"updatedAt"`
	Values           templates.FormValues `json:"values"`
	Tone             templates.Tone       `json:"tone"`
	SignatureDataURI string               `json:"signatureDataUri,omitempty"`
}

// snapshot is the persisted history payload, stored encrypted.
type snapshot struct {
	Version int                 `json:"version"`
	SavedAt string              `json:"savedAt"`
	History []GeneratedDocument `json:"history"`
}

const snapshotVersion = 1

// rawDocument tolerates the legacy unencrypted record shape, which used a
// formData object instead of values and could miss most fields.
type rawDocument struct {
	ID               string          `json:"id"`
	TemplateID       string          `json:"templateId"`
	TemplateVersion  string          `json:"templateVersion"`
	TemplateTitle    string          `json:"templateTitle"`
	CategoryTitle    string          `json:"categoryTitle"`
	Content          string          `json:"content"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
	Values           json.RawMessage `json:"values"`
	FormData         json.RawMessage `json:"formData"`
	Tone             string          `json:"tone"`
	SignatureDataURI string          `json:"signatureDataUri"`
}

// normalizeRaw converts a tolerant record into a usable document,
// substituting defaults for missing fields. Records without content are
// unusable and dropped (nil return).
func normalizeRaw(raw rawDocument, now time.Time, newID func() string) *GeneratedDocument {
	if raw.Content == "" {
		return nil
	}

	id := raw.ID
	if id == "" {
		id = newID()
	}

	values := templates.FormValues{}
	if len(raw.Values) > 0 {
		_ = json.Unmarshal(raw.Values, &values)
	}
	if len(values) == 0 && len(raw.FormData) > 0 {
		loose := map[string]any{}
		if err := json.Unmarshal(raw.FormData, &loose); err == nil {
			for key, value := range loose {
				if text, ok := value.(string); ok {
					values[key] = text
				} else if value != nil {
					values[key] = fmt.Sprint(value)
				}
			}
		}
	}

	createdAt := normalizeISODate(raw.CreatedAt, now)
	updatedAt := raw.UpdatedAt
	if updatedAt == "" {
		updatedAt = createdAt
	}

	doc := GeneratedDocument{
		ID:               id,
		TemplateID:       defaultString(raw.TemplateID, "legacy-template"),
		TemplateVersion:  defaultString(raw.TemplateVersion, "legacy"),
		TemplateTitle:    defaultString(raw.TemplateTitle, "Document"),
		CategoryTitle:    defaultString(raw.CategoryTitle, "Archive"),
		Content:          raw.Content,
		CreatedAt:        createdAt,
		UpdatedAt:        normalizeISODate(updatedAt, now),
		Values:           values,
		Tone:             templates.ParseTone(raw.Tone),
		SignatureDataURI: raw.SignatureDataURI,
	}
	return &doc
}

func normalizeISODate(value string, now time.Time) string {
	if _, err := time.Parse(time.RFC3339, value); err == nil {
		return value
	}
	return now.UTC().Format(time.RFC3339)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

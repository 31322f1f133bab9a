// Package generator renders plain-text administrative letters from a
// declarative template, user-supplied form values and a phrasing tone.
package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kenatst/docgen/internal/templates"
)

var (
	placeholderPattern = regexp.MustCompile(`(?i)\{\{\s*([a-z0-9_]+)\s*\}\}`)
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	excessNewlines     = regexp.MustCompile(`\n{3,}`)
	spaceBeforePeriod  = regexp.MustCompile(`\s+\.`)
	spaceBeforeComma   = regexp.MustCompile(`\s+,`)
	spaceBeforeSemi    = regexp.MustCompile(`\s+;`)
)

// Validate checks the form values against the template's field
// declarations. It collects every applicable problem as a human-readable
// message and never short-circuits; an empty slice means the form is
// complete.
func Validate(template templates.Template, values templates.FormValues) []string {
	var errs []string

	for _, field := range template.Fields {
		value := values.Get(field.ID)
		if field.Required && value == "" {
			errs = append(errs, fmt.Sprintf("Le champ \"%s\" est requis.", field.Label))
			continue
		}

		if value != "" && field.Type == templates.FieldEmail && !emailPattern.MatchString(value) {
			errs = append(errs, fmt.Sprintf("Le champ \"%s\" doit contenir un email valide.", field.Label))
		}
	}

	return errs
}

// Generate renders the final plain-text document. Blocks are joined with a
// blank line; an essentially empty body is accepted, only Validate can
// block generation.
func Generate(template templates.Template, values templates.FormValues, tone templates.Tone) string {
	var blocks []string

	mode := template.HeaderMode
	if mode == "" {
		mode = templates.HeaderLetter
	}
	if header := buildHeader(values, mode); header != "" {
		blocks = append(blocks, header)
	}

	if template.Subject != "" {
		blocks = append(blocks, compact("Objet : "+interpolate(template.Subject, template, values, tone)))
	}

	if template.Opening != "" {
		blocks = append(blocks, compact(interpolate(template.Opening, template, values, tone)))
	}

	for _, paragraph := range template.Paragraphs {
		if paragraph.IncludeIf != "" && values.Get(paragraph.IncludeIf) == "" {
			continue
		}
		if rendered := compact(interpolate(paragraph.Text, template, values, tone)); rendered != "" {
			blocks = append(blocks, rendered)
		}
	}

	for _, line := range template.Closing {
		if rendered := compact(interpolate(line, template, values, tone)); rendered != "" {
			blocks = append(blocks, rendered)
		}
	}

	footer := template.Footer
	if len(footer) == 0 {
		footer = []string{senderName(values)}
	}
	for _, line := range footer {
		if rendered := compact(interpolate(line, template, values, tone)); rendered != "" {
			blocks = append(blocks, rendered)
		}
	}

	return strings.Join(blocks, "\n\n")
}

// interpolate substitutes {{field_id}} tokens. Reserved tone placeholders
// expand to tone-specific phrases. A required field left empty becomes a
// bracketed fill-me-in marker carrying the field label; an optional empty
// field becomes the empty string.
func interpolate(text string, template templates.Template, values templates.FormValues, tone templates.Tone) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(token, "{}")))

		switch key {
		case templates.PlaceholderToneOpening:
			return toneOpening(tone)
		case templates.PlaceholderPoliteFormula:
			return politeFormula(tone)
		}

		if value := values.Get(key); value != "" {
			return value
		}

		if field, ok := template.FindField(key); ok && field.Required {
			return "[" + field.Label + "]"
		}

		return ""
	})
}

// compact normalizes interpolated text: runs of three or more newlines
// collapse to one blank line, stray whitespace before punctuation is
// removed and the result is trimmed.
func compact(text string) string {
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = spaceBeforePeriod.ReplaceAllString(text, ".")
	text = spaceBeforeComma.ReplaceAllString(text, ",")
	text = spaceBeforeSemi.ReplaceAllString(text, ";")
	return strings.TrimSpace(text)
}

// buildHeader assembles sender, recipient and place-date blocks according
// to the header mode, omitting any block whose fields are all empty.
func buildHeader(values templates.FormValues, mode templates.HeaderMode) string {
	if mode == templates.HeaderNone {
		return ""
	}

	sender := joinNonEmpty("\n",
		values.Get("expediteur_nom"),
		values.Get("expediteur_adresse"),
		values.Get("expediteur_email"),
		values.Get("expediteur_tel"),
	)

	var locationParts []string
	if location := values.Get("lieu"); location != "" {
		locationParts = append(locationParts, "A "+location)
	}
	if date := values.Get("date"); date != "" {
		locationParts = append(locationParts, "le "+date)
	}
	locationLine := strings.Join(locationParts, ", ")

	if mode == templates.HeaderSimple {
		return joinNonEmpty("\n\n", sender, locationLine)
	}

	recipient := joinNonEmpty("\n",
		values.Get("destinataire_nom"),
		values.Get("destinataire_adresse"),
	)

	return joinNonEmpty("\n\n", sender, recipient, locationLine)
}

func senderName(values templates.FormValues) string {
	if name := values.Get("expediteur_nom"); name != "" {
		return name
	}
	if name := values.Get("nom"); name != "" {
		return name
	}
	return "Signature"
}

func joinNonEmpty(separator string, parts ...string) string {
	kept := parts[:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, separator)
}

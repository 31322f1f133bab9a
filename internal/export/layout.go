// Package export converts a rendered letter into the printable A4 page
// layout handed to PDF/share sinks.
package export

import (
	"regexp"
	"strings"
)

// Layout is the structured form of a rendered letter, recovered from the
// plain text for print formatting.
type Layout struct {
	SenderLines    []string
	RecipientLines []string
	DateLine       string
	SubjectLine    string
	BodyParagraphs []string
	ClosingName    string
}

var (
	dateLinePattern = regexp.MustCompile(`(?i)^[AÀ]\s+.+,\s*(le\s+)?`)
	subjectPattern  = regexp.MustCompile(`(?i)^Objet\s*:`)
	greetingPattern = regexp.MustCompile(`(?i)^(Madame|Monsieur|Cher|Chère)`)
)

// ParseContent splits the generated plain text back into header,
// subject, body and closing sections. The generator joins blocks with
// blank lines, so blocks are recovered on runs of two or more newlines;
// section roles are inferred with the same heuristics the preview uses.
func ParseContent(content string) Layout {
	var layout Layout

	blocks := splitBlocks(content)
	phase := "sender"

	for _, block := range blocks {
		if layout.DateLine == "" && dateLinePattern.MatchString(block) {
			layout.DateLine = block
			phase = "body"
			continue
		}

		if subjectPattern.MatchString(block) {
			layout.SubjectLine = block
			phase = "body"
			continue
		}

		if phase == "sender" {
			lines := splitLines(block)
			if len(layout.SenderLines) > 0 && !greetingPattern.MatchString(block) {
				layout.RecipientLines = append(layout.RecipientLines, lines...)
				phase = "body"
				continue
			}
			layout.SenderLines = append(layout.SenderLines, lines...)
			continue
		}

		layout.BodyParagraphs = append(layout.BodyParagraphs, block)
	}

	// A short trailing paragraph without closing punctuation is the
	// signer's name.
	if len(layout.BodyParagraphs) > 1 {
		last := layout.BodyParagraphs[len(layout.BodyParagraphs)-1]
		if len(last) < 80 && !strings.HasSuffix(last, ".") && !strings.HasSuffix(last, ",") {
			layout.ClosingName = last
			layout.BodyParagraphs = layout.BodyParagraphs[:len(layout.BodyParagraphs)-1]
		}
	}

	return layout
}

func splitBlocks(content string) []string {
	var blocks []string
	for _, block := range regexp.MustCompile(`\n{2,}`).Split(content, -1) {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}
	return blocks
}

func splitLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

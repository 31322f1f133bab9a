package export

import (
	"testing"
)

const sampleLetter = `Jean Dupont
12 rue des Lilas, 75011 Paris
jean.dupont@mail.fr

Ma Salle de Sport
Service clients, BP 123

A Paris, le 12 juin 2026

Objet : Résiliation de mon abonnement n°C-2024-0042

Madame, Monsieur,

Par la présente, je me permets de résilier mon abonnement n°C-2024-0042.

Veuillez agréer, Madame, Monsieur, l'expression de mes salutations distinguées.

Jean Dupont`

func TestParseContentRecoversLetterSections(t *testing.T) {
	layout := ParseContent(sampleLetter)

	if len(layout.SenderLines) != 3 || layout.SenderLines[0] != "Jean Dupont" {
		t.Fatalf("unexpected sender lines %v", layout.SenderLines)
	}
	if len(layout.RecipientLines) != 2 || layout.RecipientLines[0] != "Ma Salle de Sport" {
		t.Fatalf("unexpected recipient lines %v", layout.RecipientLines)
	}
	if layout.DateLine != "A Paris, le 12 juin 2026" {
		t.Fatalf("unexpected date line %q", layout.DateLine)
	}
	if layout.SubjectLine != "Objet : Résiliation de mon abonnement n°C-2024-0042" {
		t.Fatalf("unexpected subject line %q", layout.SubjectLine)
	}
	if len(layout.BodyParagraphs) != 3 {
		t.Fatalf("unexpected body paragraphs %v", layout.BodyParagraphs)
	}
	if layout.BodyParagraphs[0] != "Madame, Monsieur," {
		t.Fatalf("expected greeting in body, got %q", layout.BodyParagraphs[0])
	}
	if layout.ClosingName != "Jean Dupont" {
		t.Fatalf("expected closing name, got %q", layout.ClosingName)
	}
}

func TestParseContentWithoutHeaderTreatsAllAsBody(t *testing.T) {
	layout := ParseContent("Madame, Monsieur,\n\nPremier paragraphe du courrier.\n\nSecond paragraphe du courrier.")

	if len(layout.SenderLines) != 1 {
		t.Fatalf("expected greeting captured as first block, got %v", layout.SenderLines)
	}
	if layout.DateLine != "" || layout.SubjectLine != "" {
		t.Fatalf("expected no date or subject")
	}
}

func TestParseContentKeepsLongTrailingParagraph(t *testing.T) {
	long := "Un dernier paragraphe nettement trop long pour être confondu avec le nom du signataire du courrier final."
	layout := ParseContent("Objet : Test\n\nCorps.\n\n" + long + ".")

	if layout.ClosingName != "" {
		t.Fatalf("expected no closing name, got %q", layout.ClosingName)
	}
}

func TestParseContentIgnoresBlankBlocks(t *testing.T) {
	layout := ParseContent("\n\n\nObjet : Seul\n\n\n\n")
	if layout.SubjectLine != "Objet : Seul" {
		t.Fatalf("unexpected subject %q", layout.SubjectLine)
	}
	if len(layout.BodyParagraphs) != 0 {
		t.Fatalf("expected no body, got %v", layout.BodyParagraphs)
	}
}

package generator

import "github.com/kenatst/docgen/internal/templates"

// toneOpening returns the verb phrase substituted for the tone_opening
// placeholder.
func toneOpening(tone templates.Tone) string {
	switch tone {
	case templates.ToneTresPoli:
		return "j'ai l'honneur de"
	case templates.ToneFerme:
		return "je vous informe par la présente que je"
	case templates.ToneTresFerme:
		return "je vous mets formellement en demeure de"
	default:
		return "je me permets de"
	}
}

// politeFormula returns the closing politeness formula substituted for the
// polite_formula placeholder.
func politeFormula(tone templates.Tone) string {
	switch tone {
	case templates.ToneTresPoli:
		return "Je vous prie d'agréer, Madame, Monsieur, l'expression de mes salutations les plus distinguées."
	case templates.ToneFerme:
		return "Dans l'attente de votre retour rapide, veuillez agréer, Madame, Monsieur, mes salutations distinguées."
	case templates.ToneTresFerme:
		return "Sans réponse sous huitaine, je me réserverai toute voie de droit. Veuillez agréer, Madame, Monsieur, mes salutations."
	default:
		return "Veuillez agréer, Madame, Monsieur, l'expression de mes salutations distinguées."
	}
}

package templates

import "fmt"

const catalogVersion = "v1"

// Catalog returns the static template catalog. The slice is rebuilt on
// each call so callers cannot mutate the shared definitions.
func Catalog() []Template {
	return buildTemplates()
}

// Categories returns the catalog categories in display order.
func Categories() []Category {
	return []Category{
		{ID: "resiliation", Title: "Résiliations", Icon: "file-x", Description: "Mettre fin à un contrat ou un abonnement"},
		{ID: "travail", Title: "Travail", Icon: "briefcase", Description: "Courriers liés à l'emploi"},
		{ID: "administratif", Title: "Administratif", Icon: "landmark", Description: "Attestations et démarches officielles"},
	}
}

// Find returns the template and its category, or an error when either is
// unknown.
func Find(templateID string) (Template, Category, error) {
	for _, template := range buildTemplates() {
		if template.ID != templateID {
			continue
		}
		for _, category := range Categories() {
			if category.ID == template.CategoryID {
				return template, category, nil
			}
		}
		return Template{}, Category{}, fmt.Errorf("templates: template %q references unknown category %q", templateID, template.CategoryID)
	}
	return Template{}, Category{}, fmt.Errorf("templates: unknown template %q", templateID)
}

// VerifyCatalog checks the placeholder invariant for every shipped template.
func VerifyCatalog() error {
	for _, template := range buildTemplates() {
		if err := template.Verify(); err != nil {
			return err
		}
	}
	return nil
}

func senderFields() []FormField {
	return []FormField{
		{ID: "expediteur_nom", Label: "Votre nom", Placeholder: "Jean Dupont", Required: true, Type: FieldText, Section: "Expéditeur"},
		{ID: "expediteur_adresse", Label: "Votre adresse", Placeholder: "12 rue des Lilas, 75011 Paris", Required: false, Type: FieldTextarea, Section: "Expéditeur"},
		{ID: "expediteur_email", Label: "Votre email", Placeholder: "jean.dupont@mail.fr", Required: false, Type: FieldEmail, Section: "Expéditeur"},
		{ID: "expediteur_tel", Label: "Votre téléphone", Placeholder: "06 12 34 56 78", Required: false, Type: FieldPhone, Section: "Expéditeur"},
		{ID: "lieu", Label: "Lieu", Placeholder: "Paris", Required: false, Type: FieldText, Section: "Expéditeur"},
		{ID: "date", Label: "Date", Placeholder: "12 juin 2026", Required: true, Type: FieldDate, Section: "Expéditeur"},
	}
}

func recipientFields(nameLabel, namePlaceholder string) []FormField {
	return []FormField{
		{ID: "destinataire_nom", Label: nameLabel, Placeholder: namePlaceholder, Required: true, Type: FieldText, Section: "Destinataire"},
		{ID: "destinataire_adresse", Label: "Adresse du destinataire", Placeholder: "Service clients, BP 123", Required: false, Type: FieldTextarea, Section: "Destinataire"},
	}
}

func letterFields(nameLabel, namePlaceholder string, extra ...FormField) []FormField {
	fields := senderFields()
	fields = append(fields, recipientFields(nameLabel, namePlaceholder)...)
	fields = append(fields, extra...)
	return fields
}

func buildTemplates() []Template {
	return []Template{
		{
			ID:          "resiliation-salle-sport",
			Version:     catalogVersion,
			Title:       "Résiliation d'abonnement de salle de sport",
			Description: "Résilier un contrat d'abonnement sportif, avec motif légitime optionnel.",
			CategoryID:  "resiliation",
			Fields: letterFields("Nom de la salle", "Ma Salle de Sport",
				FormField{ID: "numero_contrat", Label: "Numéro de contrat", Placeholder: "C-2024-0042", Required: true, Type: FieldText, Section: "Contrat"},
				FormField{ID: "date_souscription", Label: "Date de souscription", Placeholder: "3 janvier 2024", Required: false, Type: FieldDate, Section: "Contrat"},
				FormField{ID: "motif", Label: "Motif légitime", Placeholder: "déménagement", Required: false, Type: FieldText, Section: "Contrat", Helper: "Un motif légitime peut réduire le préavis."},
			),
			Subject: "Résiliation de mon abonnement n°{{numero_contrat}}",
			Opening: "Madame, Monsieur,",
			Paragraphs: []Paragraph{
				{Text: "Par la présente, {{tone_opening}} résilier mon abonnement n°{{numero_contrat}} souscrit auprès de votre établissement {{destinataire_nom}}."},
				{Text: "Cette résiliation est motivée par un motif légitime : {{motif}}. Vous trouverez en annexe les justificatifs correspondants.", IncludeIf: "motif"},
				{Text: "Je vous remercie de me confirmer par écrit la date effective de fin de contrat ainsi que l'arrêt des prélèvements."},
			},
			Closing:     []string{"{{polite_formula}}"},
			ToneEnabled: true,
			HeaderMode:  HeaderLetter,
		},
		{
			ID:          "resiliation-abonnement",
			Version:     catalogVersion,
			Title:       "Résiliation d'abonnement ou de service",
			Description: "Courrier générique de résiliation (téléphonie, presse, assurance...).",
			CategoryID:  "resiliation",
			Fields: letterFields("Nom de l'organisme", "Opérateur XYZ",
				FormField{ID: "reference_client", Label: "Référence client", Placeholder: "REF-88421", Required: true, Type: FieldText, Section: "Contrat"},
				FormField{ID: "service", Label: "Service concerné", Placeholder: "forfait mobile", Required: true, Type: FieldText, Section: "Contrat"},
				FormField{ID: "date_effet", Label: "Date d'effet souhaitée", Placeholder: "31 juillet 2026", Required: false, Type: FieldDate, Section: "Contrat"},
			),
			Subject: "Résiliation de mon contrat {{service}} — référence {{reference_client}}",
			Opening: "Madame, Monsieur,",
			Paragraphs: []Paragraph{
				{Text: "{{tone_opening}} mettre fin au contrat {{service}} souscrit sous la référence {{reference_client}}."},
				{Text: "Je souhaite que cette résiliation prenne effet au {{date_effet}}, dans le respect du préavis contractuel.", IncludeIf: "date_effet"},
				{Text: "Je vous saurais gré de m'adresser une confirmation écrite de la prise en compte de cette demande."},
			},
			Closing:     []string{"{{polite_formula}}"},
			ToneEnabled: true,
			HeaderMode:  HeaderLetter,
		},
		{
			ID:          "lettre-demission",
			Version:     catalogVersion,
			Title:       "Lettre de démission",
			Description: "Notifier la rupture de votre contrat de travail à votre employeur.",
			CategoryID:  "travail",
			Fields: letterFields("Nom de l'employeur", "Société ACME",
				FormField{ID: "poste", Label: "Poste occupé", Placeholder: "développeur", Required: true, Type: FieldText, Section: "Contrat"},
				FormField{ID: "date_embauche", Label: "Date d'embauche", Placeholder: "1er mars 2021", Required: false, Type: FieldDate, Section: "Contrat"},
				FormField{ID: "duree_preavis", Label: "Durée du préavis", Placeholder: "un mois", Required: false, Type: FieldText, Section: "Contrat"},
			),
			Subject: "Démission de mon poste de {{poste}}",
			Opening: "Madame, Monsieur,",
			Paragraphs: []Paragraph{
				{Text: "{{tone_opening}} vous présenter ma démission du poste de {{poste}} que j'occupe au sein de votre entreprise depuis le {{date_embauche}}."},
				{Text: "Conformément aux dispositions applicables, je respecterai un préavis de {{duree_preavis}} à compter de la première présentation de ce courrier.", IncludeIf: "duree_preavis"},
				{Text: "Je reste à votre disposition pour organiser la transmission de mes dossiers en cours."},
			},
			Closing:     []string{"{{polite_formula}}"},
			ToneEnabled: true,
			HeaderMode:  HeaderLetter,
		},
		{
			ID:          "demande-remboursement",
			Version:     catalogVersion,
			Title:       "Demande de remboursement",
			Description: "Réclamer le remboursement d'un achat ou d'une prestation non conforme.",
			CategoryID:  "administratif",
			Fields: letterFields("Nom du vendeur", "Boutique en ligne",
				FormField{ID: "objet_achat", Label: "Objet de l'achat", Placeholder: "aspirateur sans fil", Required: true, Type: FieldText, Section: "Achat"},
				FormField{ID: "date_achat", Label: "Date d'achat", Placeholder: "2 mai 2026", Required: true, Type: FieldDate, Section: "Achat"},
				FormField{ID: "montant", Label: "Montant", Placeholder: "249,90 €", Required: true, Type: FieldNumber, Section: "Achat"},
				FormField{ID: "probleme", Label: "Problème constaté", Placeholder: "produit défectueux dès la réception", Required: true, Type: FieldTextarea, Section: "Achat"},
			),
			Subject: "Demande de remboursement — {{objet_achat}}",
			Opening: "Madame, Monsieur,",
			Paragraphs: []Paragraph{
				{Text: "Le {{date_achat}}, j'ai procédé à l'achat de {{objet_achat}} pour un montant de {{montant}}."},
				{Text: "Or, {{probleme}}. En conséquence, {{tone_opening}} vous demander le remboursement intégral de cette somme."},
				{Text: "À défaut de réponse satisfaisante sous quinze jours, je me réserve la possibilité de saisir les services compétents."},
			},
			Closing:     []string{"{{polite_formula}}"},
			ToneEnabled: true,
			HeaderMode:  HeaderLetter,
		},
		{
			ID:          "mise-en-demeure",
			Version:     catalogVersion,
			Title:       "Mise en demeure",
			Description: "Sommation formelle d'exécuter une obligation contractuelle.",
			CategoryID:  "administratif",
			Fields: letterFields("Nom du débiteur", "Entreprise Dupont",
				FormField{ID: "obligation", Label: "Obligation due", Placeholder: "livrer la commande n°4521", Required: true, Type: FieldTextarea, Section: "Litige"},
				FormField{ID: "delai", Label: "Délai accordé", Placeholder: "huit jours", Required: true, Type: FieldText, Section: "Litige"},
				FormField{ID: "fondement", Label: "Fondement (contrat, facture...)", Placeholder: "devis signé le 4 avril 2026", Required: false, Type: FieldText, Section: "Litige"},
			),
			Subject: "Mise en demeure",
			Opening: "Madame, Monsieur,",
			Paragraphs: []Paragraph{
				{Text: "Malgré mes relances, vous n'avez toujours pas exécuté votre obligation : {{obligation}}."},
				{Text: "Cette obligation résulte de {{fondement}}.", IncludeIf: "fondement"},
				{Text: "En conséquence, {{tone_opening}} vous exécuter dans un délai de {{delai}} à compter de la réception de la présente."},
				{Text: "À défaut, je saisirai la juridiction compétente sans autre avis."},
			},
			Closing:     []string{"{{polite_formula}}"},
			ToneEnabled: true,
			HeaderMode:  HeaderLetter,
		},
		{
			ID:          "attestation-honneur",
			Version:     catalogVersion,
			Title:       "Attestation sur l'honneur",
			Description: "Déclaration simple certifiant un fait sur l'honneur.",
			CategoryID:  "administratif",
			Fields: append(senderFields(),
				FormField{ID: "declaration", Label: "Fait attesté", Placeholder: "héberger M. Martin à mon domicile depuis le 1er janvier 2026", Required: true, Type: FieldTextarea, Section: "Déclaration"},
			),
			Subject: "Attestation sur l'honneur",
			Paragraphs: []Paragraph{
				{Text: "Je soussigné(e) {{expediteur_nom}}, demeurant {{expediteur_adresse}}, atteste sur l'honneur {{declaration}}."},
				{Text: "Je suis informé(e) que toute fausse déclaration m'expose aux sanctions prévues par l'article 441-1 du code pénal."},
				{Text: "Fait pour servir et valoir ce que de droit."},
			},
			ToneEnabled: false,
			HeaderMode:  HeaderSimple,
		},
	}
}

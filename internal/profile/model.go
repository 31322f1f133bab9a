package profile

// UserProfile is the reusable sender identity applied to letter forms.
type UserProfile struct {
	Nom              string `json:"expediteur_nom"`
	Adresse          string `json:"expediteur_adresse"`
	Email            string `json:"expediteur_email"`
	Tel              string `json:"expediteur_tel"`
	Lieu             string `json:"lieu"`
	SignatureDataURI string `json:"signatureDataUri,omitempty"`
}

// Entry is one named profile instance in the multi-profile list.
type Entry struct {
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Profile UserProfile `json:"profile"`
}

// legacySnapshot is the single-profile encrypted payload kept in sync so
// older consumers reading that shape keep working.
type legacySnapshot struct {
	Version int         `json:"version"`
	SavedAt string      `json:"savedAt"`
	Profile UserProfile `json:"profile"`
}

const legacySnapshotVersion = 1

// FormValues maps the profile onto the reserved header field ids used by
// letter templates.
func (p UserProfile) FormValues() map[string]string {
	return map[string]string{
		"expediteur_nom":     p.Nom,
		"expediteur_adresse": p.Adresse,
		"expediteur_email":   p.Email,
		"expediteur_tel":     p.Tel,
		"lieu":               p.Lieu,
	}
}

package domain

type PolicyInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ContactAndSocial struct {
	Address      string `json:"address"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FacebookURL  string `json:"facebookUrl"`
	InstagramURL string `json:"instagramUrl"`
	WhatsappLink string `json:"whatsappLink"`
}

// Settings backs the static content pages: policies, contact details and the homepage popup.
type Settings struct {
	ID                  string           `json:"_id"`
	PrivacyPolicy       PolicyInfo       `json:"privacyPolicy"`
	ReturnPolicy        PolicyInfo       `json:"returnPolicy"`
	ContactAndSocial    ContactAndSocial `json:"contactAndSocial"`
	EnableHomepagePopup bool             `json:"enableHomepagePopup"`
	PopupTitle          string           `json:"popupTitle"`
	PopupDescription    string           `json:"popupDescription"`
	PopupDelay          int              `json:"popupDelay"`
	PopupImage          string           `json:"popupImage,omitempty"`
	SliderImages        []string         `json:"sliderImages"`
	Logo                string           `json:"logo,omitempty"`
}

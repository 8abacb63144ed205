package config

import (
	"net/url"
	"strings"

	"github.com/Upcasted/optimus-courier/internal/domain"
)

const (
	DefaultTrackingPageURL = "https://optimuscourier.ro/search/"
	DefaultSubjectTemplate = "Comanda #{order_number} a fost expediată - {shop_name}"
	DefaultBodyTemplate    = "Comanda dumneavoastră #{order_number} a fost expediată. Puteți urmări coletul folosind numărul(ele) AWB: {awb_number}. Link urmărire: {awb_tracking_link}"
)

// Settings are the operator-managed business options, read on every workflow invocation
type Settings struct {
	Username           string  `yaml:"username" json:"username"`
	APIKey             string  `yaml:"apiKey" json:"apiKey"`
	DefaultParcelCount int     `yaml:"defaultParcelCount" json:"defaultParcelCount" validate:"gt=0"`
	DefaultWeight      float64 `yaml:"defaultWeight" json:"defaultWeight" validate:"gt=0"`
	AutoGenerateStatus string  `yaml:"autoGenerateStatus" json:"autoGenerateStatus"`
	AutoCompleteOrder  bool    `yaml:"autoCompleteOrder" json:"autoCompleteOrder"`
	NotifyCustomer     bool    `yaml:"notifyCustomer" json:"notifyCustomer"`
	EmailSubject       string  `yaml:"emailSubjectTemplate" json:"emailSubjectTemplate"`
	EmailBody          string  `yaml:"emailBodyTemplate" json:"emailBodyTemplate"`
	TrackingPageURL    string  `yaml:"trackingPageUrl" json:"trackingPageUrl" validate:"required,url"`
	ShopName           string  `yaml:"shopName" json:"shopName"`
	ShopEmail          string  `yaml:"shopEmail" json:"shopEmail" validate:"omitempty,email"`

	IsConnected       bool   `yaml:"isConnected" json:"isConnected"`
	ConnectionMessage string `yaml:"connectionMessage" json:"connectionMessage"`
}

// Defaults returns the settings a fresh installation starts with
func Defaults() Settings {
	return Settings{
		DefaultParcelCount: 1,
		DefaultWeight:      domain.DefaultWeight,
		EmailSubject:       DefaultSubjectTemplate,
		EmailBody:          DefaultBodyTemplate,
		TrackingPageURL:    DefaultTrackingPageURL,
		ShopName:           "Magazin",
	}
}

// Credentials returns the courier credentials
func (s Settings) Credentials() domain.Credentials {
	return domain.Credentials{Username: s.Username, APIKey: s.APIKey}
}

// TriggerStatus is the configured auto-generate status without the "wc-" prefix
func (s Settings) TriggerStatus() string {
	return domain.NormalizeStatus(s.AutoGenerateStatus)
}

// SubjectTemplate falls back to the default when unset
func (s Settings) SubjectTemplate() string {
	if strings.TrimSpace(s.EmailSubject) == "" {
		return DefaultSubjectTemplate
	}
	return s.EmailSubject
}

// BodyTemplate falls back to the default when unset
func (s Settings) BodyTemplate() string {
	if strings.TrimSpace(s.EmailBody) == "" {
		return DefaultBodyTemplate
	}
	return s.EmailBody
}

// TrackingURL falls back to the public courier search page
func (s Settings) TrackingURL() string {
	if strings.TrimSpace(s.TrackingPageURL) == "" {
		return DefaultTrackingPageURL
	}
	return s.TrackingPageURL
}

// Masked hides the API key for display
func (s Settings) Masked() Settings {
	if s.APIKey != "" {
		s.APIKey = strings.Repeat("*", 8)
	}
	return s
}

// Validate checks the settings the same way the settings form does
func (s Settings) Validate() error {
	fields := map[string]string{}
	if err := domain.ValidateStruct(s, "Setări invalide"); err != nil {
		awbErr, ok := domain.AsAWBError(err)
		if !ok || awbErr.Kind != domain.KindValidation {
			return err
		}
		for k, v := range awbErr.Fields {
			fields[k] = v
		}
	}

	if s.NotifyCustomer && strings.TrimSpace(s.ShopEmail) == "" {
		fields["shopEmail"] = "câmp obligatoriu când notificările sunt active"
	}
	if u, err := url.Parse(s.TrackingPageURL); err != nil || !u.IsAbs() {
		fields["trackingPageUrl"] = "URL invalid"
	}

	if len(fields) > 0 {
		return domain.NewValidationError("Setări invalide", fields)
	}
	return nil
}

func (s *Settings) applyDefaults() {
	d := Defaults()
	if s.DefaultParcelCount <= 0 {
		s.DefaultParcelCount = d.DefaultParcelCount
	}
	if s.DefaultWeight <= 0 {
		s.DefaultWeight = d.DefaultWeight
	}
	if s.TrackingPageURL == "" {
		s.TrackingPageURL = d.TrackingPageURL
	}
	if s.EmailSubject == "" {
		s.EmailSubject = d.EmailSubject
	}
	if s.EmailBody == "" {
		s.EmailBody = d.EmailBody
	}
	if s.ShopName == "" {
		s.ShopName = d.ShopName
	}
}

package domain

import (
	"strings"
	"time"
)

type Company struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Domain      string    `json:"domain" db:"domain"`
	TermsURL    string    `json:"terms_url" db:"terms_url"`
	PrivacyURL  *string   `json:"privacy_url,omitempty" db:"privacy_url"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CompanyInput is what the registry accepts when a company is created.
type CompanyInput struct {
	Name        string  `json:"name"`
	Domain      string  `json:"domain"`
	TermsURL    string  `json:"terms_url"`
	PrivacyURL  *string `json:"privacy_url,omitempty"`
	Description string  `json:"description"`
}

// PrivacyURLValue returns the privacy URL or "" when none is configured.
func (c *Company) PrivacyURLValue() string {
	if c.PrivacyURL == nil {
		return ""
	}
	return *c.PrivacyURL
}

// NormalizeDomain lowercases a domain and strips any scheme, "www." prefix and path.
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimPrefix(d, "www.")
}

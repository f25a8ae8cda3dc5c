package domain

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTerms   DocumentType = "terms"
	DocumentPrivacy DocumentType = "privacy"
)

// Label is the human wording used in titles and notices.
func (t DocumentType) Label() string {
	switch t {
	case DocumentTerms:
		return "terms of service"
	case DocumentPrivacy:
		return "privacy policy"
	default:
		return string(t)
	}
}

// Snapshot is one captured copy of a remote document. Rows are never updated.
type Snapshot struct {
	ID           int64        `json:"-" db:"id"`
	UUID         uuid.UUID    `json:"uuid" db:"uuid"`
	CompanyID    int64        `json:"company_id" db:"company_id"`
	URL          string       `json:"url" db:"url"`
	DocumentType DocumentType `json:"document_type" db:"document_type"`
	Title        string       `json:"title" db:"title"`
	PageTitle    string       `json:"page_title" db:"page_title"`
	Content      string       `json:"content,omitempty" db:"content"`
	ContentID    string       `json:"content_id" db:"content_id"`
	SizeBytes    int64        `json:"size_bytes" db:"size_bytes"`
	CapturedAt   time.Time    `json:"captured_at" db:"captured_at"`
}

// SnapshotTitle builds the display title stored with a snapshot.
func SnapshotTitle(companyName string, docType DocumentType) string {
	switch docType {
	case DocumentTerms:
		return companyName + " Terms of Service"
	case DocumentPrivacy:
		return companyName + " Privacy Policy"
	default:
		return companyName + " Document"
	}
}

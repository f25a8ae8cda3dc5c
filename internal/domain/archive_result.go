package domain

import "github.com/google/uuid"

// ItemState tracks one document through the archiving pipeline.
type ItemState string

const (
	StatePending    ItemState = "pending"
	StateFetching   ItemState = "fetching"
	StateExtracting ItemState = "extracting"
	StateStoring    ItemState = "storing"
	StatePersisting ItemState = "persisting"
	StateArchived   ItemState = "archived"
	StateFailed     ItemState = "failed"
)

type ArchivedItem struct {
	SnapshotID   int64     `json:"-"`
	SnapshotUUID uuid.UUID `json:"snapshot_uuid"`
	EntryID      int64     `json:"entry_id"`
	Version      int       `json:"version"`
	ContentID    string    `json:"content_id"`
	TextLength   int       `json:"text_length"`
}

type ItemFailure struct {
	// Stage is the state the item was in when it failed.
	Stage   ItemState `json:"stage"`
	Message string    `json:"error"`
	Err     error     `json:"-"`
}

// ItemResult is either Archived or Failure, never both.
type ItemResult struct {
	DocumentType DocumentType  `json:"document_type"`
	URL          string        `json:"url"`
	State        ItemState     `json:"state"`
	Archived     *ArchivedItem `json:"archived,omitempty"`
	Failure      *ItemFailure  `json:"failure,omitempty"`
}

func (r ItemResult) Success() bool {
	return r.State == StateArchived && r.Archived != nil
}

type AggregateResult struct {
	OverallSuccess bool         `json:"success"`
	Items          []ItemResult `json:"results"`
	Errors         []string     `json:"errors"`
}

// NewAggregateResult folds per-item results in work-list order.
func NewAggregateResult(items []ItemResult) *AggregateResult {
	res := &AggregateResult{
		Items:  items,
		Errors: make([]string, 0),
	}
	for _, item := range items {
		if item.Success() {
			res.OverallSuccess = true
			continue
		}
		if item.Failure != nil {
			res.Errors = append(res.Errors, item.Failure.Message)
		}
	}
	return res
}

// Succeeded returns the archived items.
func (a *AggregateResult) Succeeded() []ItemResult {
	var out []ItemResult
	for _, item := range a.Items {
		if item.Success() {
			out = append(out, item)
		}
	}
	return out
}

// Failed returns the failed items.
func (a *AggregateResult) Failed() []ItemResult {
	var out []ItemResult
	for _, item := range a.Items {
		if !item.Success() {
			out = append(out, item)
		}
	}
	return out
}

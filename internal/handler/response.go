package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"veritas/internal/domain"
	"veritas/internal/scraper"
)

const (
	noticeCreated       = "Company created successfully! We've archived their terms and privacy."
	noticePrivacyFailed = "Warning: Failed to archive privacy policy"
	alertRateLimited    = "Rate limited - Please try again later"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, msg string, details ...string) {
	writeJSON(w, logger, status, errorResponse{Error: msg, Details: details})
}

func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// isRateLimited reports whether a failure came from an HTTP 429.
func isRateLimited(f *domain.ItemFailure) bool {
	var fe *scraper.FetchError
	if errors.As(f.Err, &fe) && fe.Kind == scraper.KindHTTPStatus && fe.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(f.Message, "HTTP 429") || strings.Contains(f.Message, "Too Many Requests")
}

// createNotice builds the flash text for a freshly created company.
// The alert is set only when nothing was archived.
func createNotice(res *domain.AggregateResult) (notice, alert string) {
	if !res.OverallSuccess {
		return "", failureAlert(res)
	}

	notice = noticeCreated
	for _, item := range res.Failed() {
		if item.DocumentType == domain.DocumentPrivacy {
			notice += " " + noticePrivacyFailed
			break
		}
	}
	return notice, ""
}

func rearchiveNotice(res *domain.AggregateResult) (notice, alert string) {
	if !res.OverallSuccess {
		return "", failureAlert(res)
	}
	return fmt.Sprintf("Documents re-archived successfully. %d document(s) updated", len(res.Succeeded())), ""
}

func failureAlert(res *domain.AggregateResult) string {
	for _, item := range res.Failed() {
		if item.Failure != nil && isRateLimited(item.Failure) {
			return alertRateLimited
		}
	}
	if len(res.Errors) == 0 {
		return "Failed to archive documents: no documents configured"
	}
	return "Failed to archive documents: " + strings.Join(res.Errors, ", ")
}

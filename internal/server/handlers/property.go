package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mattcoley/propertydetails/internal/core"
	"github.com/mattcoley/propertydetails/internal/core/validate"
	apperrors "github.com/mattcoley/propertydetails/internal/errors"
)

// Caller-facing messages for each failed outcome.
const (
	MessageNotFound            = "No property details found for address."
	MessageUpstreamError       = "Error retrieving property details"
	MessageRateLimitedUnknown  = "Too many requests"
	messageRateLimitedTemplate = "Too many requests, please try again in %d seconds"
)

// Lookuper runs the septic pipeline. *septic.Service satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, params validate.Params) core.Outcome
}

// SepticResponse is the success body.
type SepticResponse struct {
	HasSeptic bool `json:"has_septic"`
}

// PropertyDetailsHandler serves GET /property/details.
type PropertyDetailsHandler struct {
	Service Lookuper
}

func (h *PropertyDetailsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("lookup service not configured"))
		return
	}

	outcome := h.Service.Lookup(r.Context(), queryParams(r.URL))
	WriteOutcome(w, r, outcome)
}

// WriteOutcome maps an Outcome onto the HTTP response.
func WriteOutcome(w http.ResponseWriter, r *http.Request, outcome core.Outcome) {
	switch outcome.Kind {
	case core.OutcomeClassified:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(SepticResponse{HasSeptic: outcome.HasSeptic})
	case core.OutcomeInvalidQuery:
		respondWithError(w, r, apperrors.NewInvalidInputError(outcome.Message))
	case core.OutcomeNotFound:
		respondWithError(w, r, apperrors.NewNotFoundError(MessageNotFound))
	case core.OutcomeRateLimited:
		if outcome.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(outcome.RetryAfterSeconds, 10))
		}
		respondWithError(w, r, apperrors.NewRateLimitedError(RateLimitMessage(outcome.RetryAfterSeconds), outcome.RetryAfterSeconds))
	default:
		respondWithError(w, r, apperrors.NewUpstreamError(MessageUpstreamError))
	}
}

// RateLimitMessage renders the caller message for a backoff of seconds.
func RateLimitMessage(seconds int64) string {
	if seconds <= 0 {
		return MessageRateLimitedUnknown
	}
	return fmt.Sprintf(messageRateLimitedTemplate, seconds)
}

func queryParams(u *url.URL) url.Values {
	if u == nil {
		return url.Values{}
	}
	return u.Query()
}

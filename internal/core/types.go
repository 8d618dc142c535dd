package core

import (
	"net/http"
	"net/url"
)

// AddressQuery identifies a single property for the upstream lookup.
// Construct it through validate.Query so the identification rule holds.
type AddressQuery struct {
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zipcode string `json:"zipcode,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

// Values encodes the query as upstream URL parameters, omitting empty fields.
func (q AddressQuery) Values() url.Values {
	values := url.Values{}
	for key, value := range map[string]string{
		"address": q.Address,
		"city":    q.City,
		"state":   q.State,
		"unit":    q.Unit,
		"zipcode": q.Zipcode,
	} {
		if value != "" {
			values.Set(key, value)
		}
	}
	return values
}

// Mode selects how the upstream is reached.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeMocked Mode = "mocked"
)

// UpstreamResponse is the raw provider reply. Status 0 marks a transport
// failure where no HTTP response was received.
type UpstreamResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// OutcomeKind tags the Outcome variant.
type OutcomeKind string

const (
	OutcomeClassified    OutcomeKind = "classified"
	OutcomeNotFound      OutcomeKind = "not_found"
	OutcomeRateLimited   OutcomeKind = "rate_limited"
	OutcomeUpstreamError OutcomeKind = "upstream_error"
	OutcomeInvalidQuery  OutcomeKind = "invalid_query"
)

// Outcome is the single result of a septic lookup. Only the fields relevant
// to Kind are meaningful.
type Outcome struct {
	Kind              OutcomeKind `json:"outcome"`
	HasSeptic         bool        `json:"has_septic"`
	RetryAfterSeconds int64       `json:"retry_after_seconds,omitempty"`
	Message           string      `json:"message,omitempty"`
}

func Classified(hasSeptic bool) Outcome {
	return Outcome{Kind: OutcomeClassified, HasSeptic: hasSeptic}
}

func NotFound() Outcome {
	return Outcome{Kind: OutcomeNotFound}
}

// RateLimited reports an upstream backoff. Zero seconds means the duration
// is unknown.
func RateLimited(retryAfterSeconds int64) Outcome {
	if retryAfterSeconds < 0 {
		retryAfterSeconds = 0
	}
	return Outcome{Kind: OutcomeRateLimited, RetryAfterSeconds: retryAfterSeconds}
}

func UpstreamError() Outcome {
	return Outcome{Kind: OutcomeUpstreamError}
}

func InvalidQuery(message string) Outcome {
	return Outcome{Kind: OutcomeInvalidQuery, Message: message}
}

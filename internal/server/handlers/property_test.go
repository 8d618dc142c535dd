package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core"
	"github.com/mattcoley/propertydetails/internal/core/septic"
	"github.com/mattcoley/propertydetails/internal/core/upstream"
	"github.com/mattcoley/propertydetails/internal/core/validate"
	apperrors "github.com/mattcoley/propertydetails/internal/errors"
)

type fixedLookuper struct {
	outcome core.Outcome
	params  validate.Params
}

func (f *fixedLookuper) Lookup(_ context.Context, params validate.Params) core.Outcome {
	f.params = params
	return f.outcome
}

func serve(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPropertyDetailsOutcomeMapping(t *testing.T) {
	tests := []struct {
		name       string
		outcome    core.Outcome
		status     int
		code       string
		message    string
		retryAfter string
	}{
		{
			name:    "invalid query",
			outcome: core.InvalidQuery(validate.MessageInsufficientAddress),
			status:  http.StatusBadRequest,
			code:    apperrors.CodeInvalidInput,
			message: validate.MessageInsufficientAddress,
		},
		{
			name:    "not found",
			outcome: core.NotFound(),
			status:  http.StatusNotFound,
			code:    apperrors.CodeNotFound,
			message: MessageNotFound,
		},
		{
			name:       "rate limited with known reset",
			outcome:    core.RateLimited(42),
			status:     http.StatusTooManyRequests,
			code:       apperrors.CodeRateLimited,
			message:    "Too many requests, please try again in 42 seconds",
			retryAfter: "42",
		},
		{
			name:    "rate limited with unknown reset",
			outcome: core.RateLimited(0),
			status:  http.StatusTooManyRequests,
			code:    apperrors.CodeRateLimited,
			message: MessageRateLimitedUnknown,
		},
		{
			name:    "upstream error",
			outcome: core.UpstreamError(),
			status:  http.StatusInternalServerError,
			code:    apperrors.CodeUpstream,
			message: MessageUpstreamError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &PropertyDetailsHandler{Service: &fixedLookuper{outcome: tt.outcome}}
			rec := serve(t, handler, "/property/details?address=1+Main+St&zipcode=12345")

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestPropertyDetailsClassified(t *testing.T) {
	for _, hasSeptic := range []bool{true, false} {
		lookuper := &fixedLookuper{outcome: core.Classified(hasSeptic)}
		rec := serve(t, &PropertyDetailsHandler{Service: lookuper}, "/property/details?address=1+Main+St&zipcode=12345&unit=2")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]any{"has_septic": hasSeptic}, body)

		assert.Equal(t, "1 Main St", lookuper.params.Get("address"))
		assert.Equal(t, "2", lookuper.params.Get("unit"))
	}
}

func TestPropertyDetailsWithMockedService(t *testing.T) {
	fetcher, err := upstream.New(config.UpstreamConfig{MockResponse: true}, nil)
	require.NoError(t, err)
	handler := &PropertyDetailsHandler{Service: septic.NewService(nil, fetcher)}

	rec := serve(t, handler, "/property/details?address=123+Main+St&zipcode=12345")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"has_septic":true}`, rec.Body.String())

	rec = serve(t, handler, "/property/details?address=123+Main+St")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPropertyDetailsWithoutService(t *testing.T) {
	rec := serve(t, &PropertyDetailsHandler{}, "/property/details")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

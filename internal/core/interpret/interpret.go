// Package interpret turns a raw provider reply into an Outcome.
package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/core"
	"github.com/mattcoley/propertydetails/internal/core/lookup"
)

// ResetHeader carries the provider's rate-limit reset instant in epoch seconds.
const ResetHeader = "X-RateLimit-Reset"

const (
	endpointKey = "property/details"
	septicValue = "septic"
)

// Recorder receives usable rate-limit deadlines. *ratelimit.Gate satisfies it.
type Recorder interface {
	RecordLimit(ctx context.Context, resetAt time.Time)
}

// Interpreter classifies provider replies.
type Interpreter struct {
	Recorder Recorder
	Clock    func() time.Time
	Logger   *logging.Logger
}

// Interpret applies, in order: rate limit, non-200 status, api_code, sewer
// classification. The only side effect is recording a usable deadline.
func (i *Interpreter) Interpret(ctx context.Context, resp core.UpstreamResponse) core.Outcome {
	if resp.Status == http.StatusTooManyRequests {
		return i.rateLimited(ctx, resp)
	}

	if resp.Status != http.StatusOK {
		i.warn("Upstream returned an error status", zap.Int("status", resp.Status))
		return core.UpstreamError()
	}

	doc, err := decode(resp.Body)
	if err != nil {
		i.warn("Upstream body is not a JSON object", zap.Error(err))
		return core.UpstreamError()
	}

	code, ok := lookup.Path(doc, endpointKey, "api_code")
	if !ok || !isZero(code) {
		return core.NotFound()
	}

	sewer, _ := lookup.String(doc, endpointKey, "result", "property", "sewer")
	return core.Classified(strings.EqualFold(sewer, septicValue))
}

func (i *Interpreter) rateLimited(ctx context.Context, resp core.UpstreamResponse) core.Outcome {
	now := i.now()

	resetAt, ok := parseReset(resp.Headers, now)
	if !ok {
		i.warn("Upstream rate limited without a usable reset header",
			zap.String("header", resp.Headers.Get(ResetHeader)))
		return core.RateLimited(0)
	}

	if i.Recorder != nil {
		i.Recorder.RecordLimit(ctx, resetAt)
	}
	return core.RateLimited(resetAt.Unix() - now.Unix())
}

// parseReset accepts integer epoch seconds strictly after now.
func parseReset(headers http.Header, now time.Time) (time.Time, bool) {
	if headers == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(headers.Get(ResetHeader))
	if raw == "" {
		return time.Time{}, false
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if seconds <= now.Unix() {
		return time.Time{}, false
	}
	return time.Unix(seconds, 0).UTC(), true
}

func decode(body []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var doc map[string]any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	// The body must hold exactly one document.
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		return nil, errors.New("trailing data after JSON document")
	}
	return doc, nil
}

func isZero(value any) bool {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case float64:
		return v == 0
	default:
		return false
	}
}

func (i *Interpreter) now() time.Time {
	if i.Clock != nil {
		return i.Clock()
	}
	return time.Now()
}

func (i *Interpreter) warn(msg string, fields ...zap.Field) {
	if i.Logger != nil {
		i.Logger.Warn(msg, fields...)
	}
}

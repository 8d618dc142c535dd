// Package validate enforces the minimum address identification rule before a
// query may reach the property-data provider.
package validate

import (
	"errors"
	"strings"

	"github.com/mattcoley/propertydetails/internal/core"
)

// MessageInsufficientAddress is returned to callers whose parameters cannot
// identify a property.
const MessageInsufficientAddress = "Either address and zipcode, or address, city, and state are required"

// ErrInsufficientAddress reports a query missing both address+zipcode and
// address+city+state.
var ErrInsufficientAddress = errors.New(MessageInsufficientAddress)

// Params is the read side of an inbound parameter set. url.Values satisfies it.
type Params interface {
	Get(key string) string
}

// Query builds an AddressQuery from raw parameters. Values are trimmed;
// blank values count as missing. Unit is passed through unchecked.
func Query(params Params) (core.AddressQuery, error) {
	if params == nil {
		return core.AddressQuery{}, ErrInsufficientAddress
	}

	q := core.AddressQuery{
		Address: strings.TrimSpace(params.Get("address")),
		City:    strings.TrimSpace(params.Get("city")),
		State:   strings.TrimSpace(params.Get("state")),
		Zipcode: strings.TrimSpace(params.Get("zipcode")),
		Unit:    strings.TrimSpace(params.Get("unit")),
	}

	if !Identifiable(q) {
		return core.AddressQuery{}, ErrInsufficientAddress
	}
	return q, nil
}

// Identifiable reports whether q satisfies
// (address and zipcode) or (address and city and state).
func Identifiable(q core.AddressQuery) bool {
	if q.Address == "" {
		return false
	}
	return q.Zipcode != "" || (q.City != "" && q.State != "")
}

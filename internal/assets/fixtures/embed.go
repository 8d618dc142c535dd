package fixtures

import _ "embed"

// MockedPropertyDetails is a recorded provider reply for a single-family home
// on a septic system. Mock mode serves it with status 200.
//
//go:embed mocked_response.json
var MockedPropertyDetails []byte

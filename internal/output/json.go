package output

import "encoding/json"

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatLookup renders a lookup result as JSON.
func (f *JSONFormatter) FormatLookup(result *LookupResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return marshal(result, f.Indent)
}

// FormatGate renders gate state as JSON.
func (f *JSONFormatter) FormatGate(status *GateStatus) (string, error) {
	if status == nil {
		return "", nil
	}
	return marshal(status, f.Indent)
}

func marshal(v any, indent bool) (string, error) {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

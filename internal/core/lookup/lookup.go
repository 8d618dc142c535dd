// Package lookup walks decoded JSON documents by key path.
package lookup

// Path follows keys through nested objects in doc and returns the value at
// the end of the path. A missing key, a nil value, or a non-object
// intermediate yields (nil, false). An empty key list returns doc itself.
func Path(doc any, keys ...string) (any, bool) {
	current := doc
	for _, key := range keys {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := object[key]
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// String returns the string at the path, if the path resolves to one.
func String(doc any, keys ...string) (string, bool) {
	value, ok := Path(doc, keys...)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

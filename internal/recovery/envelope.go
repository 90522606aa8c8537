package recovery

// Unwrap returns the text carried in the generation service envelope
// {"result": "..."}. The envelope can be cut off along with the text inside it, so it
// goes through Repair first. A body that is not an envelope is returned unchanged.
func Unwrap(body string) string {
	candidate := Repair(body)
	if !Valid(candidate) {
		return body
	}
	obj, ok := decodeObject(candidate)
	if !ok {
		return body
	}
	result, ok := obj["result"].(string)
	if !ok {
		return body
	}
	return result
}

package provider

import "encoding/json"

// secretKeys are JSON fields whose values must never be persisted in
// payload snapshots.
var secretKeys = map[string]bool{
	"api_key":        true,
	"api_secret":     true,
	"access_token":   true,
	"authorization":  true,
	"account_number": true,
}

// Redact replaces secret field values in a JSON payload before it is
// stored in a transfer snapshot. A payload that is not valid JSON is
// dropped entirely rather than risking a leak.
func Redact(payload []byte) []byte {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return []byte(`{"redacted":"unparseable payload"}`)
	}
	redacted, err := json.Marshal(redactValue(doc))
	if err != nil {
		return []byte(`{"redacted":"unparseable payload"}`)
	}
	return redacted
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if secretKeys[k] {
				t[k] = "[REDACTED]"
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = redactValue(val)
		}
		return t
	default:
		return v
	}
}

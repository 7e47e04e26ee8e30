package wire

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID is an identifier that may arrive as a JSON string, a JSON number or
// null. It always marshals as a string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as a string.
func (id ID) String() string {
	return string(id)
}

// invalidHandles are literals that leak into stored handles when a null
// is stringified on the way through another system.
var invalidHandles = map[string]struct{}{
	"":          {},
	"null":      {},
	"undefined": {},
}

// SanitizeHandle returns "" for missing or stringified-null handles and
// the trimmed handle otherwise.
func SanitizeHandle(h string) string {
	h = strings.TrimSpace(h)
	if _, bad := invalidHandles[h]; bad {
		return ""
	}
	return h
}

package util

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// objectComma matches commas separating top-level objects, which some
// hand-written JSONL fragments carry.
var objectComma = regexp.MustCompile(`\}\s*,\s*\{`)

// IsKeyed reports whether the document already has the {"<key>":[...]} shape.
func IsKeyed(data []byte, key string) bool {
	re := regexp.MustCompile(`^\s*\{\s*"` + regexp.QuoteMeta(key) + `"\s*:\s*\[`)
	return re.Match(data)
}

// IsStreamsKeyed reports whether the document already has the
// {"streams":[...]} shape.
func IsStreamsKeyed(data []byte) bool {
	return IsKeyed(data, "streams")
}

// JSONLToKeyed converts a JSONL document (one JSON object per line, stray
// commas, blank lines and surrounding brackets tolerated) into a single JSON
// object holding the concatenated objects under the given key:
//
//	{...}\n{...}  ->  {"key":[{...},{...}]}
//
// Malformed input is returned unchanged so the caller's validation reports
// the error on the original document.
func JSONLToKeyed(data []byte, key string) []byte {
	if IsKeyed(data, key) {
		return data
	}
	trimmed := bytes.Trim(bytes.TrimSpace(data), "[]")
	trimmed = objectComma.ReplaceAll(trimmed, []byte("}\n{"))

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var objects []json.RawMessage
	for dec.More() {
		var obj json.RawMessage
		if err := dec.Decode(&obj); err != nil {
			return data
		}
		objects = append(objects, obj)
	}
	if len(objects) == 0 {
		return data
	}

	out, err := json.Marshal(map[string][]json.RawMessage{key: objects})
	if err != nil {
		return data
	}
	return out
}

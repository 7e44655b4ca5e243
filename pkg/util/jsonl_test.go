package util

import (
	"encoding/json"
	"testing"
)

// ============================================================================
// JSONL Normalization Tests
// ============================================================================

func decodeStreams(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var doc struct {
		Streams []map[string]interface{} `json:"streams"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal normalized document: %v", err)
	}
	return doc.Streams
}

func TestJSONLToKeyed_TwoObjects(t *testing.T) {
	in := []byte("{\"src\":\"X\",\"dst\":\"Y\"}\n{\"src\":\"Y\",\"dst\":\"X\"}")
	streams := decodeStreams(t, JSONLToKeyed(in, "streams"))
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}
	if streams[0]["src"] != "X" || streams[1]["src"] != "Y" {
		t.Errorf("stream order not preserved: %v", streams)
	}
}

func TestJSONLToKeyed_AlreadyKeyed(t *testing.T) {
	in := []byte(`{"streams":[{"src":"X","dst":"Y"}]}`)
	out := JSONLToKeyed(in, "streams")
	if string(out) != string(in) {
		t.Errorf("keyed input should pass through unchanged, got %s", out)
	}
}

func TestJSONLToKeyed_CommaSeparated(t *testing.T) {
	in := []byte("{\"a\":1},\n{\"a\":2}")
	streams := decodeStreams(t, JSONLToKeyed(in, "streams"))
	if len(streams) != 2 {
		t.Fatalf("got %d objects, want 2", len(streams))
	}
}

func TestJSONLToKeyed_BracketWrapped(t *testing.T) {
	in := []byte("[{\"a\":1},{\"a\":2}]")
	streams := decodeStreams(t, JSONLToKeyed(in, "streams"))
	if len(streams) != 2 {
		t.Fatalf("got %d objects, want 2", len(streams))
	}
}

func TestJSONLToKeyed_Malformed(t *testing.T) {
	in := []byte("{broken")
	if string(JSONLToKeyed(in, "streams")) != string(in) {
		t.Error("malformed input should be returned unchanged")
	}
}

func TestIsStreamsKeyed(t *testing.T) {
	if !IsStreamsKeyed([]byte(`  { "streams": [ ] }`)) {
		t.Error("expected keyed detection with whitespace")
	}
	if IsStreamsKeyed([]byte(`{"flows":[]}`)) {
		t.Error("flows document should not be detected as streams")
	}
}

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/oplik0/scht-lab/pkg/stream"
	"github.com/oplik0/scht-lab/pkg/topo"
)

func f(v float64) *float64 { return &v }

// ============================================================================
// Formatting Helper Tests
// ============================================================================

func TestFormatRequirements(t *testing.T) {
	if got := formatRequirements(nil); got != "-" {
		t.Errorf("nil requirements = %q, want -", got)
	}
	r := &stream.Requirements{Delay: f(30), Loss: f(0.02), Bandwidth: f(100)}
	got := formatRequirements(r)
	for _, want := range []string{"delay<=30", "loss<=0.02", "bw>=100"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatRequirements = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "jitter") {
		t.Errorf("unset jitter should not be shown: %q", got)
	}
}

func TestFormatPriorities(t *testing.T) {
	if got := formatPriorities(&stream.Priorities{}); got != "-" {
		t.Errorf("empty priorities = %q, want -", got)
	}
	p := &stream.Priorities{Delay: f(2), Congestion: f(1)}
	got := formatPriorities(p)
	if !strings.Contains(got, "delay=2") || !strings.Contains(got, "congestion=1") {
		t.Errorf("formatPriorities = %q", got)
	}
}

func TestFormatTyped(t *testing.T) {
	entry := map[string]interface{}{"type": "IPV4_DST", "ip": "10.0.0.1/32"}
	if got := formatTyped(entry); got != "IPV4_DST: ip=10.0.0.1/32" {
		t.Errorf("formatTyped = %q", got)
	}
}

func TestNestedList(t *testing.T) {
	f := map[string]interface{}{
		"selector": map[string]interface{}{
			"criteria": []interface{}{
				map[string]interface{}{"type": "ETH_TYPE", "ethType": "0x800"},
			},
		},
	}
	got := nestedList(f, "selector", "criteria")
	if len(got) != 1 || got[0]["type"] != "ETH_TYPE" {
		t.Errorf("nestedList = %v", got)
	}
	if got := nestedList(f, "treatment", "instructions"); len(got) != 0 {
		t.Errorf("missing sections should yield empty list, got %v", got)
	}
}

// ============================================================================
// Graphviz Export Tests
// ============================================================================

func TestTopoDot(t *testing.T) {
	tp, err := topo.Load(context.Background(), []byte(`{
	  "X": {"population": 1000, "neighbors": {"Y": 200}},
	  "Y": {"population": 1000, "neighbors": {"X": 200}}
	}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	dot := topoDot(tp, "circo")
	for _, want := range []string{"graph topology {", "layout=circo;", `"X" -- "Y" [label="200 km"];`} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}

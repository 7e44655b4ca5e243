package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// ============================================================================
// Event Tests
// ============================================================================

func TestNewEvent(t *testing.T) {
	e := NewEvent("karaf", "http://mininet:8181", OpPlan)
	if e.ID == "" || len(e.ID) != 16 {
		t.Errorf("ID = %q, want 16 hex chars", e.ID)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if e.Operation != "paths.plan" {
		t.Errorf("operation = %q", e.Operation)
	}
}

func TestEvent_Complete(t *testing.T) {
	e := NewEvent("u", "h", OpInstall).WithFlowCount(4).Complete(nil)
	if !e.Success || e.Error != "" {
		t.Errorf("event = %+v, want success", e)
	}
	e = NewEvent("u", "h", OpInstall).Complete(fmt.Errorf("controller unreachable"))
	if e.Success || e.Error != "controller unreachable" {
		t.Errorf("event = %+v, want failure recorded", e)
	}
}

// ============================================================================
// FileLogger Tests
// ============================================================================

func TestFileLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := NewFileLogger(path, RotationConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	for i := 0; i < 3; i++ {
		ev := NewEvent("karaf", "host", OpPlan).WithStreams([]StreamOutcome{
			{Src: "X", Dst: "Y", Type: "TCP", Rate: 10, Routed: true, Path: []string{"X", "Y"}},
		}).Complete(nil)
		if err := l.Log(ev); err != nil {
			t.Fatal(err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Errorf("line %d not valid JSON: %v", lines, err)
		}
		if len(ev.Streams) != 1 || !ev.Streams[0].Routed {
			t.Errorf("line %d streams = %+v", lines, ev.Streams)
		}
	}
	if lines != 3 {
		t.Errorf("got %d lines, want 3", lines)
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := NewFileLogger(path, RotationConfig{MaxSize: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// Every write after the first exceeds the 1-byte bound and rotates.
	for i := 0; i < 4; i++ {
		if err := l.Log(NewEvent("u", "h", OpPlan).Complete(nil)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Error("first backup missing")
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Error("second backup missing")
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond MaxBackups should be dropped")
	}
}

func TestDefaultLogger_NilIsNoop(t *testing.T) {
	SetDefaultLogger(nil)
	// Must not panic.
	Log(NewEvent("u", "h", OpPlan).Complete(nil))
}

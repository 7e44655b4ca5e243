package onos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/oplik0/scht-lab/pkg/flow"
)

func testFlow() flow.Flow {
	return flow.Flow{
		DeviceID:    "of:0000000000000001",
		Priority:    flow.TransitPriority,
		IsPermanent: true,
		Selector: flow.Selector{Criteria: []flow.Criterion{
			{Type: "ETH_TYPE", EthType: "0x800"},
			{Type: "IPV4_DST", IP: "10.0.0.2/32"},
		}},
		Treatment: flow.Treatment{Instructions: []flow.Instruction{{Type: "OUTPUT", Port: "2"}}},
	}
}

// ============================================================================
// SendFlows Tests
// ============================================================================

func TestSendFlows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/onos/v1/flows" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("appId") != "scht_lab" {
			t.Errorf("appId = %s", r.URL.Query().Get("appId"))
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "karaf" || pass != "karaf" {
			t.Error("basic auth not sent")
		}
		body, _ := io.ReadAll(r.Body)
		var doc flow.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			t.Errorf("body not a flow document: %v", err)
		}
		if len(doc.Flows) != 1 {
			t.Errorf("got %d flows in batch", len(doc.Flows))
		}
		fmt.Fprint(w, `{"flows":[{"id":"1"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "karaf", "karaf", 0)
	resp, err := c.SendFlows(context.Background(), []flow.Flow{testFlow()})
	if err != nil {
		t.Fatalf("SendFlows: %v", err)
	}
	parsed, ok := resp.(map[string]interface{})
	if !ok {
		t.Fatalf("response = %T, want parsed JSON object", resp)
	}
	if _, ok := parsed["flows"]; !ok {
		t.Error("parsed response missing flows key")
	}
}

func TestSendFlows_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "<html>denied</html>")
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", "creds", 0)
	resp, err := c.SendFlows(context.Background(), []flow.Flow{testFlow()})
	if err != nil {
		t.Fatalf("SendFlows: %v", err)
	}
	status, ok := resp.(string)
	if !ok || !strings.Contains(status, "401") {
		t.Errorf("response = %v, want the HTTP status string", resp)
	}
}

// ============================================================================
// ListFlows Tests
// ============================================================================

func TestListFlows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"flows":[{"deviceId":"of:0000000000000001"},{"deviceId":"of:0000000000000002"}]}`)
	}))
	defer srv.Close()

	flows, err := New(srv.URL, "karaf", "karaf", 0).ListFlows(context.Background())
	if err != nil {
		t.Fatalf("ListFlows: %v", err)
	}
	if len(flows) != 2 {
		t.Errorf("got %d flows", len(flows))
	}
}

func TestListFlows_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"flows":[]}`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "karaf", "karaf", 0).ListFlows(context.Background()); err == nil {
		t.Error("empty flows should be reported as an error")
	}
}

// ============================================================================
// ActivateDefaultApps Tests
// ============================================================================

func TestActivateDefaultApps(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/onos/v1/applications/org.onosproject.") ||
			!strings.HasSuffix(r.URL.Path, "/active") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	if err := New(srv.URL, "karaf", "karaf", 0).ActivateDefaultApps(context.Background()); err != nil {
		t.Fatalf("ActivateDefaultApps: %v", err)
	}
	if calls != 4 {
		t.Errorf("activated %d apps, want 4", calls)
	}
}

func TestActivateDefaultApps_Tolerates4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Already-active applications answer 4xx; that is not a failure.
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	if err := New(srv.URL, "karaf", "karaf", 0).ActivateDefaultApps(context.Background()); err != nil {
		t.Errorf("4xx must be tolerated, got %v", err)
	}
}

func TestActivateDefaultApps_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := New(srv.URL, "karaf", "karaf", 0).ActivateDefaultApps(context.Background()); err == nil {
		t.Error("5xx should surface as an error")
	}
}

// Package onos wraps the controller's northbound REST API: flow rule
// installation, flow listing, and prerequisite application activation.
package onos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oplik0/scht-lab/pkg/flow"
	"github.com/oplik0/scht-lab/pkg/util"
)

// AppID tags every installed rule so the controller attributes them to
// this tool.
const AppID = "scht_lab"

// DefaultApps are the controller applications flow forwarding depends on.
var DefaultApps = []string{
	"org.onosproject.openflow",
	"org.onosproject.proxyarp",
	"org.onosproject.lldpprovider",
	"org.onosproject.hostprovider",
}

// Client talks to one controller instance with basic-auth credentials.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
}

// New creates a client. A zero timeout selects the 30 s default.
func New(baseURL, user, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.user, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// SendFlows installs the rule set as one batch POST under the tool's
// application id. The response is returned for diagnostic display: the
// parsed JSON body when the controller sends one, the HTTP status line
// otherwise. Controller-side rejection is not an error here; the caller
// decides what to surface.
func (c *Client) SendFlows(ctx context.Context, flows []flow.Flow) (interface{}, error) {
	body, err := json.Marshal(flow.Document{Flows: flows})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/onos/v1/flows?appId="+AppID, body)
	if err != nil {
		return nil, fmt.Errorf("posting flows: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading flows response: %w", err)
	}
	var parsed interface{}
	if json.Unmarshal(data, &parsed) == nil {
		return parsed, nil
	}
	return resp.Status, nil
}

// ListFlows fetches the flows currently installed on the controller.
func (c *Client) ListFlows(ctx context.Context) ([]map[string]interface{}, error) {
	resp, err := c.do(ctx, http.MethodGet, "/onos/v1/flows", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching flows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("controller returned %s", resp.Status)
	}
	var doc struct {
		Flows []map[string]interface{} `json:"flows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding flows response: %w", err)
	}
	if len(doc.Flows) == 0 {
		return nil, fmt.Errorf("response contained no flows")
	}
	return doc.Flows, nil
}

// ActivateDefaultApps enables the controller applications rule forwarding
// needs. The four activations are dispatched concurrently and joined
// before return. 4xx responses are tolerated (already active); transport
// failures and 5xx responses are joined into one error.
func (c *Client) ActivateDefaultApps(ctx context.Context) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []string

	for _, app := range DefaultApps {
		wg.Add(1)
		go func(app string) {
			defer wg.Done()
			resp, err := c.do(ctx, http.MethodPost, "/onos/v1/applications/"+app+"/active", nil)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", app, err))
				mu.Unlock()
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode >= 500 {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %s", app, resp.Status))
				mu.Unlock()
				return
			}
			util.WithField("app", app).Debug("activated")
		}(app)
	}
	wg.Wait()

	if len(failures) > 0 {
		return fmt.Errorf("activating applications: %s", strings.Join(failures, "; "))
	}
	return nil
}

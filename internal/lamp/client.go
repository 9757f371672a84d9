package lamp

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"
)

// Client talks to the lamp firmware over plain HTTP. The hostname is
// re-resolved on every call because the lamp advertises an mDNS name
// whose address can change across reboots.
type Client struct {
	Host    string
	Port    int
	Timeout time.Duration

	httpc *fasthttp.Client
}

// NewClient returns a client for the lamp at host:port. A zero timeout
// defaults to 4 seconds.
func NewClient(host string, port int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Client{
		Host:    host,
		Port:    port,
		Timeout: timeout,
		httpc:   &fasthttp.Client{},
	}
}

// resolveHost resolves host to a dotted IPv4 address, falling back to
// the name itself when resolution fails.
func resolveHost(host string) string {
	addrs, err := net.LookupIP(host)
	if err != nil {
		return host
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return v4.String()
		}
	}
	return host
}

func (c *Client) baseURL() string {
	return fmt.Sprintf("http://%s:%d", resolveHost(c.Host), c.Port)
}

// GetStatus fetches the lamp's current state snapshot.
func (c *Client) GetStatus() (Status, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL() + "/status")
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.httpc.DoTimeout(req, resp, c.Timeout); err != nil {
		return Status{}, fmt.Errorf("lamp status: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return Status{}, fmt.Errorf("lamp status: HTTP %d", resp.StatusCode())
	}

	var st Status
	if err := json.Unmarshal(resp.Body(), &st); err != nil {
		return Status{}, fmt.Errorf("lamp status: %w", err)
	}
	return st, nil
}

type applyRequest struct {
	TS      int64    `json:"ts"`
	Source  string   `json:"source"`
	Note    string   `json:"note"`
	Actions []Action `json:"actions"`
}

// ApplyActions pushes an ordered action list to the lamp.
func (c *Client) ApplyActions(actions []Action, source, note string, ts int64) error {
	if ts == 0 {
		ts = time.Now().Unix()
	}
	body, err := json.Marshal(applyRequest{TS: ts, Source: source, Note: note, Actions: actions})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL() + "/applyPreset")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := c.httpc.DoTimeout(req, resp, c.Timeout); err != nil {
		return fmt.Errorf("lamp apply: %w", err)
	}
	if code := resp.StatusCode(); code >= 300 {
		return fmt.Errorf("lamp apply: HTTP %d", code)
	}
	return nil
}

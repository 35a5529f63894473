// Package fortigate talks to the FortiOS REST API to manage firewall address
// objects and address groups.
package fortigate

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fortiban/fortiban/internal/logger"
	"github.com/fortiban/fortiban/internal/version"
)

const (
	addressPath      = "/api/v2/cmdb/firewall/address"
	addressGroupPath = "/api/v2/cmdb/firewall/addrgrp/"
	statusPath       = "/api/v2/monitor/system/status"
)

var (
	// ErrAmbiguousGroup is returned when the API reports more than one result for a group name.
	ErrAmbiguousGroup = errors.New("address group lookup returned more than one result")
	// ErrGroupNotFound is returned when the API reports no result for a group name.
	ErrGroupNotFound = errors.New("address group not found")
)

// Test hook to allow overriding JSON encoding.
var jsonMarshalClient = json.Marshal

// APIError is a non-2xx answer from the firewall.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Member references an address object inside an address group.
type Member struct {
	Name string `json:"name"`
}

// AddressObject is a named single-host subnet.
type AddressObject struct {
	Name    string `json:"name"`
	Subnet  string `json:"subnet"`
	Comment string `json:"comment"`
}

type addressGroup struct {
	Name   string   `json:"name"`
	Member []Member `json:"member"`
}

type addressGroupResponse struct {
	Results []addressGroup `json:"results"`
}

// Options configure a Client.
type Options struct {
	Host          string
	VDOM          string
	AccessToken   string
	SkipTLSVerify bool
	// Zero means no deadline on outbound calls.
	Timeout time.Duration
}

// Client wraps the FortiOS configuration API.
type Client struct {
	baseURL    string
	vdom       string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a client for the firewall at opts.Host. A host without a
// scheme is reached over https.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.Host, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // firewalls ship self-signed certificates
	}

	return &Client{
		baseURL:    base,
		vdom:       opts.VDOM,
		token:      opts.AccessToken,
		httpClient: &http.Client{Transport: transport, Timeout: opts.Timeout},
		now:        time.Now,
	}
}

// GetAddressGroupMembers returns the current members of group, in firewall order.
func (c *Client) GetAddressGroupMembers(ctx context.Context, group string) ([]Member, error) {
	resp, err := c.do(ctx, http.MethodGet, addressGroupPath+url.PathEscape(group), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var body addressGroupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch len(body.Results) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	case 1:
		return body.Results[0].Member, nil
	default:
		return nil, fmt.Errorf("%w: %s (%d results)", ErrAmbiguousGroup, group, len(body.Results))
	}
}

// CreateAddress creates an address object. The firewall answers 500 when the
// object already exists; any HTTP answer counts as success so repeated bans of
// the same address are harmless. Only transport failures are returned.
func (c *Client) CreateAddress(ctx context.Context, name, subnet string) error {
	obj := AddressObject{
		Name:    name,
		Subnet:  subnet,
		Comment: "Added: " + c.now().Format("2006-Jan-02 15:04"),
	}

	resp, err := c.do(ctx, http.MethodPost, addressPath, obj)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	entry := logger.WithFields(map[string]interface{}{
		"address": name,
		"subnet":  subnet,
		"status":  resp.StatusCode,
	})
	if resp.StatusCode/100 != 2 {
		entry.Info("address object not created, assuming it already exists")
	} else {
		entry.Debug("address object created")
	}
	return nil
}

// ReplaceAddressGroupMembers overwrites the group membership with current
// followed by newMember. Duplicates are sent as-is.
func (c *Client) ReplaceAddressGroupMembers(ctx context.Context, group string, current []Member, newMember string) error {
	members := make([]Member, 0, len(current)+1)
	for _, m := range current {
		members = append(members, Member{Name: m.Name})
	}
	members = append(members, Member{Name: newMember})

	resp, err := c.do(ctx, http.MethodPut, addressGroupPath+url.PathEscape(group), map[string][]Member{"member": members})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// Ping checks that the API answers and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, statusPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := jsonMarshalClient(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.vdom != "" {
		q := req.URL.Query()
		q.Set("vdom", c.vdom)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{
		Method:     resp.Request.Method,
		Path:       resp.Request.URL.Path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
	}
}

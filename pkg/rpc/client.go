package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"darksight/pkg/state"
	"darksight/pkg/witness"
)

// Client calls a witness service over JSON-RPC
type Client struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient creates a client for the service at url
func NewClient(url string) *Client {
	return &Client{url: url, httpClient: http.DefaultClient}
}

// Call invokes method with params and decodes the result into result. A
// JSON-RPC error is returned as *JSONRPCError.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to call %s: http status %d", method, resp.StatusCode)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *JSONRPCError   `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return out.Error
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(out.Result, result)
}

// Root returns the service's current root
func (c *Client) Root(ctx context.Context) (*RootResult, error) {
	var res RootResult
	if err := c.Call(ctx, "witness_getRoot", []interface{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Build requests a deposit witness
func (c *Client) Build(ctx context.Context, params BuildParams) (*witness.Record, error) {
	var res struct {
		Record *witness.Record `json:"record"`
	}
	if err := c.Call(ctx, "witness_build", []BuildParams{params}, &res); err != nil {
		return nil, err
	}
	return res.Record, nil
}

// Verify asks the service to check a path
func (c *Client) Verify(ctx context.Context, params VerifyParams) (bool, error) {
	var res map[string]bool
	if err := c.Call(ctx, "witness_verify", []VerifyParams{params}, &res); err != nil {
		return false, err
	}
	return res["valid"], nil
}

// ApplyLeaf forwards one log entry
func (c *Client) ApplyLeaf(ctx context.Context, entry state.LogEntry) (*RootResult, error) {
	var res RootResult
	if err := c.Call(ctx, "witness_applyLeaf", []state.LogEntry{entry}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

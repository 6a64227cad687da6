package client

import (
	"context"
	"encoding/json"
	"net/http"

	"goldrush.bot/internal/protocol"
)

// call runs a logical request and resolves the body once: a 200 decodes
// into out, anything else becomes a *protocol.ServerError so roles can
// switch on the domain code.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	body, status, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		// The service can carry a domain rejection inside a 2xx body.
		se := &protocol.ServerError{}
		if err := json.Unmarshal(body, se); err == nil && se.Code != 0 && se.Message != "" {
			return se
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &protocol.ServerError{Code: status, Message: "malformed body: " + err.Error()}
		}
		return nil
	}
	se := &protocol.ServerError{}
	if err := json.Unmarshal(body, se); err != nil || se.Code == 0 {
		se.Code = status
		se.Message = string(body)
	}
	return se
}

// Explore probes a single cell and reports the treasure left in it.
func (c *Client) Explore(ctx context.Context, x, y int) (int, error) {
	req := protocol.ExploreRequest{PosX: x, PosY: y, SizeX: 1, SizeY: 1}
	var rep protocol.ExploreReport
	if err := c.call(ctx, http.MethodPost, "/explore", req, &rep); err != nil {
		return 0, err
	}
	return rep.Amount, nil
}

// Licenses lists the account's licenses, exhausted ones included.
func (c *Client) Licenses(ctx context.Context) ([]protocol.License, error) {
	var out []protocol.License
	if err := c.call(ctx, http.MethodGet, "/licenses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IssueLicense buys a license. An empty coin list requests a free one.
func (c *Client) IssueLicense(ctx context.Context, coins []protocol.Coin) (protocol.License, error) {
	if coins == nil {
		coins = []protocol.Coin{}
	}
	var out protocol.License
	if err := c.call(ctx, http.MethodPost, "/licenses", coins, &out); err != nil {
		return protocol.License{}, err
	}
	return out, nil
}

// Dig performs one extraction step at a cell.
func (c *Client) Dig(ctx context.Context, licenseID, x, y, depth int) ([]protocol.Treasure, error) {
	req := protocol.DigRequest{LicenseID: licenseID, PosX: x, PosY: y, Depth: depth}
	var out []protocol.Treasure
	if err := c.call(ctx, http.MethodPost, "/dig", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cash exchanges one treasure for coins.
func (c *Client) Cash(ctx context.Context, treasure protocol.Treasure) ([]protocol.Coin, error) {
	var out []protocol.Coin
	if err := c.call(ctx, http.MethodPost, "/cash", treasure, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Balance fetches the authoritative account snapshot.
func (c *Client) Balance(ctx context.Context) (protocol.Balance, error) {
	var out protocol.Balance
	if err := c.call(ctx, http.MethodGet, "/balance", nil, &out); err != nil {
		return protocol.Balance{}, err
	}
	return out, nil
}

// HealthCheck probes the service once, outside the retry loop.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	return c.healthOnce(ctx)
}

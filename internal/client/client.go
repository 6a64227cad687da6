// Package client is the resilient HTTP layer every role goes through.
// It owns retry policy: transport failures and 5xx responses are retried
// up to a bounded budget with a health-gated backoff, while in-band
// {code, message} rejections are returned to the caller untouched.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"goldrush.bot/internal/protocol"
)

type Options struct {
	// RetryBudget bounds attempts for one logical call.
	RetryBudget int
	// Backoff is slept when the health probe fails or reports non-200.
	Backoff time.Duration
	// HealthProbes caps health-check attempts per recovery round; the
	// probe itself can fail and must not stall the retry loop forever.
	HealthProbes int
}

func defaultOptions() Options {
	return Options{RetryBudget: 1000, Backoff: 100 * time.Millisecond, HealthProbes: 3}
}

type Client struct {
	base string
	hc   *http.Client
	log  *log.Logger
	opts Options

	requests atomic.Uint64
}

func New(baseURL string, logger *log.Logger, opts Options) *Client {
	def := defaultOptions()
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = def.RetryBudget
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}
	if opts.HealthProbes <= 0 {
		opts.HealthProbes = def.HealthProbes
	}
	return &Client{
		base: baseURL,
		hc:   &http.Client{Timeout: 10 * time.Second},
		log:  logger,
		opts: opts,
	}
}

// Requests is the process-wide logical call count, for the exit report.
func (c *Client) Requests() uint64 { return c.requests.Load() }

// do runs one logical call. It retries transport errors and transient
// statuses until the budget runs out; anything else is returned as-is.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	c.requests.Add(1)

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal %s: %w", path, err)
		}
		body = b
	}

	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt < c.opts.RetryBudget; attempt++ {
		if attempt > 0 {
			if err := c.recover(ctx, path, lastStatus, lastErr); err != nil {
				return nil, lastStatus, err
			}
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
		if err != nil {
			return nil, 0, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = err
			lastStatus = 0
			continue
		}
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			lastStatus = 0
			continue
		}
		if protocol.Transient(resp.StatusCode) {
			lastErr = nil
			lastStatus = resp.StatusCode
			continue
		}
		return b, resp.StatusCode, nil
	}

	if lastErr != nil {
		return nil, lastStatus, fmt.Errorf("%s: retry budget spent: %w", path, lastErr)
	}
	return nil, lastStatus, fmt.Errorf("%s: retry budget spent: last status %d", path, lastStatus)
}

// recover gates the next attempt on the service's health endpoint. A
// healthy report lets the retry proceed immediately; otherwise sleep the
// backoff before trying again.
func (c *Client) recover(ctx context.Context, path string, status int, cause error) error {
	if cause != nil {
		c.log.Printf("client: %s failed (%v); probing health", path, cause)
	} else {
		c.log.Printf("client: %s returned %d; probing health", path, status)
	}
	for i := 0; i < c.opts.HealthProbes; i++ {
		ok, err := c.healthOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Printf("client: health check failed: %v", err)
		} else if ok {
			return nil
		}
		if err := sleep(ctx, c.opts.Backoff); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) healthOnce(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health-check", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

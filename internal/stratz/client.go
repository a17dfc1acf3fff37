// Package stratz is the client for the upstream GraphQL statistics API:
// one shared request-spacing limiter, a bounded retry budget with
// exponential backoff, and transparent failover across a forward-proxy
// pool when an endpoint gets blocked.
package stratz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
	"golang.org/x/time/rate"

	"dota-tracker/internal/config"
	"dota-tracker/internal/constants"
)

type Client struct {
	apiURL  string
	token   string
	limiter *rate.Limiter
	pool    *ProxyPool
	logger  zerolog.Logger

	mu          sync.Mutex
	httpClients map[string]*fasthttp.Client

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg *config.Config, pool *ProxyPool, logger zerolog.Logger) *Client {
	return &Client{
		apiURL:      cfg.APIURL,
		token:       cfg.StratzToken,
		limiter:     rate.NewLimiter(rate.Every(constants.RequestSpacing), 1),
		pool:        pool,
		logger:      logger.With().Str("component", "stratz").Logger(),
		httpClients: make(map[string]*fasthttp.Client),
		sleep:       sleepCtx,
	}
}

// query runs one GraphQL document and decodes the data payload into out.
// Transport failures and block pages rotate the proxy pool without
// consuming the retry budget; ordinary failures burn budget with
// 2^attempt-second backoff; 429 waits a fixed cooldown; 401 is fatal.
func (c *Client) query(ctx context.Context, document string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: document, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var attempt, failovers, rateWaits int
	var lastErr error
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		endpoint := c.pool.Next()
		start := time.Now()
		status, respBody, retryAfter, err := c.do(ctx, endpoint, body)
		elapsed := time.Since(start)

		callLog := c.logger.With().
			Str("endpoint", endpointLabel(endpoint)).
			Int("status", status).
			Dur("duration", elapsed).
			Int("attempt", attempt).
			Logger()

		if isTransport(status, respBody, err) {
			if err == nil {
				err = fmt.Errorf("blocked response (status %d)", status)
			}
			lastErr = &TransportError{Endpoint: endpoint, Err: err}
			callLog.Warn().Err(err).Msg("transport failure, rotating endpoint")
			c.pool.MarkBad(endpoint)
			failovers++
			if failovers > constants.MaxFailovers {
				return lastErr
			}
			continue
		}

		switch {
		case status == fasthttp.StatusUnauthorized:
			callLog.Error().Msg("credentials rejected")
			return &AuthError{Status: status}

		case status == fasthttp.StatusTooManyRequests:
			rateWaits++
			if rateWaits > constants.MaxRetries {
				return &RateLimitError{Waits: rateWaits - 1}
			}
			wait := rateLimitWait(retryAfter)
			callLog.Warn().Dur("wait", wait).Msg("rate limited, cooling down")
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue

		case status == fasthttp.StatusNotFound:
			callLog.Debug().Msg("no data")
			return ErrNotFound

		case status != fasthttp.StatusOK:
			lastErr = fmt.Errorf("unexpected status %d", status)

		default:
			var envelope graphQLResponse
			if err := json.Unmarshal(respBody, &envelope); err != nil {
				lastErr = fmt.Errorf("decode response: %w", err)
				break
			}
			if len(envelope.Errors) > 0 {
				msgs := make([]string, len(envelope.Errors))
				for i, e := range envelope.Errors {
					msgs[i] = e.Message
				}
				callLog.Warn().Strs("errors", msgs).Msg("query returned field errors")
				return &QueryError{Messages: msgs}
			}
			if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
				callLog.Debug().Msg("empty data payload")
				return ErrNotFound
			}
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return fmt.Errorf("decode data payload: %w", err)
			}
			callLog.Debug().Msg("query ok")
			return nil
		}

		attempt++
		if attempt > constants.MaxRetries {
			callLog.Error().Err(lastErr).Msg("retry budget exhausted")
			return fmt.Errorf("query failed after %d attempts: %w", attempt, lastErr)
		}
		backoff := time.Duration(1<<attempt) * time.Second
		callLog.Warn().Err(lastErr).Dur("backoff", backoff).Msg("retrying")
		if err := c.sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

// do performs one HTTP exchange through the given proxy ("" = direct).
func (c *Client) do(ctx context.Context, proxyURL string, body []byte) (status int, respBody []byte, retryAfter string, err error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.apiURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.SetBody(body)

	deadline := time.Now().Add(constants.APICallTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.httpClient(proxyURL).DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, "", err
	}

	return resp.StatusCode(),
		append([]byte(nil), resp.Body()...),
		string(resp.Header.Peek(fasthttp.HeaderRetryAfter)),
		nil
}

// httpClient returns the client for an endpoint, building it on first use.
func (c *Client) httpClient(proxyURL string) *fasthttp.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hc, ok := c.httpClients[proxyURL]; ok {
		return hc
	}
	hc := &fasthttp.Client{
		ReadTimeout:         constants.APICallTimeout,
		WriteTimeout:        constants.APICallTimeout,
		MaxIdleConnDuration: time.Minute,
	}
	if proxyURL != "" {
		addr := strings.TrimPrefix(strings.TrimPrefix(proxyURL, "http://"), "https://")
		hc.Dial = fasthttpproxy.FasthttpHTTPDialerTimeout(addr, constants.APICallTimeout)
	}
	c.httpClients[proxyURL] = hc
	return hc
}

// isTransport classifies a call outcome as a transport-level failure:
// network errors, 403 from an edge block, or an HTML body where JSON was
// expected (a block page served with 200).
func isTransport(status int, body []byte, err error) bool {
	if err != nil {
		return true
	}
	if status == fasthttp.StatusForbidden {
		return true
	}
	return looksLikeHTML(body)
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func rateLimitWait(retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return constants.RateLimitCooldown
}

func endpointLabel(endpoint string) string {
	if endpoint == "" {
		return "direct"
	}
	return endpoint
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

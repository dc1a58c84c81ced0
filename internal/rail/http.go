package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// HTTP is a PaymentRail backed by a remote payments API. Transient failures
// (network errors, 5xx) are retried with exponential backoff; 4xx responses
// are permanent and surface immediately.
type HTTP struct {
	baseURL    string
	client     *http.Client
	logger     *zap.Logger
	maxTries   uint
	retryDelay time.Duration
}

// NewHTTP builds an HTTP rail against baseURL.
func NewHTTP(baseURL string, logger *zap.Logger) *HTTP {
	return &HTTP{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("rail"),
		maxTries:   3,
		retryDelay: 200 * time.Millisecond,
	}
}

type transferRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type reserveResponse struct {
	Reserve string `json:"reserve"`
}

func (h *HTTP) Collect(ctx context.Context, from string, amount *uint256.Int) error {
	return h.post(ctx, "/collect", transferRequest{Account: from, Amount: amount.Dec()})
}

func (h *HTTP) PayOut(ctx context.Context, to string, amount *uint256.Int) error {
	return h.post(ctx, "/payout", transferRequest{Account: to, Amount: amount.Dec()})
}

func (h *HTTP) Reserve(ctx context.Context) (*uint256.Int, error) {
	operation := func() (*uint256.Int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/reserve", nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, h.statusError(resp)
		}
		var body reserveResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode reserve response: %w", err))
		}
		reserve, err := uint256.FromDecimal(body.Reserve)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("parse reserve %q: %w", body.Reserve, err))
		}
		return reserve, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(h.policy()),
		backoff.WithMaxTries(h.maxTries),
		backoff.WithNotify(h.notify("reserve")))
}

func (h *HTTP) post(ctx context.Context, path string, payload transferRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rail request: %w", err)
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := h.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, h.statusError(resp)
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(h.policy()),
		backoff.WithMaxTries(h.maxTries),
		backoff.WithNotify(h.notify(path)))
	return err
}

// statusError classifies HTTP responses: 4xx will not succeed on retry.
func (h *HTTP) statusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("rail returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(err)
	}
	return err
}

func (h *HTTP) policy() *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = h.retryDelay
	policy.MaxInterval = h.retryDelay * 10
	return policy
}

func (h *HTTP) notify(op string) backoff.Notify {
	return func(err error, wait time.Duration) {
		h.logger.Warn("Retrying rail call",
			zap.String("op", op),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}
}

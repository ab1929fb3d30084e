// Package fallback talks to the external knowledge service that answers
// general financial questions the structured pipeline cannot. Every call is
// bounded by a timeout and every outbound payload passes through Sanitize.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/common/logger"
)

// Client is the external knowledge interface the orchestrator depends on.
type Client interface {
	// Ask sends a general question with an optional topic hint and returns
	// the service's plain-text answer.
	Ask(ctx context.Context, question, hint string) (string, error)

	// MarketSnapshot returns a short current-markets summary used by
	// advisory answers.
	MarketSnapshot(ctx context.Context) (string, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type askRequest struct {
	Question string `json:"question"`
	Hint     string `json:"hint,omitempty"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (c *HTTPClient) Ask(ctx context.Context, question, hint string) (string, error) {
	payload, err := json.Marshal(askRequest{Question: Sanitize(question), Hint: hint})
	if err != nil {
		return "", apperrors.NewFallbackFailedError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/answers", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewFallbackFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("External knowledge call timed out", map[string]interface{}{"hint": hint})
			return "", apperrors.NewFallbackTimeoutError()
		}
		return "", apperrors.NewFallbackFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewFallbackFailedError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewFallbackFailedError(err)
	}
	var parsed askResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.NewFallbackFailedError(err)
	}
	if parsed.Answer == "" {
		return "", apperrors.NewFallbackFailedError(fmt.Errorf("empty answer"))
	}
	return parsed.Answer, nil
}

type snapshotResponse struct {
	Summary string `json:"summary"`
}

func (c *HTTPClient) MarketSnapshot(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/markets/summary", nil)
	if err != nil {
		return "", apperrors.NewFallbackFailedError(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperrors.NewFallbackTimeoutError()
		}
		return "", apperrors.NewFallbackFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewFallbackFailedError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewFallbackFailedError(err)
	}
	return parsed.Summary, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

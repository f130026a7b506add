// Package nodeclient talks to the HTTP API of a delegate node.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"wallet/internal/models"
)

// DefaultPort is the port of the node API when the endpoint does not set one.
const DefaultPort = 1975

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMissingID        = errors.New("response has no transaction id")
	ErrMissingStatus    = errors.New("response has no status")
)

type Client struct {
	httpClient *http.Client
	port       int
	logger     *slog.Logger
}

// New creates a client. A zero timeout leaves requests bounded only by their context.
func New(port int, timeout time.Duration, logger *slog.Logger) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		port:       port,
		logger:     logger,
	}
}

func (c *Client) baseURL(node models.Node) string {
	port := node.Endpoint.Port
	if port == 0 {
		port = c.port
	}
	return "http://" + node.Endpoint.Host + ":" + strconv.Itoa(port)
}

// Submit posts a signed transaction once and returns the id assigned by the node.
func (c *Client) Submit(ctx context.Context, node models.Node, tx models.Transaction) (string, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}

	endpoint := c.baseURL(node) + "/v1/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp models.SubmitResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrMissingID
	}

	c.logger.Info("transaction submitted", "node", node.Address, "id", resp.ID, "to", tx.To, "value", tx.Value)
	return resp.ID, nil
}

// GetStatus queries the status of a submitted transaction.
func (c *Client) GetStatus(ctx context.Context, node models.Node, id string) (*models.StatusResponse, error) {
	endpoint := c.baseURL(node) + "/v1/transactions/" + url.PathEscape(id) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp models.StatusResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "" {
		return nil, ErrMissingStatus
	}

	c.logger.Debug("transaction status", "node", node.Address, "id", id, "status", resp.Status)
	return &resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("node request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

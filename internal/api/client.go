// Package api implements the client for the remote sales backend.
//
// The backend is consumed as a fixed boundary: JSON over HTTPS with
// bearer-token auth. Its payloads are inconsistent about envelope shapes and
// field casing, so every response passes through the tolerant decoding here
// and the alias normalization in normalize.go before the rest of the system
// sees it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// DefaultTimeout bounds the customer/area/upload requests. The product
// payload gets its own longer deadline from the sync orchestrator.
const DefaultTimeout = 30 * time.Second

// Client talks to the remote sales backend.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	log     *logrus.Entry
}

// New creates a Client for the given base URL and bearer token. timeout
// bounds each customer/area/upload request (0 means DefaultTimeout); the
// product fetch answers only to its caller's context, since the sync
// orchestrator owns that deadline. If logger is nil, the logrus standard
// logger is used.
func New(baseURL, token string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		// No http.Client.Timeout here: it caps every request no matter
		// what deadline the request context carries, which would starve
		// the long product fetch. Timeouts are per-request contexts.
		http: &http.Client{},
		log:  logger.WithField("component", "api"),
	}
}

// bound derives the per-request deadline for the small fetches.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// getJSON issues a GET and returns the raw body. Non-2xx responses become
// errors carrying the status and a body snippet.
func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api error %d on %s: %s", resp.StatusCode, path, bodySnippet(body))
	}
	return body, nil
}

// postJSON issues a POST with a JSON body. Any non-2xx is an error; callers
// treat that as a per-item failure, not a batch abort.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api error %d on %s: %s", resp.StatusCode, path, bodySnippet(body))
	}
	return nil
}

// GetCustomers fetches the debtor list. The endpoint has been observed to
// return a bare array, {data:[...]}, or {debtors:[...]}; all three decode.
func (c *Client) GetCustomers(ctx context.Context) ([]model.Customer, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	body, err := c.getJSON(ctx, "/debtors/get-debtors/")
	if err != nil {
		return nil, err
	}

	records, err := decodeRecordList(body, "data", "debtors")
	if err != nil {
		return nil, fmt.Errorf("unexpected customer response shape: %w", err)
	}

	customers := make([]model.Customer, 0, len(records))
	for _, rec := range records {
		cust := NormalizeCustomer(rec)
		if cust.Code == "" || cust.Name == "" {
			c.log.WithField("record", rec).Debug("skipping customer without code or name")
			continue
		}
		customers = append(customers, cust)
	}
	return customers, nil
}

// GetAreas fetches the area list. Returns an empty slice (not an error) when
// the server reports none; callers fall back to deriving areas from
// customers.
func (c *Client) GetAreas(ctx context.Context) ([]model.Area, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	body, err := c.getJSON(ctx, "/area/list/")
	if err != nil {
		return nil, err
	}

	// Either {success, areas:[...]} or a bare array of strings.
	var envelope struct {
		Areas []string `json:"areas"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Areas) > 0 {
		return areasFromStrings(envelope.Areas), nil
	}

	var bare []string
	if err := json.Unmarshal(body, &bare); err == nil {
		return areasFromStrings(bare), nil
	}

	c.log.Debug("area response matched no known shape, treating as empty")
	return []model.Area{}, nil
}

// GetProductDetails fetches the product catalog with embedded batches, photos
// and godowns, normalized into typed records. Products missing a code or name
// are discarded. The caller controls the deadline through ctx; this payload
// is the largest the backend serves.
func (c *Client) GetProductDetails(ctx context.Context) ([]model.ProductWithBatches, error) {
	body, err := c.getJSON(ctx, "/product/get-product-details")
	if err != nil {
		return nil, err
	}

	records, err := decodeRecordList(body, "data", "products")
	if err != nil {
		return nil, fmt.Errorf("unexpected product response shape: %w", err)
	}

	products := make([]model.ProductWithBatches, 0, len(records))
	dropped := 0
	for _, rec := range records {
		p := NormalizeProduct(rec)
		if p.Code == "" || p.Name == "" {
			dropped++
			continue
		}
		products = append(products, p)
	}
	if dropped > 0 {
		c.log.WithField("dropped", dropped).Warn("discarded products without code or name")
	}
	return products, nil
}

// SaveCollection uploads one offline collection.
func (c *Client) SaveCollection(ctx context.Context, col model.OfflineCollection) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.postJSON(ctx, "/collections/save/", col)
}

// SaveOrder uploads one offline order.
func (c *Client) SaveOrder(ctx context.Context, ord model.OfflineOrder) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.postJSON(ctx, "/orders/save/", ord)
}

// decodeRecordList decodes a list of loose records from a bare JSON array or
// from any of the given envelope keys, tried in order.
func decodeRecordList(body []byte, keys ...string) ([]Record, error) {
	var bare []Record
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("response is neither array nor object")
	}
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var records []Record
		if err := json.Unmarshal(raw, &records); err == nil {
			return records, nil
		}
	}
	return nil, fmt.Errorf("no known list key in response (tried %s)", strings.Join(keys, ", "))
}

func areasFromStrings(names []string) []model.Area {
	areas := make([]model.Area, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		areas = append(areas, model.Area{Name: n})
	}
	return areas
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

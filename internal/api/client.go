// Package api is the typed HTTP client for the receipt-tracking backend.
// Server JSON is parsed into core records here, at the boundary; nothing
// downstream touches raw response shapes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"scontrino/internal/core"
)

// CodeDuplicateReceipt is the backend's business-error code for a
// content-hash collision on upload.
const CodeDuplicateReceipt = "DUP_RECEIPT"

// Error is a server-reported failure: transport-level problems come back
// as plain wrapped errors, anything with an HTTP status lands here.
type Error struct {
	Status   int
	Code     string `json:"code"`
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// IsCode reports whether err is a server error with the given code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// AsError unwraps err into *Error when possible.
func AsError(err error, target **Error) bool {
	return errors.As(err, target)
}

// Config holds client configuration.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://receipts.example.net".
	BaseURL string
	// Token is the bearer token attached to every request.
	Token   string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults; BaseURL and Token still need
// to be filled in.
func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}

// Client talks to the backend API. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// checkStatus turns non-2xx responses into *Error, decoding the backend's
// {code, resource, message} body when present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	apiErr := &Error{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}
	return apiErr
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	p := path
	if len(query) > 0 {
		p += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, p, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s %s: encode request: %w", method, path, err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	return nil
}

// Page is the backend's pagination envelope. An empty Items slice signals
// that the collection is exhausted.
type Page[T any] struct {
	Items      []T `json:"items"`
	NextOffset int `json:"next_offset"`
}

// Paginated endpoint paths.
const (
	PathReceipts     = "/api/receipts/paginated"
	PathTransactions = "/api/transactions/paginated"
	PathVendors      = "/api/vendors/paginated"
	PathCategories   = "/api/categories/paginated"
)

// FetchPage issues one paginated GET with the given cursor position.
func FetchPage[T any](ctx context.Context, c *Client, path string, offset, limit int) (Page[T], error) {
	query := url.Values{}
	query.Set("offset", fmt.Sprint(offset))
	query.Set("limit", fmt.Sprint(limit))

	var page Page[T]
	if err := c.getJSON(ctx, path, query, &page); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

// Me fetches the signed-in user's info, normalizing config defaults.
func (c *Client) Me(ctx context.Context) (core.UserInfo, error) {
	var u core.UserInfo
	if err := c.getJSON(ctx, "/api/me", nil, &u); err != nil {
		return core.UserInfo{}, err
	}
	u.Config = u.Config.Normalize()
	return u, nil
}

// UploadReceipt posts one file as a multipart form (field "file") and
// returns the server-assigned receipt record.
func (c *Client) UploadReceipt(ctx context.Context, filename, contentType string, content io.Reader) (core.Receipt, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("upload %s: create form part: %w", filename, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return core.Receipt{}, fmt.Errorf("upload %s: read content: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return core.Receipt{}, fmt.Errorf("upload %s: finalize form: %w", filename, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/receipts", &buf)
	if err != nil {
		return core.Receipt{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return core.Receipt{}, fmt.Errorf("upload %s: %w", filename, err)
	}

	var receipt core.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return core.Receipt{}, fmt.Errorf("upload %s: decode response: %w", filename, err)
	}
	return receipt, nil
}

// CreateTransaction posts a new transaction (id sentinel -1).
func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var saved core.Transaction
	if err := c.sendJSON(ctx, http.MethodPost, "/api/transactions", t, &saved); err != nil {
		return core.Transaction{}, err
	}
	return saved, nil
}

// UpdateTransaction puts an edited transaction.
func (c *Client) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var saved core.Transaction
	path := fmt.Sprintf("/api/transactions/%d", t.ID)
	if err := c.sendJSON(ctx, http.MethodPut, path, t, &saved); err != nil {
		return core.Transaction{}, err
	}
	return saved, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/api/transactions/%d", id))
}

func (c *Client) DeleteReceipt(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/api/receipts/%d", id))
}

func (c *Client) DeleteVendor(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/api/vendors/%d", id))
}

func (c *Client) CreateVendor(ctx context.Context, v core.Vendor) (core.Vendor, error) {
	var saved core.Vendor
	if err := c.sendJSON(ctx, http.MethodPost, "/api/vendors", v, &saved); err != nil {
		return core.Vendor{}, err
	}
	return saved, nil
}

func (c *Client) UpdateVendor(ctx context.Context, v core.Vendor) (core.Vendor, error) {
	var saved core.Vendor
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/vendors/%d", v.ID), v, &saved); err != nil {
		return core.Vendor{}, err
	}
	return saved, nil
}

// MergeVendors folds every transaction of the source vendor into the
// target vendor, server side.
func (c *Client) MergeVendors(ctx context.Context, sourceID, targetID int64) error {
	payload := map[string]int64{"source_id": sourceID, "target_id": targetID}
	return c.sendJSON(ctx, http.MethodPost, "/api/vendors/merge", payload, nil)
}

func (c *Client) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	var saved core.Category
	if err := c.sendJSON(ctx, http.MethodPost, "/api/categories", cat, &saved); err != nil {
		return core.Category{}, err
	}
	return saved, nil
}

func (c *Client) UpdateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	var saved core.Category
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/categories/%d", cat.ID), cat, &saved); err != nil {
		return core.Category{}, err
	}
	return saved, nil
}

// ReportPage fetches one page of the expenses-by-category report.
// start/end are epoch seconds; tz is the local UTC offset in hours so the
// backend returns Y/M/D in local time.
func (c *Client) ReportPage(ctx context.Context, start, end int64, offset, tz int) (Page[core.ReportLineItem], error) {
	query := url.Values{}
	query.Set("start", fmt.Sprint(start))
	query.Set("end", fmt.Sprint(end))
	query.Set("offset", fmt.Sprint(offset))
	query.Set("tz", fmt.Sprint(tz))

	var page Page[core.ReportLineItem]
	if err := c.getJSON(ctx, "/api/reports/expenses-by-category/paginated", query, &page); err != nil {
		return Page[core.ReportLineItem]{}, err
	}
	return page, nil
}

// ReceiptImage fetches the rendered receipt image (or its thumbnail) as
// served by the backend's static paths. Returns the bytes and content type.
func (c *Client) ReceiptImage(ctx context.Context, id int64, thumb bool) ([]byte, string, error) {
	path := fmt.Sprintf("/%d.dr", id)
	if thumb {
		path = fmt.Sprintf("/%d-thumb.dr", id)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: read body: %w", path, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

package chemapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "chemviz-dashboard/chemapi"

// Client talks to the ChemViz backend. Every call is a fresh round trip:
// nothing is retried and nothing is cached.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	credentials CredentialSource
	logger      logger.ILogger
}

func NewClient(baseURL string, timeout time.Duration, credentials CredentialSource, log logger.ILogger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		credentials: credentials,
		logger:      log,
	}
}

// --- Auth ---

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.doJSON(ctx, "Register", http.MethodPost, "/auth/register/", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.doJSON(ctx, "Login", http.MethodPost, "/auth/login/", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Datasets ---

// Upload sends body as the multipart field "file" under fileName.
func (c *Client) Upload(ctx context.Context, fileName string, body io.Reader) (*entity.Dataset, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	resp, err := c.do(ctx, "Upload", http.MethodPost, "/upload/", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	var ds entity.Dataset
	if err := json.Unmarshal(resp.body, &ds); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &ds, nil
}

// History lists the newest uploads first, at most five.
func (c *Client) History(ctx context.Context) ([]entity.HistoryEntry, error) {
	var res []entity.HistoryEntry
	if err := c.doJSON(ctx, "History", http.MethodGet, "/history/", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Detail(ctx context.Context, id entity.DatasetID) (*entity.Dataset, error) {
	var ds entity.Dataset
	if err := c.doJSON(ctx, "Detail", http.MethodGet, fmt.Sprintf("/dataset/%d/", id), nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (c *Client) Delete(ctx context.Context, id entity.DatasetID) error {
	_, err := c.do(ctx, "Delete", http.MethodDelete, fmt.Sprintf("/dataset/%d/delete/", id), "", nil)
	return err
}

func (c *Client) Report(ctx context.Context, id entity.DatasetID) (*Report, error) {
	resp, err := c.do(ctx, "Report", http.MethodGet, fmt.Sprintf("/dataset/%d/report/", id), "", nil)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("report_%d.pdf", id)
	if _, params, err := mime.ParseMediaType(resp.header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}

	return &Report{
		Filename:    filename,
		ContentType: resp.header.Get("Content-Type"),
		Data:        resp.body,
	}, nil
}

// --- Transport ---

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, method, path, contentType, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "chemapi."+op)
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("request.id", requestID),
	)

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	authenticated := false
	if c.credentials != nil {
		if token, ok := c.credentials.Credential(); ok {
			req.Header.Set("Authorization", "Token "+token)
			authenticated = true
		}
	}

	started := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		reqErr := &RequestError{Method: method, Path: path, Err: err}
		span.RecordError(reqErr)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Warn("CHEMAPI", "Request failed", map[string]interface{}{
			"op":         op,
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, reqErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		reqErr := &RequestError{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		span.RecordError(reqErr)
		span.SetStatus(codes.Error, "read body")
		return nil, reqErr
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("CHEMAPI", "Request completed", map[string]interface{}{
		"op":            op,
		"status":        resp.StatusCode,
		"authenticated": authenticated,
		"request_id":    requestID,
		"elapsed_ms":    time.Since(started).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{Method: method, Path: path, Status: resp.StatusCode, Payload: data}
		span.SetStatus(codes.Error, resp.Status)
		return nil, reqErr
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

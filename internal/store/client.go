package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

const (
	resource     = "Task"
	maxBodyBytes = 8 << 20
)

// Encoding selects how create and update parameters travel to the store.
type Encoding string

const (
	// EncodingQuery sends parameters in the URL query, empty strings are
	// dropped.
	EncodingQuery Encoding = "query"
	EncodingJSON  Encoding = "json"
)

func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingQuery:
		return EncodingQuery, nil
	case EncodingJSON:
		return EncodingJSON, nil
	default:
		return "", fmt.Errorf("unknown encoding %q", s)
	}
}

type Options struct {
	// BaseURL is the API root, the task resource lives at BaseURL/Task.
	BaseURL            string
	Encoding           Encoding
	Timeout            time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

// Client talks to the remote task store over HTTP.
type Client struct {
	base     *url.URL
	encoding Encoding
	http     *http.Client
	logger   *zap.Logger
	newID    func() string
}

var _ TaskStore = (*Client)(nil)

func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", opts.BaseURL)
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
		if opts.InsecureSkipVerify {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev stores
			httpClient.Transport = transport
		}
	}

	return &Client{
		base:     base,
		encoding: opts.Encoding,
		http:     httpClient,
		logger:   logger.Named("store"),
		newID:    func() string { return uuid.NewString() },
	}, nil
}

func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	const op = "list tasks"

	body, status, err := c.do(ctx, op, http.MethodGet, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		// Не массив: отдаём пустой список, вызывающий не должен падать
		c.logger.Warn("list response is not an array",
			zap.Int("status", status),
			zap.ByteString("body", truncate(trimmed)),
		)
		return []model.Task{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		c.logger.Warn("list response is not a well-formed array", zap.Error(err))
		return []model.Task{}, nil
	}

	tasks := make([]model.Task, 0, len(raw))
	for i, item := range raw {
		var t model.Task
		if err := json.Unmarshal(item, &t); err != nil {
			e := &Error{Op: op, Kind: ErrValidation, Status: status, Body: string(truncate(item)), Err: fmt.Errorf("item %d: %w", i, err)}
			c.logger.Error("malformed task in list response", zap.Error(e))
			return nil, e
		}
		tasks = append(tasks, t)
	}

	c.logger.Debug("tasks listed", zap.Int("count", len(tasks)))
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, d model.Draft) (*model.Task, error) {
	const op = "create task"

	header := http.Header{}
	header.Set("Idempotency-Key", c.newID())

	var (
		query   url.Values
		payload any
	)
	if c.encoding == EncodingJSON {
		payload = d
	} else {
		query = url.Values{}
		setString(query, "title", d.Title)
		setString(query, "description", d.Description)
		if d.DueDate != nil {
			query.Set("dueDate", d.DueDate.String())
		}
	}

	body, status, err := c.do(ctx, op, http.MethodPost, nil, query, payload, header)
	if err != nil {
		return nil, err
	}
	return c.decodeTask(op, status, body)
}

func (c *Client) Update(ctx context.Context, id model.TaskID, p model.Patch) (*model.Task, error) {
	const op = "update task"

	var (
		query   url.Values
		payload any
	)
	if c.encoding == EncodingJSON {
		payload = p
	} else {
		query = url.Values{}
		if p.Title != nil {
			setString(query, "title", *p.Title)
		}
		if p.Description != nil {
			setString(query, "description", *p.Description)
		}
		if p.DueDate != nil {
			query.Set("dueDate", p.DueDate.String())
		}
		if p.Completed != nil {
			query.Set("completed", strconv.FormatBool(*p.Completed))
		}
	}

	body, status, err := c.do(ctx, op, http.MethodPut, []string{id.String()}, query, payload)
	if err != nil {
		return nil, err
	}
	return c.decodeTask(op, status, body)
}

func (c *Client) Delete(ctx context.Context, id model.TaskID) error {
	_, _, err := c.do(ctx, "delete task", http.MethodDelete, []string{id.String()}, nil, nil)
	return err
}

// do performs one round trip. Any failure to obtain a complete response is
// reported as ErrNetwork, non-2xx statuses are classified by kindForStatus.
func (c *Client) do(ctx context.Context, op, method string, segments []string, query url.Values, payload any, headers ...http.Header) ([]byte, int, error) {
	target := c.base.JoinPath(append([]string{resource}, segments...)...)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf("encode payload: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, 0, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", c.newID())
	for _, h := range headers {
		for k, v := range h {
			req.Header[k] = v
		}
	}

	log := c.logger.With(
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", target.Redacted()),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("no response received", zap.Error(err))
		return nil, 0, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Error("response body could not be read", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, resp.StatusCode, &Error{Op: op, Kind: ErrNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &Error{
			Op:     op,
			Kind:   kindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   string(truncate(body)),
		}
		log.Error("store returned an error",
			zap.Int("status", resp.StatusCode),
			zap.Any("headers", resp.Header),
			zap.ByteString("body", truncate(body)),
		)
		return nil, resp.StatusCode, e
	}

	log.Debug("store call finished", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(started)))
	return body, resp.StatusCode, nil
}

// decodeTask turns a create/update response into a task. Bodies that carry
// no task (empty, null, scalars, objects without an id) yield nil so the
// caller can refetch instead.
func (c *Client) decodeTask(op string, status int, body []byte) (*model.Task, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		c.logger.Debug("response carries no task", zap.String("op", op), zap.ByteString("body", truncate(trimmed)))
		return nil, nil
	}
	if id, ok := fields["id"]; !ok || bytes.Equal(bytes.TrimSpace(id), []byte("null")) {
		c.logger.Debug("response carries no task id", zap.String("op", op))
		return nil, nil
	}

	var t model.Task
	if err := json.Unmarshal(trimmed, &t); err != nil {
		e := &Error{Op: op, Kind: ErrValidation, Status: status, Body: string(truncate(trimmed)), Err: err}
		c.logger.Error("malformed task in response", zap.Error(e))
		return nil, e
	}
	return &t, nil
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func truncate(b []byte) []byte {
	const limit = 2048
	if len(b) > limit {
		return b[:limit]
	}
	return b
}

// IsRetryable reports whether repeating the call could succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc, enc Encoding) (*Client, *observer.ObservedLogs) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	c, err := NewClient(Options{BaseURL: srv.URL + "/api", Encoding: enc}, zap.New(core))
	require.NoError(t, err)
	return c, logs
}

func TestClient_List(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantErr   error
	}{
		{name: "array of tasks", body: `[{"id":1,"title":"A","completed":false},{"id":"b-2","title":"B","completed":true}]`, wantCount: 2},
		{name: "empty array", body: `[]`, wantCount: 0},
		{name: "null body", body: `null`, wantCount: 0},
		{name: "object body", body: `{"items":[]}`, wantCount: 0},
		{name: "string body", body: `"nope"`, wantCount: 0},
		{name: "empty body", body: ``, wantCount: 0},
		{name: "truncated array", body: `[{"id":1,`, wantCount: 0},
		{name: "malformed item", body: `[{"id":1,"title":42}]`, wantErr: ErrValidation},
		{name: "item without id", body: `[{"title":"x"}]`, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/Task", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			}, EncodingQuery)

			tasks, err := c.List(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, tasks)
			assert.Len(t, tasks, tt.wantCount)
		})
	}
}

func TestClient_List_DecodesFields(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":7,"title":"Write report","description":"Q3","dueDate":"2025-03-01T00:00:00",
			"completed":true,"createdAt":"2025-02-01T10:15:00.1234567","updatedAt":null}]`)
	}, EncodingQuery)

	tasks, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, model.TaskID("7"), task.ID)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, "Q3", task.Description)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2025-03-01", task.DueDate.String())
	assert.True(t, task.Completed)
	assert.Equal(t, 2025, task.CreatedAt.Year())
	assert.Nil(t, task.UpdatedAt)
}

func TestClient_Create(t *testing.T) {
	due := model.NewDate(2025, time.June, 30)

	t.Run("query encoding", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Buy milk", r.URL.Query().Get("title"))
			assert.False(t, r.URL.Query().Has("description"), "empty description must be omitted")
			assert.Equal(t, "2025-06-30", r.URL.Query().Get("dueDate"))
			assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":11,"title":"Buy milk","description":"","completed":false,"createdAt":"2025-06-01T09:00:00Z"}`)
		}, EncodingQuery)

		task, err := c.Create(context.Background(), model.Draft{Title: "Buy milk", DueDate: &due})
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, model.TaskID("11"), task.ID)
	})

	t.Run("json encoding", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var got map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "Buy milk", got["title"])
			assert.Equal(t, "2 litres", got["description"])

			io.WriteString(w, `{"id":"abc","title":"Buy milk","description":"2 litres","completed":false}`)
		}, EncodingJSON)

		task, err := c.Create(context.Background(), model.Draft{Title: "Buy milk", Description: "2 litres"})
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, model.TaskID("abc"), task.ID)
	})

	t.Run("no usable payload", func(t *testing.T) {
		for _, body := range []string{``, `null`, `"created"`, `{"message":"ok"}`, `{"id":null}`, `true`} {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}, EncodingQuery)

			task, err := c.Create(context.Background(), model.Draft{Title: "x"})
			require.NoError(t, err, body)
			assert.Nil(t, task, body)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"id":3,"title":["not","text"]}`)
		}, EncodingQuery)

		_, err := c.Create(context.Background(), model.Draft{Title: "x"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("server rejects the title", func(t *testing.T) {
		c, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"errors":{"title":["The title field is required."]}}`)
		}, EncodingQuery)

		_, err := c.Create(context.Background(), model.Draft{})
		assert.ErrorIs(t, err, ErrValidation)

		var storeErr *Error
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, http.StatusBadRequest, storeErr.Status)
		assert.Contains(t, storeErr.Body, "title field is required")

		entries := logs.FilterMessage("store returned an error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(http.StatusBadRequest), entries[0].ContextMap()["status"])
	})
}

func TestClient_Update(t *testing.T) {
	t.Run("only provided fields are sent", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/Task/1", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "true", q.Get("completed"))
			assert.False(t, q.Has("title"))
			assert.False(t, q.Has("description"))

			io.WriteString(w, `{"id":1,"title":"A","completed":true}`)
		}, EncodingQuery)

		task, err := c.Update(context.Background(), "1", model.Patch{Completed: model.Ptr(true)})
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.True(t, task.Completed)
		assert.Equal(t, "A", task.Title)
	})

	t.Run("completed false is still sent", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var got map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, false, got["completed"])
			assert.NotContains(t, got, "title")
			w.WriteHeader(http.StatusNoContent)
		}, EncodingJSON)

		task, err := c.Update(context.Background(), "1", model.Patch{Completed: model.Ptr(false)})
		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("missing task", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}, EncodingQuery)

		_, err := c.Update(context.Background(), "404", model.Patch{Title: model.Ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClient_Delete(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "deleted", status: http.StatusOK},
		{name: "no content", status: http.StatusNoContent},
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "server failure", status: http.StatusInternalServerError, wantErr: ErrServer},
		{name: "conflict", status: http.StatusConflict, wantErr: ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/api/Task/5", r.URL.Path)
				w.WriteHeader(tt.status)
			}, EncodingQuery)

			err := c.Delete(context.Background(), "5")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c, err := NewClient(Options{BaseURL: url + "/api"}, zap.New(core))
	require.NoError(t, err)

	ctx := context.Background()
	_, listErr := c.List(ctx)
	_, createErr := c.Create(ctx, model.Draft{Title: "x"})
	_, updateErr := c.Update(ctx, "1", model.Patch{Title: model.Ptr("x")})
	deleteErr := c.Delete(ctx, "1")

	for _, err := range []error{listErr, createErr, updateErr, deleteErr} {
		assert.ErrorIs(t, err, ErrNetwork)
		assert.NotErrorIs(t, err, ErrServer)
		assert.True(t, IsRetryable(err))
	}
	assert.Equal(t, 4, logs.FilterMessage("no response received").Len())
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.List(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "ftp://example.com"}, nil)
	assert.Error(t, err)

	_, err = NewClient(Options{BaseURL: "://"}, nil)
	assert.Error(t, err)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingQuery, enc)

	enc, err = ParseEncoding("JSON")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, enc)

	_, err = ParseEncoding("xml")
	assert.Error(t, err)
}

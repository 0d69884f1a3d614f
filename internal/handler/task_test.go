package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/repo"
	"github.com/BuzzLyutic/taskboard/internal/service"
)

func setupHandler(t *testing.T) (*TaskHandler, http.Handler) {
	t.Helper()
	taskService := service.NewTaskService(repo.NewMemoryRepo())
	h := NewTaskHandler(taskService, zap.NewNop())
	return h, NewRouter(h, zap.NewNop())
}

func createTask(t *testing.T, router http.Handler, title string) model.Task {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/Task?title="+url.QueryEscape(title), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task model.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
	return task
}

func TestTaskHandler_Create(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		body          interface{}
		idempKey      string
		wantCode      int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:     "query parameters",
			target:   "/api/Task?title=Test+Task&description=desc&dueDate=2025-04-01",
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var task model.Task
				require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
				assert.False(t, task.ID.IsZero())
				assert.Equal(t, "Test Task", task.Title)
				assert.Equal(t, "desc", task.Description)
				require.NotNil(t, task.DueDate)
				assert.Equal(t, "2025-04-01", task.DueDate.String())
				assert.Equal(t, "/api/Task/"+task.ID.String(), w.Header().Get("Location"))
			},
		},
		{
			name:     "json body",
			target:   "/api/Task",
			body:     map[string]any{"title": "From JSON", "dueDate": "2025-04-01T00:00:00"},
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var task model.Task
				require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
				assert.Equal(t, "From JSON", task.Title)
				assert.Equal(t, "2025-04-01", task.DueDate.String())
			},
		},
		{
			name:     "missing title",
			target:   "/api/Task",
			wantCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "The title field is required.")
			},
		},
		{
			name:     "blank title",
			target:   "/api/Task?title=%20%20",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad due date",
			target:   "/api/Task?title=x&dueDate=tomorrow",
			wantCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "dueDate")
			},
		},
		{
			name:     "invalid json",
			target:   "/api/Task",
			body:     "{not json",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupHandler(t)

			var req *http.Request
			switch body := tt.body.(type) {
			case nil:
				req = httptest.NewRequest(http.MethodPost, tt.target, nil)
			case string:
				req = httptest.NewRequest(http.MethodPost, tt.target, bytes.NewBufferString(body))
				req.Header.Set("Content-Type", "application/json")
			default:
				raw, _ := json.Marshal(body)
				req = httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(raw))
				req.Header.Set("Content-Type", "application/json")
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestTaskHandler_CreateIdempotent(t *testing.T) {
	_, router := setupHandler(t)

	var ids []model.TaskID
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/Task?title=Once", nil)
		req.Header.Set("Idempotency-Key", "test-key-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		var task model.Task
		require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
		ids = append(ids, task.ID)
	}
	assert.Equal(t, ids[0], ids[1])

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/Task", nil))
	var tasks []model.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tasks))
	assert.Len(t, tasks, 1)
}

func TestTaskHandler_Get(t *testing.T) {
	h, router := setupHandler(t)
	created := createTask(t, router, "Fetch me")

	tests := []struct {
		name     string
		id       string
		wantCode int
	}{
		{name: "existing task", id: created.ID.String(), wantCode: http.StatusOK},
		{name: "missing task", id: "999", wantCode: http.StatusNotFound},
		{name: "non numeric id", id: "abc", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/Task/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			h.Get(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestTaskHandler_List(t *testing.T) {
	_, router := setupHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/Task", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	createTask(t, router, "One")
	createTask(t, router, "Two")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/Task", nil))

	var tasks []model.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "One", tasks[0].Title)
	assert.Equal(t, "Two", tasks[1].Title)
}

func TestTaskHandler_Update(t *testing.T) {
	_, router := setupHandler(t)
	created := createTask(t, router, "Original")
	path := "/api/Task/" + created.ID.String()

	t.Run("completed only via query", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path+"?completed=true", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var task model.Task
		require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
		assert.True(t, task.Completed)
		assert.Equal(t, "Original", task.Title)
		assert.NotNil(t, task.UpdatedAt)
	})

	t.Run("json body", func(t *testing.T) {
		body := bytes.NewBufferString(`{"title":"Renamed","completed":false}`)
		req := httptest.NewRequest(http.MethodPut, path, body)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var task model.Task
		require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
		assert.Equal(t, "Renamed", task.Title)
		assert.False(t, task.Completed)
	})

	t.Run("blank title", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path+"?title=", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad completed flag", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path+"?completed=maybe", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing task", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/Task/999?title=x", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	_, router := setupHandler(t)
	created := createTask(t, router, "Doomed")
	path := "/api/Task/" + created.ID.String()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Health(t *testing.T) {
	_, router := setupHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

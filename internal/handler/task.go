package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/repo"
	"github.com/BuzzLyutic/taskboard/internal/service"
	"github.com/BuzzLyutic/taskboard/pkg/respond"
)

const maxBodySize = 1 << 20

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

// taskParams - поля задачи, пришедшие в строке запроса или в JSON теле
type taskParams struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.readParams(w, r)
	if !ok {
		return
	}

	draft := model.Draft{}
	if p.Title != nil {
		draft.Title = *p.Title
	}
	if p.Description != nil {
		draft.Description = *p.Description
	}
	due, ok := parseDue(w, r, p.DueDate)
	if !ok {
		return
	}
	draft.DueDate = due

	task, err := h.service.Create(r.Context(), draft, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/Task/"+url.PathEscape(task.ID.String()))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), model.TaskID(chi.URLParam(r, "id")))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.List(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := model.TaskID(chi.URLParam(r, "id"))

	p, ok := h.readParams(w, r)
	if !ok {
		return
	}
	due, ok := parseDue(w, r, p.DueDate)
	if !ok {
		return
	}

	task, err := h.service.Update(r.Context(), id, model.Patch{
		Title:       p.Title,
		Description: p.Description,
		DueDate:     due,
		Completed:   p.Completed,
	})
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.TaskID(chi.URLParam(r, "id"))

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readParams берет параметры из JSON тела, если оно есть, иначе из строки запроса
func (h *TaskHandler) readParams(w http.ResponseWriter, r *http.Request) (taskParams, bool) {
	var p taskParams

	if isJSON(r) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "failed to read body")
			return p, false
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, &p); err != nil {
				h.logger.Debug("failed to decode json", zap.Error(err))
				respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
				return p, false
			}
			return p, true
		}
	}

	q := r.URL.Query()
	if q.Has("title") {
		p.Title = model.Ptr(q.Get("title"))
	}
	if q.Has("description") {
		p.Description = model.Ptr(q.Get("description"))
	}
	if q.Has("dueDate") {
		p.DueDate = model.Ptr(q.Get("dueDate"))
	}
	if q.Has("completed") {
		done, err := strconv.ParseBool(q.Get("completed"))
		if err != nil {
			respond.Validation(w, r, map[string][]string{
				"completed": {fmt.Sprintf("The value '%s' is not valid.", q.Get("completed"))},
			})
			return p, false
		}
		p.Completed = &done
	}
	return p, true
}

func parseDue(w http.ResponseWriter, r *http.Request, raw *string) (*model.Date, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	d, err := model.ParseDate(*raw)
	if err != nil {
		respond.Validation(w, r, map[string][]string{
			"dueDate": {fmt.Sprintf("The value '%s' is not valid.", *raw)},
		})
		return nil, false
	}
	return &d, true
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *service.FieldError
	switch {
	case errors.As(err, &fieldErr):
		respond.Validation(w, r, map[string][]string{fieldErr.Field: {fieldErr.Message}})
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, "validation error")
	default:
		h.logger.Error("internal error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

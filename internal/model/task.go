package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformed = errors.New("malformed task")

// TaskID is the store-assigned identifier. The store owns its format, so the
// client treats it as opaque text.
type TaskID string

func (id TaskID) String() string { return string(id) }

func (id TaskID) IsZero() bool { return id == "" }

// MarshalJSON emits numeric ids as JSON numbers so they round-trip through
// stores with integer keys.
func (id TaskID) MarshalJSON() ([]byte, error) {
	if id != "" && isDigits(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: id is missing", ErrMalformed)
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: id: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: id is empty", ErrMalformed)
		}
		*id = TaskID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: id must be a number or a string", ErrMalformed)
	}
	*id = TaskID(n.String())
	return nil
}

// ParseID validates user input naming a task.
func ParseID(s string) (TaskID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty id", ErrMalformed)
	}
	return TaskID(s), nil
}

func isDigits(s string) bool {
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: due date %q", ErrMalformed, s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) Equal(o Date) bool { return d.String() == o.String() }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: due date must be a string", ErrMalformed)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts zone-less timestamps as well, the production store
// serializes its dates without an offset.
func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

type Task struct {
	ID          TaskID     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *Date      `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type wireTask struct {
	ID          TaskID  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
	CreatedAt   *string `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

// UnmarshalJSON enforces the task shape: an id and a title are required,
// optional fields may be null.
func (t *Task) UnmarshalJSON(data []byte) error {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: field %q has the wrong type", ErrMalformed, typeErr.Field)
		}
		if errors.Is(err, ErrMalformed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.ID == "" {
		return fmt.Errorf("%w: id is missing", ErrMalformed)
	}
	if w.Title == nil {
		return fmt.Errorf("%w: title is missing", ErrMalformed)
	}

	out := Task{ID: w.ID, Title: *w.Title}
	if w.Description != nil {
		out.Description = *w.Description
	}
	if w.Completed != nil {
		out.Completed = *w.Completed
	}
	if w.DueDate != nil && *w.DueDate != "" {
		d, err := ParseDate(*w.DueDate)
		if err != nil {
			return err
		}
		out.DueDate = &d
	}
	if w.CreatedAt != nil && *w.CreatedAt != "" {
		ts, err := parseTimestamp(*w.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: createdAt %q", ErrMalformed, *w.CreatedAt)
		}
		out.CreatedAt = ts
	}
	if w.UpdatedAt != nil && *w.UpdatedAt != "" {
		ts, err := parseTimestamp(*w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: updatedAt %q", ErrMalformed, *w.UpdatedAt)
		}
		out.UpdatedAt = &ts
	}

	*t = out
	return nil
}

// Apply returns a copy of t with the non-nil patch fields set.
func (t Task) Apply(p Patch) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// Draft holds the fields of a task that does not exist yet.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     *Date  `json:"dueDate,omitempty"`
}

// Patch is a partial update, nil fields are left untouched by the store.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *Date   `json:"dueDate,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.Completed == nil
}

func Ptr[T any](v T) *T { return &v }

// Blank reports whether a title would be rejected by the store.
func Blank(title string) bool {
	return strings.TrimSpace(title) == ""
}

// FormatID is a helper for stores keyed by integers.
func FormatID(n int64) TaskID {
	return TaskID(strconv.FormatInt(n, 10))
}

// Int64 converts numeric ids back for integer-keyed stores.
func (id TaskID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not numeric", ErrMalformed, string(id))
	}
	return n, nil
}

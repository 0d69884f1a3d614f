package shell

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BuzzLyutic/taskboard/internal/i18n"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/session"
	"github.com/BuzzLyutic/taskboard/internal/tasklist"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// taskRow is the flattened task used by the yaml output.
type taskRow struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	DueDate     string `yaml:"dueDate,omitempty"`
	Completed   bool   `yaml:"completed"`
	CreatedAt   string `yaml:"createdAt,omitempty"`
	UpdatedAt   string `yaml:"updatedAt,omitempty"`
}

func toRow(t model.Task) taskRow {
	row := taskRow{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
	}
	if t.DueDate != nil {
		row.DueDate = t.DueDate.String()
	}
	if !t.CreatedAt.IsZero() {
		row.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	if t.UpdatedAt != nil {
		row.UpdatedAt = t.UpdatedAt.Format(time.RFC3339)
	}
	return row
}

// RenderTasks writes tasks in the requested format.
func RenderTasks(w io.Writer, f Format, tasks []model.Task, msgs i18n.Catalog) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if tasks == nil {
			tasks = []model.Task{}
		}
		return enc.Encode(tasks)

	case FormatYAML:
		rows := make([]taskRow, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, toRow(t))
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()

	default:
		if len(tasks) == 0 {
			_, err := fmt.Fprintln(w, msgs.Empty)
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tDUE\tDESCRIPTION")
		for _, t := range tasks {
			status := msgs.Pending
			if t.Completed {
				status = msgs.Completed
			}
			due := "-"
			if t.DueDate != nil {
				due = t.DueDate.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, status, t.Title, due, oneLine(t.Description))
		}
		return tw.Flush()
	}
}

// RenderState writes the collection, or the loading or error banner.
func RenderState(w io.Writer, st tasklist.State, msgs i18n.Catalog) error {
	switch st.Phase {
	case tasklist.PhaseLoading:
		_, err := fmt.Fprintln(w, msgs.Loading)
		return err
	case tasklist.PhaseError:
		if _, err := fmt.Fprintln(w, "! "+st.Message); err != nil {
			return err
		}
		if len(st.Tasks) == 0 {
			return nil
		}
	}
	return RenderTasks(w, FormatTable, st.Tasks, msgs)
}

// RenderDraft writes the open edit session.
func RenderDraft(w io.Writer, st session.State, msgs i18n.Catalog) error {
	if st.Phase == session.PhaseIdle {
		return nil
	}
	id := "new"
	if !st.IsNew() {
		id = st.TaskID.String()
	}
	due := "-"
	if st.Draft.DueDate != nil {
		due = st.Draft.DueDate.String()
	}
	status := msgs.Pending
	if st.Draft.Completed {
		status = msgs.Completed
	}

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "task:\t%s\n", id)
	fmt.Fprintf(tw, "title:\t%s\n", st.Draft.Title)
	fmt.Fprintf(tw, "description:\t%s\n", oneLine(st.Draft.Description))
	fmt.Fprintf(tw, "due:\t%s\n", due)
	fmt.Fprintf(tw, "status:\t%s\n", status)
	if msg, ok := st.Errors[session.FieldTitle]; ok {
		fmt.Fprintf(tw, "!\t%s\n", msg)
	}
	if st.Message != "" {
		fmt.Fprintf(tw, "!\t%s\n", st.Message)
	}
	return tw.Flush()
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) > 40 {
		return string([]rune(s)[:39]) + "…"
	}
	return s
}

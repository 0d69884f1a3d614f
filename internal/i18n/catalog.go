// Package i18n holds the short user-facing sentences shown by the shell.
package i18n

import (
	"errors"
	"strings"

	"github.com/BuzzLyutic/taskboard/internal/store"
)

type Catalog struct {
	Network       string
	NotFound      string
	LoadFailed    string
	DeleteFailed  string
	SaveFailed    string
	ToggleFailed  string
	RefreshFailed string
	TitleRequired string
	ConfirmDelete string
	Empty         string
	Loading       string
	Saving        string
	Completed     string
	Pending       string
	Saved         string
	Deleted       string
	YesNo         string
}

var English = Catalog{
	Network:       "Could not reach the server. Check your connection or try again later.",
	NotFound:      "The task no longer exists.",
	LoadFailed:    "Could not load the tasks. Check the connection with the server.",
	DeleteFailed:  "Could not delete the task.",
	SaveFailed:    "Could not save the task. Please try again.",
	ToggleFailed:  "Could not update the task status.",
	RefreshFailed: "Could not refresh the tasks.",
	TitleRequired: "The title is required.",
	ConfirmDelete: "Are you sure you want to delete this task?",
	Empty:         "No tasks yet. Start by creating your first task.",
	Loading:       "Loading tasks...",
	Saving:        "Saving...",
	Completed:     "done",
	Pending:       "pending",
	Saved:         "Task saved.",
	Deleted:       "Task deleted.",
	YesNo:         "[y/N]",
}

var Spanish = Catalog{
	Network:       "No se pudo conectar con el servidor. Verifica tu conexión o inténtalo más tarde.",
	NotFound:      "La tarea ya no existe.",
	LoadFailed:    "Error al cargar las tareas. Verifica la conexión con el servidor.",
	DeleteFailed:  "Error al eliminar la tarea.",
	SaveFailed:    "Error al guardar la tarea. Intente de nuevo.",
	ToggleFailed:  "Error al actualizar el estado de la tarea.",
	RefreshFailed: "Error al actualizar las tareas.",
	TitleRequired: "El título es obligatorio.",
	ConfirmDelete: "¿Está seguro de eliminar esta tarea?",
	Empty:         "No hay tareas. Comienza creando tu primera tarea.",
	Loading:       "Cargando tareas...",
	Saving:        "Guardando...",
	Completed:     "completada",
	Pending:       "pendiente",
	Saved:         "Tarea guardada.",
	Deleted:       "Tarea eliminada.",
	YesNo:         "[s/N]",
}

// Lookup picks a catalog by language tag ("es", "es-MX", "en_US"...).
// Unknown languages get English.
func Lookup(locale string) Catalog {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_."); i >= 0 {
		lang = lang[:i]
	}
	switch lang {
	case "es":
		return Spanish
	default:
		return English
	}
}

// ForError picks the sentence for err. Transport and not-found failures have
// their own wording, everything else falls back to the operation's message.
func (c Catalog) ForError(err error, fallback string) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrNetwork):
		return c.Network
	case errors.Is(err, store.ErrNotFound):
		return c.NotFound
	default:
		return fallback
	}
}

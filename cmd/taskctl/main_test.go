package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/handler"
	"github.com/BuzzLyutic/taskboard/internal/i18n"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/repo"
	"github.com/BuzzLyutic/taskboard/internal/service"
)

func devServer(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	h := handler.NewTaskHandler(service.NewTaskService(repo.NewMemoryRepo()), zap.NewNop())
	srv := httptest.NewServer(handler.NewRouter(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func run(t *testing.T, baseURL, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--base-url", baseURL, "--locale", "en", "--log-level", "fatal"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func listJSON(t *testing.T, baseURL string) []model.Task {
	t.Helper()
	out, err := run(t, baseURL, "", "list", "-o", "json")
	require.NoError(t, err)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	return tasks
}

func TestTaskctl_Workflow(t *testing.T) {
	url := devServer(t)

	out, err := run(t, url, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, i18n.English.Empty)

	out, err = run(t, url, "", "add", "Buy", "milk", "--due", "2025-10-01", "-d", "two litres")
	require.NoError(t, err)
	assert.Contains(t, out, i18n.English.Saved)
	assert.Contains(t, out, "Buy milk")

	_, err = run(t, url, "", "add", "Walk the dog")
	require.NoError(t, err)

	out, err = run(t, url, "", "done", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, i18n.English.Completed))

	out, err = run(t, url, "", "undo", "2")
	require.NoError(t, err)
	assert.Contains(t, out, i18n.English.Pending)

	out, err = run(t, url, "", "edit", "1", "--title", "Buy oat milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy oat milk")

	_, err = run(t, url, "", "edit", "2", "--description", "around the park")
	require.NoError(t, err)

	tasks := listJSON(t, url)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Buy oat milk", tasks[0].Title)
	assert.Equal(t, "two litres", tasks[0].Description)
	assert.Equal(t, "Walk the dog", tasks[1].Title)
	assert.Equal(t, "around the park", tasks[1].Description)
	assert.Equal(t, "2025-10-01", tasks[0].DueDate.String())
	assert.True(t, tasks[0].Completed)
	assert.False(t, tasks[1].Completed)

	out, err = run(t, url, "", "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Buy oat milk")

	out, err = run(t, url, "n\n", "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, i18n.English.ConfirmDelete)
	assert.Len(t, listJSON(t, url), 2)

	out, err = run(t, url, "", "rm", "--yes", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, i18n.English.Deleted))
	assert.Empty(t, listJSON(t, url))
}

func TestTaskctl_Failures(t *testing.T) {
	url := devServer(t)

	_, err := run(t, url, "", "add")
	require.Error(t, err)
	assert.Equal(t, i18n.English.TitleRequired, err.Error())

	_, err = run(t, url, "", "done", "7")
	require.Error(t, err)
	assert.Equal(t, i18n.English.NotFound, err.Error())

	_, err = run(t, url, "", "rm", "-y", "7")
	require.Error(t, err)
	assert.Equal(t, i18n.English.NotFound, err.Error())

	_, err = run(t, url, "", "list", "-o", "csv")
	assert.Error(t, err)

	_, err = run(t, "http://127.0.0.1:1/api", "", "list")
	require.Error(t, err)
	assert.Equal(t, i18n.English.Network, err.Error())
}

func TestTaskctl_Shell(t *testing.T) {
	url := devServer(t)

	out, err := run(t, url, "wait\nnew\ntitle From shell\nsave\nwait\nquit\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, i18n.English.Saved)

	tasks := listJSON(t, url)
	require.Len(t, tasks, 1)
	assert.Equal(t, "From shell", tasks[0].Title)
}

package main

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklist/internal/config"
	"tasklist/internal/model"
	"tasklist/internal/service"
	"tasklist/internal/taskapi"
	"tasklist/internal/taskapi/taskapitest"
)

func runCLI(t *testing.T, server *taskapitest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(config.Config{TasksAPIURL: server.URL, TasksAPITimeout: 5 * time.Second},
		taskapi.WithHTTPClient(server.Client()))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seeded() []model.Task {
	created := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	return []model.Task{
		{ID: "1", Text: "Write report", Category: model.CategoryWork, Priority: model.PriorityHigh, CreatedAt: created},
		{ID: "2", Text: "Buy milk", Category: model.CategoryShopping, Priority: model.PriorityLow, Completed: true, CreatedAt: created},
	}
}

func TestListFilters(t *testing.T) {
	server := taskapitest.NewServer(seeded()...)
	defer server.Close()

	out, err := runCLI(t, server, "list", "--status", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.NotContains(t, out, "Buy milk")

	out, err = runCLI(t, server, "list", "--category", "Health")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks match your filters")

	_, err = runCLI(t, server, "list", "--priority", "urgent")
	assert.Error(t, err)
}

func TestAddCreatesTask(t *testing.T) {
	server := taskapitest.NewServer()
	defer server.Close()

	out, err := runCLI(t, server, "add", "Call", "mom", "--category", "personal", "--priority", "high", "--due", "2025-11-30")
	require.NoError(t, err)
	assert.Contains(t, out, "added ")

	stored := server.Tasks()
	require.Len(t, stored, 1)
	assert.Equal(t, "Call mom", stored[0].Text)
	assert.Equal(t, model.PriorityHigh, stored[0].Priority)
	assert.Equal(t, model.CategoryPersonal, stored[0].Category)
	require.NotNil(t, stored[0].DueDate)
}

func TestAddRejectsBlankText(t *testing.T) {
	server := taskapitest.NewServer()
	defer server.Close()

	_, err := runCLI(t, server, "add", "  ")
	require.Error(t, err)
	assert.Equal(t, 0, server.Calls(http.MethodPost))
}

func TestEditDoneAndRemove(t *testing.T) {
	server := taskapitest.NewServer(seeded()...)
	defer server.Close()

	_, err := runCLI(t, server, "edit", "1", "--text", "Write final report")
	require.NoError(t, err)

	out, err := runCLI(t, server, "done", "1")
	require.NoError(t, err)
	assert.Equal(t, "completed 1\n", out)

	_, err = runCLI(t, server, "rm", "2")
	require.NoError(t, err)

	stored := server.Tasks()
	require.Len(t, stored, 1)
	assert.Equal(t, "Write final report", stored[0].Text)
	assert.True(t, stored[0].Completed)
}

func TestEditRequiresChanges(t *testing.T) {
	server := taskapitest.NewServer(seeded()...)
	defer server.Close()

	_, err := runCLI(t, server, "edit", "1")
	require.Error(t, err)
	_, err = runCLI(t, server, "edit", "1", "--text", "   ")
	require.ErrorIs(t, err, service.ErrNothingToChange)
	assert.Equal(t, 0, server.Calls(http.MethodPut))
}

func TestUnknownIDMakesNoCall(t *testing.T) {
	server := taskapitest.NewServer(seeded()...)
	defer server.Close()

	_, err := runCLI(t, server, "done", "999")
	require.Error(t, err)
	_, err = runCLI(t, server, "rm", "999")
	require.Error(t, err)

	assert.Equal(t, 0, server.Calls(http.MethodPut))
	assert.Equal(t, 0, server.Calls(http.MethodDelete))
}

func TestLoadFailure(t *testing.T) {
	server := taskapitest.NewServer(seeded()...)
	defer server.Close()
	server.FailNext(http.MethodGet, http.StatusInternalServerError)

	_, err := runCLI(t, server, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load tasks from server")
}

package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklist/internal/model"
	"tasklist/internal/taskapi"
	"tasklist/internal/taskapi/taskapitest"
)

type stubRemote struct {
	listFn   func(ctx context.Context) ([]model.Task, error)
	createFn func(ctx context.Context, task model.Task) (model.Task, error)
	updateFn func(ctx context.Context, task model.Task) (model.Task, error)
	deleteFn func(ctx context.Context, id string) error

	calls int
}

func (s *stubRemote) List(ctx context.Context) ([]model.Task, error) {
	s.calls++
	if s.listFn == nil {
		return nil, errors.New("unexpected List call")
	}
	return s.listFn(ctx)
}

func (s *stubRemote) Create(ctx context.Context, task model.Task) (model.Task, error) {
	s.calls++
	if s.createFn == nil {
		return model.Task{}, errors.New("unexpected Create call")
	}
	return s.createFn(ctx, task)
}

func (s *stubRemote) Update(ctx context.Context, task model.Task) (model.Task, error) {
	s.calls++
	if s.updateFn == nil {
		return model.Task{}, errors.New("unexpected Update call")
	}
	return s.updateFn(ctx, task)
}

func (s *stubRemote) Delete(ctx context.Context, id string) error {
	s.calls++
	if s.deleteFn == nil {
		return errors.New("unexpected Delete call")
	}
	return s.deleteFn(ctx, id)
}

var errRemote = errors.New("boom")

func echoCreate(_ context.Context, task model.Task) (model.Task, error) { return task, nil }
func echoUpdate(_ context.Context, task model.Task) (model.Task, error) { return task, nil }

func fixedClock() func() time.Time {
	ts := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func loaded(t *testing.T, remote *stubRemote, tasks ...model.Task) *Store {
	t.Helper()
	remote.listFn = func(context.Context) ([]model.Task, error) {
		return append([]model.Task(nil), tasks...), nil
	}
	s := New(remote, WithClock(fixedClock()))
	require.NoError(t, s.Load(context.Background()))
	remote.calls = 0
	return s
}

func TestLoadReplacesState(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"}, model.Task{ID: "2", Text: "b"})
	assert.Equal(t, 2, s.Len())

	remote.listFn = func(context.Context) ([]model.Task, error) {
		return []model.Task{{ID: "3", Text: "c"}}, nil
	}
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []model.Task{{ID: "3", Text: "c"}}, s.Tasks())
}

func TestLoadFailureKeepsState(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"})

	remote.listFn = func(context.Context) ([]model.Task, error) { return nil, errRemote }
	err := s.Load(context.Background())
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, []model.Task{{ID: "1", Text: "a"}}, s.Tasks())
}

func TestLoadDropsDuplicateIDs(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"}, model.Task{ID: "1", Text: "dup"})
	assert.Equal(t, []model.Task{{ID: "1", Text: "a"}}, s.Tasks())
}

func TestAddAppendsServerCopy(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "first"})

	var sent model.Task
	remote.createFn = func(_ context.Context, task model.Task) (model.Task, error) {
		sent = task
		task.Text = strings.ToUpper(task.Text)
		return task, nil
	}

	got, err := s.Add(context.Background(), model.Draft{Text: "  buy bread  ", Category: model.CategoryShopping})
	require.NoError(t, err)

	assert.Equal(t, "buy bread", sent.Text)
	assert.False(t, sent.Completed)
	assert.Equal(t, model.PriorityMedium, sent.Priority)
	assert.Equal(t, "1712044800000", sent.ID)
	assert.Equal(t, fixedClock()(), sent.CreatedAt)

	assert.Equal(t, "BUY BREAD", got.Text)
	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, got, tasks[1])
}

func TestAddGeneratesUniqueIDs(t *testing.T) {
	remote := &stubRemote{createFn: echoCreate}
	s := New(remote, WithClock(fixedClock()))

	a, err := s.Add(context.Background(), model.Draft{Text: "a"})
	require.NoError(t, err)
	b, err := s.Add(context.Background(), model.Draft{Text: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestAddFailureLeavesNoPhantom(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "first"})
	remote.createFn = func(context.Context, model.Task) (model.Task, error) { return model.Task{}, errRemote }

	_, err := s.Add(context.Background(), model.Draft{Text: "new"})
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, 1, s.Len())
}

func TestAddRejectsBlankText(t *testing.T) {
	remote := &stubRemote{}
	s := New(remote)

	_, err := s.Add(context.Background(), model.Draft{Text: " \t "})
	require.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, remote.calls)
}

func TestAddReplacesWhenServerReturnsKnownID(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "first"})
	remote.createFn = func(_ context.Context, task model.Task) (model.Task, error) {
		task.ID = "1"
		return task, nil
	}

	_, err := s.Add(context.Background(), model.Draft{Text: "again"})
	require.NoError(t, err)
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "again", tasks[0].Text)
}

func TestEditReplacesWithServerCopy(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote,
		model.Task{ID: "1", Text: "a", Priority: model.PriorityLow},
		model.Task{ID: "2", Text: "b", Priority: model.PriorityLow},
	)

	var sent model.Task
	remote.updateFn = func(_ context.Context, task model.Task) (model.Task, error) {
		sent = task
		task.Text = "server says " + task.Text
		return task, nil
	}

	high := model.PriorityHigh
	text := "b2"
	got, err := s.Edit(context.Background(), "2", model.Patch{Text: &text, Priority: &high})
	require.NoError(t, err)

	assert.Equal(t, model.Task{ID: "2", Text: "b2", Priority: model.PriorityHigh}, sent)
	assert.Equal(t, "server says b2", got.Text)
	assert.Equal(t, []model.Task{
		{ID: "1", Text: "a", Priority: model.PriorityLow},
		{ID: "2", Text: "server says b2", Priority: model.PriorityHigh},
	}, s.Tasks())
}

func TestEditUnknownIDMakesNoCall(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"})
	before := s.Tasks()

	text := "x"
	_, err := s.Edit(context.Background(), "nope", model.Patch{Text: &text})
	require.ErrorIs(t, err, ErrTaskNotFound)
	assert.Zero(t, remote.calls)
	assert.Equal(t, before, s.Tasks())

	_, err = s.ToggleComplete(context.Background(), "nope")
	require.ErrorIs(t, err, ErrTaskNotFound)
	assert.Zero(t, remote.calls)
}

func TestEditFailureKeepsState(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"})
	remote.updateFn = func(context.Context, model.Task) (model.Task, error) { return model.Task{}, errRemote }

	text := "changed"
	_, err := s.Edit(context.Background(), "1", model.Patch{Text: &text})
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, []model.Task{{ID: "1", Text: "a"}}, s.Tasks())
}

func TestEditReplyDroppedWhenRemovedInFlight(t *testing.T) {
	remote := &stubRemote{deleteFn: func(context.Context, string) error { return nil }}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"}, model.Task{ID: "2", Text: "b"})
	remote.updateFn = func(ctx context.Context, task model.Task) (model.Task, error) {
		require.NoError(t, s.Remove(ctx, task.ID))
		return task, nil
	}

	_, err := s.ToggleComplete(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []model.Task{{ID: "2", Text: "b"}}, s.Tasks())
}

func TestUpdateRejectsReplyWithOtherID(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"}, model.Task{ID: "2", Text: "b"})
	remote.updateFn = func(_ context.Context, task model.Task) (model.Task, error) {
		task.ID = "2"
		return task, nil
	}

	_, err := s.ToggleComplete(context.Background(), "1")
	require.ErrorIs(t, err, ErrBadReply)
	assert.Equal(t, []model.Task{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}}, s.Tasks())
}

func TestAddRejectsReplyWithoutID(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "first"})
	remote.createFn = func(_ context.Context, task model.Task) (model.Task, error) {
		task.ID = ""
		return task, nil
	}

	for _, text := range []string{"a", "b"} {
		_, err := s.Add(context.Background(), model.Draft{Text: text})
		require.ErrorIs(t, err, ErrBadReply)
	}
	assert.Equal(t, 1, s.Len())
}

func TestToggleCompleteTwiceRestores(t *testing.T) {
	remote := &stubRemote{updateFn: echoUpdate}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"})

	first, err := s.ToggleComplete(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, first.Completed)

	second, err := s.ToggleComplete(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Equal(t, []model.Task{{ID: "1", Text: "a"}}, s.Tasks())
}

func TestRemove(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1"}, model.Task{ID: "2"}, model.Task{ID: "3"})

	remote.deleteFn = func(context.Context, string) error { return errRemote }
	require.ErrorIs(t, s.Remove(context.Background(), "2"), errRemote)
	_, ok := s.Get("2")
	assert.True(t, ok)

	remote.deleteFn = func(context.Context, string) error { return nil }
	require.NoError(t, s.Remove(context.Background(), "2"))
	assert.Equal(t, []model.Task{{ID: "1"}, {ID: "3"}}, s.Tasks())
}

func TestTasksReturnsCopy(t *testing.T) {
	remote := &stubRemote{}
	s := loaded(t, remote, model.Task{ID: "1", Text: "a"})

	tasks := s.Tasks()
	tasks[0].Text = "mutated"
	got, _ := s.Get("1")
	assert.Equal(t, "a", got.Text)
}

func TestLocalStateMatchesServerAfterReplay(t *testing.T) {
	srv := taskapitest.NewServer()
	t.Cleanup(srv.Close)
	logger := log.New()
	logger.SetOutput(io.Discard)

	s := New(taskapi.New(srv.URL, taskapi.WithLogger(logger)))
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	a, err := s.Add(ctx, model.Draft{Text: "one", Category: model.CategoryWork, Priority: model.PriorityHigh})
	require.NoError(t, err)
	b, err := s.Add(ctx, model.Draft{Text: "two"})
	require.NoError(t, err)
	_, err = s.Add(ctx, model.Draft{Text: "three"})
	require.NoError(t, err)

	_, err = s.ToggleComplete(ctx, a.ID)
	require.NoError(t, err)
	text := "two, edited"
	_, err = s.Edit(ctx, b.ID, model.Patch{Text: &text})
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, a.ID))

	assertSameTasks(t, srv.Tasks(), s.Tasks())

	srv.FailNext(http.MethodDelete, http.StatusServiceUnavailable)
	require.Error(t, s.Remove(ctx, b.ID))
	assertSameTasks(t, srv.Tasks(), s.Tasks())
}

func assertSameTasks(t *testing.T, want, got []model.Task) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Text, got[i].Text)
		assert.Equal(t, want[i].Completed, got[i].Completed)
		assert.Equal(t, want[i].Category, got[i].Category)
		assert.Equal(t, want[i].Priority, got[i].Priority)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestIDSourceNeverRepeats(t *testing.T) {
	g := &idSource{}
	now := time.UnixMilli(1000)
	assert.Equal(t, "1000", g.next(now))
	assert.Equal(t, "1001", g.next(now))
	assert.Equal(t, "1002", g.next(now.Add(-time.Second)))
	assert.Equal(t, "5000", g.next(time.UnixMilli(5000)))
}

// Package taskapitest runs an in-memory task service that speaks the same
// JSON/HTTP contract as the real backend.
package taskapitest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"tasklist/internal/model"
)

// Service keeps tasks in memory and serves /tasks.
type Service struct {
	e *echo.Echo

	mu       sync.Mutex
	tasks    []model.Task
	calls    map[string]int
	failNext map[string]int
	nextID   int64
}

// NewService builds a service with an empty collection.
func NewService(seed ...model.Task) *Service {
	s := &Service{
		e:        echo.New(),
		tasks:    append([]model.Task(nil), seed...),
		calls:    make(map[string]int),
		failNext: make(map[string]int),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.GET("/tasks", s.list)
	s.e.POST("/tasks", s.create)
	s.e.PUT("/tasks/:id", s.update)
	s.e.DELETE("/tasks/:id", s.remove)
	return s
}

// Handler exposes the routes for mounting on any server.
func (s *Service) Handler() http.Handler {
	return s.e
}

// Start listens on addr until the server fails.
func (s *Service) Start(addr string) error {
	return s.e.Start(addr)
}

// Tasks returns a snapshot of the stored collection.
func (s *Service) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...)
}

// Calls reports how many requests with method reached the service.
func (s *Service) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// FailNext makes the next request with method answer status without touching state.
func (s *Service) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[method] = status
}

// Server is a Service listening on a local httptest server.
type Server struct {
	*Service
	URL string
	srv *httptest.Server
}

func NewServer(seed ...model.Task) *Server {
	svc := NewService(seed...)
	srv := httptest.NewServer(svc.Handler())
	return &Server{Service: svc, URL: srv.URL, srv: srv}
}

// Client returns an http.Client wired to the test server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

func (s *Server) Close() {
	s.srv.Close()
}

// begin counts the call and reports an injected failure status, if any.
func (s *Service) begin(method string) int {
	s.calls[method]++
	status, ok := s.failNext[method]
	if !ok {
		return 0
	}
	delete(s.failNext, method)
	return status
}

func (s *Service) list(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status := s.begin(http.MethodGet); status != 0 {
		return c.String(status, http.StatusText(status))
	}
	tasks := s.tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	return writeJSON(c, http.StatusOK, tasks)
}

func (s *Service) create(c echo.Context) error {
	task, err := readTask(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if status := s.begin(http.MethodPost); status != 0 {
		return c.String(status, http.StatusText(status))
	}
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if task.ID == "" {
		s.nextID++
		task.ID = "srv-" + strconv.FormatInt(s.nextID, 10)
	}
	if s.indexOf(task.ID) >= 0 {
		return c.String(http.StatusConflict, "task already exists")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	s.tasks = append(s.tasks, task)
	return writeJSON(c, http.StatusCreated, task)
}

func (s *Service) update(c echo.Context) error {
	task, err := readTask(c)
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if status := s.begin(http.MethodPut); status != 0 {
		return c.String(status, http.StatusText(status))
	}
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return c.String(http.StatusNotFound, "task not found")
	}
	task.ID = id
	task.CreatedAt = s.tasks[idx].CreatedAt
	s.tasks[idx] = task
	return writeJSON(c, http.StatusOK, task)
}

func (s *Service) remove(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if status := s.begin(http.MethodDelete); status != 0 {
		return c.String(status, http.StatusText(status))
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return c.String(http.StatusNotFound, "task not found")
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	return c.NoContent(http.StatusNoContent)
}

func (s *Service) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func readTask(c echo.Context) (model.Task, error) {
	var task model.Task
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return task, err
	}
	err = sonic.ConfigStd.Unmarshal(raw, &task)
	return task, err
}

func writeJSON(c echo.Context, status int, v any) error {
	payload, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, payload)
}

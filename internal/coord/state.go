package coord

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultLogCapacity bounds the coordination log when no capacity is
// configured.
const DefaultLogCapacity = 1000

// Persister archives coordination state to a durable backend. The
// in-memory state is authoritative; archive failures are logged and never
// surfaced to callers.
type Persister interface {
	SaveWorkflow(ctx context.Context, w *Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error
	SaveTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error
	SaveAgent(ctx context.Context, a *Agent) error
	SaveResult(ctx context.Context, r *TaskResult) error
	AppendMessage(ctx context.Context, m *Message) error
}

// Mirror republishes coordination log entries to an external stream.
// Fire-and-forget: there is no delivery guarantee.
type Mirror interface {
	Publish(ctx context.Context, m *Message) error
}

// State holds all coordination stores behind one lock: workflows, tasks,
// agents, task results, and the capped coordination log. Constructed
// explicitly and injected where needed; one per process, or one per test.
type State struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	tasks     map[string]*Task
	agents    map[string]*Agent
	results   map[string]*TaskResult
	log       []*Message
	logCap    int

	persister Persister
	mirror    Mirror
	logger    *zap.Logger
}

// Options configures a State.
type Options struct {
	LogCapacity int
	Logger      *zap.Logger
}

// NewState creates an empty coordination state.
func NewState(opts Options) *State {
	if opts.LogCapacity <= 0 {
		opts.LogCapacity = DefaultLogCapacity
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &State{
		workflows: make(map[string]*Workflow),
		tasks:     make(map[string]*Task),
		agents:    make(map[string]*Agent),
		results:   make(map[string]*TaskResult),
		logCap:    opts.LogCapacity,
		logger:    opts.Logger,
	}
}

// SetPersister attaches a durable archive backend.
func (s *State) SetPersister(p Persister) {
	s.mu.Lock()
	s.persister = p
	s.mu.Unlock()
}

// SetMirror attaches a coordination stream mirror.
func (s *State) SetMirror(m Mirror) {
	s.mu.Lock()
	s.mirror = m
	s.mu.Unlock()
}

// Restore loads archived records into the state. Used at boot before the
// HTTP surface comes up; replaces any records with matching ids.
func (s *State) Restore(workflows []*Workflow, tasks []*Task, agents []*Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range workflows {
		s.workflows[w.ID] = w.clone()
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t.clone()
	}
	for _, a := range agents {
		s.agents[a.ID] = a.clone()
	}
}

// Counts returns the size of each store. Used by the status aggregator.
func (s *State) Counts() (workflows, tasks, agents, messages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workflows), len(s.tasks), len(s.agents), len(s.log)
}

// persist/mirror helpers run outside callers' error paths: the in-memory
// mutation has already happened by the time these fire.

func (s *State) persistWorkflow(w *Workflow) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveWorkflow(context.Background(), w); err != nil {
		s.logger.Warn("archive workflow failed", zap.String("id", w.ID), zap.Error(err))
	}
}

func (s *State) persistWorkflowDelete(id string) {
	if s.persister == nil {
		return
	}
	if err := s.persister.DeleteWorkflow(context.Background(), id); err != nil {
		s.logger.Warn("archive workflow delete failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *State) persistTask(t *Task) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveTask(context.Background(), t); err != nil {
		s.logger.Warn("archive task failed", zap.String("id", t.ID), zap.Error(err))
	}
}

func (s *State) persistTaskDelete(id string) {
	if s.persister == nil {
		return
	}
	if err := s.persister.DeleteTask(context.Background(), id); err != nil {
		s.logger.Warn("archive task delete failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *State) persistAgent(a *Agent) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveAgent(context.Background(), a); err != nil {
		s.logger.Warn("archive agent failed", zap.String("id", a.ID), zap.Error(err))
	}
}

func (s *State) persistResult(r *TaskResult) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveResult(context.Background(), r); err != nil {
		s.logger.Warn("archive result failed", zap.String("task", r.TaskID), zap.Error(err))
	}
}

// appendLog adds an entry to the coordination log, evicting the oldest
// entry once the cap is reached. Caller must hold the write lock.
func (s *State) appendLog(m *Message) {
	s.log = append(s.log, m)
	if len(s.log) > s.logCap {
		s.log = s.log[len(s.log)-s.logCap:]
	}
}

// emit archives and mirrors a log entry. Called after the write lock is
// released; the in-memory append has already happened.
func (s *State) emit(m *Message) {
	if s.persister != nil {
		if err := s.persister.AppendMessage(context.Background(), m); err != nil {
			s.logger.Warn("archive message failed", zap.String("id", m.ID), zap.Error(err))
		}
	}
	if s.mirror != nil {
		if err := s.mirror.Publish(context.Background(), m); err != nil {
			s.logger.Warn("mirror message failed", zap.String("id", m.ID), zap.Error(err))
		}
	}
}

func now() time.Time { return time.Now().UTC() }

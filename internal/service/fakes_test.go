package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"prism/config"
	"prism/internal/event"
	"prism/internal/llm"
	"prism/internal/model"
	"prism/internal/repository"
	"prism/internal/vault"
	"prism/pkg/cache"
	"prism/pkg/logger"
	"prism/pkg/utils"

	"github.com/stretchr/testify/require"
)

const (
	testUser  = "user-1"
	otherUser = "user-2"
)

// memStore backs every fake repository. Entities are stored and returned by value.
type memStore struct {
	mu         sync.Mutex
	nextID     uint
	boards     map[uint]model.Board
	tasks      map[uint]model.Task
	agents     map[uint]model.Agent
	providers  map[uint]model.Provider
	executions map[uint]model.Execution
}

func newMemStore() *memStore {
	return &memStore{
		boards:     map[uint]model.Board{},
		tasks:      map[uint]model.Task{},
		agents:     map[uint]model.Agent{},
		providers:  map[uint]model.Provider{},
		executions: map[uint]model.Execution{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		BoardRepo:     &fakeBoardRepo{m},
		TaskRepo:      &fakeTaskRepo{m},
		AgentRepo:     &fakeAgentRepo{m},
		ProviderRepo:  &fakeProviderRepo{m},
		ExecutionRepo: &fakeExecutionRepo{m},
		UnitOfWork:    fakeUnitOfWork{},
	}
}

func (m *memStore) task(id uint) model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

func (m *memStore) execution(id uint) model.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executions[id]
}

func (m *memStore) executionsOf(taskID uint) []model.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Execution
	for _, e := range m.executions {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionNumber < out[j].ExecutionNumber })
	return out
}

func (m *memStore) taskOwned(t model.Task, userID string) bool {
	b, ok := m.boards[t.BoardID]
	return ok && b.UserID == userID
}

func (m *memStore) withAgent(t model.Task) model.Task {
	t.Agent = nil
	if t.AgentID != nil {
		if a, ok := m.agents[*t.AgentID]; ok {
			t.Agent = &a
		}
	}
	return t
}

type fakeBoardRepo struct{ m *memStore }

func (r *fakeBoardRepo) Create(_ context.Context, board *model.Board, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	board.ID = r.m.id()
	board.CreatedAt = time.Now()
	r.m.boards[board.ID] = *board
	return nil
}

func (r *fakeBoardRepo) FindByID(_ context.Context, id uint, userID string, _ ...utils.DBOption) (*model.Board, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.boards[id]
	if !ok || b.UserID != userID {
		return nil, nil
	}
	return &b, nil
}

func (r *fakeBoardRepo) FindAllByUser(_ context.Context, userID string, _ ...utils.DBOption) ([]model.Board, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Board
	for _, b := range r.m.boards {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeBoardRepo) Update(_ context.Context, board *model.Board, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.boards[board.ID] = *board
	return nil
}

func (r *fakeBoardRepo) Delete(_ context.Context, id uint, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.boards, id)
	for tid, t := range r.m.tasks {
		if t.BoardID == id {
			delete(r.m.tasks, tid)
		}
	}
	return nil
}

type fakeTaskRepo struct{ m *memStore }

func (r *fakeTaskRepo) Create(_ context.Context, task *model.Task, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	task.ID = r.m.id()
	task.CreatedAt = time.Now()
	stored := *task
	stored.Agent = nil
	r.m.tasks[task.ID] = stored
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id uint, userID string, _ ...utils.DBOption) (*model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tasks[id]
	if !ok || !r.m.taskOwned(t, userID) {
		return nil, nil
	}
	t = r.m.withAgent(t)
	return &t, nil
}

func (r *fakeTaskRepo) FindByIDs(_ context.Context, ids []uint, userID string, _ ...utils.DBOption) ([]model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Task
	for _, id := range ids {
		if t, ok := r.m.tasks[id]; ok && r.m.taskOwned(t, userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) FindAllByBoard(_ context.Context, boardID uint, _ ...utils.DBOption) ([]model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Task
	for _, t := range r.m.tasks {
		if t.BoardID == boardID {
			out = append(out, r.m.withAgent(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *fakeTaskRepo) MaxPosition(_ context.Context, boardID uint, status model.TaskStatus, _ ...utils.DBOption) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	max := -1
	for _, t := range r.m.tasks {
		if t.BoardID == boardID && t.Status == status && t.Position > max {
			max = t.Position
		}
	}
	return max, nil
}

// Update copies the editable fields only, like the column-scoped SQL update.
func (r *fakeTaskRepo) Update(_ context.Context, task *model.Task, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.tasks[task.ID]
	if !ok {
		return nil
	}
	stored.AgentID = task.AgentID
	stored.Title = task.Title
	stored.Description = task.Description
	stored.Priority = task.Priority
	stored.DueDate = task.DueDate
	stored.ReferencedTaskIDs = task.ReferencedTaskIDs
	stored.UpdatedAt = time.Now()
	r.m.tasks[task.ID] = stored
	return nil
}

func (r *fakeTaskRepo) UpdatePosition(_ context.Context, id uint, position int, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.tasks[id]
	if !ok {
		return nil
	}
	stored.Position = position
	stored.UpdatedAt = time.Now()
	r.m.tasks[id] = stored
	return nil
}

func (r *fakeTaskRepo) Transition(_ context.Context, task *model.Task, from model.TaskStatus, _ ...utils.DBOption) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.tasks[task.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = task.Status
	stored.Description = task.Description
	stored.UpdatedAt = time.Now()
	r.m.tasks[task.ID] = stored
	return true, nil
}

// staleTaskRepo serves a saved snapshot on the next FindByID, standing in for a
// read that another writer overtakes before the write lands.
type staleTaskRepo struct {
	*fakeTaskRepo
	mu    sync.Mutex
	stale *model.Task
}

func (r *staleTaskRepo) serveOnce(task model.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = &task
}

func (r *staleTaskRepo) FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Task, error) {
	r.mu.Lock()
	stale := r.stale
	r.stale = nil
	r.mu.Unlock()
	if stale != nil && stale.ID == id {
		return stale, nil
	}
	return r.fakeTaskRepo.FindByID(ctx, id, userID, opts...)
}

func (r *fakeTaskRepo) Delete(_ context.Context, id uint, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.tasks, id)
	return nil
}

type fakeAgentRepo struct{ m *memStore }

func (r *fakeAgentRepo) Create(_ context.Context, agent *model.Agent, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	agent.ID = r.m.id()
	stored := *agent
	stored.Provider = nil
	r.m.agents[agent.ID] = stored
	return nil
}

func (r *fakeAgentRepo) withProvider(a model.Agent) model.Agent {
	if p, ok := r.m.providers[a.ProviderID]; ok {
		a.Provider = &p
	}
	return a
}

func (r *fakeAgentRepo) FindByID(_ context.Context, id uint, userID string, _ ...utils.DBOption) (*model.Agent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.agents[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	a = r.withProvider(a)
	return &a, nil
}

func (r *fakeAgentRepo) FindByName(_ context.Context, userID string, name string, _ ...utils.DBOption) (*model.Agent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.agents {
		if a.UserID == userID && a.Name == name {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *fakeAgentRepo) FindAllByUser(_ context.Context, userID string, _ ...utils.DBOption) ([]model.Agent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Agent
	for _, a := range r.m.agents {
		if a.UserID == userID {
			out = append(out, r.withProvider(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAgentRepo) Update(_ context.Context, agent *model.Agent, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored := *agent
	stored.Provider = nil
	r.m.agents[agent.ID] = stored
	return nil
}

func (r *fakeAgentRepo) Delete(_ context.Context, id uint, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.agents, id)
	return nil
}

type fakeProviderRepo struct{ m *memStore }

func (r *fakeProviderRepo) Create(_ context.Context, provider *model.Provider, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	provider.ID = r.m.id()
	r.m.providers[provider.ID] = *provider
	return nil
}

func (r *fakeProviderRepo) FindByID(_ context.Context, id uint, userID string, _ ...utils.DBOption) (*model.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.providers[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProviderRepo) FindByName(_ context.Context, userID string, name string, _ ...utils.DBOption) (*model.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.providers {
		if p.UserID == userID && p.Name == name {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeProviderRepo) FindAllByUser(_ context.Context, userID string, _ ...utils.DBOption) ([]model.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Provider
	for _, p := range r.m.providers {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProviderRepo) Update(_ context.Context, provider *model.Provider, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.providers[provider.ID] = *provider
	return nil
}

func (r *fakeProviderRepo) UpdateModels(_ context.Context, id uint, models []string, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.providers[id]
	if !ok {
		return errors.New("provider not found")
	}
	p.Models = models
	r.m.providers[id] = p
	return nil
}

func (r *fakeProviderRepo) Delete(_ context.Context, id uint, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.providers, id)
	return nil
}

type fakeExecutionRepo struct{ m *memStore }

func (r *fakeExecutionRepo) Create(_ context.Context, execution *model.Execution, _ ...utils.DBOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	execution.ID = r.m.id()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now()
	}
	stored := *execution
	stored.Task, stored.Agent = nil, nil
	r.m.executions[execution.ID] = stored
	return nil
}

func (r *fakeExecutionRepo) CountByTask(_ context.Context, taskID uint, _ ...utils.DBOption) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var count int64
	for _, e := range r.m.executions {
		if e.TaskID == taskID {
			count++
		}
	}
	return count, nil
}

func (r *fakeExecutionRepo) FindByID(_ context.Context, id uint, userID string, _ ...utils.DBOption) (*model.Execution, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.executions[id]
	if !ok {
		return nil, nil
	}
	if t, ok := r.m.tasks[e.TaskID]; !ok || !r.m.taskOwned(t, userID) {
		return nil, nil
	}
	return &e, nil
}

func (r *fakeExecutionRepo) FindAllByTask(_ context.Context, taskID uint, _ ...utils.DBOption) ([]model.Execution, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Execution
	for _, e := range r.m.executions {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionNumber > out[j].ExecutionNumber })
	return out, nil
}

func (r *fakeExecutionRepo) FindLatestByTasks(_ context.Context, taskIDs []uint, status *model.ExecutionStatus, _ ...utils.DBOption) (map[uint]model.Execution, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	wanted := make(map[uint]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}
	out := map[uint]model.Execution{}
	for _, e := range r.m.executions {
		if !wanted[e.TaskID] || (status != nil && e.Status != *status) {
			continue
		}
		if cur, ok := out[e.TaskID]; !ok || e.ExecutionNumber > cur.ExecutionNumber {
			out[e.TaskID] = e
		}
	}
	return out, nil
}

func (r *fakeExecutionRepo) MarkRunning(_ context.Context, id uint, startedAt time.Time, _ ...utils.DBOption) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.executions[id]
	if !ok || e.Status != model.ExecutionStatusPending || e.CompletedAt.Valid {
		return false, nil
	}
	e.Status = model.ExecutionStatusRunning
	e.StartedAt.Time, e.StartedAt.Valid = startedAt, true
	r.m.executions[id] = e
	return true, nil
}

func (r *fakeExecutionRepo) Finish(_ context.Context, execution *model.Execution, _ ...utils.DBOption) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.executions[execution.ID]
	if !ok || e.CompletedAt.Valid {
		return false, nil
	}
	e.Status = execution.Status
	e.OutputResult = execution.OutputResult
	e.InputTokens = execution.InputTokens
	e.OutputTokens = execution.OutputTokens
	e.DurationMs = execution.DurationMs
	e.ErrorMessage = execution.ErrorMessage
	e.StartedAt = execution.StartedAt
	e.CompletedAt = execution.CompletedAt
	r.m.executions[execution.ID] = e
	return true, nil
}

func (r *fakeExecutionRepo) FindStuck(_ context.Context, createdBefore time.Time, _ ...utils.DBOption) ([]model.Execution, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Execution
	for _, e := range r.m.executions {
		if e.CompletedAt.Valid || !e.CreatedAt.Before(createdBefore) {
			continue
		}
		if e.Status != model.ExecutionStatusPending && e.Status != model.ExecutionStatusRunning {
			continue
		}
		if t, ok := r.m.tasks[e.TaskID]; ok {
			if b, ok := r.m.boards[t.BoardID]; ok {
				t.Board = &b
			}
			e.Task = &t
		}
		if a, ok := r.m.agents[e.AgentID]; ok {
			e.Agent = &a
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Run(_ context.Context, fn func(opts ...utils.DBOption) error) error {
	return fn()
}

type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Subscribe(context.Context, string, uint) *event.Subscription { return nil }

func (b *recordingBus) Emit(evt event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
}

func (b *recordingBus) ActiveConnectionCount() int { return 0 }
func (b *recordingBus) UserConnectionCount(string) int { return 0 }
func (b *recordingBus) Close() {}

func (b *recordingBus) types() []event.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Type, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

func (b *recordingBus) last(t event.Type) (event.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Type == t {
			return b.events[i], true
		}
	}
	return event.Event{}, false
}

type recordingPublisher struct {
	mu        sync.Mutex
	completed []event.TaskEvent
	failed    []event.TaskEvent
}

func (p *recordingPublisher) Start(context.Context) {}
func (p *recordingPublisher) Send(context.Context, string, event.TaskEvent) {}
func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) PublishTaskCompleted(_ context.Context, evt event.TaskEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, evt)
}

func (p *recordingPublisher) PublishTaskFailed(_ context.Context, evt event.TaskEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, evt)
}

func (p *recordingPublisher) snapshot() ([]event.TaskEvent, []event.TaskEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.TaskEvent(nil), p.completed...), append([]event.TaskEvent(nil), p.failed...)
}

// fakeAI answers through fn and records every request.
type fakeAI struct {
	mu       sync.Mutex
	requests []llm.GenerateRequest
	fn       func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

func (f *fakeAI) Generate(ctx context.Context, _ string, _ uint, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func answer(content string) func(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return func(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Content: content, InputTokens: 10, OutputTokens: 20, Model: "test-model"}, nil
	}
}

type fakeLLMProvider struct {
	models    []string
	listErr   error
	listCalls int
	generate  func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

func (p *fakeLLMProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return p.generate(ctx, req)
}

func (p *fakeLLMProvider) ListModels(context.Context) ([]string, error) {
	p.listCalls++
	return p.models, p.listErr
}

func (p *fakeLLMProvider) TestConnection(context.Context) bool {
	return p.listErr == nil
}

type fakeFactory struct {
	provider  *fakeLLMProvider
	createErr error
	created   []llm.Credentials
	forgotten []uint
}

func (f *fakeFactory) Create(_ context.Context, creds llm.Credentials) (llm.Provider, error) {
	f.created = append(f.created, creds)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.provider, nil
}

func (f *fakeFactory) Forget(providerID uint) {
	f.forgotten = append(f.forgotten, providerID)
}

func testConfig() *config.Config {
	return &config.Config{
		Provider: config.Provider{ModelsCacheTTL: time.Minute},
		Execution: config.Execution{
			Timeout:              time.Second,
			StuckAfter:           15 * time.Minute,
			ReferenceOutputLimit: 3000,
			MaxConcurrency:       4,
		},
	}
}

func newTestVault(t *testing.T) vault.Vault {
	t.Helper()
	v, err := vault.New("test-32-byte-encryption-key-ok!!", false, logger.NewNop())
	require.NoError(t, err)
	return v
}

// fixture wires the real services over the in-memory store.
type fixture struct {
	store     *memStore
	bus       *recordingBus
	publisher *recordingPublisher
	ai        *fakeAI
	factory   *fakeFactory
	vault     vault.Vault
	cfg       *config.Config
	taskRepo  *staleTaskRepo

	boards     BoardService
	providers  ProviderService
	agents     AgentService
	tasks      TaskService
	executions ExecutionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testConfig())
}

func newFixtureWithConfig(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	log := logger.NewNop()
	f := &fixture{
		store:     newMemStore(),
		bus:       &recordingBus{},
		publisher: &recordingPublisher{},
		ai:        &fakeAI{fn: answer("X")},
		factory:   &fakeFactory{provider: &fakeLLMProvider{models: []string{"m1", "m2"}}},
		vault:     newTestVault(t),
		cfg:       cfg,
	}
	repo := f.store.repository()
	f.taskRepo = &staleTaskRepo{fakeTaskRepo: repo.TaskRepo.(*fakeTaskRepo)}
	f.boards = NewBoardService(log, repo.BoardRepo)
	f.providers = NewProviderService(cfg, log, repo.ProviderRepo, f.vault, f.factory, cache.NewCache(time.Minute, time.Minute))
	f.agents = NewAgentService(log, repo.AgentRepo, repo.ProviderRepo)
	f.tasks = NewTaskService(log, repo.BoardRepo, f.taskRepo, repo.AgentRepo, repo.ExecutionRepo, f.bus)
	f.executions = NewExecutionService(cfg, log, repo.UnitOfWork, f.taskRepo, repo.ExecutionRepo, f.tasks, f.agents, f.ai, f.bus, f.publisher)
	return f
}

func (f *fixture) seedBoard(t *testing.T, userID string) uint {
	t.Helper()
	b := &model.Board{UserID: userID, Name: "board"}
	require.NoError(t, f.store.repository().BoardRepo.Create(context.Background(), b))
	return b.ID
}

func (f *fixture) seedAgent(t *testing.T, userID string) uint {
	t.Helper()
	ctx := context.Background()
	repo := f.store.repository()
	encrypted, err := f.vault.Encrypt("sk-test-key-123456")
	require.NoError(t, err)
	p := &model.Provider{UserID: userID, Name: "provider-" + userID, Type: model.ProviderTypeOpenAI, APIKeyEncrypted: encrypted, IsActive: true}
	require.NoError(t, repo.ProviderRepo.Create(ctx, p))
	a := &model.Agent{
		UserID:      userID,
		ProviderID:  p.ID,
		Name:        "writer",
		Model:       "gpt-test",
		Temperature: 0.2,
		MaxTokens:   256,
		IsActive:    true,
	}
	a.SystemPrompt.String, a.SystemPrompt.Valid = "be brief", true
	require.NoError(t, repo.AgentRepo.Create(ctx, a))
	return a.ID
}

func (f *fixture) seedTask(t *testing.T, boardID uint, agentID *uint, status model.TaskStatus) uint {
	t.Helper()
	task := &model.Task{BoardID: boardID, AgentID: agentID, Title: "Write intro", Status: status, Priority: model.TaskPriorityMedium}
	require.NoError(t, f.store.repository().TaskRepo.Create(context.Background(), task))
	return task.ID
}

func (f *fixture) seedExecution(t *testing.T, e model.Execution) uint {
	t.Helper()
	require.NoError(t, f.store.repository().ExecutionRepo.Create(context.Background(), &e))
	return e.ID
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

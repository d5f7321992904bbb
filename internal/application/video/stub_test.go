package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alle-ai/alle-go/internal/application/workbench"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/persist"
	"github.com/alle-ai/alle-go/internal/pkg/clock"
	"github.com/alle-ai/alle-go/internal/pkg/logger"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubBackend struct {
	mu       sync.Mutex
	statuses map[string]domain.VideoJobStatus
	errs     map[string]error
	checked  []string
	onCheck  func(jobID string)

	generated []domain.VideoGenerationRequest
	genResult domain.VideoGenerationResult
	genErr    error
	nextJob   int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		statuses: make(map[string]domain.VideoJobStatus),
		errs:     make(map[string]error),
	}
}

func (s *stubBackend) CheckStatus(ctx context.Context, jobID string) (domain.VideoJobStatus, error) {
	s.mu.Lock()
	s.checked = append(s.checked, jobID)
	hook := s.onCheck
	status, ok := s.statuses[jobID]
	err := s.errs[jobID]
	s.mu.Unlock()

	if hook != nil {
		hook(jobID)
	}
	if err != nil {
		return domain.VideoJobStatus{}, err
	}
	if !ok {
		status = domain.VideoJobStatus{Status: domain.JobProcessing}
	}
	return status, nil
}

func (s *stubBackend) Generate(ctx context.Context, req domain.VideoGenerationRequest) (domain.VideoGenerationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = append(s.generated, req)
	if s.genErr != nil {
		return domain.VideoGenerationResult{}, s.genErr
	}
	if s.genResult.Message != "" || s.genResult.Status {
		return s.genResult, nil
	}
	s.nextJob++
	result := domain.VideoGenerationResult{Status: true}
	result.Data.ID = "inv-" + string(rune('0'+s.nextJob))
	result.Data.Response = "job-" + string(rune('0'+s.nextJob))
	return result, nil
}

func (s *stubBackend) set(jobID string, status domain.VideoJobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[jobID] = status
}

func (s *stubBackend) checks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.checked...)
}

var errUnreachable = errors.New("connection refused")

func newQueue(t *testing.T, clk *clock.Fake) *workbench.Manager {
	t.Helper()
	m := workbench.NewManager(workbench.Options{
		Store:  persist.NewMemoryStore(),
		Clock:  clk,
		Logger: logger.Nop{},
	})
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	return m
}

func enqueue(t *testing.T, q *workbench.Manager, id, jobID string) {
	t.Helper()
	item := domain.NewVideoQueueItem(id, jobID, "", "prompt "+id, []string{"veo-2"}, testNow)
	if err := q.AddVideoItem(context.Background(), item); err != nil {
		t.Fatalf("AddVideoItem error: %v", err)
	}
}

package taskstore

import (
	"context"
	"errors"
	"testing"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

type fakeStore struct {
	pending  []TranslateRecord
	claimed  []uint64
	taken    map[uint64]bool
	progress map[uint64][]float64
	done     map[uint64]string
	failed   []uint64
	listErr  error
}

func newFakeStore(records ...TranslateRecord) *fakeStore {
	return &fakeStore{
		pending:  records,
		taken:    make(map[uint64]bool),
		progress: make(map[uint64][]float64),
		done:     make(map[uint64]string),
	}
}

func (s *fakeStore) PendingTasks(_ context.Context, limit int) ([]TranslateRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) Claim(_ context.Context, id uint64) (bool, error) {
	if s.taken[id] {
		return false, nil
	}
	s.taken[id] = true
	s.claimed = append(s.claimed, id)
	return true, nil
}

func (s *fakeStore) UpdateProgress(_ context.Context, id uint64, percent float64) error {
	s.progress[id] = append(s.progress[id], percent)
	return nil
}

func (s *fakeStore) MarkDone(_ context.Context, id uint64, targetPath string) error {
	s.done[id] = targetPath
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id uint64) error {
	s.failed = append(s.failed, id)
	return nil
}

func TestRunOnceProcessesPendingTasks(t *testing.T) {
	store := newFakeStore(
		TranslateRecord{ID: 1, OriginFilepath: "/data/a.pdf", OriginLang: "en", TargetLang: "zh"},
		TranslateRecord{ID: 2, OriginFilepath: "/data/b.pdf", OriginLang: "en", TargetLang: "zh"},
	)

	var ran []uint64
	runner := func(_ context.Context, rec *TranslateRecord, onProgress func(float64)) (string, error) {
		ran = append(ran, rec.ID)
		onProgress(50)
		onProgress(100)
		return "/out/" + rec.OriginFilepath, nil
	}

	p := NewPoller(store, runner, logger.NewNop())
	n, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 2 {
		t.Errorf("processed = %d, want 2", n)
	}
	if len(ran) != 2 || ran[0] != 1 || ran[1] != 2 {
		t.Errorf("ran = %v, want [1 2]", ran)
	}
	if got := store.done[1]; got != "/out//data/a.pdf" {
		t.Errorf("done[1] = %q", got)
	}
	if got := store.progress[2]; len(got) != 2 || got[1] != 100 {
		t.Errorf("progress[2] = %v", got)
	}
	if len(store.failed) != 0 {
		t.Errorf("failed = %v, want none", store.failed)
	}
}

func TestRunOnceMarksFailedTask(t *testing.T) {
	store := newFakeStore(TranslateRecord{ID: 7, OriginFilepath: "/data/x.pdf"})
	runner := func(context.Context, *TranslateRecord, func(float64)) (string, error) {
		return "", errors.New("provider unavailable")
	}

	p := NewPoller(store, runner, logger.NewNop())
	n, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}
	if len(store.failed) != 1 || store.failed[0] != 7 {
		t.Errorf("failed = %v, want [7]", store.failed)
	}
	if len(store.done) != 0 {
		t.Errorf("done = %v, want none", store.done)
	}
}

func TestRunOnceSkipsAlreadyClaimed(t *testing.T) {
	store := newFakeStore(TranslateRecord{ID: 3})
	store.taken[3] = true

	var ran int
	runner := func(context.Context, *TranslateRecord, func(float64)) (string, error) {
		ran++
		return "out.pdf", nil
	}

	p := NewPoller(store, runner, logger.NewNop())
	n, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 || ran != 0 {
		t.Errorf("processed=%d ran=%d, want 0/0", n, ran)
	}
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	store := newFakeStore(
		TranslateRecord{ID: 1}, TranslateRecord{ID: 2}, TranslateRecord{ID: 3},
	)
	runner := func(context.Context, *TranslateRecord, func(float64)) (string, error) {
		return "out.pdf", nil
	}

	p := NewPoller(store, runner, logger.NewNop(), WithBatchSize(2))
	n, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 2 {
		t.Errorf("processed = %d, want 2", n)
	}
}

func TestRecordService(t *testing.T) {
	rec := TranslateRecord{Model: ""}
	if got := rec.Service(); got != "google" {
		t.Errorf("Service() = %q, want google", got)
	}
	rec.Model = "openai:gpt-4o-mini"
	if got := rec.Service(); got != "openai:gpt-4o-mini" {
		t.Errorf("Service() = %q", got)
	}
}

package translation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
	"github.com/pdf2zh/pdf2zh/pkg/queue"
)

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []*queue.TranslateTask
	statuses map[string]*queue.Status
	failNext bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{statuses: make(map[string]*queue.Status)}
}

func (f *fakeQueue) Enqueue(_ context.Context, task *queue.TranslateTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return fmt.Errorf("queue unavailable")
	}
	f.enqueued = append(f.enqueued, task)
	f.statuses[task.ID] = &queue.Status{TaskID: task.ID, Status: "pending"}
	return nil
}

func (f *fakeQueue) GetStatus(_ context.Context, taskID string) (*queue.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	return s, nil
}

func (f *fakeQueue) SaveStatus(_ context.Context, status *queue.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[status.TaskID] = status
	return nil
}

func (f *fakeQueue) Cancel(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.statuses[taskID]; !ok {
		return fmt.Errorf("task not found")
	}
	f.statuses[taskID] = &queue.Status{TaskID: taskID, Status: "cancelled"}
	return nil
}

func (f *fakeQueue) Close() error { return nil }

type fakeStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeStorage() *fakeStorage { return &fakeStorage{data: make(map[string][]byte)} }

func (f *fakeStorage) Store(_ context.Context, r io.Reader, key string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.data[key] = data
	f.mu.Unlock()
	return key, nil
}

func (f *fakeStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeStorage) CleanupBefore(context.Context, time.Time) error { return nil }

func uploadHeader(t *testing.T, name string, content []byte) (*multipart.FileHeader, multipart.File) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	w.Close()

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	header := req.MultipartForm.File["file"][0]
	file, err := header.Open()
	if err != nil {
		t.Fatal(err)
	}
	return header, file
}

func newTestService(q *fakeQueue, store *fakeStorage) Service {
	return NewService(q, store, nil, logger.NewNop(), nil)
}

func TestSubmitFile(t *testing.T) {
	q := newFakeQueue()
	store := newFakeStorage()
	svc := newTestService(q, store)

	header, file := uploadHeader(t, "paper.pdf", []byte("%PDF-1.4"))
	defer file.Close()

	task, err := svc.SubmitFile(context.Background(), file, header, models.TranslationOptions{
		LangIn: "en", LangOut: "zh", Service: "google",
	})
	if err != nil {
		t.Fatalf("SubmitFile returned error: %v", err)
	}

	if task.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(q.enqueued))
	}
	if q.enqueued[0].FileName != "paper.pdf" {
		t.Errorf("enqueued filename = %q", q.enqueued[0].FileName)
	}
	if _, err := store.Get(context.Background(), q.enqueued[0].InputKey); err != nil {
		t.Errorf("upload not stored: %v", err)
	}
}

func TestSubmitFileRejectsNonPDF(t *testing.T) {
	svc := newTestService(newFakeQueue(), newFakeStorage())
	header, file := uploadHeader(t, "notes.txt", []byte("text"))
	defer file.Close()

	if _, err := svc.SubmitFile(context.Background(), file, header, models.TranslationOptions{Service: "google"}); err == nil {
		t.Error("expected error for non-pdf upload")
	}
}

func TestSubmitFileRejectsUnknownService(t *testing.T) {
	svc := newTestService(newFakeQueue(), newFakeStorage())
	header, file := uploadHeader(t, "paper.pdf", []byte("%PDF"))
	defer file.Close()

	if _, err := svc.SubmitFile(context.Background(), file, header, models.TranslationOptions{Service: "nosuch"}); err == nil {
		t.Error("expected error for unknown service")
	}
}

func TestSubmitFileCleansUpOnEnqueueFailure(t *testing.T) {
	q := newFakeQueue()
	q.failNext = true
	store := newFakeStorage()
	svc := newTestService(q, store)

	header, file := uploadHeader(t, "paper.pdf", []byte("%PDF"))
	defer file.Close()

	if _, err := svc.SubmitFile(context.Background(), file, header, models.TranslationOptions{Service: "google"}); err == nil {
		t.Fatal("expected enqueue error")
	}
	if len(store.data) != 0 {
		t.Error("orphaned upload left in storage after enqueue failure")
	}
}

func TestGetStatusMapsFields(t *testing.T) {
	q := newFakeQueue()
	q.statuses["t1"] = &queue.Status{
		TaskID:   "t1",
		Status:   "running",
		Stage:    "translating",
		Progress: 42,
	}
	svc := newTestService(q, newFakeStorage())

	task, err := svc.GetStatus(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != models.StatusRunning || task.Progress != 42 {
		t.Errorf("task = %+v", task)
	}
	if task.Metadata["stage"] != "translating" {
		t.Errorf("stage metadata = %q", task.Metadata["stage"])
	}
}

func TestGetOutput(t *testing.T) {
	q := newFakeQueue()
	store := newFakeStorage()
	store.Store(context.Background(), bytes.NewReader([]byte("mono pdf")), "results/t1/paper-zh.pdf")
	store.Store(context.Background(), bytes.NewReader([]byte("dual pdf")), "results/t1/paper-dual.pdf")
	q.statuses["t1"] = &queue.Status{
		TaskID:  "t1",
		Status:  "completed",
		MonoKey: "results/t1/paper-zh.pdf",
		DualKey: "results/t1/paper-dual.pdf",
	}
	svc := newTestService(q, store)

	r, name, err := svc.GetOutput(context.Background(), "t1", models.VariantDual)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "dual pdf" {
		t.Errorf("content = %q", data)
	}
	if name != "paper-dual.pdf" {
		t.Errorf("name = %q", name)
	}
}

func TestGetOutputIncompleteTask(t *testing.T) {
	q := newFakeQueue()
	q.statuses["t1"] = &queue.Status{TaskID: "t1", Status: "running"}
	svc := newTestService(q, newFakeStorage())

	if _, _, err := svc.GetOutput(context.Background(), "t1", models.VariantMono); err == nil {
		t.Error("expected error for incomplete task")
	}
}

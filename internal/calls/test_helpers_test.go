package calls

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/storage/object"
	local "compliance-backend/internal/shared/storage/object/local"
)

type queueStub struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *queueStub) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

func (q *queueStub) sent() []queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]queue.Message, len(q.messages))
	copy(out, q.messages)
	return out
}

type transcriberStub struct {
	text     string
	err      error
	panicMsg string
	keys     []string
}

func (t *transcriberStub) Transcribe(ctx context.Context, mediaKey string) (string, error) {
	t.keys = append(t.keys, mediaKey)
	if t.panicMsg != "" {
		panic(t.panicMsg)
	}
	return t.text, t.err
}

func staticLLM(out string, err error) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, transcript string) (string, error) {
		return out, err
	})
}

func newTestService(t *testing.T, client llm.Client) (*Service, *MemoryRepo, object.ObjectStore, *queueStub) {
	t.Helper()
	repo := NewMemoryRepo()
	store := local.New(t.TempDir())
	q := &queueStub{}
	svc := &Service{
		Repo:     repo,
		Store:    store,
		Queue:    q,
		LLM:      client,
		Provider: "test",
	}
	return svc, repo, store, q
}

func seedCall(t *testing.T, svc *Service, contactID string) Call {
	t.Helper()
	call, err := svc.Register(context.Background(), contactID, "0912345678", "support")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return call
}

func readObject(t *testing.T, store object.ObjectStore, key string) string {
	t.Helper()
	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open %s: %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return string(data)
}

func waitForStatus(t *testing.T, repo Repo, contactID, status string) Call {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		call, err := repo.GetByID(context.Background(), contactID)
		if err == nil && call.AnalysisStatus == status {
			return call
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for status %q, last %+v err=%v", status, call, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func countingLLM(base llm.Client, n *int) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, transcript string) (string, error) {
		*n++
		return base.Analyze(ctx, transcript)
	})
}

package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

type mockChat struct {
	calls    int
	messages []openai.ChatCompletionMessage
	reply    string
	errs     []error
}

func (m *mockChat) Complete(_ context.Context, messages []openai.ChatCompletionMessage, _ int, _ float32) (string, error) {
	m.calls++
	m.messages = messages
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return m.reply, nil
}

func newTestGenerator(chat ChatClient) *Generator {
	g := NewGenerator(chat, 1500, 0.7, nil)
	g.retry.InitialWait = 0
	g.retry.MaxWait = 0
	g.retry.Jitter = false
	return g
}

func TestBuildMessages_Order(t *testing.T) {
	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "first question"},
		{Role: domain.RoleAssistant, Content: "first answer"},
	}
	msgs := BuildMessages("next question", "some context", history)

	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem || !strings.Contains(msgs[0].Content, "Vietnam travel consultant") {
		t.Error("persona must come first")
	}
	if msgs[1].Content != "first question" || msgs[2].Content != "first answer" {
		t.Error("history must follow the persona in arrival order")
	}
	if msgs[3].Role != openai.ChatMessageRoleSystem || !strings.Contains(msgs[3].Content, "some context") {
		t.Error("context block must precede the query")
	}
	if msgs[4].Role != openai.ChatMessageRoleUser || msgs[4].Content != "next question" {
		t.Error("user query must come last")
	}
}

func TestBuildMessages_HistoryWindow(t *testing.T) {
	var history []domain.Turn
	for i := 0; i < 10; i++ {
		history = append(history, domain.Turn{Role: domain.RoleUser, Content: string(rune('a' + i))})
	}
	msgs := BuildMessages("q", "c", history)

	// persona + 6 history + context + query
	if len(msgs) != 9 {
		t.Fatalf("expected 9 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "e" {
		t.Errorf("oldest retained turn = %q, want %q", msgs[1].Content, "e")
	}
}

func TestGenerate_Success(t *testing.T) {
	chat := &mockChat{reply: "  Visit Da Nang in spring.  "}
	g := newTestGenerator(chat)

	reply, err := g.Generate(context.Background(), "when to visit Da Nang?", NoContextFound, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Visit Da Nang in spring." {
		t.Errorf("reply not trimmed: %q", reply)
	}
	if !strings.Contains(chat.messages[1].Content, NoContextFound) {
		t.Error("no-context sentinel must still reach the model")
	}
}

func TestGenerate_RetriesTransient(t *testing.T) {
	transient := domain.Transient(errors.New("rate limited"))
	chat := &mockChat{
		reply: "ok",
		errs:  []error{transient, transient, nil},
	}
	g := newTestGenerator(chat)

	reply, err := g.Generate(context.Background(), "q", "c", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "ok" {
		t.Errorf("reply = %q", reply)
	}
	if chat.calls != 3 {
		t.Errorf("calls = %d, want 3", chat.calls)
	}
}

func TestGenerate_PermanentFailure(t *testing.T) {
	chat := &mockChat{errs: []error{errors.New("invalid model")}}
	g := newTestGenerator(chat)

	_, err := g.Generate(context.Background(), "q", "c", nil)
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if chat.calls != 1 {
		t.Errorf("permanent failures must not retry, got %d calls", chat.calls)
	}
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	transient := domain.Transient(errors.New("upstream 502"))
	chat := &mockChat{errs: []error{transient, transient, transient}}
	g := newTestGenerator(chat)

	_, err := g.Generate(context.Background(), "q", "c", nil)
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if chat.calls != 3 {
		t.Errorf("calls = %d, want 3", chat.calls)
	}
}

func TestClassifyChatError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{429, true},
		{408, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
	}
	for _, tt := range tests {
		err := classifyChatError(&openai.APIError{HTTPStatusCode: tt.status})
		if got := domain.IsTransient(err); got != tt.transient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, got, tt.transient)
		}
	}

	plain := errors.New("dial tcp: no such host")
	if domain.IsTransient(classifyChatError(plain)) {
		t.Error("unclassified errors must pass through unchanged")
	}
}

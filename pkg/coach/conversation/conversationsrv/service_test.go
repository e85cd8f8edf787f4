package conversationsrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Abraxas-365/certcoach/pkg/coach/conversation"
	"github.com/Abraxas-365/certcoach/pkg/config"
	"github.com/Abraxas-365/certcoach/pkg/errx"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeSessionStore struct {
	payloads map[string][]byte
	getErr   error
	setErr   error
	setCalls int
	lastTTL  time.Duration
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{payloads: make(map[string][]byte)}
}

func (f *fakeSessionStore) Get(ctx context.Context, key conversation.SessionKey) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	payload, ok := f.payloads[key.String()]
	return payload, ok, nil
}

func (f *fakeSessionStore) Set(ctx context.Context, key conversation.SessionKey, payload []byte, ttl time.Duration) error {
	f.setCalls++
	f.lastTTL = ttl
	if f.setErr != nil {
		return f.setErr
	}
	f.payloads[key.String()] = payload
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, key conversation.SessionKey) error {
	delete(f.payloads, key.String())
	return nil
}

type scriptedCompleter struct {
	reply   string
	err     error
	prompts [][]conversation.Message
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt []conversation.Message) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type recordingTranscripts struct {
	entries []conversation.TranscriptEntry
	saveErr error
}

func (r *recordingTranscripts) Save(ctx context.Context, entry conversation.TranscriptEntry) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingTranscripts) FindBySessionKey(ctx context.Context, key conversation.SessionKey, limit int) ([]conversation.TranscriptEntry, error) {
	var out []conversation.TranscriptEntry
	for _, e := range r.entries {
		if e.SessionKey == key.String() {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ============================================================================
// Helpers
// ============================================================================

func testChatConfig() *config.ChatConfig {
	return &config.ChatConfig{
		HistoryLimit:  20,
		PromptWindow:  20,
		SessionTTL:    time.Hour,
		MaxMessageLen: 2000,
		SystemPrompt:  "You are an AWS tutor.",
		Store:         "memory",
	}
}

func newTestService(store *fakeSessionStore, completer *scriptedCompleter, transcripts conversation.TranscriptRepository) *ConversationService {
	return NewConversationService(store, completer, transcripts, testChatConfig())
}

// seedStore writes `exchanges` complete question/answer pairs for the key
func seedStore(t *testing.T, store *fakeSessionStore, key string, exchanges int) conversation.History {
	t.Helper()
	history := conversation.History{}
	for i := 1; i <= exchanges; i++ {
		history = append(history,
			conversation.NewUserMessage(fmt.Sprintf("q%d", i)),
			conversation.NewAssistantMessage(fmt.Sprintf("a%d", i)),
		)
	}
	payload, err := json.Marshal(history)
	if err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}
	store.payloads[key] = payload
	return history
}

func storedHistory(t *testing.T, store *fakeSessionStore, key string) conversation.History {
	t.Helper()
	payload, ok := store.payloads[key]
	if !ok {
		t.Fatalf("no history stored for %q", key)
	}
	var history conversation.History
	if err := json.Unmarshal(payload, &history); err != nil {
		t.Fatalf("stored history is not valid JSON: %v", err)
	}
	return history
}

// ============================================================================
// SubmitMessage
// ============================================================================

func TestSubmitMessageFirstExchange(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "S3 is object storage."}
	svc := newTestService(store, completer, nil)

	resp, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "What is S3?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != "S3 is object storage." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.HistoryLength != 2 {
		t.Errorf("expected history length 2, got %d", resp.HistoryLength)
	}

	if len(completer.prompts) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completer.prompts))
	}
	prompt := completer.prompts[0]
	if len(prompt) != 2 {
		t.Fatalf("expected prompt [system, user], got %d messages", len(prompt))
	}
	if prompt[0].Role != conversation.RoleSystem || prompt[0].Content != "You are an AWS tutor." {
		t.Errorf("unexpected system message: %+v", prompt[0])
	}
	if prompt[1].Role != conversation.RoleUser || prompt[1].Content != "What is S3?" {
		t.Errorf("unexpected user message: %+v", prompt[1])
	}

	stored := storedHistory(t, store, "u1")
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(stored))
	}
	if stored[0].Role != conversation.RoleUser || stored[1].Role != conversation.RoleAssistant {
		t.Errorf("stored history has wrong roles: %+v", stored)
	}
	if store.lastTTL != time.Hour {
		t.Errorf("expected session TTL to be applied, got %v", store.lastTTL)
	}
}

func TestSubmitMessageRoundTrip(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "first answer"}
	svc := newTestService(store, completer, nil)
	ctx := context.Background()

	if _, err := svc.SubmitMessage(ctx, conversation.ChatRequest{SessionKey: "u1", Message: "first question"}); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	completer.reply = "second answer"
	resp, err := svc.SubmitMessage(ctx, conversation.ChatRequest{SessionKey: "u1", Message: "second question"})
	if err != nil {
		t.Fatalf("second turn failed: %v", err)
	}
	if resp.HistoryLength != 4 {
		t.Errorf("expected history length 4, got %d", resp.HistoryLength)
	}

	// El segundo prompt tiene que incluir el primer intercambio
	second := completer.prompts[1]
	if len(second) != 4 {
		t.Fatalf("expected prompt [system, q1, a1, q2], got %d messages", len(second))
	}
	if second[1].Content != "first question" || second[2].Content != "first answer" {
		t.Errorf("prompt is missing the prior exchange: %+v", second)
	}
	if second[3].Content != "second question" {
		t.Errorf("prompt must end with the new question, got %q", second[3].Content)
	}
}

func TestSubmitMessageEvictsOldestAtBound(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "a11"}
	svc := newTestService(store, completer, nil)

	seedStore(t, store, "u1", 10) // 20 mensajes, justo en el límite

	resp, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "q11",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.HistoryLength != 20 {
		t.Errorf("history must stay at the bound, got %d", resp.HistoryLength)
	}

	stored := storedHistory(t, store, "u1")
	if stored[0].Content != "q2" {
		t.Errorf("oldest exchange should be gone, first message is %q", stored[0].Content)
	}
	last := stored[len(stored)-1]
	if last.Content != "a11" || last.Role != conversation.RoleAssistant {
		t.Errorf("newest answer must be last, got %+v", last)
	}
}

func TestSubmitMessageCompletionFailureWritesNothing(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{err: errors.New("model timeout")}
	transcripts := &recordingTranscripts{}
	svc := newTestService(store, completer, transcripts)

	seedStore(t, store, "u1", 2)

	_, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "What is EC2?",
	})
	if !errx.IsCode(err, conversation.CodeCompletionUnavailable) {
		t.Fatalf("expected CHAT_COMPLETION_UNAVAILABLE, got %v", err)
	}

	if store.setCalls != 0 {
		t.Errorf("a failed completion must not write to the store, got %d writes", store.setCalls)
	}
	if len(transcripts.entries) != 0 {
		t.Errorf("a failed completion must not record a transcript entry")
	}

	// La sesión queda intacta para el reintento
	stored := storedHistory(t, store, "u1")
	if len(stored) != 4 {
		t.Errorf("stored history changed on failure: %d messages", len(stored))
	}
}

func TestSubmitMessageEmptyReplyWritesNothing(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "   "}
	svc := newTestService(store, completer, nil)

	_, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "What is EC2?",
	})
	if !errx.IsCode(err, conversation.CodeCompletionUnavailable) {
		t.Fatalf("expected CHAT_COMPLETION_UNAVAILABLE, got %v", err)
	}
	if store.setCalls != 0 {
		t.Errorf("an empty reply must not write to the store, got %d writes", store.setCalls)
	}
}

func TestSubmitMessageValidation(t *testing.T) {
	tests := []struct {
		name     string
		req      conversation.ChatRequest
		wantCode errx.ErrorCode
	}{
		{
			name:     "empty session key",
			req:      conversation.ChatRequest{SessionKey: "  ", Message: "hi"},
			wantCode: conversation.CodeInvalidSessionKey,
		},
		{
			name:     "blank message",
			req:      conversation.ChatRequest{SessionKey: "u1", Message: "   "},
			wantCode: conversation.CodeInvalidMessage,
		},
		{
			name:     "message too long",
			req:      conversation.ChatRequest{SessionKey: "u1", Message: string(make([]byte, 2001))},
			wantCode: conversation.CodeMessageTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSessionStore()
			completer := &scriptedCompleter{reply: "unused"}
			svc := newTestService(store, completer, nil)

			_, err := svc.SubmitMessage(context.Background(), tt.req)
			if !errx.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode.Code, err)
			}
			if len(completer.prompts) != 0 {
				t.Errorf("validation must reject before calling the model")
			}
			if store.setCalls != 0 {
				t.Errorf("validation must reject before writing to the store")
			}
		})
	}
}

func TestSubmitMessageSaveFailureStillAnswers(t *testing.T) {
	store := newFakeSessionStore()
	store.setErr = errors.New("redis down")
	completer := &scriptedCompleter{reply: "the answer"}
	svc := newTestService(store, completer, nil)

	resp, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "What is IAM?",
	})
	if err != nil {
		t.Fatalf("a failed save must not fail the turn: %v", err)
	}
	if resp.Answer != "the answer" {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
}

func TestSubmitMessageSystemPromptOverride(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "ok"}
	svc := newTestService(store, completer, nil)

	_, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey:   "u1",
		SystemPrompt: "You grade mock exams.",
		Message:      "Grade me.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := completer.prompts[0]
	if prompt[0].Content != "You grade mock exams." {
		t.Errorf("request system prompt must win, got %q", prompt[0].Content)
	}

	// El system prompt nunca se guarda
	for _, m := range storedHistory(t, store, "u1") {
		if m.Role == conversation.RoleSystem {
			t.Fatalf("system message leaked into stored history")
		}
	}
}

func TestSubmitMessageRecordsTranscript(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "EC2 is compute."}
	transcripts := &recordingTranscripts{}
	svc := newTestService(store, completer, transcripts)

	_, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "What is EC2?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transcripts.entries) != 1 {
		t.Fatalf("expected one transcript entry, got %d", len(transcripts.entries))
	}
	entry := transcripts.entries[0]
	if entry.SessionKey != "u1" || entry.Question != "What is EC2?" || entry.Answer != "EC2 is compute." {
		t.Errorf("unexpected transcript entry: %+v", entry)
	}
	if entry.ID == "" {
		t.Errorf("transcript entry needs an ID")
	}
}

func TestSubmitMessageTranscriptFailureIsAbsorbed(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "fine"}
	transcripts := &recordingTranscripts{saveErr: errors.New("postgres down")}
	svc := newTestService(store, completer, transcripts)

	resp, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "Does this still work?",
	})
	if err != nil {
		t.Fatalf("a transcript failure must not fail the turn: %v", err)
	}
	if resp.Answer != "fine" {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
}

// ============================================================================
// LoadHistory
// ============================================================================

func TestLoadHistoryMiss(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestService(store, &scriptedCompleter{}, nil)

	history, outcome, err := svc.LoadHistory(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != conversation.LoadMiss {
		t.Errorf("expected miss, got %s", outcome)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
}

func TestLoadHistoryHit(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestService(store, &scriptedCompleter{}, nil)
	seedStore(t, store, "u1", 3)

	history, outcome, err := svc.LoadHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != conversation.LoadHit {
		t.Errorf("expected hit, got %s", outcome)
	}
	if len(history) != 6 {
		t.Errorf("expected 6 messages, got %d", len(history))
	}
	if history[0].Content != "q1" {
		t.Errorf("history must stay oldest-first, got %q first", history[0].Content)
	}
}

func TestLoadHistoryCorruptPayloadRecovers(t *testing.T) {
	store := newFakeSessionStore()
	store.payloads["u1"] = []byte("{definitely not json")
	svc := newTestService(store, &scriptedCompleter{}, nil)

	history, outcome, err := svc.LoadHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("corrupt payload must not surface an error: %v", err)
	}
	if outcome != conversation.LoadRecovered {
		t.Errorf("expected recovered, got %s", outcome)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
}

func TestLoadHistoryStoredSystemMessageRecovers(t *testing.T) {
	store := newFakeSessionStore()
	payload, _ := json.Marshal(conversation.History{
		conversation.NewSystemMessage("should never be here"),
		conversation.NewUserMessage("q1"),
	})
	store.payloads["u1"] = payload
	svc := newTestService(store, &scriptedCompleter{}, nil)

	_, outcome, err := svc.LoadHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("invalid stored history must not surface an error: %v", err)
	}
	if outcome != conversation.LoadRecovered {
		t.Errorf("expected recovered, got %s", outcome)
	}
}

func TestLoadHistoryStoreErrorRecovers(t *testing.T) {
	store := newFakeSessionStore()
	store.getErr = errors.New("connection refused")
	svc := newTestService(store, &scriptedCompleter{}, nil)

	history, outcome, err := svc.LoadHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("store errors must be absorbed: %v", err)
	}
	if outcome != conversation.LoadRecovered {
		t.Errorf("expected recovered, got %s", outcome)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
}

func TestLoadHistoryTrimsOversizedPayload(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestService(store, &scriptedCompleter{}, nil)
	seedStore(t, store, "u1", 12) // 24 mensajes, límite 20

	history, outcome, err := svc.LoadHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != conversation.LoadHit {
		t.Errorf("expected hit, got %s", outcome)
	}
	if len(history) != 20 {
		t.Fatalf("expected trimmed history of 20, got %d", len(history))
	}
	if history[0].Content != "q3" {
		t.Errorf("expected oldest surviving message q3, got %q", history[0].Content)
	}
}

func TestLoadHistoryEmptyKey(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), &scriptedCompleter{}, nil)

	_, _, err := svc.LoadHistory(context.Background(), "")
	if !errx.IsCode(err, conversation.CodeInvalidSessionKey) {
		t.Fatalf("expected CHAT_INVALID_SESSION_KEY, got %v", err)
	}
}

// ============================================================================
// ClearSession / Transcript
// ============================================================================

func TestClearSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestService(store, &scriptedCompleter{}, nil)
	seedStore(t, store, "u1", 2)

	if err := svc.ClearSession(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, outcome, _ := svc.LoadHistory(context.Background(), "u1")
	if outcome != conversation.LoadMiss {
		t.Errorf("session should be gone after clear, got %s", outcome)
	}
}

func TestTranscriptWithoutRepository(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), &scriptedCompleter{}, nil)

	resp, err := svc.Transcript(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 0 || len(resp.Entries) != 0 {
		t.Errorf("expected empty transcript, got %+v", resp)
	}
}

func TestTranscriptListsRecordedExchanges(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "answer"}
	transcripts := &recordingTranscripts{}
	svc := newTestService(store, completer, transcripts)
	ctx := context.Background()

	svc.SubmitMessage(ctx, conversation.ChatRequest{SessionKey: "u1", Message: "one"})
	svc.SubmitMessage(ctx, conversation.ChatRequest{SessionKey: "u1", Message: "two"})
	svc.SubmitMessage(ctx, conversation.ChatRequest{SessionKey: "other", Message: "three"})

	resp, err := svc.Transcript(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected 2 entries for u1, got %d", resp.Total)
	}
}

// ============================================================================
// Prompt window
// ============================================================================

func TestSubmitMessageAppliesPromptWindow(t *testing.T) {
	store := newFakeSessionStore()
	completer := &scriptedCompleter{reply: "ok"}
	cfg := testChatConfig()
	cfg.PromptWindow = 4
	svc := NewConversationService(store, completer, nil, cfg)

	seedStore(t, store, "u1", 10)

	_, err := svc.SubmitMessage(context.Background(), conversation.ChatRequest{
		SessionKey: "u1",
		Message:    "q11",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := completer.prompts[0]
	if len(prompt) != 6 {
		t.Fatalf("expected [system]+4 recent+[user], got %d messages", len(prompt))
	}
	if prompt[1].Content != "q9" {
		t.Errorf("window should start at q9, got %q", prompt[1].Content)
	}
}

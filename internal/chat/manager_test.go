// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/polychat-tui/internal/api"
	"github.com/jeranaias/polychat-tui/internal/model"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeChat implements ChatService with pluggable behavior per call.
type fakeChat struct {
	listFn   func(ctx context.Context) ([]model.ConversationSummary, error)
	getFn    func(ctx context.Context, id string) (*model.Conversation, error)
	sendFn   func(ctx context.Context, req api.SendRequest) (*api.SendResult, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeChat) ListConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	return f.listFn(ctx)
}

func (f *fakeChat) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return f.getFn(ctx, id)
}

func (f *fakeChat) SendMessage(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
	return f.sendFn(ctx, req)
}

func (f *fakeChat) DeleteConversation(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *recordingNotifier) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, message)
}

func (r *recordingNotifier) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recordingNotifier) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes), len(r.errors)
}

func testConversation(id string) *model.Conversation {
	return &model.Conversation{
		ID:            id,
		Title:         "About " + id,
		ModelProvider: "anthropic",
		ModelName:     "claude-3-haiku",
		Messages: []model.Message{
			model.NewUserMessage("hello from " + id),
			model.NewAssistantMessage("hi, this is " + id),
		},
	}
}

func testSummaries() []model.ConversationSummary {
	return []model.ConversationSummary{
		{ID: "c1", Title: "first"},
		{ID: "c2", Title: "second"},
	}
}

func chatOK() *fakeChat {
	return &fakeChat{
		listFn: func(ctx context.Context) ([]model.ConversationSummary, error) {
			return testSummaries(), nil
		},
		getFn: func(ctx context.Context, id string) (*model.Conversation, error) {
			return testConversation(id), nil
		},
		sendFn: func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
			conv := testConversation("c1")
			if req.ConversationID != "" {
				conv.ID = req.ConversationID
			}
			return &api.SendResult{
				Conversation: conv,
				Message:      model.NewAssistantMessage("hello"),
			}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			return nil
		},
	}
}

func newTestManager(svc ChatService) (*Manager, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewManager(svc, notifier), notifier
}

// =============================================================================
// DEFAULTS AND MODEL SELECTION
// =============================================================================

func TestNewManager_Defaults(t *testing.T) {
	m, _ := newTestManager(chatOK())

	state := m.Snapshot()
	if state.SelectedModel != model.DefaultModelRef() {
		t.Errorf("selected model = %v, want default", state.SelectedModel)
	}
	if state.Current != nil || len(state.Messages) != 0 || len(state.Conversations) != 0 {
		t.Errorf("fresh manager should be empty: %+v", state)
	}
	if state.IsLoading || state.IsSending {
		t.Error("no operation should be in flight")
	}
}

func TestSetSelectedModel_Idle(t *testing.T) {
	m, _ := newTestManager(chatOK())

	ref := model.ModelRef{Provider: "anthropic", Name: "claude-3-haiku"}
	m.SetSelectedModel(ref)

	if m.SelectedModel() != ref {
		t.Errorf("selected model = %v, want %v", m.SelectedModel(), ref)
	}
}

func TestSetSelectedModel_LockedWhileConversationActive(t *testing.T) {
	m, _ := newTestManager(chatOK())
	m.LoadConversation(context.Background(), "c1")

	bound := m.SelectedModel()
	m.SetSelectedModel(model.ModelRef{Provider: "openai", Name: "gpt-4"})

	if m.SelectedModel() != bound {
		t.Errorf("model changed while a conversation is active: %v", m.SelectedModel())
	}
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

func TestLoadConversations_ReplacesList(t *testing.T) {
	m, _ := newTestManager(chatOK())

	if err := m.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}

	list := m.Conversations()
	if len(list) != 2 || list[0].ID != "c1" || list[1].ID != "c2" {
		t.Errorf("conversations = %+v", list)
	}
	if m.IsLoading() {
		t.Error("loading flag should be cleared")
	}
}

func TestLoadConversations_FailureKeepsStaleList(t *testing.T) {
	svc := chatOK()
	m, notifier := newTestManager(svc)
	m.LoadConversations(context.Background())

	svc.listFn = func(ctx context.Context) ([]model.ConversationSummary, error) {
		return nil, errors.New("dial tcp: timeout")
	}

	err := m.LoadConversations(context.Background())
	if err == nil || err.Error() != "Failed to load conversations" {
		t.Errorf("error = %v", err)
	}

	// Stale-but-present beats empty.
	if len(m.Conversations()) != 2 {
		t.Errorf("prior list should survive a failed refresh: %+v", m.Conversations())
	}
	if m.IsLoading() {
		t.Error("loading flag should be cleared")
	}
	if _, errs := notifier.counts(); errs != 1 {
		t.Errorf("error notifications = %d, want 1", errs)
	}
}

// =============================================================================
// ACTIVE CONVERSATION
// =============================================================================

func TestLoadConversation_SyncsModelToConversation(t *testing.T) {
	m, _ := newTestManager(chatOK())

	if err := m.LoadConversation(context.Background(), "c1"); err != nil {
		t.Fatalf("LoadConversation failed: %v", err)
	}

	state := m.Snapshot()
	if state.Current == nil || state.Current.ID != "c1" {
		t.Fatalf("current = %+v", state.Current)
	}
	if len(state.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(state.Messages))
	}
	want := model.ModelRef{Provider: "anthropic", Name: "claude-3-haiku"}
	if state.SelectedModel != want {
		t.Errorf("selected model should follow the loaded conversation: %v", state.SelectedModel)
	}
}

func TestLoadConversation_AlreadyActiveIsNoOp(t *testing.T) {
	var calls atomic.Int32
	svc := chatOK()
	base := svc.getFn
	svc.getFn = func(ctx context.Context, id string) (*model.Conversation, error) {
		calls.Add(1)
		return base(ctx, id)
	}
	m, _ := newTestManager(svc)

	m.LoadConversation(context.Background(), "c1")
	m.LoadConversation(context.Background(), "c1")

	if calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1 (redundant reload suppressed)", calls.Load())
	}
}

func TestLoadConversation_FailureTouchesNothing(t *testing.T) {
	svc := chatOK()
	m, notifier := newTestManager(svc)
	m.LoadConversation(context.Background(), "c1")

	svc.getFn = func(ctx context.Context, id string) (*model.Conversation, error) {
		return nil, &api.APIError{Message: "conversation not found", Status: 404}
	}

	err := m.LoadConversation(context.Background(), "c2")
	if err == nil || err.Error() != "conversation not found" {
		t.Errorf("error = %v", err)
	}
	if current := m.Current(); current == nil || current.ID != "c1" {
		t.Errorf("active conversation should survive a failed load: %+v", current)
	}
	if _, errs := notifier.counts(); errs != 1 {
		t.Errorf("error notifications = %d, want 1", errs)
	}
}

func TestLoadConversation_StaleResponseRejected(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	svc := chatOK()
	svc.getFn = func(ctx context.Context, id string) (*model.Conversation, error) {
		if id == "A" {
			close(startedA)
			<-releaseA // A resolves only after B has been applied
		}
		return testConversation(id), nil
	}
	m, _ := newTestManager(svc)

	done := make(chan struct{})
	go func() {
		m.LoadConversation(context.Background(), "A")
		close(done)
	}()

	<-startedA
	m.LoadConversation(context.Background(), "B")
	close(releaseA)
	<-done

	// A was superseded by B before it resolved; final state is B's.
	if current := m.Current(); current == nil || current.ID != "B" {
		t.Errorf("final conversation = %+v, want B", current)
	}
	if m.IsLoading() {
		t.Error("loading flag should be cleared")
	}
}

func TestStartNewConversation_KeepsSelectedModel(t *testing.T) {
	m, _ := newTestManager(chatOK())
	m.LoadConversation(context.Background(), "c1")

	m.StartNewConversation()

	state := m.Snapshot()
	if state.Current != nil || len(state.Messages) != 0 {
		t.Errorf("focus should be cleared: %+v", state)
	}
	want := model.ModelRef{Provider: "anthropic", Name: "claude-3-haiku"}
	if state.SelectedModel != want {
		t.Errorf("selected model should survive the reset: %v", state.SelectedModel)
	}
}

func TestClearMessages_KeepsCurrent(t *testing.T) {
	m, _ := newTestManager(chatOK())
	m.LoadConversation(context.Background(), "c1")

	m.ClearMessages()

	if len(m.Messages()) != 0 {
		t.Error("messages should be cleared")
	}
	if m.Current() == nil {
		t.Error("active conversation should be untouched")
	}
}

// =============================================================================
// SEND PROTOCOL
// =============================================================================

func TestSendMessage_NewConversation(t *testing.T) {
	var listCalls atomic.Int32
	inFlight := make(chan struct{})
	release := make(chan struct{})
	svc := chatOK()
	svc.listFn = func(ctx context.Context) ([]model.ConversationSummary, error) {
		listCalls.Add(1)
		return testSummaries(), nil
	}
	svc.sendFn = func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
		if req.ConversationID != "" {
			t.Errorf("new conversation send should carry no id: %q", req.ConversationID)
		}
		if req.ModelProvider != "openai" || req.ModelName != "gpt-3.5-turbo" {
			t.Errorf("send should use the selected model: %s/%s", req.ModelProvider, req.ModelName)
		}
		close(inFlight)
		<-release
		conv := testConversation("c1")
		conv.Messages = nil
		return &api.SendResult{
			Conversation: conv,
			Message:      model.Message{Role: model.RoleAssistant, Content: "hello"},
		}, nil
	}
	m, _ := newTestManager(svc)

	done := make(chan struct{})
	go func() {
		if err := m.SendMessage(context.Background(), "hi"); err != nil {
			t.Errorf("SendMessage failed: %v", err)
		}
		close(done)
	}()

	// Optimistic apply: the user message is visible before the backend
	// responds, and the sending flag is up.
	<-inFlight
	if messages := m.Messages(); len(messages) != 1 || messages[0].Content != "hi" || messages[0].Role != model.RoleUser {
		t.Errorf("optimistic messages = %+v", messages)
	}
	if !m.IsSending() {
		t.Error("isSending should be true while the send is in flight")
	}

	close(release)
	<-done

	state := m.Snapshot()
	if len(state.Messages) != 2 || state.Messages[0].Content != "hi" || state.Messages[1].Content != "hello" {
		t.Errorf("final messages = %+v", state.Messages)
	}
	if state.Messages[1].Timestamp.IsZero() {
		t.Error("assistant reply should carry a client-stamped timestamp")
	}
	if state.Current == nil || state.Current.ID != "c1" {
		t.Errorf("current = %+v, want the created conversation", state.Current)
	}
	if state.IsSending {
		t.Error("isSending should be cleared")
	}
	// The send created a conversation, so the list is refreshed once.
	if listCalls.Load() != 1 {
		t.Errorf("list refreshes = %d, want 1", listCalls.Load())
	}
}

func TestSendMessage_ExistingConversationSkipsListRefresh(t *testing.T) {
	var listCalls atomic.Int32
	svc := chatOK()
	svc.listFn = func(ctx context.Context) ([]model.ConversationSummary, error) {
		listCalls.Add(1)
		return testSummaries(), nil
	}
	svc.sendFn = func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
		if req.ConversationID != "c1" {
			t.Errorf("send should target the active conversation, got %q", req.ConversationID)
		}
		return &api.SendResult{
			Conversation: testConversation("c1"),
			Message:      model.NewAssistantMessage("sure"),
		}, nil
	}
	m, _ := newTestManager(svc)
	m.LoadConversation(context.Background(), "c1")

	if err := m.SendMessage(context.Background(), "another question"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if listCalls.Load() != 0 {
		t.Errorf("send into an existing conversation must not refresh the list, got %d", listCalls.Load())
	}
}

func TestSendMessage_FailureRollsBackOptimisticAppend(t *testing.T) {
	svc := chatOK()
	m, notifier := newTestManager(svc)
	m.LoadConversation(context.Background(), "c1")
	before := m.Messages()

	svc.sendFn = func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
		return nil, &api.APIError{Message: "rate limit exceeded", Status: 429}
	}

	err := m.SendMessage(context.Background(), "doomed")
	if err == nil || err.Error() != "rate limit exceeded" {
		t.Errorf("error = %v", err)
	}

	after := m.Messages()
	if len(after) != len(before) {
		t.Fatalf("messages = %d, want %d (optimistic append rolled back)", len(after), len(before))
	}
	for i := range before {
		if after[i].Content != before[i].Content {
			t.Errorf("message %d changed: %q vs %q", i, after[i].Content, before[i].Content)
		}
	}
	if m.IsSending() {
		t.Error("isSending should be cleared after a failed send")
	}
	if _, errs := notifier.counts(); errs != 1 {
		t.Errorf("error notifications = %d, want exactly 1", errs)
	}
}

func TestSendMessage_NonReentrant(t *testing.T) {
	var sendCalls atomic.Int32
	inFlight := make(chan struct{})
	release := make(chan struct{})
	svc := chatOK()
	svc.sendFn = func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
		sendCalls.Add(1)
		close(inFlight)
		<-release
		return &api.SendResult{
			Conversation: testConversation("c1"),
			Message:      model.NewAssistantMessage("hello"),
		}, nil
	}
	m, _ := newTestManager(svc)

	done := make(chan struct{})
	go func() {
		m.SendMessage(context.Background(), "first")
		close(done)
	}()
	<-inFlight

	// Second send while the first is in flight: silently rejected,
	// no second optimistic message, no second network call.
	if err := m.SendMessage(context.Background(), "second"); err != nil {
		t.Errorf("reentrant send should be a silent no-op, got %v", err)
	}
	if messages := m.Messages(); len(messages) != 1 {
		t.Errorf("messages during flight = %d, want 1", len(messages))
	}

	close(release)
	<-done

	if sendCalls.Load() != 1 {
		t.Errorf("backend sends = %d, want 1", sendCalls.Load())
	}
}

func TestSendMessage_EmptyContentIsNoOp(t *testing.T) {
	var sendCalls atomic.Int32
	svc := chatOK()
	svc.sendFn = func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
		sendCalls.Add(1)
		return nil, errors.New("should not be called")
	}
	m, _ := newTestManager(svc)

	if err := m.SendMessage(context.Background(), ""); err != nil {
		t.Errorf("empty send should be a silent no-op, got %v", err)
	}
	if sendCalls.Load() != 0 || len(m.Messages()) != 0 {
		t.Error("empty send must not touch state or the backend")
	}
}

func TestSendMessage_SupersededByNewConversation(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	svc := chatOK()
	svc.sendFn = func(ctx context.Context, req api.SendRequest) (*api.SendResult, error) {
		close(inFlight)
		<-release
		return &api.SendResult{
			Conversation: testConversation("c1"),
			Message:      model.NewAssistantMessage("too late"),
		}, nil
	}
	m, _ := newTestManager(svc)

	done := make(chan struct{})
	go func() {
		m.SendMessage(context.Background(), "hi")
		close(done)
	}()

	<-inFlight
	m.StartNewConversation() // user walked away from this turn
	close(release)
	<-done

	// The stale send result must not repopulate the abandoned focus.
	state := m.Snapshot()
	if state.Current != nil || len(state.Messages) != 0 {
		t.Errorf("stale send result was applied: %+v", state)
	}
	if state.IsSending {
		t.Error("isSending should be cleared")
	}
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteConversation_ActiveClearsFocus(t *testing.T) {
	m, notifier := newTestManager(chatOK())
	m.LoadConversations(context.Background())
	m.LoadConversation(context.Background(), "c1")

	if err := m.DeleteConversation(context.Background(), "c1"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	state := m.Snapshot()
	if state.Current != nil || len(state.Messages) != 0 {
		t.Errorf("deleting the active conversation should clear the focus: %+v", state)
	}
	if len(state.Conversations) != 1 || state.Conversations[0].ID != "c2" {
		t.Errorf("conversations = %+v", state.Conversations)
	}
	if successes, _ := notifier.counts(); successes != 1 {
		t.Errorf("success notifications = %d, want 1", successes)
	}
}

func TestDeleteConversation_InactiveKeepsFocus(t *testing.T) {
	m, _ := newTestManager(chatOK())
	m.LoadConversations(context.Background())
	m.LoadConversation(context.Background(), "c1")

	if err := m.DeleteConversation(context.Background(), "c2"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	if current := m.Current(); current == nil || current.ID != "c1" {
		t.Errorf("active conversation should be untouched: %+v", current)
	}
	if list := m.Conversations(); len(list) != 1 || list[0].ID != "c1" {
		t.Errorf("conversations = %+v", list)
	}
}

func TestDeleteConversation_FailureIsNotApplied(t *testing.T) {
	svc := chatOK()
	m, notifier := newTestManager(svc)
	m.LoadConversations(context.Background())
	m.LoadConversation(context.Background(), "c1")

	svc.deleteFn = func(ctx context.Context, id string) error {
		return errors.New("dial tcp: timeout")
	}

	err := m.DeleteConversation(context.Background(), "c1")
	if err == nil || err.Error() != "Failed to delete conversation" {
		t.Errorf("error = %v", err)
	}

	// Delete is never optimistic.
	if current := m.Current(); current == nil || current.ID != "c1" {
		t.Errorf("focus should be untouched after a failed delete: %+v", current)
	}
	if len(m.Conversations()) != 2 {
		t.Errorf("list should be untouched: %+v", m.Conversations())
	}
	if _, errs := notifier.counts(); errs != 1 {
		t.Errorf("error notifications = %d, want 1", errs)
	}
}

// =============================================================================
// TIMING SANITY
// =============================================================================

func TestSendMessage_OptimisticTimestampIsClientAssigned(t *testing.T) {
	m, _ := newTestManager(chatOK())
	start := time.Now()

	m.SendMessage(context.Background(), "hi")

	messages := m.Messages()
	if len(messages) == 0 {
		t.Fatal("no messages")
	}
	if messages[0].Timestamp.Before(start.Add(-time.Second)) {
		t.Errorf("user message timestamp should come from the client clock: %v", messages[0].Timestamp)
	}
}

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgrid/core"
	"github.com/hupe1980/agentgrid/store"
)

// recordingSender captures what the controller asked to be sent.
type recordingSender struct {
	name      string
	requests  []core.Message
	requestTo []string
	responses []core.Message
	respondTo []string
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) SendRequest(_ context.Context, msg core.Message, dest string) error {
	s.requests = append(s.requests, msg)
	s.requestTo = append(s.requestTo, dest)
	return nil
}

func (s *recordingSender) SendResponse(_ context.Context, msg core.Message, dest string) error {
	s.responses = append(s.responses, msg)
	s.respondTo = append(s.respondTo, dest)
	return nil
}

func newControllerFixture(t *testing.T) (*Controller, *core.Context, context.Context) {
	t.Helper()
	return NewController(), core.NewContext("conv", store.NewLocal()), context.Background()
}

func TestController_HistoryVisibility(t *testing.T) {
	ctl, conv, ctx := newControllerFixture(t)
	const chatID = "chat-1"
	require.NoError(t, conv.AppendChatMessage(ctx, chatID, core.ChatMessage{Role: core.RoleUser, Content: "hello"}))

	for _, mode := range []core.CollaborationType{core.CollaborationPhased, core.CollaborationChat} {
		history, err := ctl.History(ctx, conv, chatID, mode)
		require.NoError(t, err)
		assert.Len(t, history, 1, "mode %s shares history", mode)
	}
	for _, mode := range []core.CollaborationType{core.CollaborationSequential, core.CollaborationIndependent} {
		history, err := ctl.History(ctx, conv, chatID, mode)
		require.NoError(t, err)
		assert.Empty(t, history, "mode %s hides history", mode)
	}
}

func TestController_RoutePhasedAppendsAndAcks(t *testing.T) {
	ctl, conv, ctx := newControllerFixture(t)
	s := &recordingSender{name: "worker"}
	req := core.Message{Sender: "coordinator", ContextName: "conv", ChatID: "chat-1", Type: core.MessageTypeRequest, Content: "contribute"}

	require.NoError(t, ctl.Route(ctx, s, conv, req, core.CollaborationPhased, "my findings"))

	history, err := conv.ChatHistory(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.RoleAssistant, history[0].Role)
	assert.Equal(t, "my findings", history[0].Content)

	require.Len(t, s.responses, 1)
	assert.Equal(t, core.MessageTypeAck, s.responses[0].Type)
	assert.Equal(t, "my findings", s.responses[0].Content)
	assert.Equal(t, []string{"coordinator"}, s.respondTo)
	assert.Empty(t, s.requests)
}

func TestController_RouteSequentialForwards(t *testing.T) {
	ctl, conv, ctx := newControllerFixture(t)
	const chatID = "chat-1"
	require.NoError(t, conv.SetAgentSequence(ctx, chatID, []string{"worker", "checker"}))

	s := &recordingSender{name: "worker"}
	req := core.Message{Sender: "coordinator", ContextName: "conv", ChatID: chatID, Type: core.MessageTypeRequest, Content: "draft"}

	require.NoError(t, ctl.Route(ctx, s, conv, req, core.CollaborationSequential, "draft v2"))

	require.Len(t, s.requests, 1)
	assert.Equal(t, core.MessageTypeRequest, s.requests[0].Type)
	assert.Equal(t, "draft v2", s.requests[0].Content)
	assert.Equal(t, []string{"checker"}, s.requestTo)
	assert.Empty(t, s.responses)
}

func TestController_RouteSequentialFinishes(t *testing.T) {
	ctl, conv, ctx := newControllerFixture(t)
	const chatID = "chat-1"
	require.NoError(t, conv.SetAgentSequence(ctx, chatID, []string{"worker", "checker"}))
	require.NoError(t, conv.SetRouteResponseTo(ctx, chatID, "caller"))

	s := &recordingSender{name: "checker"}
	req := core.Message{Sender: "worker", ContextName: "conv", ChatID: chatID, Type: core.MessageTypeRequest, Content: "draft v2"}

	require.NoError(t, ctl.Route(ctx, s, conv, req, core.CollaborationSequential, "final"))

	require.Len(t, s.responses, 1)
	assert.Equal(t, core.MessageTypeResponse, s.responses[0].Type)
	assert.Equal(t, "final", s.responses[0].Content)
	assert.Equal(t, []string{"caller"}, s.respondTo)
	assert.Empty(t, s.requests)
}

func TestController_RouteSequentialMissingDestination(t *testing.T) {
	ctl, conv, ctx := newControllerFixture(t)
	const chatID = "chat-1"
	require.NoError(t, conv.SetAgentSequence(ctx, chatID, []string{"worker"}))

	s := &recordingSender{name: "worker"}
	req := core.Message{Sender: "caller", ContextName: "conv", ChatID: chatID, Type: core.MessageTypeRequest}

	err := ctl.Route(ctx, s, conv, req, core.CollaborationSequential, "final")
	assert.Error(t, err)
	assert.Empty(t, s.requests)
	assert.Empty(t, s.responses)
}

func TestController_RouteIndependentReplies(t *testing.T) {
	ctl, conv, ctx := newControllerFixture(t)
	s := &recordingSender{name: "worker"}
	req := core.Message{Sender: "caller", ContextName: "conv", ChatID: "chat-1", Type: core.MessageTypeRequest, Content: "question"}

	require.NoError(t, ctl.Route(ctx, s, conv, req, core.CollaborationIndependent, "answer"))

	require.Len(t, s.responses, 1)
	assert.Equal(t, core.MessageTypeResponse, s.responses[0].Type)
	assert.Equal(t, "answer", s.responses[0].Content)
	assert.Equal(t, []string{"caller"}, s.respondTo)

	// The reply path leaves the shared history untouched.
	history, err := conv.ChatHistory(ctx, "chat-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

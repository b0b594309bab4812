package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgrid/core"
)

func TestBus_RoutesByMessageType(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	requests := make(chan core.Message, 4)
	responses := make(chan core.Message, 4)
	events := make(chan core.Message, 4)

	receiver := bus.Endpoint("receiver")
	receiver.SetCallbacks(core.TransportCallbacks{
		OnRequest:  func(_ context.Context, msg core.Message) { requests <- msg },
		OnResponse: func(_ context.Context, msg core.Message) { responses <- msg },
		OnEvent:    func(_ context.Context, msg core.Message) { events <- msg },
	})
	require.NoError(t, receiver.Start(ctx))
	t.Cleanup(func() { _ = receiver.Stop(ctx) })

	sender := bus.Endpoint("sender")
	sender.SetCallbacks(core.TransportCallbacks{})
	require.NoError(t, sender.Start(ctx))
	t.Cleanup(func() { _ = sender.Stop(ctx) })

	base := core.Message{Sender: "sender", ContextName: "conv", ChatID: "chat-1"}

	req := base
	req.Type = core.MessageTypeRequest
	req.Content = "do it"
	require.NoError(t, sender.SendRequest(ctx, req, "receiver"))

	resp := base
	resp.Type = core.MessageTypeResponse
	resp.Content = "done"
	require.NoError(t, sender.SendResponse(ctx, resp, "receiver"))

	ack := base
	ack.Type = core.MessageTypeAck
	ack.Content = "ok"
	require.NoError(t, sender.SendResponse(ctx, ack, "receiver"))

	ev := base
	ev.Type = core.MessageTypeEvent
	ev.Content = "ping"
	require.NoError(t, sender.SendResponse(ctx, ev, "receiver"))

	assert.Equal(t, req, waitFor(t, requests))
	assert.Equal(t, resp, waitFor(t, responses))
	assert.Equal(t, ack, waitFor(t, responses))
	assert.Equal(t, ev, waitFor(t, events))
}

func TestBus_UnknownDestination(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	sender := bus.Endpoint("sender")
	sender.SetCallbacks(core.TransportCallbacks{})
	require.NoError(t, sender.Start(ctx))
	t.Cleanup(func() { _ = sender.Stop(ctx) })

	err := sender.SendRequest(ctx, core.Message{Type: core.MessageTypeRequest}, "ghost")
	assert.Error(t, err)
}

func TestBus_DuplicateAttach(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	first := bus.Endpoint("agent")
	first.SetCallbacks(core.TransportCallbacks{})
	require.NoError(t, first.Start(ctx))
	t.Cleanup(func() { _ = first.Stop(ctx) })

	second := bus.Endpoint("agent")
	second.SetCallbacks(core.TransportCallbacks{})
	assert.Error(t, second.Start(ctx))
}

func TestBus_StopDetaches(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	receiver := bus.Endpoint("receiver")
	receiver.SetCallbacks(core.TransportCallbacks{})
	require.NoError(t, receiver.Start(ctx))
	require.NoError(t, receiver.Stop(ctx))

	sender := bus.Endpoint("sender")
	sender.SetCallbacks(core.TransportCallbacks{})
	require.NoError(t, sender.Start(ctx))
	t.Cleanup(func() { _ = sender.Stop(ctx) })

	err := sender.SendRequest(ctx, core.Message{Type: core.MessageTypeRequest}, "receiver")
	assert.Error(t, err)

	// The name is free again after Stop.
	again := bus.Endpoint("receiver")
	again.SetCallbacks(core.TransportCallbacks{})
	assert.NoError(t, again.Start(ctx))
	t.Cleanup(func() { _ = again.Stop(ctx) })
}

func waitFor(t *testing.T, ch <-chan core.Message) core.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return core.Message{}
	}
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_WireRoundTrip(t *testing.T) {
	for _, msgType := range []MessageType{
		MessageTypeRequest, MessageTypeResponse, MessageTypeAck, MessageTypeEvent,
	} {
		t.Run(string(msgType), func(t *testing.T) {
			msg := Message{
				Sender:      "agent-a",
				ContextName: "conversation",
				ChatID:      "chat-1",
				Type:        msgType,
				Content:     "payload with unicode ✓ and \"quotes\"",
			}
			data, err := EncodeMessage(msg)
			require.NoError(t, err)

			decoded, err := DecodeMessage(data)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestDecodeMessage_UnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"sender":"a","type":"BOGUS"}`))
	assert.Error(t, err)
}

func TestDecodeMessage_Malformed(t *testing.T) {
	_, err := DecodeMessage([]byte(`{not json`))
	assert.Error(t, err)
}

package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/K3das/orange-scribe/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendMessage(t *testing.T) {
	var received protocol.Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MessagePath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(protocol.Response{Success: true, Transcript: "olá"})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client())
	response, err := client.SendMessage(context.Background(), protocol.Message{
		Action:   protocol.ActionTranscribeAudio,
		MimeType: "audio/mpeg",
		Blob:     []byte{0xff, 0xfb, 0x00},
	})
	require.NoError(t, err)

	assert.Equal(t, &protocol.Response{Success: true, Transcript: "olá"}, response)
	assert.Equal(t, []byte{0xff, 0xfb, 0x00}, received.Blob)
	assert.Equal(t, "audio/mpeg", received.MimeType)
}

func TestClientNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	response, err := NewClient(server.URL, nil).SendMessage(context.Background(), protocol.Message{Action: "nope"})
	assert.Nil(t, response)

	var sendErr *protocol.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, MessageRuntimeUnreachable, sendErr.Message)
}

func TestClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient(server.URL, nil).SendMessage(context.Background(), protocol.Message{Action: protocol.ActionOpenOptions})

	var sendErr *protocol.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, MessageRuntimeUnreachable, sendErr.Message)
}

package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/K3das/orange-scribe/asr"
	"github.com/K3das/orange-scribe/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memoryCredentials struct {
	value string
}

func (m *memoryCredentials) GetCredential(_ context.Context) (string, bool) {
	return m.value, m.value != ""
}

func (m *memoryCredentials) SetCredential(_ context.Context, value string) error {
	m.value = value
	return nil
}

type fakeASR struct {
	output *asr.ASROutput
	err    error
	panic  bool

	calls      int
	credential string
	payload    asr.Payload
}

func (f *fakeASR) Run(_ context.Context, credential string, payload asr.Payload) (*asr.ASROutput, error) {
	f.calls++
	f.credential = credential
	f.payload = payload
	if f.panic {
		panic("boom")
	}
	return f.output, f.err
}

type fakeOpener struct {
	err    error
	opened int
}

func (f *fakeOpener) OpenOptions(_ context.Context) error {
	f.opened++
	return f.err
}

func newTestWorker(t *testing.T, key string, api *fakeASR, opener OptionsOpener) *Worker {
	return NewWorker(WorkerOptions{
		ParentLogger: zaptest.NewLogger(t),
		Credentials:  &memoryCredentials{value: key},
		ASR:          api,
		Options:      opener,
	})
}

func transcribeMessage() protocol.Message {
	return protocol.Message{
		Action:   protocol.ActionTranscribeAudio,
		MimeType: "audio/ogg",
		Blob:     []byte("OggS"),
	}
}

func TestTranscribeSuccess(t *testing.T) {
	api := &fakeASR{output: &asr.ASROutput{Text: "hello", ModelName: "m"}}
	w := newTestWorker(t, "sk-abcdefghijk", api, nil)

	response, err := w.HandleMessage(context.Background(), transcribeMessage())
	require.NoError(t, err)

	assert.Equal(t, &protocol.Response{Success: true, Transcript: "hello"}, response)
	assert.Equal(t, "sk-abcdefghijk", api.credential)
	assert.Equal(t, asr.Payload{Data: []byte("OggS"), MimeType: "audio/ogg"}, api.payload)
}

func TestTranscribeWithoutCredentialSkipsAPI(t *testing.T) {
	api := &fakeASR{}
	w := newTestWorker(t, "", api, nil)

	response, err := w.HandleMessage(context.Background(), transcribeMessage())
	require.NoError(t, err)

	assert.Equal(t, protocol.Failure(MessageCredentialMissing), response)
	assert.Zero(t, api.calls)
}

func TestTranscribeAPIErrorVerbatim(t *testing.T) {
	api := &fakeASR{err: &asr.APIError{StatusCode: 401, Message: "bad key"}}
	w := newTestWorker(t, "sk-abcdefghijk", api, nil)

	response := w.Transcribe(context.Background(), asr.Payload{Data: []byte("a")})
	assert.Equal(t, protocol.Response{Success: false, Error: "bad key"}, response)
}

func TestTranscribeNetworkError(t *testing.T) {
	api := &fakeASR{err: errors.New("connection refused")}
	w := newTestWorker(t, "sk-abcdefghijk", api, nil)

	response := w.Transcribe(context.Background(), asr.Payload{Data: []byte("a")})
	assert.Equal(t, protocol.Response{Success: false, Error: "connection refused"}, response)
}

func TestTranscribeEmptyErrorMessage(t *testing.T) {
	api := &fakeASR{err: errors.New("")}
	w := newTestWorker(t, "sk-abcdefghijk", api, nil)

	response := w.Transcribe(context.Background(), asr.Payload{Data: []byte("a")})
	assert.Equal(t, MessageNetworkFailure, response.Error)
}

func TestHandleMessageEmptyBlob(t *testing.T) {
	api := &fakeASR{}
	w := newTestWorker(t, "sk-abcdefghijk", api, nil)

	response, err := w.HandleMessage(context.Background(), protocol.Message{Action: protocol.ActionTranscribeAudio})
	require.NoError(t, err)
	assert.Equal(t, protocol.Failure(MessageNoAudioReceived), response)
	assert.Zero(t, api.calls)
}

func TestHandleMessagePanic(t *testing.T) {
	w := newTestWorker(t, "sk-abcdefghijk", &fakeASR{panic: true}, nil)

	response, err := w.HandleMessage(context.Background(), transcribeMessage())
	require.NoError(t, err)
	assert.Equal(t, protocol.Failure(MessageUnexpected), response)
}

func TestHandleMessageUnknownAction(t *testing.T) {
	w := newTestWorker(t, "sk-abcdefghijk", &fakeASR{}, nil)

	response, err := w.HandleMessage(context.Background(), protocol.Message{Action: "something-else"})
	assert.Nil(t, response)
	assert.ErrorIs(t, err, protocol.ErrUnhandledAction)
}

func TestHandleMessageOpenOptions(t *testing.T) {
	t.Run("opened", func(t *testing.T) {
		opener := &fakeOpener{}
		w := newTestWorker(t, "", &fakeASR{}, opener)

		response, err := w.HandleMessage(context.Background(), protocol.Message{Action: protocol.ActionOpenOptions})
		require.NoError(t, err)
		assert.Equal(t, &protocol.Response{Success: true}, response)
		assert.Equal(t, 1, opener.opened)
	})

	t.Run("failed", func(t *testing.T) {
		w := newTestWorker(t, "", &fakeASR{}, &fakeOpener{err: errors.New("no display")})

		response, err := w.HandleMessage(context.Background(), protocol.Message{Action: protocol.ActionOpenOptions})
		require.NoError(t, err)
		assert.Equal(t, protocol.Failure(MessageOptionsUnavailable), response)
	})

	t.Run("no opener", func(t *testing.T) {
		w := newTestWorker(t, "", &fakeASR{}, nil)

		response, err := w.HandleMessage(context.Background(), protocol.Message{Action: protocol.ActionOpenOptions})
		require.NoError(t, err)
		assert.False(t, response.Success)
	})
}

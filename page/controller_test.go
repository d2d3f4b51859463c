package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/K3das/orange-scribe/messages"
	"github.com/K3das/orange-scribe/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeDocument struct {
	audios []AudioElement
	err    error
}

func (d *fakeDocument) Audios(_ context.Context) ([]AudioElement, error) {
	return d.audios, d.err
}

type render struct {
	label    string
	disabled bool
}

type fakeControl struct {
	mu      sync.Mutex
	renders []render
	// the next failures renders return this error
	failures int
	err      error
}

func (c *fakeControl) Render(_ context.Context, label string, disabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return c.err
	}
	c.renders = append(c.renders, render{label: label, disabled: disabled})
	return nil
}

type toast struct {
	text    string
	isError bool
}

type fakeSurface struct {
	mu     sync.Mutex
	toasts []toast
	hides  int
}

func (s *fakeSurface) ShowToast(_ context.Context, text string, isError bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, toast{text: text, isError: isError})
	return nil
}

func (s *fakeSurface) HideToast(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hides++
	return nil
}

func (s *fakeSurface) hideCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hides
}

type fakeClipboard struct {
	err  error
	text string
}

func (c *fakeClipboard) WriteText(_ context.Context, text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type fakeRuntime struct {
	response *protocol.Response
	err      error

	calls   int
	message protocol.Message
}

func (r *fakeRuntime) SendMessage(_ context.Context, message protocol.Message) (*protocol.Response, error) {
	r.calls++
	r.message = message
	return r.response, r.err
}

type harness struct {
	document  *fakeDocument
	control   *fakeControl
	surface   *fakeSurface
	clipboard *fakeClipboard
	runtime   *fakeRuntime
}

func newHarness(t *testing.T, audios ...AudioElement) (*harness, *Controller) {
	t.Helper()

	provider, err := messages.NewMessageProvider()
	require.NoError(t, err)

	h := &harness{
		document:  &fakeDocument{audios: audios},
		control:   &fakeControl{},
		surface:   &fakeSurface{},
		clipboard: &fakeClipboard{},
		runtime:   &fakeRuntime{response: &protocol.Response{Success: true, Transcript: "hello"}},
	}

	c := NewController(ControllerOptions{
		ParentLogger: zaptest.NewLogger(t),
		Document:     h.document,
		Control:      h.control,
		Surface:      h.surface,
		Clipboard:    h.clipboard,
		Runtime:      h.runtime,
		Messages:     provider,
	}, WithToastDuration(time.Hour))

	return h, c
}

func newAudioServer(t *testing.T, status int, contentType string, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClickSuccessCopiesTranscript(t *testing.T) {
	server := newAudioServer(t, http.StatusOK, "audio/ogg", "OggS")
	h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})

	outcome := c.Click(context.Background())

	assert.Equal(t, Outcome{Text: "Transcrição pronta (copiada para a área de transferência): hello"}, outcome)
	assert.Equal(t, "hello", h.clipboard.text)
	assert.Equal(t, []toast{{text: outcome.Text}}, h.surface.toasts)

	assert.Equal(t, protocol.ActionTranscribeAudio, h.runtime.message.Action)
	assert.Equal(t, "audio/ogg", h.runtime.message.MimeType)
	assert.Equal(t, []byte("OggS"), h.runtime.message.Blob)
}

func TestClickClipboardFailureOmitsNote(t *testing.T) {
	server := newAudioServer(t, http.StatusOK, "audio/ogg", "OggS")
	h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
	h.clipboard.err = errors.New("denied")

	outcome := c.Click(context.Background())

	assert.Equal(t, Outcome{Text: "Transcrição pronta: hello"}, outcome)
}

func TestClickWithoutClipboard(t *testing.T) {
	server := newAudioServer(t, http.StatusOK, "audio/ogg", "OggS")
	_, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
	c.clipboard = nil

	assert.Equal(t, "Transcrição pronta: hello", c.Click(context.Background()).Text)
}

func TestClickNoAudio(t *testing.T) {
	h, c := newHarness(t)

	outcome := c.Click(context.Background())

	assert.Equal(t, Outcome{Text: "Nenhum áudio encontrado na conversa atual.", IsError: true}, outcome)
	assert.Zero(t, h.runtime.calls)
}

func TestClickOnlyEmptyAudios(t *testing.T) {
	h, c := newHarness(t, fakeAudio{}, fakeAudio{mimeType: "audio/ogg"})

	outcome := c.Click(context.Background())

	assert.True(t, outcome.IsError)
	assert.Equal(t, "Nenhum áudio encontrado na conversa atual.", outcome.Text)
	assert.Zero(t, h.runtime.calls)
}

func TestClickSelectsLastAudio(t *testing.T) {
	var (
		mu        sync.Mutex
		requested []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	_, c := newHarness(t,
		fakeAudio{src: server.URL + "/first.mp3"},
		fakeAudio{sourceSrc: server.URL + "/second.mp3"},
		fakeAudio{},
	)

	c.Click(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/second.mp3"}, requested)
}

func TestClickMimeTypeFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// an empty Content-Type would be sniffed by net/http
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("ID3"))
	}))
	defer server.Close()

	h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.mp3"})
	c.Click(context.Background())

	assert.Equal(t, "audio/mpeg", h.runtime.message.MimeType)
}

func TestClickMimeTypeFromElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer server.Close()

	h, c := newHarness(t, fakeAudio{src: server.URL + "/voice", mimeType: "audio/wav"})
	c.Click(context.Background())

	assert.Equal(t, "audio/wav", h.runtime.message.MimeType)
}

func TestClickDownloadFailures(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
		limit  int64
		want   string
	}{
		"non-ok":    {status: http.StatusNotFound, body: "nope", want: "Falha ao baixar o áudio."},
		"empty":     {status: http.StatusOK, body: "", want: "O áudio baixado está vazio."},
		"too large": {status: http.StatusOK, body: "0123456789", limit: 4, want: "O áudio é grande demais para transcrição."},
	} {
		t.Run(name, func(t *testing.T) {
			server := newAudioServer(t, tc.status, "audio/ogg", tc.body)
			h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
			if tc.limit > 0 {
				c.maxDownloadSize = tc.limit
			}

			outcome := c.Click(context.Background())

			assert.Equal(t, Outcome{Text: tc.want, IsError: true}, outcome)
			assert.Zero(t, h.runtime.calls)
		})
	}
}

func TestClickFailureResponses(t *testing.T) {
	server := newAudioServer(t, http.StatusOK, "audio/ogg", "OggS")

	t.Run("error surfaced verbatim", func(t *testing.T) {
		h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
		h.runtime.response = protocol.Failure("bad key")

		assert.Equal(t, Outcome{Text: "bad key", IsError: true}, c.Click(context.Background()))
	})

	t.Run("failure without message", func(t *testing.T) {
		h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
		h.runtime.response = &protocol.Response{}

		assert.Equal(t, Outcome{Text: "Transcrição não disponível.", IsError: true}, c.Click(context.Background()))
	})

	t.Run("undelivered message", func(t *testing.T) {
		h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
		h.runtime.response = nil
		h.runtime.err = &protocol.SendError{Message: "serviço fora do ar", Err: errors.New("sending message: Post \"http://x\": refused")}

		assert.Equal(t, Outcome{Text: "serviço fora do ar", IsError: true}, c.Click(context.Background()))
	})

	t.Run("no response", func(t *testing.T) {
		h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})
		h.runtime.response = nil
		h.runtime.err = errors.New("worker unreachable")

		assert.Equal(t, Outcome{Text: "worker unreachable", IsError: true}, c.Click(context.Background()))
	})
}

func TestClickControlStates(t *testing.T) {
	server := newAudioServer(t, http.StatusOK, "audio/ogg", "OggS")
	h, c := newHarness(t, fakeAudio{src: server.URL + "/voice.ogg"})

	require.NoError(t, c.Mount(context.Background()))
	require.NoError(t, c.Mount(context.Background()))
	c.Click(context.Background())

	assert.Equal(t, []render{
		{label: "Transcrever áudio", disabled: false},
		{label: "Buscando áudio…", disabled: true},
		{label: "Baixando áudio…", disabled: true},
		{label: "Enviando para transcrição…", disabled: true},
		{label: "Transcrever áudio", disabled: false},
	}, h.control.renders)
}

func TestClickReenablesAfterFailure(t *testing.T) {
	h, c := newHarness(t)
	h.document.err = errors.New("detached")

	outcome := c.Click(context.Background())

	assert.True(t, outcome.IsError)
	last := h.control.renders[len(h.control.renders)-1]
	assert.Equal(t, render{label: "Transcrever áudio", disabled: false}, last)
}

type panickingDocument struct{}

func (panickingDocument) Audios(_ context.Context) ([]AudioElement, error) {
	panic("document gone")
}

func TestClickRecoversPanic(t *testing.T) {
	h, c := newHarness(t)
	c.document = panickingDocument{}

	outcome := c.Click(context.Background())

	assert.Equal(t, Outcome{Text: "Erro inesperado durante a transcrição.", IsError: true}, outcome)
	last := h.control.renders[len(h.control.renders)-1]
	assert.False(t, last.disabled)
}

func TestMountRetriesAfterFailedRender(t *testing.T) {
	h, c := newHarness(t)
	h.control.failures = 1
	h.control.err = errors.New("transient")

	assert.EqualError(t, c.Mount(context.Background()), "transient")
	require.NoError(t, c.Mount(context.Background()))
	require.NoError(t, c.Mount(context.Background()))

	assert.Equal(t, []render{{label: "Transcrever áudio", disabled: false}}, h.control.renders)
}

func TestClickHidesInternalErrors(t *testing.T) {
	h, c := newHarness(t)
	h.document.err = errors.New("listing channel messages: HTTP 403 Forbidden")

	outcome := c.Click(context.Background())

	assert.Equal(t, Outcome{Text: "Erro inesperado durante a transcrição.", IsError: true}, outcome)
}

package openaiwhisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/K3das/orange-scribe/asr"
)

const (
	DefaultEndpoint  = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModelName = "whisper-1"

	defaultMimeType  = "audio/webm"
	defaultExtension = "webm"
)

// used for the model name reported with results
const apiPrefix = "openai_whisper-"

var extensionsByMimeType = map[string]string{
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
	"audio/mpeg": "mp3",
	"audio/wav":  "wav",
	"audio/mp4":  "m4a",
}

type TranscriptionResponse struct {
	// The transcription
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type OpenAIWhisperClient struct {
	endpoint string
	model    string

	http *http.Client
	now  func() time.Time
}

type OpenAIWhisperClientOptions struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"https://api.openai.com/v1/audio/transcriptions"`
	ModelName string `env:"MODEL_NAME" envDefault:"whisper-1"`
}

type OpenAIWhisperClientExtraOptions func(*OpenAIWhisperClient)

func WithHTTPClient(client *http.Client) OpenAIWhisperClientExtraOptions {
	return func(w *OpenAIWhisperClient) {
		w.http = client
	}
}

// WithClock replaces the time source used for upload file names.
func WithClock(now func() time.Time) OpenAIWhisperClientExtraOptions {
	return func(w *OpenAIWhisperClient) {
		w.now = now
	}
}

func NewOpenAIWhisperClient(options OpenAIWhisperClientOptions, extraOptions ...OpenAIWhisperClientExtraOptions) *OpenAIWhisperClient {
	w := &OpenAIWhisperClient{
		endpoint: options.Endpoint,
		model:    options.ModelName,
		http:     http.DefaultClient,
		now:      time.Now,
	}
	if w.endpoint == "" {
		w.endpoint = DefaultEndpoint
	}
	if w.model == "" {
		w.model = DefaultModelName
	}
	for _, option := range extraOptions {
		option(w)
	}
	return w
}

// fileName builds the synthetic upload name; the API detects the container
// from its extension.
func (w *OpenAIWhisperClient) fileName(mimeType string) string {
	extension := defaultExtension
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		if known, ok := extensionsByMimeType[mediaType]; ok {
			extension = known
		}
	}
	return fmt.Sprintf("audio-%d.%s", w.now().UnixMilli(), extension)
}

func (w *OpenAIWhisperClient) buildBody(payload asr.Payload) (*bytes.Buffer, string, error) {
	mimeType := payload.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, w.fileName(mimeType)))
	header.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}

	if err := mw.WriteField("model", w.model); err != nil {
		return nil, "", fmt.Errorf("writing model field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return body, mw.FormDataContentType(), nil
}

// apiError decodes the error body of a failed request, falling back to a
// generic message naming the status code.
func apiError(resp *http.Response) *asr.APIError {
	apiErr := &asr.APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("Erro %d na API de transcrição.", resp.StatusCode),
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return apiErr
	}
	if errResp.Error != nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
	}
	return apiErr
}

func (w *OpenAIWhisperClient) Run(ctx context.Context, credential string, payload asr.Payload) (*asr.ASROutput, error) {
	body, contentType, err := w.buildBody(payload)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", contentType)

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}

	var transcription TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcription); err != nil {
		return nil, fmt.Errorf("decoding response json: %w", err)
	}

	return &asr.ASROutput{
		ModelName: apiPrefix + w.model,
		Text:      transcription.Text,
	}, nil
}

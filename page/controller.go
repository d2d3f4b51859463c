package page

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/K3das/orange-scribe/messages"
	"github.com/K3das/orange-scribe/protocol"
	"github.com/K3das/orange-scribe/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxDownloadSize matches the transcription API's upload cap.
const DefaultMaxDownloadSize = 1024 * 1024 * 25

type State string

const (
	StateIdle        State = "idle"
	StateLocating    State = "locating"
	StateDownloading State = "downloading"
	StateRequesting  State = "requesting"
)

// Document lists the audio elements of the page the controller runs in, in
// document order.
type Document interface {
	Audios(ctx context.Context) ([]AudioElement, error)
}

// Control is the button that starts the workflow.
type Control interface {
	Render(ctx context.Context, label string, disabled bool) error
}

type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// UserError is a workflow failure with the text shown to the user.
type UserError struct {
	Message string
	Err     error
}

func (err *UserError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Message + ": " + err.Err.Error()
}

func (err *UserError) Unwrap() error {
	return err.Err
}

// Outcome is what a finished workflow showed to the user.
type Outcome struct {
	Text    string
	IsError bool
}

type Controller struct {
	log *zap.Logger

	document  Document
	control   Control
	toaster   *Toaster
	clipboard Clipboard
	runtime   protocol.Sender
	messages  *messages.MessageProvider

	http            *http.Client
	maxDownloadSize int64
	toastDuration   time.Duration

	mountMu sync.Mutex
	mounted bool
}

type ControllerOptions struct {
	ParentLogger *zap.Logger
	Document     Document
	Control      Control
	Surface      Surface
	// Clipboard may be nil when the host has no clipboard.
	Clipboard Clipboard
	Runtime   protocol.Sender
	Messages  *messages.MessageProvider
}

type ControllerExtraOptions func(*Controller)

func WithHTTPClient(client *http.Client) ControllerExtraOptions {
	return func(c *Controller) {
		c.http = client
	}
}

func WithMaxDownloadSize(size int64) ControllerExtraOptions {
	return func(c *Controller) {
		c.maxDownloadSize = size
	}
}

func WithToastDuration(duration time.Duration) ControllerExtraOptions {
	return func(c *Controller) {
		c.toastDuration = duration
	}
}

func NewController(options ControllerOptions, extraOptions ...ControllerExtraOptions) *Controller {
	c := &Controller{
		log:       options.ParentLogger.Named("page"),
		document:  options.Document,
		control:   options.Control,
		clipboard: options.Clipboard,
		runtime:   options.Runtime,
		messages:  options.Messages,

		http:            http.DefaultClient,
		maxDownloadSize: DefaultMaxDownloadSize,
		toastDuration:   DefaultToastDuration,
	}
	for _, option := range extraOptions {
		option(c)
	}
	c.toaster = NewToaster(c.log, options.Surface, c.toastDuration)

	return c
}

// Mount renders the idle control. Once a render succeeds, later calls do
// nothing; a failed render is retried by the next call.
func (c *Controller) Mount(ctx context.Context) error {
	c.mountMu.Lock()
	defer c.mountMu.Unlock()

	if c.mounted {
		return nil
	}
	if err := c.control.Render(ctx, c.text(ctx, "button_label", map[string]State{"state": StateIdle}), false); err != nil {
		return err
	}
	c.mounted = true
	return nil
}

// Click runs the workflow once. The control is disabled until it finishes;
// that is the only thing keeping runs from overlapping.
func (c *Controller) Click(ctx context.Context) (outcome Outcome) {
	ctx, log := utils.LogContextWith(ctx, c.log, zap.String("run_id", uuid.NewString()))

	defer c.setState(ctx, StateIdle)
	defer func() {
		if r := recover(); r != nil {
			_ = utils.PanicError(log, r)
			outcome = Outcome{Text: c.text(ctx, "toast_unexpected", nil), IsError: true}
			c.show(ctx, outcome)
		}
	}()

	transcript, err := c.run(ctx)
	if err != nil {
		log.Error("failed to transcribe audio", zap.Error(err))
		outcome = Outcome{Text: c.errorText(ctx, err), IsError: true}
	} else {
		outcome = Outcome{Text: c.text(ctx, "toast_transcript", map[string]any{
			"transcript": transcript,
			"copied":     c.copyTranscript(ctx, transcript),
		})}
	}

	c.show(ctx, outcome)
	return outcome
}

func (c *Controller) run(ctx context.Context) (string, error) {
	c.setState(ctx, StateLocating)

	audios, err := c.document.Audios(ctx)
	if err != nil {
		return "", fmt.Errorf("listing audio elements: %w", err)
	}

	audio := SelectLast(audios)
	if audio == nil {
		return "", c.userError(ctx, "toast_no_audio", nil)
	}

	sourceURL := ResolveSource(audio)
	if sourceURL == "" {
		return "", c.userError(ctx, "toast_no_source", nil)
	}

	c.setState(ctx, StateDownloading)

	data, blobType, err := c.download(utils.LogContext(ctx, zap.String("source_url", sourceURL)), sourceURL)
	if err != nil {
		return "", err
	}

	c.setState(ctx, StateRequesting)

	response, err := c.runtime.SendMessage(ctx, protocol.Message{
		Action:   protocol.ActionTranscribeAudio,
		MimeType: ResolveMimeType(utils.GetLogFromContext(ctx, c.log), blobType, audio.Type(), sourceURL),
		Blob:     data,
	})
	if err != nil {
		return "", &UserError{Message: sendErrorText(err), Err: err}
	}

	if response == nil || !response.Success {
		if response != nil && response.Error != "" {
			return "", &UserError{Message: response.Error}
		}
		return "", c.userError(ctx, "toast_transcription_unavailable", nil)
	}

	return response.Transcript, nil
}

func (c *Controller) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", c.userError(ctx, "toast_download_failed", fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", c.userError(ctx, "toast_download_failed", fmt.Errorf("performing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", c.userError(ctx, "toast_download_failed", fmt.Errorf("bad http status: %s", resp.Status))
	}

	data, err := utils.ReadAllLimit(resp.Body, c.maxDownloadSize)
	if errors.Is(err, utils.ErrIOLimitReached) {
		return nil, "", c.userError(ctx, "toast_download_too_large", err)
	} else if err != nil {
		return nil, "", c.userError(ctx, "toast_download_failed", fmt.Errorf("reading body: %w", err))
	}

	if len(data) == 0 {
		return nil, "", c.userError(ctx, "toast_download_empty", nil)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// copyTranscript writes the transcript to the clipboard, reporting whether it worked.
func (c *Controller) copyTranscript(ctx context.Context, transcript string) bool {
	if c.clipboard == nil {
		return false
	}
	if err := c.clipboard.WriteText(ctx, transcript); err != nil {
		utils.GetLogFromContext(ctx, c.log).Warn("failed to copy transcript", zap.Error(err))
		return false
	}
	return true
}

func (c *Controller) setState(ctx context.Context, state State) {
	label := c.text(ctx, "button_label", map[string]State{"state": state})
	if err := c.control.Render(ctx, label, state != StateIdle); err != nil {
		utils.GetLogFromContext(ctx, c.log).With(zap.String("state", string(state))).Warn("failed to render control", zap.Error(err))
	}
}

func (c *Controller) show(ctx context.Context, outcome Outcome) {
	if err := c.toaster.Show(ctx, outcome.Text, outcome.IsError); err != nil {
		utils.GetLogFromContext(ctx, c.log).Error("failed to show toast", zap.Error(err))
	}
}

func (c *Controller) userError(ctx context.Context, messageName string, err error) *UserError {
	return &UserError{Message: c.text(ctx, messageName, nil), Err: err}
}

func (c *Controller) errorText(ctx context.Context, err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) && userErr.Message != "" {
		return userErr.Message
	}
	return c.text(ctx, "toast_unexpected", nil)
}

// sendErrorText is the short message of a failed delivery, without the
// transport's wrap chain.
func sendErrorText(err error) string {
	var sendErr *protocol.SendError
	if errors.As(err, &sendErr) && sendErr.Message != "" {
		return sendErr.Message
	}
	return err.Error()
}

// text renders a message, falling back to its name so a broken template
// never hides the workflow's outcome.
func (c *Controller) text(ctx context.Context, messageName string, data any) string {
	text, err := c.messages.ExecuteText(messageName, data)
	if err != nil {
		utils.GetLogFromContext(ctx, c.log).With(zap.String("message", messageName)).Error("failed to render message", zap.Error(err))
		return messageName
	}
	return text
}

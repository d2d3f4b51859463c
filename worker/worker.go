package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/K3das/orange-scribe/asr"
	"github.com/K3das/orange-scribe/credential"
	"github.com/K3das/orange-scribe/protocol"
	"github.com/K3das/orange-scribe/utils"
	"go.uber.org/zap"
)

const (
	MessageCredentialMissing  = "Configure a chave da API da OpenAI nas opções."
	MessageNoAudioReceived    = "Nenhum áudio recebido para transcrição."
	MessageNetworkFailure     = "Falha de rede ao contatar a API de transcrição."
	MessageUnexpected         = "Erro inesperado."
	MessageOptionsUnavailable = "Não foi possível abrir as opções."
	MessageRuntimeUnreachable = "Não foi possível contatar o serviço de transcrição."
)

// OptionsOpener shows the credential configuration surface to the user.
type OptionsOpener interface {
	OpenOptions(ctx context.Context) error
}

type Worker struct {
	log *zap.Logger

	credentials credential.Store
	asrAPI      asr.SpeechRecognitionAPI
	options     OptionsOpener
}

var _ protocol.Sender = (*Worker)(nil)

type WorkerOptions struct {
	ParentLogger *zap.Logger
	Credentials  credential.Store
	ASR          asr.SpeechRecognitionAPI
	Options      OptionsOpener
}

func NewWorker(options WorkerOptions) *Worker {
	return &Worker{
		log:         options.ParentLogger.Named("worker"),
		credentials: options.Credentials,
		asrAPI:      options.ASR,
		options:     options.Options,
	}
}

// SendMessage delivers a message in-process.
func (w *Worker) SendMessage(ctx context.Context, message protocol.Message) (*protocol.Response, error) {
	return w.HandleMessage(ctx, message)
}

// HandleMessage dispatches one message. Unknown actions get no response and
// ErrUnhandledAction, like a listener that ignores the message.
func (w *Worker) HandleMessage(ctx context.Context, message protocol.Message) (response *protocol.Response, err error) {
	ctx, log := utils.LogContextWith(ctx, w.log, zap.String("action", string(message.Action)))

	defer func() {
		if r := recover(); r != nil {
			_ = utils.PanicError(log, r)
			response, err = protocol.Failure(MessageUnexpected), nil
		}
	}()

	switch message.Action {
	case protocol.ActionOpenOptions:
		return w.openOptions(ctx), nil
	case protocol.ActionTranscribeAudio:
		if len(message.Blob) == 0 {
			return protocol.Failure(MessageNoAudioReceived), nil
		}
		response := w.Transcribe(ctx, asr.Payload{
			Data:     message.Blob,
			MimeType: message.MimeType,
		})
		return &response, nil
	default:
		return nil, fmt.Errorf("%w: %q", protocol.ErrUnhandledAction, message.Action)
	}
}

func (w *Worker) openOptions(ctx context.Context) *protocol.Response {
	log := utils.GetLogFromContext(ctx, w.log)

	if w.options == nil {
		log.Error("no options opener configured")
		return protocol.Failure(MessageOptionsUnavailable)
	}

	if err := w.options.OpenOptions(ctx); err != nil {
		log.Error("failed to open options", zap.Error(err))
		return protocol.Failure(MessageOptionsUnavailable)
	}
	return &protocol.Response{Success: true}
}

// Transcribe reads the credential and submits the payload, normalizing every
// outcome into a response.
func (w *Worker) Transcribe(ctx context.Context, payload asr.Payload) protocol.Response {
	log := utils.GetLogFromContext(ctx, w.log).With(
		zap.String("mime_type", payload.MimeType),
		zap.Int("payload_size", len(payload.Data)),
	)

	key, ok := w.credentials.GetCredential(ctx)
	if !ok {
		log.Info("transcription requested without a credential")
		return *protocol.Failure(MessageCredentialMissing)
	}

	output, err := w.asrAPI.Run(ctx, key, payload)
	if err != nil {
		log.Error("transcription failed", zap.Error(err))

		var apiErr *asr.APIError
		if errors.As(err, &apiErr) {
			return *protocol.Failure(apiErr.Message)
		}

		message := err.Error()
		if message == "" {
			message = MessageNetworkFailure
		}
		return *protocol.Failure(message)
	}

	log.With(zap.String("model", output.ModelName)).Info("transcription done")

	return protocol.Response{
		Success:    true,
		Transcript: output.Text,
	}
}

// Package options implements the credential configuration surface shared by
// the web options page and the Discord settings modal.
package options

import (
	"context"
	"errors"

	"github.com/K3das/orange-scribe/credential"
	"github.com/K3das/orange-scribe/messages"
	"go.uber.org/zap"
)

type FeedbackKind string

const (
	FeedbackNone    FeedbackKind = ""
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// Feedback is the inline status text next to the save action.
type Feedback struct {
	Text string
	Kind FeedbackKind
}

type Options struct {
	log *zap.Logger

	store    credential.Store
	messages *messages.MessageProvider
}

func NewOptions(parentLogger *zap.Logger, store credential.Store, messageProvider *messages.MessageProvider) *Options {
	return &Options{
		log:      parentLogger.Named("options"),
		store:    store,
		messages: messageProvider,
	}
}

// Load returns the stored key to prefill the input with.
func (o *Options) Load(ctx context.Context) (string, Feedback) {
	key, ok := o.store.GetCredential(ctx)
	if !ok {
		return "", Feedback{}
	}
	return key, o.feedback("options_loaded", FeedbackSuccess)
}

// Save validates and stores raw, reporting the result as feedback. Invalid
// keys are never written.
func (o *Options) Save(ctx context.Context, raw string) Feedback {
	key := credential.Normalize(raw)

	if err := credential.Validate(key); err != nil {
		var validationErr *credential.ValidationError
		if errors.As(err, &validationErr) {
			return Feedback{Text: validationErr.Message, Kind: FeedbackError}
		}
		return Feedback{Text: err.Error(), Kind: FeedbackError}
	}

	if err := o.store.SetCredential(ctx, key); err != nil {
		o.log.Error("failed to save credential", zap.Error(err))
		return o.feedback("options_save_failed", FeedbackError)
	}

	o.log.Info("credential saved")
	return o.feedback("options_saved", FeedbackSuccess)
}

// Text renders a static options string, such as the input label.
func (o *Options) Text(messageName string) string {
	text, err := o.messages.ExecuteText(messageName, nil)
	if err != nil {
		o.log.With(zap.String("message", messageName)).Error("failed to render message", zap.Error(err))
		return messageName
	}
	return text
}

func (o *Options) feedback(messageName string, kind FeedbackKind) Feedback {
	return Feedback{Text: o.Text(messageName), Kind: kind}
}

package asr

import (
	"context"
	"fmt"
)

type SpeechRecognitionAPI interface {
	Run(ctx context.Context, credential string, payload Payload) (*ASROutput, error)
}

// Payload is downloaded audio on its way to transcription.
type Payload struct {
	Data     []byte
	MimeType string
}

type ASROutput struct {
	Text      string
	ModelName string
}

// APIError is a non-success response from the transcription API. Message is
// meant for users.
type APIError struct {
	StatusCode int
	Message    string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("transcription api [%d]: %s", err.StatusCode, err.Message)
}

// Package protocol defines the messages exchanged between page hosts and the
// transcription worker.
package protocol

import (
	"context"
	"fmt"
)

type Action string

const (
	ActionTranscribeAudio Action = "transcribe-audio"
	ActionOpenOptions     Action = "open-options"
)

var ErrUnhandledAction = fmt.Errorf("no handler for message action")

type Message struct {
	Action   Action `json:"action"`
	MimeType string `json:"mimeType,omitempty"`
	// Blob is base64 encoded on the wire.
	Blob []byte `json:"blob,omitempty"`
}

type Response struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Failure(message string) *Response {
	return &Response{Success: false, Error: message}
}

// SendError is a message that could not be delivered. Message is the short
// text shown to the user.
type SendError struct {
	Message string
	Err     error
}

func (err *SendError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Message + ": " + err.Err.Error()
}

func (err *SendError) Unwrap() error {
	return err.Err
}

// Sender delivers a message to the worker. A nil response with a non-nil
// error means nothing answered.
type Sender interface {
	SendMessage(ctx context.Context, message Message) (*Response, error)
}

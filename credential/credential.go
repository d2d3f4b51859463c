// Package credential holds the API key contract shared by the store, the
// transcription worker and the options surfaces.
package credential

import (
	"context"
	"regexp"
	"strings"
)

// StorageKey is the name of the single persisted key-value entry.
const StorageKey = "openaiApiKey"

var keyPattern = regexp.MustCompile(`^sk-[A-Za-z0-9-]{10,}$`)

const (
	messageKeyMissing = "Informe uma chave iniciando com sk-."
	messageKeyInvalid = "Formato de chave inválido. Verifique se está correto (ex: sk-xxxx)."
)

// Store persists one credential. GetCredential reports absence both for a
// missing value and for a failing backend; SetCredential returns backend
// errors to the caller.
type Store interface {
	GetCredential(ctx context.Context) (string, bool)
	SetCredential(ctx context.Context, value string) error
}

type ValidationError struct {
	Message string
}

func (err *ValidationError) Error() string {
	return err.Message
}

func Normalize(key string) string {
	return strings.TrimSpace(key)
}

// Validate checks the format of a key before it is written. Reads are never
// validated.
func Validate(key string) error {
	key = Normalize(key)
	if key == "" {
		return &ValidationError{Message: messageKeyMissing}
	}
	if !keyPattern.MatchString(key) {
		return &ValidationError{Message: messageKeyInvalid}
	}
	return nil
}

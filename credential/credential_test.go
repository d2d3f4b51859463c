package credential

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccepts(t *testing.T) {
	for _, key := range []string{
		"sk-abcdefghij",
		"sk-proj-AbC123-xyz987",
		"  sk-0123456789  ",
	} {
		assert.NoError(t, Validate(key), key)
	}
}

func TestValidateRejects(t *testing.T) {
	for name, key := range map[string]string{
		"empty":        "",
		"whitespace":   "   ",
		"wrong prefix": "pk-abcdefghijk",
		"too short":    "sk-abc",
		"bad chars":    "sk-abcdefghij_!",
		"no prefix":    "abcdefghijklmnop",
	} {
		t.Run(name, func(t *testing.T) {
			err := Validate(key)
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.NotEmpty(t, validationErr.Message)
		})
	}
}

func TestValidateMessages(t *testing.T) {
	assert.EqualError(t, Validate(""), messageKeyMissing)
	assert.EqualError(t, Validate("sk-short"), messageKeyInvalid)
}

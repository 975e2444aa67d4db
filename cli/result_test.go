package cli

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestCommandError(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"Failed", ExitFailed},
		{"Usage", ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("convert: %w", NewCommandError(tt.code))

			var cmdErr *CommandError
			assert.True(t, stdErrors.As(err, &cmdErr))
			assert.Equal(t, tt.code, cmdErr.ExitCode())
			assert.Equal(t, fmt.Sprintf("convert: exit status %d", tt.code), err.Error())
		})
	}
}

package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError(t *testing.T) {
	err := fmt.Errorf("build: %w", NewConfigurationError("Writer", ErrUnknownNextAgent))

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Writer", cfgErr.Subject)
	assert.ErrorIs(t, err, ErrUnknownNextAgent)
	assert.Contains(t, err.Error(), "unknown next-agent: Writer")

	bare := NewConfigurationError("", ErrNoEntryPoint)
	assert.Equal(t, "configuration error: no entry point", bare.Error())
}

func TestDuplicateToolError(t *testing.T) {
	var err error = &DuplicateToolError{Name: "search"}
	assert.EqualError(t, err, "duplicate tool: search")
}

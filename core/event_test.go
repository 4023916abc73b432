package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	msg := NewToolResult("add", "call_1", "3", false)
	ev := NewEvent("run-1", 2, "Researcher", msg)

	assert.Equal(t, "Researcher", ev.Role)
	assert.Equal(t, RoleTool, ev.Author)
	assert.True(t, ev.IsToolResult())
	assert.Equal(t, 2, ev.Step)
	assert.NotEmpty(t, ev.ID)
}

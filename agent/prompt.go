package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/roundtable/internal/util"
)

// DefaultPreamble is the collaboration prompt every agent receives ahead of
// its own system message. It is a text/template rendered with PromptData.
const DefaultPreamble = "You are a helpful AI assistant, collaborating with other assistants." +
	" Use the provided tools to progress towards answering the question." +
	" If you are unable to fully answer, that's OK, another assistant with different tools" +
	" will help where you left off. Execute what you can to make progress." +
	" If you or any of the other assistants have the final answer or deliverable," +
	" prefix your response with {{.Marker}} so the team knows to stop." +
	" You have access to the following tools: {{.ToolNames}}.\n{{.SystemMessage}}"

// PromptData is the data available to a preamble template.
type PromptData struct {
	Agent         string   // Node id
	Nickname      string   // Display name
	Tools         []string // Advertised tool names
	ToolNames     string   // Tools joined with ", "
	SystemMessage string   // The agent's own system message
	Marker        string   // core.TerminalMarker
}

// RenderPrompt renders preamble with data. An empty preamble yields the
// system message alone.
func RenderPrompt(preamble string, data PromptData) (string, error) {
	if data.ToolNames == "" {
		data.ToolNames = strings.Join(data.Tools, ", ")
	}
	if preamble == "" {
		return data.SystemMessage, nil
	}

	out, err := util.RenderTemplate(preamble, map[string]any{
		"Agent":         data.Agent,
		"Nickname":      data.Nickname,
		"Tools":         data.Tools,
		"ToolNames":     data.ToolNames,
		"SystemMessage": data.SystemMessage,
		"Marker":        data.Marker,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt for %s: %w", data.Agent, err)
	}
	return out, nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/model"
	anthropicmodel "github.com/hupe1980/roundtable/model/anthropic"
	"github.com/hupe1980/roundtable/model/gemini"
	"github.com/hupe1980/roundtable/model/ollama"
	"github.com/hupe1980/roundtable/model/openai"
	"github.com/hupe1980/roundtable/tool"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderScripted  = "scripted"
)

// NewModel builds a language model from its configuration. Missing API keys
// fall back to each SDK's environment variable.
func NewModel(mc ModelConfig) (model.Model, error) {
	if err := mc.validate(); err != nil {
		return nil, err
	}

	switch mc.Provider {
	case ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(mc.MaxTokens)
			}
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
		}), nil
	case ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if mc.Name != "" {
				o.Model = anthropic.Model(mc.Name)
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxTokens = int64(mc.MaxTokens)
			}
			o.APIKey = mc.APIKey
		}), nil
	case ProviderGemini:
		return gemini.NewModel(func(o *gemini.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			if mc.Temperature != nil {
				o.Temperature = float32(*mc.Temperature)
			}
			if mc.MaxTokens > 0 {
				o.MaxTokens = int32(mc.MaxTokens)
			}
			o.APIKey = mc.APIKey
		}), nil
	case ProviderOllama:
		return ollama.NewModel(func(o *ollama.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			if mc.BaseURL != "" {
				o.Host = mc.BaseURL
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
		}), nil
	default:
		replies := make([]model.Reply, len(mc.Replies))
		for i, r := range mc.Replies {
			replies[i] = model.Text(r)
		}
		return model.NewScriptedModel(replies...), nil
	}
}

// NewConference declares a conference from the configuration. available
// supplies the tools the file may reference by name. The returned conference
// is not built yet.
func (c *Config) NewConference(available []tool.Tool, optFns ...func(o *roundtable.Options)) (*roundtable.Conference, error) {
	byName := make(map[string]tool.Tool, len(available))
	for _, t := range available {
		byName[t.Name()] = t
	}

	var missing []string
	tools := make([]tool.Tool, 0, len(c.Tools))
	for _, name := range c.Tools {
		t, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		tools = append(tools, t)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown tools: %s", strings.Join(missing, ", "))
	}

	var defaultModel model.Model
	if !c.Model.IsZero() {
		m, err := NewModel(c.Model)
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		defaultModel = m
	}

	conf := roundtable.New(func(o *roundtable.Options) {
		o.Model = defaultModel
		o.DefaultStepBudget = c.StepBudget
		o.MaxHistoryMessages = c.MaxHistoryMessages
		o.Stream = c.Stream
		if c.MaxConcurrentRuns > 0 {
			o.MaxConcurrentRuns = c.MaxConcurrentRuns
		}
		if c.Preamble != "" {
			o.Preamble = c.Preamble
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	conf.AddTool(tools...)

	for _, a := range c.Agents {
		var override model.Model
		if a.Model != nil {
			m, err := NewModel(*a.Model)
			if err != nil {
				return nil, fmt.Errorf("agent %s: model: %w", a.Name, err)
			}
			override = m
		}

		conf.AddAgent(a.Name, a.SystemMessage, a.Next, a.Entry, func(o *roundtable.AgentOptions) {
			o.Nickname = a.Nickname
			o.Model = override
			if a.Tools != nil {
				o.Tools = append([]string{}, (*a.Tools)...)
			}
		})
	}

	return conf, nil
}

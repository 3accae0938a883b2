package settingstab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marcus/bmo/internal/config"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindSecret
	kindBool
	kindModel
	kindAction
)

// section groups fields under a collapsible header whose state is persisted.
type section struct {
	title    string
	expanded func(*config.Settings) bool
	toggle   func(*config.Settings)
	fields   []field
}

type field struct {
	label string
	kind  fieldKind
	get   func(*config.Settings) string
	set   func(*config.Settings, string) error
	flip  func(*config.Settings)
	run   string // action id for kindAction
}

const (
	actionRefreshModels = "refresh-models"
	actionStoreKey      = "store-key"
	actionForgetKey     = "forget-key"
)

func text(label string, ptr func(*config.Settings) *string) field {
	return field{
		label: label,
		kind:  kindText,
		get:   func(s *config.Settings) string { return *ptr(s) },
		set: func(s *config.Settings, v string) error {
			*ptr(s) = strings.TrimSpace(v)
			return nil
		},
	}
}

func boolean(label string, ptr func(*config.Settings) *bool) field {
	return field{
		label: label,
		kind:  kindBool,
		get:   func(s *config.Settings) string { return strconv.FormatBool(*ptr(s)) },
		flip:  func(s *config.Settings) { *ptr(s) = !*ptr(s) },
	}
}

// number accepts an empty value or an integer, like the request builder.
func number(label string, ptr func(*config.Settings) *string) field {
	f := text(label, ptr)
	f.set = func(s *config.Settings, v string) error {
		v = strings.TrimSpace(v)
		if v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				return fmt.Errorf("%s must be a whole number", label)
			}
		}
		*ptr(s) = v
		return nil
	}
	return f
}

func decimal(label string, ptr func(*config.Settings) *string) field {
	f := text(label, ptr)
	f.set = func(s *config.Settings, v string) error {
		v = strings.TrimSpace(v)
		if v != "" {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("%s must be a number", label)
			}
		}
		*ptr(s) = v
		return nil
	}
	return f
}

func sections() []section {
	return []section{
		{
			title:    "General",
			expanded: func(s *config.Settings) bool { return s.ToggleGeneralSettings },
			toggle:   func(s *config.Settings) { s.ToggleGeneralSettings = !s.ToggleGeneralSettings },
			fields: []field{
				{
					label: "Model",
					kind:  kindModel,
					get:   func(s *config.Settings) string { return s.Model },
					set: func(s *config.Settings, v string) error {
						s.Model = strings.TrimSpace(v)
						return nil
					},
				},
				{label: "Refresh models", kind: kindAction, run: actionRefreshModels},
				text("System role", func(s *config.Settings) *string { return &s.SystemRole }),
				number("Max tokens", func(s *config.Settings) *string { return &s.MaxTokens }),
				{
					label: "Temperature",
					kind:  kindText,
					get:   func(s *config.Settings) string { return strconv.FormatFloat(s.Temperature, 'f', 2, 64) },
					set: func(s *config.Settings, v string) error {
						t, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
						if err != nil || t < 0 || t > 2 {
							return fmt.Errorf("temperature must be between 0 and 2")
						}
						s.Temperature = t
						return nil
					},
				},
			},
		},
		{
			title:    "Appearance",
			expanded: func(s *config.Settings) bool { return s.ToggleAppearanceSettings },
			toggle:   func(s *config.Settings) { s.ToggleAppearanceSettings = !s.ToggleAppearanceSettings },
			fields: []field{
				text("User name", func(s *config.Settings) *string { return &s.UserName }),
				text("Chatbot name", func(s *config.Settings) *string { return &s.ChatbotName }),
				boolean("Show header", func(s *config.Settings) *bool { return &s.AllowHeader }),
				text("Background color", func(s *config.Settings) *string { return &s.ChatbotContainerBackgroundColor }),
				text("User message color", func(s *config.Settings) *string { return &s.UserMessageBackgroundColor }),
				text("Bot message color", func(s *config.Settings) *string { return &s.BotMessageBackgroundColor }),
			},
		},
		{
			title:    "Editor",
			expanded: func(s *config.Settings) bool { return s.ToggleEditorSettings },
			toggle:   func(s *config.Settings) { s.ToggleEditorSettings = !s.ToggleEditorSettings },
			fields: []field{
				boolean("Reference current note", func(s *config.Settings) *bool { return &s.AllowReferenceCurrentNote }),
				boolean("Rename note title", func(s *config.Settings) *bool { return &s.AllowRenameNoteTitle }),
				text("Prompt select generate role", func(s *config.Settings) *string { return &s.SystemRolePromptSelectGenerate }),
			},
		},
		{
			title:    "Chat History",
			expanded: func(s *config.Settings) bool { return s.ToggleChatHistorySettings },
			toggle:   func(s *config.Settings) { s.ToggleChatHistorySettings = !s.ToggleChatHistorySettings },
			fields: []field{
				text("Chat history folder", func(s *config.Settings) *string { return &s.ChatHistoryPath }),
				text("Template file", func(s *config.Settings) *string { return &s.TemplateFilePath }),
			},
		},
		{
			title:    "Prompts",
			expanded: func(s *config.Settings) bool { return s.TogglePromptSettings },
			toggle:   func(s *config.Settings) { s.TogglePromptSettings = !s.TogglePromptSettings },
			fields: []field{
				text("Prompt folder", func(s *config.Settings) *string { return &s.PromptFolderPath }),
				text("Prompt", func(s *config.Settings) *string { return &s.Prompt }),
			},
		},
		{
			title:    "API Connection",
			expanded: func(s *config.Settings) bool { return s.ToggleAPIConnectionSettings },
			toggle:   func(s *config.Settings) { s.ToggleAPIConnectionSettings = !s.ToggleAPIConnectionSettings },
			fields: []field{
				{
					label: "API key",
					kind:  kindSecret,
					get:   func(s *config.Settings) string { return s.APIKey },
					set: func(s *config.Settings, v string) error {
						s.APIKey = strings.TrimSpace(v)
						return nil
					},
				},
				{label: "Move API key to OS keyring", kind: kindAction, run: actionStoreKey},
				{label: "Remove API key from OS keyring", kind: kindAction, run: actionForgetKey},
				text("OpenAI base URL", func(s *config.Settings) *string { return &s.OpenAIBaseURL }),
			},
		},
		{
			title:    "OpenAI-compatible REST",
			expanded: func(s *config.Settings) bool { return s.ToggleOpenAIRestAPIURLSettings },
			toggle:   func(s *config.Settings) { s.ToggleOpenAIRestAPIURLSettings = !s.ToggleOpenAIRestAPIURLSettings },
			fields: []field{
				text("REST API URL", func(s *config.Settings) *string { return &s.OpenAIRestAPIURL }),
				boolean("REST stream", func(s *config.Settings) *bool { return &s.AllowOpenAIRestAPIStream }),
			},
		},
		{
			title:    "Ollama",
			expanded: func(s *config.Settings) bool { return s.ToggleOllamaSettings },
			toggle:   func(s *config.Settings) { s.ToggleOllamaSettings = !s.ToggleOllamaSettings },
			fields: []field{
				text("Ollama URL", func(s *config.Settings) *string { return &s.OllamaRestAPIURL }),
				boolean("Ollama stream", func(s *config.Settings) *bool { return &s.AllowOllamaStream }),
			},
		},
		{
			title:    "Advanced",
			expanded: func(s *config.Settings) bool { return s.ToggleAdvancedSettings },
			toggle:   func(s *config.Settings) { s.ToggleAdvancedSettings = !s.ToggleAdvancedSettings },
			fields:   advancedFields(),
		},
	}
}

func advancedFields() []field {
	op := func(s *config.Settings) *config.OllamaParameters { return &s.OllamaParameters }
	return []field{
		text("keep_alive", func(s *config.Settings) *string { return &op(s).KeepAlive }),
		number("mirostat", func(s *config.Settings) *string { return &op(s).Mirostat }),
		decimal("mirostat_eta", func(s *config.Settings) *string { return &op(s).MirostatEta }),
		decimal("mirostat_tau", func(s *config.Settings) *string { return &op(s).MirostatTau }),
		number("num_ctx", func(s *config.Settings) *string { return &op(s).NumCtx }),
		number("num_gqa", func(s *config.Settings) *string { return &op(s).NumGqa }),
		number("num_thread", func(s *config.Settings) *string { return &op(s).NumThread }),
		number("repeat_last_n", func(s *config.Settings) *string { return &op(s).RepeatLastN }),
		decimal("repeat_penalty", func(s *config.Settings) *string { return &op(s).RepeatPenalty }),
		number("seed", func(s *config.Settings) *string { return &op(s).Seed }),
		{
			label: "stop",
			kind:  kindText,
			get:   func(s *config.Settings) string { return strings.Join(s.OllamaParameters.Stop, ", ") },
			set: func(s *config.Settings, v string) error {
				stop := []string{}
				for _, part := range strings.Split(v, ",") {
					if part = strings.TrimSpace(part); part != "" {
						stop = append(stop, part)
					}
				}
				s.OllamaParameters.Stop = stop
				return nil
			},
		},
		decimal("tfs_z", func(s *config.Settings) *string { return &op(s).TfsZ }),
		number("top_k", func(s *config.Settings) *string { return &op(s).TopK }),
		decimal("top_p", func(s *config.Settings) *string { return &op(s).TopP }),
	}
}

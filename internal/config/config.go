package config

// Settings is the single configuration record of the chatbot plugin.
// JSON keys match the persisted layout written by earlier releases, so a
// data.json from any version loads without migration.
type Settings struct {
	APIKey                          string  `json:"apiKey"`
	MaxTokens                       string  `json:"max_tokens"`
	Model                           string  `json:"model"`
	SystemRole                      string  `json:"system_role"`
	Temperature                     float64 `json:"temperature"`
	UserName                        string  `json:"userName"`
	ChatbotName                     string  `json:"chatbotName"`
	ChatbotContainerBackgroundColor string  `json:"chatbotContainerBackgroundColor"`
	UserMessageBackgroundColor      string  `json:"userMessageBackgroundColor"`
	BotMessageBackgroundColor       string  `json:"botMessageBackgroundColor"`
	ChatHistoryPath                 string  `json:"chatHistoryPath"`
	TemplateFilePath                string  `json:"templateFilePath"`
	PromptFolderPath                string  `json:"promptFolderPath"`
	Prompt                          string  `json:"prompt"`
	SystemRolePromptSelectGenerate  string  `json:"system_role_prompt_select_generate"`

	// Backends
	OpenAIBaseURL            string `json:"openAIBaseUrl"`
	OllamaRestAPIURL         string `json:"ollamaRestAPIUrl"`
	AllowOllamaStream        bool   `json:"allowOllamaStream"`
	OpenAIRestAPIURL         string `json:"openAIRestAPIUrl"`
	AllowOpenAIRestAPIStream bool   `json:"allowOpenAIRestAPIStream"`

	// Editor features
	AllowReferenceCurrentNote bool `json:"allowReferenceCurrentNote"`
	AllowRenameNoteTitle      bool `json:"allowRenameNoteTitle"`

	// Model lists, refreshed from the backends
	AllModels           []string `json:"allModels"`
	OllamaModels        []string `json:"ollamaModels"`
	OpenAIRestAPIModels []string `json:"openAIRestAPIModels"`
	OpenAIBaseModels    []string `json:"openAIBaseModels"`

	AllowHeader bool `json:"allowHeader"`

	// Collapsed/expanded state of the settings tab sections
	ToggleGeneralSettings          bool `json:"toggleGeneralSettings"`
	ToggleAppearanceSettings       bool `json:"toggleAppearanceSettings"`
	ToggleEditorSettings           bool `json:"toggleEditorSettings"`
	ToggleChatHistorySettings      bool `json:"toggleChatHistorySettings"`
	TogglePromptSettings           bool `json:"togglePromptSettings"`
	ToggleAPIConnectionSettings    bool `json:"toggleAPIConnectionSettings"`
	ToggleOpenAIRestAPIURLSettings bool `json:"toggleOpenAIRestAPIUrlSettings"`
	ToggleOllamaSettings           bool `json:"toggleOllamaSettings"`
	ToggleAdvancedSettings         bool `json:"toggleAdvancedSettings"`

	OllamaParameters OllamaParameters `json:"ollamaParameters"`
}

// OllamaParameters holds the sampling knobs forwarded to the local
// inference server. Values are kept as strings the way the settings form
// edits them; they are parsed when a request is built.
type OllamaParameters struct {
	Mirostat      string   `json:"mirostat"`
	MirostatEta   string   `json:"mirostat_eta"`
	MirostatTau   string   `json:"mirostat_tau"`
	NumCtx        string   `json:"num_ctx"`
	NumGqa        string   `json:"num_gqa"`
	NumThread     string   `json:"num_thread"`
	RepeatLastN   string   `json:"repeat_last_n"`
	RepeatPenalty string   `json:"repeat_penalty"`
	Seed          string   `json:"seed"`
	Stop          []string `json:"stop"`
	TfsZ          string   `json:"tfs_z"`
	TopK          string   `json:"top_k"`
	TopP          string   `json:"top_p"`
	KeepAlive     string   `json:"keep_alive"`
}

// Default returns the default settings record.
func Default() *Settings {
	return &Settings{
		APIKey:                          "",
		MaxTokens:                       "",
		Model:                           "",
		SystemRole:                      "You are a helpful assistant.",
		Temperature:                     1.00,
		UserName:                        "USER",
		ChatbotName:                     "BMO",
		ChatbotContainerBackgroundColor: "--background-secondary",
		UserMessageBackgroundColor:      "--background-primary",
		BotMessageBackgroundColor:       "--background-secondary",
		ChatHistoryPath:                 "BMO/",
		TemplateFilePath:                "",
		PromptFolderPath:                "",
		Prompt:                          "",
		SystemRolePromptSelectGenerate:  "You are a helpful assistant who responds in markdown.",
		OpenAIBaseURL:                   "https://api.openai.com/v1",
		OllamaRestAPIURL:                "",
		AllowOllamaStream:               false,
		OpenAIRestAPIURL:                "",
		AllowOpenAIRestAPIStream:        false,
		AllowReferenceCurrentNote:       false,
		AllowRenameNoteTitle:            false,
		AllModels:                       []string{},
		OllamaModels:                    []string{},
		OpenAIRestAPIModels:             []string{},
		OpenAIBaseModels:                []string{},
		AllowHeader:                     true,
		ToggleGeneralSettings:           true,
		ToggleAppearanceSettings:        false,
		ToggleEditorSettings:            false,
		ToggleChatHistorySettings:       false,
		TogglePromptSettings:            false,
		ToggleAPIConnectionSettings:     true,
		ToggleOpenAIRestAPIURLSettings:  true,
		ToggleOllamaSettings:            true,
		ToggleAdvancedSettings:          false,
		OllamaParameters: OllamaParameters{
			KeepAlive:     "",
			Mirostat:      "0",
			MirostatEta:   "0.1",
			MirostatTau:   "5.0",
			NumCtx:        "2048",
			NumGqa:        "",
			NumThread:     "",
			RepeatLastN:   "64",
			RepeatPenalty: "1.1",
			Seed:          "",
			Stop:          []string{},
			TfsZ:          "1.0",
			TopK:          "40",
			TopP:          "0.9",
		},
	}
}

// Clone returns a deep copy of s. Slices are copied so a snapshot handed to
// a background request cannot observe later edits.
func (s *Settings) Clone() *Settings {
	c := *s
	c.AllModels = cloneStrings(s.AllModels)
	c.OllamaModels = cloneStrings(s.OllamaModels)
	c.OpenAIRestAPIModels = cloneStrings(s.OpenAIRestAPIModels)
	c.OpenAIBaseModels = cloneStrings(s.OpenAIBaseModels)
	c.OllamaParameters.Stop = cloneStrings(s.OllamaParameters.Stop)
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

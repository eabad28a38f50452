package ingest

const vapiSystemPrompt = `You are a friendly, professional AI receptionist for Time & Attention AI.
Your role is to:
- Answer every call warmly and professionally
- Help callers with questions about our services
- Schedule appointments and take messages
- Never leave a caller without a resolution or next step

Key behaviors:
- Be conversational but efficient
- If you don't know something, say so honestly and offer to take a message
- Always confirm important details (names, numbers, appointment times)
- End every call with a clear next step`

// VapiAssistantOptions holds the deployment-specific parts of the assistant
// returned for assistant-request messages.
type VapiAssistantOptions struct {
	Name         string
	FirstMessage string
	ServerURL    string
	ServerSecret string
}

// VapiAssistantConfig is the assistant definition Vapi expects in reply to
// an assistant-request.
type VapiAssistantConfig struct {
	Name            string                `json:"name"`
	Model           VapiModelConfig       `json:"model"`
	Voice           VapiVoiceConfig       `json:"voice"`
	Transcriber     VapiTranscriberConfig `json:"transcriber"`
	FirstMessage    string                `json:"firstMessage"`
	EndCallMessage  string                `json:"endCallMessage"`
	ServerURL       string                `json:"serverUrl,omitempty"`
	ServerURLSecret string                `json:"serverUrlSecret,omitempty"`
	// ServerMessages lists the webhook events Vapi sends. The call only ends
	// in the registry on end-of-call-report.
	ServerMessages  []string              `json:"serverMessages"`
}

var vapiServerMessages = []string{
	VapiStatusUpdate,
	VapiTranscript,
	VapiEndOfCallReport,
}

type VapiModelConfig struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"systemPrompt"`
	Temperature  float64 `json:"temperature"`
}

type VapiVoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type VapiTranscriberConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// BuildVapiAssistant returns the receptionist assistant with Deepgram voice
// and transcription.
func BuildVapiAssistant(opts VapiAssistantOptions) VapiAssistantConfig {
	return VapiAssistantConfig{
		Name: opts.Name,
		Model: VapiModelConfig{
			Provider:     "openai",
			Model:        "gpt-4o",
			SystemPrompt: vapiSystemPrompt,
			Temperature:  0.7,
		},
		Voice: VapiVoiceConfig{
			Provider: "deepgram",
			VoiceID:  "asteria-en",
		},
		Transcriber: VapiTranscriberConfig{
			Provider: "deepgram",
			Model:    "nova-2",
			Language: "en-US",
		},
		FirstMessage:    opts.FirstMessage,
		EndCallMessage:  "Thanks for calling! Have a great day.",
		ServerURL:       opts.ServerURL,
		ServerURLSecret: opts.ServerSecret,
		ServerMessages:  append([]string(nil), vapiServerMessages...),
	}
}

package model

// ================ Config ================
type ConversationConfig struct {
	TTL         string `envconfig:"CONVERSATION_TTL" default:"24h"`
	TurnTimeout string `envconfig:"CONVERSATION_TURN_TIMEOUT" default:"30s"`
	Tools       struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type BaristaModelConfig struct {
	Model       string  `envconfig:"BARISTA_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"BARISTA_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"BARISTA_TEMPERATURE" default:"0.4"`
}

type PromptConfig struct {
	ShopName string `envconfig:"PROMPT_SHOP_NAME" default:"the corner coffee shop"`
}

type SessionStoreConfig struct {
	Driver string `envconfig:"SESSION_STORE_DRIVER" default:"memory"`
}

package model

import "time"

// Configuration keys read by the reply generator
const (
	ConfigKeySystemPrompt          = "risha_prompt"
	ConfigKeyResponseJSONStructure = "response_json_structure"
)

// ConversationContextPlaceholder is replaced with recent history in the system prompt
const ConversationContextPlaceholder = "{conversationContext}"

// AppConfigEntry is a key/value configuration row
type AppConfigEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

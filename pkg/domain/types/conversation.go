package types

import "fmt"

// ConversationMode controls whether user messages receive an automatic AI reply
type ConversationMode string

const (
	ConversationModeAI    ConversationMode = "ai"
	ConversationModeHuman ConversationMode = "human"
)

// AllConversationModes returns all valid conversation modes
func AllConversationModes() []ConversationMode {
	return []ConversationMode{
		ConversationModeAI,
		ConversationModeHuman,
	}
}

// IsValid checks if the conversation mode is valid
func (m ConversationMode) IsValid() bool {
	switch m {
	case ConversationModeAI,
		ConversationModeHuman:
		return true
	default:
		return false
	}
}

// Normalize returns the mode, treating empty as ConversationModeAI.
func (m ConversationMode) Normalize() ConversationMode {
	if m == "" {
		return ConversationModeAI
	}
	return m
}

func (m ConversationMode) String() string {
	return string(m)
}

// ParseConversationMode parses a string into a ConversationMode
func ParseConversationMode(s string) (ConversationMode, error) {
	mode := ConversationMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid conversation mode: %s", s)
	}
	return mode, nil
}

// ConversationStatus represents the lifecycle status of a conversation
type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusClosed   ConversationStatus = "closed"
	ConversationStatusArchived ConversationStatus = "archived"
)

// IsValid checks if the conversation status is valid
func (s ConversationStatus) IsValid() bool {
	switch s {
	case ConversationStatusActive,
		ConversationStatusClosed,
		ConversationStatusArchived:
		return true
	default:
		return false
	}
}

// Normalize returns the status, treating empty as ConversationStatusActive.
func (s ConversationStatus) Normalize() ConversationStatus {
	if s == "" {
		return ConversationStatusActive
	}
	return s
}

func (s ConversationStatus) String() string {
	return string(s)
}

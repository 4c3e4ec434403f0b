package types

import "fmt"

// MessageType is the kind of content a message carries
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVoice    MessageType = "voice"
	MessageTypeDocument MessageType = "document"
	MessageTypeVideo    MessageType = "video"
)

// IsValid checks if the message type is valid
func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText,
		MessageTypeImage,
		MessageTypeVoice,
		MessageTypeDocument,
		MessageTypeVideo:
		return true
	default:
		return false
	}
}

// Normalize returns the type, treating empty as MessageTypeText.
func (t MessageType) Normalize() MessageType {
	if t == "" {
		return MessageTypeText
	}
	return t
}

func (t MessageType) String() string {
	return string(t)
}

// ParseMessageType parses a string into a MessageType. Empty input yields MessageTypeText.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(s).Normalize()
	if !t.IsValid() {
		return "", fmt.Errorf("invalid message type: %s", s)
	}
	return t, nil
}

// AttachmentType is the kind of blob referenced by an attachment
type AttachmentType string

const (
	AttachmentTypeImage    AttachmentType = "image"
	AttachmentTypeVoice    AttachmentType = "voice"
	AttachmentTypeDocument AttachmentType = "document"
)

// IsValid checks if the attachment type is valid
func (t AttachmentType) IsValid() bool {
	switch t {
	case AttachmentTypeImage,
		AttachmentTypeVoice,
		AttachmentTypeDocument:
		return true
	default:
		return false
	}
}

func (t AttachmentType) String() string {
	return string(t)
}

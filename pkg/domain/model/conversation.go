package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

// ConversationID is a UUID-based identifier for Conversation
type ConversationID string

// NewConversationID generates a new UUID v4 ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

func (id ConversationID) String() string {
	return string(id)
}

// Conversation is a chat thread owned by a patient, optionally assigned to a staff member
type Conversation struct {
	ID        ConversationID
	UserID    string
	StaffID   *string
	Title     string
	Mode      types.ConversationMode
	Status    types.ConversationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwner reports whether userID owns the conversation
func (c *Conversation) IsOwner(userID string) bool {
	return c != nil && userID != "" && c.UserID == userID
}

// CanAccess reports whether the caller may read and post to the conversation.
// Owners always can. Staff can access conversations assigned to them, or unassigned
// ones, which is how a nutritionist picks up a new patient thread. Supervisors of the
// policy can access every conversation.
func (c *Conversation) CanAccess(userID string, role types.Role, policy types.StaffPolicy) bool {
	if c == nil || userID == "" {
		return false
	}
	if c.IsOwner(userID) {
		return true
	}
	if !policy.IsStaff(role) {
		return false
	}
	if policy.IsSupervisor(role) {
		return true
	}
	return c.StaffID == nil || *c.StaffID == userID
}

// Copy returns a deep copy of the conversation
func (c *Conversation) Copy() *Conversation {
	if c == nil {
		return nil
	}
	copied := *c
	if c.StaffID != nil {
		staffID := *c.StaffID
		copied.StaffID = &staffID
	}
	return &copied
}

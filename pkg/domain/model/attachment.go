package model

import (
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

// AttachmentRef points at a previously uploaded blob. Locator is a storage object
// reference, not a public URL.
type AttachmentRef struct {
	Type    types.AttachmentType
	Locator string
	Name    string
	Size    *int64
}

// AttachmentRefPayload is the wire form of AttachmentRef
type AttachmentRefPayload struct {
	Type types.AttachmentType `json:"type"`
	URL  string               `json:"url"`
	Name string               `json:"name,omitempty"`
	Size *int64               `json:"size,omitempty"`
}

// Payload converts the reference into its wire form
func (a AttachmentRef) Payload() AttachmentRefPayload {
	p := AttachmentRefPayload{
		Type: a.Type,
		URL:  a.Locator,
		Name: a.Name,
	}
	if a.Size != nil {
		size := *a.Size
		p.Size = &size
	}
	return p
}

// Ref converts the wire form back into an AttachmentRef
func (p AttachmentRefPayload) Ref() AttachmentRef {
	a := AttachmentRef{
		Type:    p.Type,
		Locator: p.URL,
		Name:    p.Name,
	}
	if p.Size != nil {
		size := *p.Size
		a.Size = &size
	}
	return a
}

// CopyAttachments deep-copies a list of attachment references
func CopyAttachments(in []AttachmentRef) []AttachmentRef {
	if len(in) == 0 {
		return nil
	}
	out := make([]AttachmentRef, len(in))
	for i, a := range in {
		out[i] = a
		if a.Size != nil {
			size := *a.Size
			out[i].Size = &size
		}
	}
	return out
}

// EncodedAttachmentType is the payload kind sent to the completion model
type EncodedAttachmentType string

const (
	EncodedAttachmentImage    EncodedAttachmentType = "image"
	EncodedAttachmentAudio    EncodedAttachmentType = "audio"
	EncodedAttachmentDocument EncodedAttachmentType = "document"
)

// EncodedAttachment is a fetched blob ready to be inlined into a model request
type EncodedAttachment struct {
	Type     EncodedAttachmentType
	MIMEType string
	// Data is the standard base64 encoding of the blob
	Data string
}

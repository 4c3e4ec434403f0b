// Package attachment fetches chat attachments from blob storage and prepares them for
// a multimodal model request.
package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/safe"
)

const (
	DefaultContainer   = "user-uploads"
	DefaultMaxBlobSize = 20 << 20
)

const noTextMessage = "No text message"

// kind describes how one attachment type is fetched and announced to the model
type kind struct {
	attachmentType types.AttachmentType
	payloadType    model.EncodedAttachmentType
	defaultMIME    string
	prefix         func(n int) string
}

// Processing order is fixed: images, then voice notes, then documents
var kinds = []kind{
	{
		attachmentType: types.AttachmentTypeImage,
		payloadType:    model.EncodedAttachmentImage,
		defaultMIME:    "image/jpeg",
		prefix: func(n int) string {
			return fmt.Sprintf("Please analyze the %d %s the user has shared. ", n, plural(n, "image"))
		},
	},
	{
		attachmentType: types.AttachmentTypeVoice,
		payloadType:    model.EncodedAttachmentAudio,
		defaultMIME:    "audio/webm",
		prefix: func(n int) string {
			return fmt.Sprintf("Please transcribe and respond to the %d %s from the user. ", n, plural(n, "voice note"))
		},
	},
	{
		attachmentType: types.AttachmentTypeDocument,
		payloadType:    model.EncodedAttachmentDocument,
		defaultMIME:    "application/pdf",
		prefix: func(n int) string {
			return fmt.Sprintf("Please analyze the %d %s the user has provided. ", n, plural(n, "document"))
		},
	},
}

func plural(n int, word string) string {
	if n > 1 {
		return word + "s"
	}
	return word
}

// Resolver downloads attachment blobs and builds the combined model prompt
type Resolver struct {
	blobs       interfaces.BlobStore
	container   string
	maxBlobSize int64
}

type Option func(*Resolver)

// WithContainer sets the storage container attachments are uploaded into
func WithContainer(container string) Option {
	return func(r *Resolver) {
		r.container = container
	}
}

// WithMaxBlobSize sets the largest blob accepted. Larger blobs are skipped.
func WithMaxBlobSize(size int64) Option {
	return func(r *Resolver) {
		r.maxBlobSize = size
	}
}

func New(blobs interfaces.BlobStore, opts ...Option) *Resolver {
	r := &Resolver{
		blobs:       blobs,
		container:   DefaultContainer,
		maxBlobSize: DefaultMaxBlobSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches every attachment and returns the prompt to send along with the encoded
// payloads. An attachment that cannot be fetched is logged and left out of both the payloads
// and the prompt. Without any resolved attachment the user text is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, attachments []model.AttachmentRef, userText string) (string, []model.EncodedAttachment) {
	if len(attachments) == 0 {
		return userText, nil
	}

	var prefix strings.Builder
	payloads := make([]model.EncodedAttachment, 0, len(attachments))

	for _, k := range kinds {
		resolved := 0
		for _, a := range attachments {
			if a.Type != k.attachmentType {
				continue
			}

			data, err := r.fetch(ctx, a.Locator)
			if err != nil {
				logging.From(ctx).Warn("skip attachment",
					slog.String("type", string(a.Type)),
					slog.String("locator", a.Locator),
					slog.Any("error", err))
				continue
			}

			payloads = append(payloads, model.EncodedAttachment{
				Type:     k.payloadType,
				MIMEType: MIMEType(a.Locator, k.defaultMIME),
				Data:     base64.StdEncoding.EncodeToString(data),
			})
			resolved++
		}

		if resolved > 0 {
			prefix.WriteString(k.prefix(resolved))
		}
	}

	if prefix.Len() == 0 {
		return userText, nil
	}

	text := userText
	if text == "" {
		text = noTextMessage
	}
	return prefix.String() + "\n\nUser message: " + text, payloads
}

func (r *Resolver) fetch(ctx context.Context, locator string) ([]byte, error) {
	if r.blobs == nil {
		return nil, goerr.New("blob store is not configured")
	}

	rc, err := r.blobs.Download(ctx, locator, r.container)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download attachment", goerr.V("locator", locator))
	}
	defer safe.Close(ctx, rc)

	data, tooLarge, err := safe.ReadAll(rc, r.maxBlobSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read attachment", goerr.V("locator", locator))
	}
	if tooLarge {
		return nil, goerr.New("attachment exceeds size limit",
			goerr.V("locator", locator),
			goerr.V("limit", r.maxBlobSize))
	}
	return data, nil
}

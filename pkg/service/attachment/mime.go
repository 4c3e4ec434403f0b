package attachment

import (
	"net/url"
	"path"
	"strings"
)

var mimeByExtension = map[string]string{
	// images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",

	// audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",

	// documents
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".rtf":  "application/rtf",
}

// MIMEType classifies a locator by its file extension, returning fallback for
// unknown or missing extensions. Query strings and fragments are ignored.
func MIMEType(locator, fallback string) string {
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}
	if mt, ok := mimeByExtension[strings.ToLower(path.Ext(p))]; ok {
		return mt
	}
	return fallback
}

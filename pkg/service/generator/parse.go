package generator

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// Reply is the structured answer the model is instructed to produce
type Reply struct {
	Text     string
	Category int
}

const (
	minCategory = 0
	maxCategory = 2

	// chatty prefixes are stripped only when they start within this many bytes
	prefixWindow = 50
)

var (
	fencePattern    = regexp.MustCompile("(?i)```json\\s*|\\s*```")
	replyPattern    = regexp.MustCompile(`(?i)"reply"\s*:\s*"([^"\\]*(?:\\.[^"\\]*)*)"`)
	categoryPattern = regexp.MustCompile(`(?i)"contentCategory"\s*:\s*(\d+)`)
	trailingComma   = regexp.MustCompile(`,(\s*[}\]])`)
	chattyPrefixes  = []string{"json:", "JSON:", "Here's my response:", "Response:", "Here is the JSON:"}
)

// ParseReply extracts the reply from raw model output. It tries, in order: the first
// JSON object, a tolerant regex over the reply field, and finally the cleaned text itself.
func ParseReply(raw string) Reply {
	cleaned := cleanResponse(raw)

	if obj := extractJSONObject(cleaned); obj != "" {
		if reply, ok := decodeReply(obj); ok {
			if strings.TrimSpace(reply.Text) == "" {
				reply.Text = cleaned
			}
			if reply.Category < minCategory || reply.Category > maxCategory {
				reply.Category = minCategory
			}
			return reply
		}
	}

	if m := replyPattern.FindStringSubmatch(cleaned); len(m) > 1 {
		reply := Reply{Text: unescape(m[1])}
		if c := categoryPattern.FindStringSubmatch(cleaned); len(c) > 1 {
			if n, err := strconv.Atoi(c[1]); err == nil {
				reply.Category = min(max(n, minCategory), maxCategory)
			}
		}
		return reply
	}

	logging.Default().Warn("reply is not structured, using raw text",
		slog.String("head", head(cleaned, 100)))
	return Reply{Text: cleaned, Category: minCategory}
}

// Format renders the reply the way clients expect it
func (r Reply) Format() string {
	return r.Text + " (Content:" + strconv.Itoa(r.Category) + ")"
}

func cleanResponse(raw string) string {
	s := fencePattern.ReplaceAllString(raw, "")

	for _, prefix := range chattyPrefixes {
		if idx := indexFold(s, prefix, prefixWindow); idx >= 0 {
			s = s[idx+len(prefix):]
			break
		}
	}
	return strings.TrimSpace(s)
}

// indexFold finds prefix case-insensitively at a byte offset below limit
func indexFold(s, prefix string, limit int) int {
	for i := 0; i < limit && i+len(prefix) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(prefix)], prefix) {
			return i
		}
	}
	return -1
}

// extractJSONObject returns the first balanced {...} block, honouring string literals
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func decodeReply(obj string) (Reply, bool) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader([]byte(trailingComma.ReplaceAllString(obj, "$1"))))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		logging.Default().Debug("reply JSON did not decode", slog.Any("error", err))
		return Reply{}, false
	}

	var reply Reply
	for key, value := range fields {
		switch strings.ToLower(key) {
		case "reply":
			if err := json.Unmarshal(value, &reply.Text); err != nil {
				return Reply{}, false
			}
		case "contentcategory":
			var n json.Number
			if err := json.Unmarshal(value, &n); err != nil {
				return Reply{}, false
			}
			i, err := n.Int64()
			if err != nil {
				return Reply{}, false
			}
			reply.Category = int(i)
		}
	}
	return reply, true
}

func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/safe"
)

const (
	maxErrorBodyBytes = 1024
	maxResponseBytes  = 16 << 20
)

// Point IDs must be UUIDs or integers; other memory IDs are mapped into this namespace
var pointIDNamespace = uuid.MustParse("3b8f2f0c-6c3e-4e0f-9a57-5f1f5d0c7a11")

// Qdrant talks to the Qdrant REST API
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	dimension  int
	http       *http.Client
}

var _ interfaces.MemoryVectorStore = &Qdrant{}

type QdrantOption func(*Qdrant)

func WithAPIKey(key string) QdrantOption {
	return func(q *Qdrant) {
		q.apiKey = key
	}
}

func WithCollection(name string) QdrantOption {
	return func(q *Qdrant) {
		q.collection = name
	}
}

func WithHTTPClient(client *http.Client) QdrantOption {
	return func(q *Qdrant) {
		q.http = client
	}
}

func NewQdrant(baseURL string, opts ...QdrantOption) (*Qdrant, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, goerr.New("qdrant URL is required")
	}

	q := &Qdrant{
		baseURL:    baseURL,
		collection: DefaultCollection,
		dimension:  model.EmbeddingDimension,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantMatch struct {
	Value string `json:"value"`
}

func userFilter(userID string) *qdrantFilter {
	return &qdrantFilter{
		Must: []qdrantCondition{{Key: fieldUserID, Match: qdrantMatch{Value: userID}}},
	}
}

// statusError carries a non-2xx HTTP status from Qdrant
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant http status=%d body=%q", e.StatusCode, e.Body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	err := q.doJSON(ctx, http.MethodGet, q.collectionPath(""), nil, nil)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return goerr.Wrap(err, "failed to check qdrant collection", goerr.V("collection", q.collection))
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": "Cosine",
		},
	}
	if err := q.doJSON(ctx, http.MethodPut, q.collectionPath(""), req, nil); err != nil {
		return goerr.Wrap(err, "failed to create qdrant collection", goerr.V("collection", q.collection))
	}
	logging.From(ctx).Info("created qdrant collection",
		slog.String("collection", q.collection),
		slog.Int("dimension", q.dimension))

	indexes := []struct {
		field  string
		schema string
	}{
		{fieldUserID, "keyword"},
		{fieldConversationID, "keyword"},
		{fieldCreatedAt, "integer"},
	}
	for _, idx := range indexes {
		req := map[string]any{"field_name": idx.field, "field_schema": idx.schema}
		if err := q.doJSON(ctx, http.MethodPut, q.collectionPath("/index?wait=true"), req, nil); err != nil {
			// collection is usable without the index, only slower to filter
			logging.From(ctx).Warn("failed to create qdrant payload index",
				slog.String("field", idx.field),
				slog.Any("error", err))
		}
	}
	return nil
}

func (q *Qdrant) Store(ctx context.Context, record *model.MemoryRecord) bool {
	if record == nil {
		return false
	}
	logger := logging.From(ctx).With(slog.String("memory_id", string(record.ID)))

	if len(record.Embedding) != q.dimension {
		logger.Warn("reject memory with wrong embedding dimension",
			slog.Int("expected", q.dimension),
			slog.Int("actual", len(record.Embedding)))
		return false
	}

	req := map[string]any{
		"points": []qdrantPoint{{
			ID:      pointID(record.ID),
			Vector:  record.Embedding,
			Payload: toPayload(record),
		}},
	}
	if err := q.doJSON(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), req, nil); err != nil {
		logger.Error("failed to store memory in qdrant", slog.Any("error", err))
		return false
	}
	return true
}

func (q *Qdrant) Search(ctx context.Context, query []float32, userID string, limit int) []model.ScoredMemory {
	limit = searchLimit(limit)
	if len(query) == 0 || userID == "" {
		return []model.ScoredMemory{}
	}

	req := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
		"filter":       userFilter(userID),
	}

	var hits []qdrantHit
	if err := q.doJSON(ctx, http.MethodPost, q.collectionPath("/points/search"), req, &hits); err != nil {
		logging.From(ctx).Error("failed to search qdrant memories",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return []model.ScoredMemory{}
	}

	scored := make([]model.ScoredMemory, 0, len(hits))
	for _, h := range hits {
		scored = append(scored, model.ScoredMemory{
			Record: fromPayload(decodePointID(h.ID), h.Payload),
			Score:  h.Score,
		})
	}
	return ownedBy(scored, userID, limit)
}

func (q *Qdrant) DeleteOne(ctx context.Context, id model.MemoryID) bool {
	req := map[string]any{"points": []string{pointID(id)}}
	if err := q.doJSON(ctx, http.MethodPost, q.collectionPath("/points/delete?wait=true"), req, nil); err != nil {
		logging.From(ctx).Error("failed to delete qdrant memory",
			slog.String("memory_id", string(id)),
			slog.Any("error", err))
		return false
	}
	return true
}

func (q *Qdrant) DeleteAllForUser(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	req := map[string]any{"filter": userFilter(userID)}
	if err := q.doJSON(ctx, http.MethodPost, q.collectionPath("/points/delete?wait=true"), req, nil); err != nil {
		logging.From(ctx).Error("failed to delete qdrant memories for user",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return false
	}
	return true
}

func (q *Qdrant) collectionPath(suffix string) string {
	return "/collections/" + q.collection + suffix
}

func (q *Qdrant) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return goerr.Wrap(err, "failed to encode qdrant request")
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, body)
	if err != nil {
		return goerr.Wrap(err, "failed to build qdrant request")
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "qdrant request failed", goerr.V("method", method), goerr.V("path", path))
	}
	defer safe.Close(ctx, resp.Body)

	raw, _, err := safe.ReadAll(resp.Body, maxResponseBytes)
	if err != nil {
		return goerr.Wrap(err, "failed to read qdrant response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return goerr.Wrap(&statusError{StatusCode: resp.StatusCode, Body: truncateBody(raw)},
			"qdrant returned error status",
			goerr.V("method", method),
			goerr.V("path", path))
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return goerr.Wrap(err, "failed to decode qdrant envelope", goerr.V("body", truncateBody(raw)))
	}
	if msg := parseEnvelopeStatus(envelope.Status); msg != "" {
		return goerr.New("qdrant reported failure", goerr.V("status", msg), goerr.V("path", path))
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return goerr.Wrap(err, "failed to decode qdrant result")
	}
	return nil
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return ""
		}
		return s
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func pointID(id model.MemoryID) string {
	if u, err := uuid.Parse(string(id)); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(pointIDNamespace, []byte(id)).String()
}

func decodePointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return strings.TrimSpace(string(raw))
}

func toPayload(r *model.MemoryRecord) map[string]any {
	payload := map[string]any{
		fieldUserID:         r.UserID,
		fieldConversationID: string(r.ConversationID),
		fieldSummary:        r.Summary,
		fieldMessageContent: r.MessageContent,
		fieldTopics:         strings.Join(r.Topics, ","),
		fieldCreatedAt:      r.CreatedAt.Unix(),
	}
	for k, v := range r.Metadata {
		payload[metadataPrefix+k] = v
	}
	return payload
}

func fromPayload(id string, payload map[string]any) *model.MemoryRecord {
	r := &model.MemoryRecord{
		ID:             model.MemoryID(id),
		UserID:         payloadString(payload, fieldUserID),
		ConversationID: model.ConversationID(payloadString(payload, fieldConversationID)),
		Summary:        payloadString(payload, fieldSummary),
		MessageContent: payloadString(payload, fieldMessageContent),
		Metadata:       map[string]string{},
	}

	if topics := payloadString(payload, fieldTopics); topics != "" {
		for _, t := range strings.Split(topics, ",") {
			if t = strings.TrimSpace(t); t != "" {
				r.Topics = append(r.Topics, t)
			}
		}
	}

	switch v := payload[fieldCreatedAt].(type) {
	case float64:
		r.CreatedAt = time.Unix(int64(v), 0).UTC()
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.CreatedAt = time.Unix(n, 0).UTC()
		}
	}

	for k, v := range payload {
		if key, ok := strings.CutPrefix(k, metadataPrefix); ok {
			r.Metadata[key] = fmt.Sprint(v)
		}
	}
	return r
}

func payloadString(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

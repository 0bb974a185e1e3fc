// Package response decodes the store's reply to a bulk request.
package response

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
)

// JSONParser parses bulk replies of the form
//
//	{"took":3,"errors":false,"items":[{"index":{"_index":"logs","_id":"1","status":201,...}}]}
//
// It is stateless and safe for concurrent use.
type JSONParser struct{}

// NewJSONParser creates a parser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

var _ ports.ResponseParser = (*JSONParser)(nil)

type bulkReply struct {
	Took   int64                  `json:"took"`
	Errors bool                   `json:"errors"`
	Items  []map[string]replyItem `json:"items"`
}

type replyItem struct {
	Index   string          `json:"_index"`
	Type    string          `json:"_type"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version"`
	Result  string          `json:"result"`
	Status  int             `json:"status"`
	Error   json.RawMessage `json:"error"`
}

type errorBody struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorReply struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

// Parse decodes raw into a BatchResponse.
func (p *JSONParser) Parse(raw ports.RawResponse) (*domain.BatchResponse, error) {
	if raw.Status < 200 || raw.Status > 299 {
		return nil, statusError(raw)
	}

	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}

	var reply bulkReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode bulk reply: %w", err)
	}

	resp := &domain.BatchResponse{
		Took:   time.Duration(reply.Took) * time.Millisecond,
		Errors: reply.Errors,
		Items:  make([]domain.Item, 0, len(reply.Items)),
	}
	for i, entry := range reply.Items {
		item, err := toItem(entry)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

func toItem(entry map[string]replyItem) (domain.Item, error) {
	if len(entry) != 1 {
		return domain.Item{}, fmt.Errorf("expected exactly one action key, got %d", len(entry))
	}

	var (
		name string
		body replyItem
	)
	for k, v := range entry {
		name, body = k, v
	}

	action, err := domain.ParseAction(name)
	if err != nil {
		return domain.Item{}, err
	}

	item := domain.Item{
		Action:  action,
		Index:   body.Index,
		Type:    body.Type,
		ID:      body.ID,
		Version: body.Version,
		Result:  body.Result,
		Status:  body.Status,
	}
	if hasValue(body.Error) {
		kind, reason := decodeError(body.Error)
		item.Err = &domain.ItemError{
			Action: action,
			Index:  body.Index,
			Type:   body.Type,
			ID:     body.ID,
			Status: body.Status,
			Kind:   kind,
			Reason: reason,
			Raw:    append([]byte(nil), body.Error...),
		}
	}
	return item, nil
}

func statusError(raw ports.RawResponse) error {
	var reply errorReply
	if err := json.Unmarshal(raw.Body, &reply); err == nil && hasValue(reply.Error) {
		kind, reason := decodeError(reply.Error)
		return fmt.Errorf("%w: %d: %s: %s", domain.ErrUnexpectedStatus, raw.Status, kind, reason)
	}
	return fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, raw.Status)
}

// decodeError accepts both the object form {"type":..,"reason":..} and the
// plain string form older stores return.
func decodeError(raw json.RawMessage) (kind, reason string) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return "error", s
	}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		return eb.Type, eb.Reason
	}
	return "error", string(raw)
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

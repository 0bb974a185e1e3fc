package stubstore

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/bft-labs/bulkship/internal/domain"
)

type actionMeta struct {
	Index   string `json:"_index"`
	Type    string `json:"_type"`
	ID      string `json:"_id"`
	Routing string `json:"routing"`
}

type action struct {
	kind   domain.Action
	meta   actionMeta
	source json.RawMessage
}

type replyItem struct {
	Index   string      `json:"_index"`
	Type    string      `json:"_type,omitempty"`
	ID      string      `json:"_id"`
	Version int64       `json:"_version,omitempty"`
	Result  string      `json:"result,omitempty"`
	Status  int         `json:"status"`
	Error   *replyError `json:"error,omitempty"`
}

func (r replyItem) fail(status int, kind, reason string) replyItem {
	r.Status = status
	r.Error = &replyError{Type: kind, Reason: reason}
	return r
}

type replyError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type replyEntry map[string]replyItem

type bulkReply struct {
	Took   int64        `json:"took"`
	Errors bool         `json:"errors"`
	Items  []replyEntry `json:"items"`
}

type errorReply struct {
	Error  replyError `json:"error"`
	Status int        `json:"status"`
}

var errEmptyBody = errors.New("request body is required")

// parseBulk splits an NDJSON bulk body into actions. defaultIndex and
// defaultType come from the request path.
func parseBulk(body []byte, defaultIndex, defaultType string) ([]action, error) {
	lines := bytes.Split(body, []byte("\n"))

	var actions []action
	for i := 0; i < len(lines); i++ {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}

		var header map[string]actionMeta
		if err := json.Unmarshal(line, &header); err != nil {
			return nil, fmt.Errorf("line %d: malformed action: %w", i+1, err)
		}
		if len(header) != 1 {
			return nil, fmt.Errorf("line %d: expected one action, got %d", i+1, len(header))
		}

		var a action
		for name, meta := range header {
			kind, err := domain.ParseAction(name)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			a.kind, a.meta = kind, meta
		}
		if a.meta.Index == "" {
			a.meta.Index = defaultIndex
		}
		if a.meta.Type == "" {
			a.meta.Type = defaultType
		}
		if a.meta.Index == "" {
			return nil, fmt.Errorf("line %d: index is missing", i+1)
		}

		if a.kind != domain.ActionDelete {
			i++
			if i >= len(lines) || len(bytes.TrimSpace(lines[i])) == 0 {
				return nil, fmt.Errorf("line %d: %s action is missing its source", i, a.kind)
			}
			source := bytes.TrimSpace(lines[i])
			if !json.Valid(source) {
				return nil, fmt.Errorf("line %d: malformed source", i+1)
			}
			a.source = append(json.RawMessage(nil), source...)
		}

		actions = append(actions, a)
	}

	if len(actions) == 0 {
		return nil, errEmptyBody
	}
	return actions, nil
}

func hasErrors(items []replyEntry) bool {
	for _, entry := range items {
		for _, it := range entry {
			if it.Error != nil {
				return true
			}
		}
	}
	return false
}

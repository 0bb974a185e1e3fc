package stubstore

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/bft-labs/bulkship/internal/domain"
)

// DefaultType is used for operations that name no type.
const DefaultType = "_doc"

type docKey struct {
	index string
	typ   string
	id    string
}

type document struct {
	version int64
	source  json.RawMessage
}

// Document is a stored document as returned by Get.
type Document struct {
	Index   string
	Type    string
	ID      string
	Version int64
	Source  json.RawMessage
}

// Store holds documents in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	docs   map[docKey]*document
	nextID uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[docKey]*document)}
}

// Get returns the document at index/typ/id. An empty typ means DefaultType.
func (s *Store) Get(index, typ, id string) (Document, bool) {
	if typ == "" {
		typ = DefaultType
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[docKey{index, typ, id}]
	if !ok {
		return Document{}, false
	}
	return Document{Index: index, Type: typ, ID: id, Version: d.version, Source: d.source}, true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// IDs returns the ids stored in index, sorted.
func (s *Store) IDs(index string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for k := range s.docs {
		if k.index == index {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// apply executes a batch of actions under one lock, in order.
func (s *Store) apply(actions []action) []replyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]replyEntry, len(actions))
	for i, a := range actions {
		out[i] = replyEntry{a.kind.String(): s.applyOne(a)}
	}
	return out
}

func (s *Store) applyOne(a action) replyItem {
	typ := a.meta.Type
	if typ == "" {
		typ = DefaultType
	}
	id := a.meta.ID
	if id == "" && (a.kind == domain.ActionIndex || a.kind == domain.ActionCreate) {
		s.nextID++
		id = "stub-" + strconv.FormatUint(s.nextID, 10)
	}

	item := replyItem{Index: a.meta.Index, Type: typ, ID: id}
	if id == "" {
		return item.fail(http.StatusBadRequest, "action_request_validation_exception",
			"Validation Failed: 1: id is missing;")
	}

	key := docKey{a.meta.Index, typ, id}
	existing := s.docs[key]

	switch a.kind {
	case domain.ActionIndex:
		return s.put(key, existing, a.source, item)

	case domain.ActionCreate:
		if existing != nil {
			return item.fail(http.StatusConflict, "version_conflict_engine_exception",
				fmt.Sprintf("[%s][%s]: version conflict, document already exists (current version [%d])", typ, id, existing.version))
		}
		return s.put(key, nil, a.source, item)

	case domain.ActionUpdate:
		return s.update(key, existing, a.source, item)

	case domain.ActionDelete:
		if existing == nil {
			item.Version = 1
			item.Result = "not_found"
			item.Status = http.StatusNotFound
			return item
		}
		delete(s.docs, key)
		item.Version = existing.version + 1
		item.Result = "deleted"
		item.Status = http.StatusOK
		return item
	}

	return item.fail(http.StatusBadRequest, "illegal_argument_exception", "unsupported action")
}

func (s *Store) put(key docKey, existing *document, source json.RawMessage, item replyItem) replyItem {
	d := &document{version: 1, source: source}
	item.Result = "created"
	item.Status = http.StatusCreated
	if existing != nil {
		d.version = existing.version + 1
		item.Result = "updated"
		item.Status = http.StatusOK
	}
	s.docs[key] = d
	item.Version = d.version
	return item
}

type updateBody struct {
	Doc         json.RawMessage `json:"doc"`
	DocAsUpsert bool            `json:"doc_as_upsert"`
	Script      json.RawMessage `json:"script"`
	Upsert      json.RawMessage `json:"upsert"`
}

func (s *Store) update(key docKey, existing *document, payload json.RawMessage, item replyItem) replyItem {
	var body updateBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return item.fail(http.StatusBadRequest, "x_content_parse_exception", err.Error())
	}

	if existing == nil {
		switch {
		case len(body.Upsert) > 0:
			return s.put(key, nil, body.Upsert, item)
		case body.DocAsUpsert && len(body.Doc) > 0:
			return s.put(key, nil, body.Doc, item)
		}
		return item.fail(http.StatusNotFound, "document_missing_exception",
			fmt.Sprintf("[%s][%s]: document missing", key.typ, key.id))
	}

	if len(body.Doc) == 0 {
		item.Version = existing.version
		item.Result = "noop"
		item.Status = http.StatusOK
		return item
	}

	merged, err := mergeSource(existing.source, body.Doc)
	if err != nil {
		return item.fail(http.StatusBadRequest, "mapper_parsing_exception", err.Error())
	}
	return s.put(key, existing, merged, item)
}

// mergeSource applies the top-level fields of partial over base.
func mergeSource(base, partial json.RawMessage) (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("existing document is not an object: %w", err)
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(partial, &patch); err != nil {
		return nil, fmt.Errorf("partial document is not an object: %w", err)
	}
	for k, v := range patch {
		fields[k] = v
	}
	return json.Marshal(fields)
}

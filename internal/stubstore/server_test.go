package stubstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	transport "github.com/bft-labs/bulkship/internal/adapters/http"
	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/encoding"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/internal/response"
	"github.com/bft-labs/bulkship/pkg/log"
)

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(NewStore(), log.NewNoopLogger())
}

func post(t *testing.T, s *Server, path string, lines ...string) (int, bulkReply) {
	t.Helper()
	body := strings.Join(lines, "\n") + "\n"
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var reply bulkReply
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
			t.Fatalf("decode reply: %v\n%s", err, w.Body.String())
		}
	}
	return w.Code, reply
}

func only(t *testing.T, entry replyEntry) (string, replyItem) {
	t.Helper()
	if len(entry) != 1 {
		t.Fatalf("entry has %d keys, want 1", len(entry))
	}
	for k, v := range entry {
		return k, v
	}
	return "", replyItem{}
}

func TestServer_BulkSemantics(t *testing.T) {
	s := newTestServer()

	code, reply := post(t, s, "/logs/_bulk",
		`{"index":{"_id":"1"}}`, `{"msg":"a","n":1}`,
		`{"create":{"_id":"1"}}`, `{"msg":"dup"}`,
		`{"update":{"_id":"1"}}`, `{"doc":{"n":2}}`,
		`{"update":{"_id":"missing"}}`, `{"doc":{"n":3}}`,
		`{"update":{"_id":"2"}}`, `{"doc":{"n":4},"doc_as_upsert":true}`,
		`{"delete":{"_id":"2"}}`,
		`{"delete":{"_id":"2"}}`,
	)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !reply.Errors {
		t.Error("Errors = false, want true")
	}

	want := []struct {
		action string
		status int
		result string
		errTyp string
	}{
		{"index", 201, "created", ""},
		{"create", 409, "", "version_conflict_engine_exception"},
		{"update", 200, "updated", ""},
		{"update", 404, "", "document_missing_exception"},
		{"update", 201, "created", ""},
		{"delete", 200, "deleted", ""},
		{"delete", 404, "not_found", ""},
	}
	if len(reply.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(reply.Items), len(want))
	}
	for i, w := range want {
		name, it := only(t, reply.Items[i])
		errTyp := ""
		if it.Error != nil {
			errTyp = it.Error.Type
		}
		if name != w.action || it.Status != w.status || it.Result != w.result || errTyp != w.errTyp {
			t.Errorf("item %d = %s %+v, want %+v", i, name, it, w)
		}
	}

	doc, ok := s.Store().Get("logs", "", "1")
	if !ok {
		t.Fatal("document 1 missing")
	}
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}
	var src map[string]any
	if err := json.Unmarshal(doc.Source, &src); err != nil {
		t.Fatal(err)
	}
	if src["msg"] != "a" || src["n"] != float64(2) {
		t.Errorf("source = %v, want merged document", src)
	}
	if s.Store().Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Store().Len())
	}
}

func TestServer_GeneratesIDs(t *testing.T) {
	s := newTestServer()

	_, reply := post(t, s, "/_bulk",
		`{"index":{"_index":"logs"}}`, `{"a":1}`,
		`{"create":{"_index":"logs"}}`, `{"a":2}`,
	)
	for i, entry := range reply.Items {
		_, it := only(t, entry)
		if it.ID == "" || it.Status != http.StatusCreated {
			t.Errorf("item %d = %+v, want generated id", i, it)
		}
	}
	if got := len(s.Store().IDs("logs")); got != 2 {
		t.Errorf("stored %d documents, want 2", got)
	}
}

func TestServer_RequestErrors(t *testing.T) {
	s := newTestServer()

	code, _ := post(t, s, "/logs/_bulk", `{"index":{}`)
	if code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", code)
	}

	s.FailNext(1, http.StatusServiceUnavailable)
	code, _ = post(t, s, "/logs/_bulk", `{"delete":{"_id":"1"}}`)
	if code != http.StatusServiceUnavailable {
		t.Errorf("failing status = %d, want 503", code)
	}
	code, _ = post(t, s, "/logs/_bulk", `{"delete":{"_id":"1"}}`)
	if code != http.StatusOK {
		t.Errorf("status after failure = %d, want 200", code)
	}
}

func TestServer_GetDocument(t *testing.T) {
	s := newTestServer()
	post(t, s, "/logs/_bulk", `{"index":{"_id":"7"}}`, `{"msg":"hi"}`)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/_doc/7", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"msg":"hi"`) {
		t.Errorf("GET = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs/_doc/8", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET missing = %d, want 404", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer()
	post(t, s, "/logs/_bulk", `{"index":{"_id":"1"}}`, `{}`)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `bulkship_stub_operations_total{action="index",result="created"} 1`) {
		t.Errorf("metrics missing operation counter:\n%s", w.Body.String())
	}
}

// TestEndToEnd runs the encoder, HTTP transport and parser against the stub.
func TestEndToEnd(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	enc := encoding.NewEncoder()
	ops := []domain.Operation{
		domain.NewIndex(map[string]any{"msg": "a"}).WithID("1"),
		domain.NewCreate(map[string]any{"msg": "b"}).WithID("1"),
		domain.NewUpdate(map[string]any{"seen": true}).WithID("1"),
		domain.NewUpdateScript("ctx._source.n += 1").WithID("9").WithUpsert(map[string]any{"n": 0}),
		domain.NewDelete().WithID("nope"),
	}
	var body []byte
	for _, op := range ops {
		b, err := enc.Encode(op)
		if err != nil {
			t.Fatalf("Encode(%v) error = %v", op.Action, err)
		}
		body = append(body, b...)
	}

	s.FailNext(1, http.StatusServiceUnavailable)
	tr := transport.NewTransport(transport.TransportConfig{
		BaseURL:    srv.URL,
		RetryCount: 2,
		RetryWait:  5 * time.Millisecond,
	}, log.NewNoopLogger())

	raw, err := tr.Send(context.Background(), ports.Request{Body: body, Index: "logs"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	resp, err := response.NewJSONParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(resp.Items) != len(ops) {
		t.Fatalf("got %d items, want %d", len(resp.Items), len(ops))
	}
	if !resp.Errors || resp.Succeeded() != 4 {
		t.Errorf("Errors = %v, Succeeded = %d, want true and 4", resp.Errors, resp.Succeeded())
	}
	if !resp.Items[0].Created() {
		t.Errorf("index item = %+v, want created", resp.Items[0])
	}
	var itemErr *domain.ItemError
	if !errors.As(resp.Items[1].Err, &itemErr) || itemErr.Kind != "version_conflict_engine_exception" {
		t.Errorf("create item Err = %v, want version conflict", resp.Items[1].Err)
	}
	if resp.Items[3].Result != "created" {
		t.Errorf("scripted upsert result = %s, want created", resp.Items[3].Result)
	}
	if resp.Items[4].Status != http.StatusNotFound || resp.Items[4].Err != nil {
		t.Errorf("delete item = %+v, want not_found without error", resp.Items[4])
	}
}

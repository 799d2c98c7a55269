package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/chatlog"
	"github.com/ziadkadry99/pdfchat/internal/chunker"
	"github.com/ziadkadry99/pdfchat/internal/conversation"
	"github.com/ziadkadry99/pdfchat/internal/credentials"
	"github.com/ziadkadry99/pdfchat/internal/db"
	"github.com/ziadkadry99/pdfchat/internal/documents"
	"github.com/ziadkadry99/pdfchat/internal/embeddings"
	"github.com/ziadkadry99/pdfchat/internal/extract"
	"github.com/ziadkadry99/pdfchat/internal/index"
	"github.com/ziadkadry99/pdfchat/internal/library"
	"github.com/ziadkadry99/pdfchat/internal/llm"
	"github.com/ziadkadry99/pdfchat/internal/session"
)

type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, data []byte) (*extract.Result, error) {
	return &extract.Result{Text: string(data), Pages: 2}, nil
}

type staticProvider struct{ content string }

func (p staticProvider) Name() string { return "static" }
func (p staticProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: p.content}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	key, err := credentials.GenerateKey()
	require.NoError(t, err)
	cipher, err := credentials.NewCipher(key)
	require.NoError(t, err)

	c, err := chunker.New(200, 40)
	require.NoError(t, err)
	registry := session.NewRegistry(index.NewBuilder(c, embeddings.NewHashingEmbedder(64), nil), 0, nil)
	docs := documents.NewStore(database)
	log := chatlog.NewStore(database)
	creds := credentials.NewStore(database, cipher, "")
	manager := credentials.NewManager(creds, registry.DropConversation, nil)

	factory := func(*credentials.Credential) (llm.Provider, error) {
		return staticProvider{content: "**hello** there"}, nil
	}
	engine := conversation.NewEngine(registry, creds, docs, log, factory, conversation.Options{}, nil)

	return New(Config{AllowedOrigins: []string{"*"}, MaxUploadBytes: 1 << 20}, Deps{
		Credentials: manager,
		Library:     library.NewService(docs, registry, textExtractor{}, library.Limits{MaxBytes: 1 << 20, MinTextChars: 100}, nil),
		Engine:      engine,
		ChatLog:     log,
		Registry:    registry,
	}, nil)
}

func do(t *testing.T, s *Server, method, path, user string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func upload(t *testing.T, s *Server, user, filename, content string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	fw.Write([]byte(content))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", user)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func addKey(t *testing.T, s *Server, user string) {
	t.Helper()
	w, _ := do(t, s, http.MethodPost, "/api/keys", user, map[string]string{"label": "main", "key_value": "gsk_abcdefghijklmnop"})
	require.Equal(t, http.StatusOK, w.Code)
}

var docText = strings.Repeat("The warranty covers parts and labour for two years. ", 20)

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestLanguages(t *testing.T) {
	s := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/api/languages", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	langs, ok := body["languages"].([]any)
	require.True(t, ok)
	assert.Len(t, langs, 10)
	assert.Equal(t, "English", langs[0].(map[string]any)["name"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, _ := do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/api/pdfs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestKeysLifecycle(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")
	w, _ := do(t, s, http.MethodPost, "/api/keys", "u1", map[string]string{"label": "backup", "key_value": "gsk_zyxwvutsrqponm"})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, s, http.MethodGet, "/api/keys", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	keys := body["keys"].([]interface{})
	require.Len(t, keys, 2)
	first := keys[0].(map[string]interface{})
	second := keys[1].(map[string]interface{})
	assert.Equal(t, "gsk_...mnop", first["masked_key"])
	assert.Equal(t, true, first["is_active"])
	assert.NotContains(t, w.Body.String(), "gsk_abcdefghijklmnop")

	id := second["id"].(string)
	w, _ = do(t, s, http.MethodPost, "/api/keys/"+id+"/activate", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/keys/"+id+"/activate", "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodDelete, "/api/keys/"+id, "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, s, http.MethodGet, "/api/keys", "u1", nil)
	keys = body["keys"].([]interface{})
	require.Len(t, keys, 1)
	assert.Equal(t, true, keys[0].(map[string]interface{})["is_active"])
}

func TestAddKeyValidation(t *testing.T) {
	s := newTestServer(t)
	w, _ := do(t, s, http.MethodPost, "/api/keys", "u1", map[string]string{"label": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, s, http.MethodPost, "/api/keys", "u1", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatWithoutKey(t *testing.T) {
	s := newTestServer(t)
	w, body := do(t, s, http.MethodPost, "/api/chat", "u1", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please add and activate an API key", body["message"])

	_, body = do(t, s, http.MethodGet, "/api/history", "u1", nil)
	assert.Equal(t, float64(0), body["total"])
}

func TestChatMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")
	w, _ := do(t, s, http.MethodPost, "/api/chat", "u1", "{\"message\":")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeneralChat(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")

	w, body := do(t, s, http.MethodPost, "/api/chat", "u1", map[string]string{"message": "hello", "language": "Spanish"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "**hello** there", body["response"])
	assert.Contains(t, body["response_html"], "<strong>hello</strong>")
	assert.Equal(t, false, body["has_pdf_context"])
	assert.Equal(t, "Spanish", body["language"])
}

func TestUploadAndDocumentChat(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")

	w, body := upload(t, s, "u1", "warranty.pdf", docText)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "warranty.pdf", body["filename"])
	pdfID := body["pdf_id"].(string)

	w, body = do(t, s, http.MethodPost, "/api/chat", "u1", map[string]string{"message": "How long is the warranty?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["has_pdf_context"])
	assert.Equal(t, "warranty.pdf", body["pdf_name"])

	_, body = do(t, s, http.MethodGet, "/api/pdfs", "u1", nil)
	pdfs := body["pdfs"].([]interface{})
	require.Len(t, pdfs, 1)
	assert.Equal(t, pdfID, pdfs[0].(map[string]interface{})["id"])

	w, _ = do(t, s, http.MethodPost, "/api/clear-pdf", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, body = do(t, s, http.MethodPost, "/api/chat", "u1", map[string]string{"message": "and now?"})
	assert.Equal(t, false, body["has_pdf_context"])

	w, body = do(t, s, http.MethodPost, "/api/pdfs/"+pdfID+"/select", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Now chatting with warranty.pdf", body["message"])

	w, _ = do(t, s, http.MethodDelete, "/api/pdfs/"+pdfID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, s, http.MethodDelete, "/api/pdfs/"+pdfID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t)

	w, _ := upload(t, s, "u1", "notes.txt", docText)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = upload(t, s, "u1", "scan.pdf", "tiny")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/upload-pdf", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadOverLimitReportsSize(t *testing.T) {
	s := newTestServer(t)

	w, body := upload(t, s, "u1", "huge.pdf", strings.Repeat("x", 3<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "File too large. The upload limit is 1 MB.", body["message"])
}

func TestErrorStatusTooManyRequests(t *testing.T) {
	status, _ := errorStatus(fmt.Errorf("%w: %w", apperr.ErrBusy, context.DeadlineExceeded))
	assert.Equal(t, http.StatusTooManyRequests, status)
	status, _ = errorStatus(fmt.Errorf("%w: groq", apperr.ErrRateLimited))
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestHistoryAndClear(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")
	for _, m := range []string{"one", "two"} {
		w, _ := do(t, s, http.MethodPost, "/api/chat", "u1", map[string]string{"message": m})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := do(t, s, http.MethodGet, "/api/history?page=1&per_page=3", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), body["total"])
	assert.Equal(t, float64(2), body["pages"])
	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[0].(map[string]interface{})["role"])

	w, _ = do(t, s, http.MethodDelete, "/api/history/clear", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, body = do(t, s, http.MethodGet, "/api/history", "u1", nil)
	assert.Equal(t, float64(0), body["total"])
}

func TestLogoutDiscardsSession(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")
	w, _ := upload(t, s, "u1", "warranty.pdf", docText)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, s.deps.Registry.GetIndex("u1"))

	w, _ = do(t, s, http.MethodPost, "/api/logout", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.deps.Registry.GetIndex("u1"))

	// The active document survives and is rebuilt on the next chat.
	_, body := do(t, s, http.MethodPost, "/api/chat", "u1", map[string]string{"message": "still there?"})
	assert.Equal(t, true, body["has_pdf_context"])
}

func TestWebSocketChat(t *testing.T) {
	s := newTestServer(t)
	addKey(t, s, "u1")
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	header := http.Header{}
	header.Set("X-User-ID", "u1")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/chat", header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "message", Content: "hi", Language: "German"}))
	var resp wsResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "response", resp.Type)
	assert.Equal(t, "**hello** there", resp.Content)
	assert.Equal(t, "German", resp.Language)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "bogus"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
}

func TestErrorStatusHidesInternals(t *testing.T) {
	status, msg := errorStatus(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal error", msg)
}

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/ai-chat-relay/internal/api"
	"gwi.com/ai-chat-relay/internal/core"
	"gwi.com/ai-chat-relay/internal/logger"
	"gwi.com/ai-chat-relay/internal/store"
	"gwi.com/ai-chat-relay/internal/testutils"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router    http.Handler
	store     *store.SQLStore
	dir       *testutils.FakeDirectory
	completer *testutils.FakeCompleter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store:     testutils.NewStore(t),
		dir:       testutils.NewFakeDirectory(),
		completer: &testutils.FakeCompleter{Reply: "hi Ann"},
	}
	log := logger.NewNop()
	svc := core.NewChatService(ts.store, ts.dir, ts.completer, log)
	ts.router = api.NewRouter(api.NewAPIHandler(svc, ts.store, log), log)
	return ts
}

func (ts *testServer) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON(t, "/registerUser", `{"name":"Ann","email":"a.b@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]interface{}{
		"userId": "a_b_x_com",
		"name":   "Ann",
		"email":  "a.b@x.com",
	}, decodeBody(t, rec))
}

func TestRegisterUserTwice(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := ts.postJSON(t, "/registerUser", `{"name":"Ann","email":"a.b@x.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, ts.dir.UpsertCalls)
}

func TestRegisterUserFormBody(t *testing.T) {
	ts := newTestServer(t)
	form := url.Values{"name": {"Ann"}, "email": {"a.b@x.com"}}

	req := httptest.NewRequest(http.MethodPost, "/registerUser", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a_b_x_com", decodeBody(t, rec)["userId"])
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		wantErr string
	}{
		{name: "register no email", path: "/registerUser", body: `{"name":"Ann"}`, wantErr: "Name and email are required!"},
		{name: "register empty body", path: "/registerUser", body: ``, wantErr: "Name and email are required!"},
		{name: "register malformed", path: "/registerUser", body: `{"name":`, wantErr: "Name and email are required!"},
		{name: "chat no message", path: "/chat", body: `{"userId":"a_b_x_com"}`, wantErr: "Message and user id are required!"},
		{name: "chat no user", path: "/chat", body: `{"message":"hi"}`, wantErr: "Message and user id are required!"},
		{name: "history no user", path: "/getMessage", body: `{}`, wantErr: "USER ID is required"},
		{name: "history numeric user", path: "/getMessage", body: `{"userId":42}`, wantErr: "USER ID is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.postJSON(t, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec)["error"])
		})
	}
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.postJSON(t, "/registerUser", `{"name":"Ann","email":"a.b@x.com"}`).Code)

	rec := ts.postJSON(t, "/chat", `{"userId":"a_b_x_com","message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"reply": "hi Ann"}, decodeBody(t, rec))

	rec = ts.postJSON(t, "/getMessage", `{"userId":"a_b_x_com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var history struct {
		Messages []store.ChatRecord `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "a_b_x_com", history.Messages[0].UserID)
	assert.Equal(t, "hi", history.Messages[0].Message)
	assert.Equal(t, "hi Ann", history.Messages[0].Reply)

	require.Len(t, ts.dir.PublishedMessages(), 1)
	assert.Equal(t, "chat-a_b_x_com", ts.dir.PublishedMessages()[0].ChannelID)
}

func TestChatUnregistered(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON(t, "/chat", `{"userId":"ghost","message":"hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User is not found. Please register first!", decodeBody(t, rec)["error"])
	assert.Empty(t, ts.dir.PublishedMessages())

	chats, err := ts.store.FindChatsByUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestChatCompletionFailureReturns500(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.postJSON(t, "/registerUser", `{"name":"Ann","email":"a.b@x.com"}`).Code)
	ts.completer.Err = errors.New("upstream 503")

	rec := ts.postJSON(t, "/chat", `{"userId":"a_b_x_com","message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeBody(t, rec)["error"])
}

func TestChatDownstreamFailures(t *testing.T) {
	tests := []struct {
		name        string
		breakIt     func(t *testing.T, ts *testServer)
		wantStored  int
		checkStored bool
	}{
		{
			name:    "store unavailable",
			breakIt: func(t *testing.T, ts *testServer) { require.NoError(t, ts.store.Close()) },
		},
		{
			name:        "channel creation fails",
			breakIt:     func(_ *testing.T, ts *testServer) { ts.dir.CreateChannelErr = errors.New("channel quota") },
			wantStored:  1,
			checkStored: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			require.Equal(t, http.StatusOK, ts.postJSON(t, "/registerUser", `{"name":"Ann","email":"a.b@x.com"}`).Code)
			tt.breakIt(t, ts)

			rec := ts.postJSON(t, "/chat", `{"userId":"a_b_x_com","message":"hi"}`)
			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "Internal Server Error", decodeBody(t, rec)["error"])
			assert.Empty(t, ts.dir.PublishedMessages())

			if tt.checkStored {
				chats, err := ts.store.FindChatsByUser(context.Background(), "a_b_x_com")
				require.NoError(t, err)
				assert.Len(t, chats, tt.wantStored)
			}
		})
	}
}

func TestRegisterDirectoryFailureReturns500(t *testing.T) {
	ts := newTestServer(t)
	ts.dir.UpsertErr = errors.New("stream down")

	rec := ts.postJSON(t, "/registerUser", `{"name":"Ann","email":"a.b@x.com"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeBody(t, rec)["error"])
}

func TestGetMessagesEmpty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON(t, "/getMessage", `{"userId":"nobody"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestGetMessagesStorageFailure(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.Close())

	rec := ts.postJSON(t, "/getMessage", `{"userId":"a_b_x_com"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	log := logger.NewNop()
	svc := core.NewChatService(testutils.NewStore(t), testutils.NewFakeDirectory(), &testutils.FakeCompleter{}, log)

	for _, tt := range []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusOK},
		{name: "db down", err: errors.New("connection refused"), want: http.StatusServiceUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			router := api.NewRouter(api.NewAPIHandler(svc, fakePinger{err: tt.err}, log), log)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

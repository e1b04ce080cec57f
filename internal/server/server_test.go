package server

import (
	"bytes"
	"clipboard-sync/internal/auth"
	"clipboard-sync/internal/config"
	"clipboard-sync/internal/notify"
	"clipboard-sync/internal/notify/mocks"
	"clipboard-sync/internal/preview"
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/internal/storage/sqlite"
	"clipboard-sync/pkg/types"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type testEnv struct {
	server *Server
	http   *httptest.Server
	store  *sqlite.SQLiteStorage
	sender *mocks.MockSender
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.New(storage.Config{
		DBPath: filepath.Join(dir, "test.db"),
		FSPath: filepath.Join(dir, "files"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	svc := service.New(store, nil, logger)
	t.Cleanup(func() { svc.Stop() })

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	s := New(Deps{
		Service:   svc,
		Posts:     store,
		Snapshots: service.NewSnapshotWriter(store, filepath.Join(dir, "snapshot.json"), "#4F46E5", logger),
		Scraper:   preview.New(preview.Config{Timeout: 5 * time.Second}, logger),
		Auth:      auth.New(config.AdminConfig{Username: "admin", PasswordHash: hash}),
		Trigger:   notify.NewPostTrigger(sender, logger),
		Logger:    logger,
	}, Config{Port: 4719, BaseURL: "https://clips.example.com"})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return &testEnv{server: s, http: ts, store: store, sender: sender}
}

// do sends a JSON request and decodes the envelope
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (int, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// decodeData re-decodes the envelope's data into v
func decodeData(t *testing.T, resp Response, v interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func (e *testEnv) createItem(t *testing.T, content string) types.Item {
	t.Helper()
	status, resp := e.do(t, http.MethodPost, "/api/items", map[string]interface{}{"content": content}, "")
	require.Equal(t, http.StatusCreated, status)
	var item types.Item
	decodeData(t, resp, &item)
	return item
}

func TestStatus(t *testing.T) {
	env := setupServer(t)
	status, resp := env.do(t, http.MethodGet, "/status", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", resp.Status)

	var body map[string]interface{}
	decodeData(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestItemCRUD(t *testing.T) {
	env := setupServer(t)

	item := env.createItem(t, "hello world")
	assert.Equal(t, types.TypeText, item.Type)
	assert.NotEmpty(t, item.ID)

	status, resp := env.do(t, http.MethodGet, "/api/items/"+item.ID, nil, "")
	require.Equal(t, http.StatusOK, status)
	var got types.Item
	decodeData(t, resp, &got)
	assert.Equal(t, "hello world", got.Content)

	status, resp = env.do(t, http.MethodPatch, "/api/items/"+item.ID, map[string]interface{}{"display_name": "Greeting"}, "")
	require.Equal(t, http.StatusOK, status)
	decodeData(t, resp, &got)
	assert.Equal(t, "Greeting", got.DisplayName)

	status, _ = env.do(t, http.MethodPatch, "/api/items/"+item.ID, map[string]interface{}{}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = env.do(t, http.MethodGet, "/api/items", nil, "")
	require.Equal(t, http.StatusOK, status)
	var items []types.Item
	decodeData(t, resp, &items)
	assert.Len(t, items, 1)

	status, _ = env.do(t, http.MethodDelete, "/api/items/"+item.ID, nil, "")
	assert.Equal(t, http.StatusOK, status)

	status, resp = env.do(t, http.MethodGet, "/api/items/"+item.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", resp.Status)
}

func TestCreateItemValidation(t *testing.T) {
	env := setupServer(t)

	status, _ := env.do(t, http.MethodPost, "/api/items", map[string]interface{}{"content": ""}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/items", map[string]interface{}{"content": "x", "type": "video"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/items", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPinTrashAndEmpty(t *testing.T) {
	env := setupServer(t)
	item := env.createItem(t, "keep me")

	status, resp := env.do(t, http.MethodPost, "/api/items/"+item.ID+"/pin", nil, "")
	require.Equal(t, http.StatusOK, status)
	var got types.Item
	decodeData(t, resp, &got)
	assert.True(t, got.Pinned)

	status, resp = env.do(t, http.MethodGet, "/api/items?pinned=true", nil, "")
	require.Equal(t, http.StatusOK, status)
	var items []types.Item
	decodeData(t, resp, &items)
	assert.Len(t, items, 1)

	status, resp = env.do(t, http.MethodDelete, "/api/items/"+item.ID+"/pin", nil, "")
	require.Equal(t, http.StatusOK, status)
	decodeData(t, resp, &got)
	assert.False(t, got.Pinned)

	status, _ = env.do(t, http.MethodPost, "/api/items/"+item.ID+"/trash", nil, "")
	require.Equal(t, http.StatusOK, status)

	status, resp = env.do(t, http.MethodGet, "/api/items?trashed=true", nil, "")
	require.Equal(t, http.StatusOK, status)
	decodeData(t, resp, &items)
	require.Len(t, items, 1)
	assert.True(t, items[0].Trashed)

	status, _ = env.do(t, http.MethodPost, "/api/items/"+item.ID+"/restore", nil, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/items/"+item.ID+"/trash", nil, "")
	require.Equal(t, http.StatusOK, status)

	status, resp = env.do(t, http.MethodDelete, "/api/trash", nil, "")
	require.Equal(t, http.StatusOK, status)
	var emptied map[string]int
	decodeData(t, resp, &emptied)
	assert.Equal(t, 1, emptied["deleted"])
}

func TestTagsAndSearch(t *testing.T) {
	env := setupServer(t)
	item := env.createItem(t, "quarterly report draft")
	env.createItem(t, "grocery list")

	status, resp := env.do(t, http.MethodPost, "/api/items/"+item.ID+"/tags", map[string]interface{}{"tags": []string{"work", "q3"}}, "")
	require.Equal(t, http.StatusOK, status)
	var got types.Item
	decodeData(t, resp, &got)
	assert.Equal(t, []string{"work", "q3"}, got.Tags)

	status, resp = env.do(t, http.MethodGet, "/api/items?tag=work", nil, "")
	require.Equal(t, http.StatusOK, status)
	var items []types.Item
	decodeData(t, resp, &items)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	status, resp = env.do(t, http.MethodDelete, "/api/items/"+item.ID+"/tags", map[string]interface{}{"tags": []string{"q3"}}, "")
	require.Equal(t, http.StatusOK, status)
	decodeData(t, resp, &got)
	assert.Equal(t, []string{"work"}, got.Tags)

	status, resp = env.do(t, http.MethodGet, "/api/search?q=report", nil, "")
	require.Equal(t, http.StatusOK, status)
	var results []storage.SearchResult
	decodeData(t, resp, &results)
	require.Len(t, results, 1)
	assert.Equal(t, item.ID, results[0].Item.ID)

	status, _ = env.do(t, http.MethodGet, "/api/search?q=x&from=yesterday", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestClipsByIndex(t *testing.T) {
	env := setupServer(t)
	item := env.createItem(t, "only clip")

	status, resp := env.do(t, http.MethodGet, "/api/clips/0", nil, "")
	require.Equal(t, http.StatusOK, status)
	var got types.Item
	decodeData(t, resp, &got)
	assert.Equal(t, item.ID, got.ID)

	status, _ = env.do(t, http.MethodGet, "/api/clips/3", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/api/clips/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)

	// No clipboard monitor in tests
	status, _ = env.do(t, http.MethodPost, "/api/clips/0/paste", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestShares(t *testing.T) {
	env := setupServer(t)
	item := env.createItem(t, "shared text")

	status, _ := env.do(t, http.MethodGet, "/api/items/"+item.ID+"/share", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, resp := env.do(t, http.MethodPost, "/api/items/"+item.ID+"/share", nil, "")
	require.Equal(t, http.StatusOK, status)
	var share struct {
		Token      string `json:"token"`
		Permission string `json:"permission"`
		URL        string `json:"url"`
	}
	decodeData(t, resp, &share)
	assert.Equal(t, types.PermissionReadOnly, share.Permission)
	assert.Equal(t, "https://clips.example.com/shared/"+share.Token, share.URL)

	status, resp = env.do(t, http.MethodGet, "/shared/"+share.Token, nil, "")
	require.Equal(t, http.StatusOK, status)
	var opened sharedItemResponse
	decodeData(t, resp, &opened)
	assert.Equal(t, "shared text", opened.Item.Content)

	status, _ = env.do(t, http.MethodPatch, "/shared/"+share.Token, map[string]interface{}{"content": "vandalized"}, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, "/api/items/"+item.ID+"/share", nil, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/shared/"+share.Token, nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/api/items/"+item.ID+"/share", map[string]string{"permission": "owner"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWritableShare(t *testing.T) {
	env := setupServer(t)
	item := env.createItem(t, "team notes")

	status, resp := env.do(t, http.MethodPost, "/api/items/"+item.ID+"/share", map[string]string{"permission": types.PermissionReadWrite}, "")
	require.Equal(t, http.StatusOK, status)
	var share types.Share
	decodeData(t, resp, &share)

	status, resp = env.do(t, http.MethodPatch, "/shared/"+share.Token, map[string]interface{}{"content": "team notes v2"}, "")
	require.Equal(t, http.StatusOK, status)
	var edited sharedItemResponse
	decodeData(t, resp, &edited)
	assert.Equal(t, "team notes v2", edited.Item.Content)

	got, err := env.store.Get(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "team notes v2", got.Content)
}

func TestSnapshotEndpoint(t *testing.T) {
	env := setupServer(t)
	env.createItem(t, "for the widget")

	status, resp := env.do(t, http.MethodGet, "/api/snapshot", nil, "")
	require.Equal(t, http.StatusOK, status)
	var snap types.Snapshot
	decodeData(t, resp, &snap)
	assert.Equal(t, 1, snap.ItemCount)
	assert.Equal(t, "for the widget", snap.Latest)
	assert.Equal(t, "#4F46E5", snap.ThemeColor)
}

func login(t *testing.T, env *testEnv) string {
	t.Helper()
	status, resp := env.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "admin", Password: "s3cret"}, "")
	require.Equal(t, http.StatusOK, status)
	var out loginResponse
	decodeData(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestAdminLogin(t *testing.T) {
	env := setupServer(t)

	status, _ := env.do(t, http.MethodPost, "/api/admin/login", loginRequest{Username: "admin", Password: "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	token := login(t, env)
	status, _ = env.do(t, http.MethodGet, "/api/posts", nil, token)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/admin/logout", nil, token)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/api/posts", nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPostsDashboard(t *testing.T) {
	env := setupServer(t)
	token := login(t, env)

	sent := make(chan notify.Message, 1)
	env.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg notify.Message) error {
		sent <- msg
		return nil
	}).Times(1)

	status, resp := env.do(t, http.MethodPost, "/api/posts", types.Post{
		CreatorID:  "c1",
		LinkTitle:  "Worth reading",
		ContentURL: "https://example.com/article",
		IsPublic:   true,
	}, token)
	require.Equal(t, http.StatusCreated, status)
	var post types.Post
	decodeData(t, resp, &post)
	require.NotEmpty(t, post.ID)

	select {
	case msg := <-sent:
		assert.Equal(t, "creator_c1", msg.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("post notification not sent")
	}

	// Private posts do not notify
	status, _ = env.do(t, http.MethodPost, "/api/posts", types.Post{
		CreatorID:  "c1",
		ContentURL: "https://example.com/draft",
	}, token)
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodPost, "/api/posts", types.Post{CreatorID: "c1", ContentURL: "ftp://nope"}, token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = env.do(t, http.MethodGet, "/api/posts?public=true", nil, token)
	require.Equal(t, http.StatusOK, status)
	var posts []types.Post
	decodeData(t, resp, &posts)
	assert.Len(t, posts, 1)

	status, resp = env.do(t, http.MethodPatch, "/api/posts/"+post.ID, map[string]interface{}{"curator_note": "Read this first"}, token)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, resp, &post)
	assert.Equal(t, "Read this first", post.CuratorNote)

	status, _ = env.do(t, http.MethodDelete, "/api/posts/"+post.ID, nil, token)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/api/posts/"+post.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreatePostDoesNotWaitForDelivery(t *testing.T) {
	env := setupServer(t)
	token := login(t, env)

	release := make(chan struct{})
	delivered := make(chan error, 1)
	env.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ notify.Message) error {
		<-release
		delivered <- ctx.Err()
		return nil
	}).Times(1)

	body, err := json.Marshal(types.Post{CreatorID: "c1", ContentURL: "https://example.com/slow", IsPublic: true})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/posts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	done := make(chan int, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case status := <-done:
		assert.Equal(t, http.StatusCreated, status)
	case <-time.After(2 * time.Second):
		t.Fatal("create waited for notification delivery")
	}
	close(release)
	// the request has finished but delivery keeps a live context
	assert.NoError(t, <-delivered)
}

func TestCreatePostIgnoresClientID(t *testing.T) {
	env := setupServer(t)
	token := login(t, env)
	env.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	body := map[string]interface{}{"id": "fixed-id", "creator_id": "c1", "content_url": "https://example.com/a"}
	for i := 0; i < 2; i++ {
		status, resp := env.do(t, http.MethodPost, "/api/posts", body, token)
		require.Equal(t, http.StatusCreated, status)
		var post types.Post
		decodeData(t, resp, &post)
		assert.NotEqual(t, "fixed-id", post.ID)
	}
}

func callLinkPreview(t *testing.T, env *testEnv, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(env.http.URL+"/api/callable/linkPreview", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestLinkPreviewCallable(t *testing.T) {
	env := setupServer(t)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/article":
			io.WriteString(w, `<html><head>
<meta property="og:title" content="An Article">
<meta property="og:image" content="/cover.png">
</head><body></body></html>`)
		default:
			io.WriteString(w, `<html><body>nothing here</body></html>`)
		}
	}))
	defer page.Close()

	status, out := callLinkPreview(t, env, `{"data":{"url":"`+page.URL+`/article"}}`)
	require.Equal(t, http.StatusOK, status)
	result, ok := out["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "An Article", result["title"])
	assert.Equal(t, page.URL+"/cover.png", result["image"])

	status, out = callLinkPreview(t, env, `{"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	errBody, ok := out["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "INVALID_ARGUMENT", errBody["status"])
	assert.Equal(t, "url is required", errBody["message"])

	status, out = callLinkPreview(t, env, `{"data":{"url":"`+page.URL+`/empty"}}`)
	assert.Equal(t, http.StatusNotFound, status)
	errBody = out["error"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", errBody["status"])

	status, _ = callLinkPreview(t, env, `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

//go:build unit

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-archive-app/internal/auth"
	"go-archive-app/internal/data"
	"go-archive-app/internal/importer"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/middleware"
	"go-archive-app/internal/service"
	"go-archive-app/internal/session"
	"go-archive-app/internal/translate"

	"github.com/stretchr/testify/require"
)

// mockSessionManager keeps a single session's values in memory.
type mockSessionManager struct {
	values     map[string]interface{}
	renewCalls int
}

var _ session.Manager = (*mockSessionManager)(nil)

func newMockSessionManager() *mockSessionManager {
	return &mockSessionManager{values: map[string]interface{}{}}
}

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.values[key] = val
}
func (m *mockSessionManager) GetBool(ctx context.Context, key string) bool {
	b, _ := m.values[key].(bool)
	return b
}
func (m *mockSessionManager) Remove(ctx context.Context, key string) { delete(m.values, key) }
func (m *mockSessionManager) RenewToken(ctx context.Context) error {
	m.renewCalls++
	return nil
}

// mockNodeService answers from a fixed node list; err, when set, fails every call.
type mockNodeService struct {
	nodes     []*data.Node
	err       error
	lastDraft service.Draft
	lastPatch service.Patch
	lastMove  *string
}

var _ service.NodeServicer = (*mockNodeService)(nil)

func (m *mockNodeService) FetchAll(ctx context.Context) ([]*data.Node, error) {
	return m.nodes, m.err
}

func (m *mockNodeService) Get(ctx context.Context, id string) (*data.Node, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, n := range m.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("node %s: %w", id, data.ErrNotFound)
}

func (m *mockNodeService) Add(ctx context.Context, d service.Draft) (*data.Node, error) {
	m.lastDraft = d
	if m.err != nil {
		return nil, m.err
	}
	return &data.Node{ID: "new", Name: d.Name, ParentID: d.ParentID, CreatedAt: time.UnixMilli(1), Body: d.Body}, nil
}

func (m *mockNodeService) Update(ctx context.Context, id string, p service.Patch) (*data.Node, error) {
	m.lastPatch = p
	if m.err != nil {
		return nil, m.err
	}
	n, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n = n.Clone()
	if p.Name != nil {
		n.Name = *p.Name
	}
	return n, nil
}

func (m *mockNodeService) Delete(ctx context.Context, id string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return []string{id}, nil
}

func (m *mockNodeService) Move(ctx context.Context, id string, newParentID *string) (*data.Node, error) {
	m.lastMove = newParentID
	if m.err != nil {
		return nil, m.err
	}
	n, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n = n.Clone()
	n.ParentID = newParentID
	return n, nil
}

func (m *mockNodeService) SyncToRemote(ctx context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.nodes), nil
}

type mockImportService struct {
	err        error
	lastImport service.ImportRequest
	lastSource translate.Language
}

var _ service.ImportServicer = (*mockImportService)(nil)

func (m *mockImportService) Import(ctx context.Context, req service.ImportRequest) (*data.Node, error) {
	m.lastImport = req
	if m.err != nil {
		return nil, m.err
	}
	return &data.Node{ID: "imported", Name: importer.Title(req.Filename), Body: &data.File{ContentType: data.ContentText, Translation: data.TranslationPending}}, nil
}

func (m *mockImportService) Retranslate(ctx context.Context, id string, source translate.Language) (*data.Node, error) {
	m.lastSource = source
	if m.err != nil {
		return nil, m.err
	}
	return &data.Node{ID: id, Body: &data.File{Translation: data.TranslationPending}}, nil
}

// mockRenderer records the last rendered page instead of executing templates.
type mockRenderer struct {
	name string
	page map[string]interface{}
}

func (m *mockRenderer) Render(w io.Writer, r *http.Request, name string, page map[string]interface{}) error {
	m.name = name
	m.page = page
	_, err := fmt.Fprintf(w, "rendered %s", name)
	return err
}

type passcode string

func (p passcode) Check(s string) bool { return string(p) == s }

type testApp struct {
	router   http.Handler
	nodes    *mockNodeService
	imports  *mockImportService
	sessions *mockSessionManager
	view     *mockRenderer
}

func fixtureNodes() []*data.Node {
	root := "root"
	return []*data.Node{
		{ID: "root", Name: "Concepts | מושגים", CreatedAt: time.UnixMilli(1000), UpdatedAt: time.UnixMilli(5000), Body: data.Folder{}},
		{ID: "doc", Name: "Essay | מאמר", ParentID: &root, CreatedAt: time.UnixMilli(2000), Body: &data.File{ContentType: data.ContentText, ContentEN: "<p>hi</p>"}},
		{ID: "vid", Name: "Talk", ParentID: &root, CreatedAt: time.UnixMilli(3000), Body: &data.File{ContentType: data.ContentVideo, URL: "https://youtu.be/x"}},
	}
}

func setupTest(t *testing.T, unlockBurst int) *testApp {
	t.Helper()
	log := logger.Nop()
	enforcer, err := auth.NewMemoryEnforcer()
	require.NoError(t, err)
	auth.SeedDefaultPolicies(enforcer, log)

	app := &testApp{
		nodes:    &mockNodeService{nodes: fixtureNodes()},
		imports:  &mockImportService{},
		sessions: newMockSessionManager(),
		view:     &mockRenderer{},
	}
	nodeHandler := NewNodeHandler(app.nodes, app.view, log)
	adminHandler := NewAdminHandler(app.nodes, app.imports, passcode("770"), app.sessions, app.view, log, 1<<20)
	seoHandler := NewSeoHandler(app.nodes, "https://archive.example.org/")

	app.router = NewRouter(
		nodeHandler, adminHandler, seoHandler,
		middleware.Authorizer(enforcer, app.sessions, log),
		middleware.Error(log, app.view),
		middleware.NewRateLimiter(60, unlockBurst),
		app.sessions,
		nil,
	)
	return app
}

func (a *testApp) unlock() { a.sessions.values[session.AdminKey] = true }

func (a *testApp) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) doJSON(method, path, body string) *httptest.ResponseRecorder {
	return a.do(method, path, strings.NewReader(body), "application/json")
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestReadAPI(t *testing.T) {
	app := setupTest(t, 5)

	rr := app.do(http.MethodGet, "/api/nodes", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var nodes []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &nodes))
	require.Len(t, nodes, 3)
	require.Equal(t, "folder", nodes[0]["type"])
	require.Equal(t, "file", nodes[1]["type"])

	rr = app.do(http.MethodGet, "/api/nodes/doc", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"contentEn":"<p>hi</p>"`)

	rr = app.do(http.MethodGet, "/api/nodes/missing", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "Node not found", decodeError(t, rr))

	rr = app.do(http.MethodGet, "/api/nodes/root/children", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var children []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &children))
	require.Equal(t, "vid", children[0]["id"], "children are newest first")

	rr = app.do(http.MethodGet, "/api/tree", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"children"`)

	rr = app.do(http.MethodGet, "/api/search?q=essay", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"id":"doc"`)

	rr = app.do(http.MethodGet, "/api/search?q=a&limit=zero", nil, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadAPI_PersistenceError(t *testing.T) {
	app := setupTest(t, 5)
	app.nodes.err = &service.PersistenceError{Op: "fetch", Err: errors.New("down")}

	rr := app.do(http.MethodGet, "/api/nodes", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "Storage backend unavailable", decodeError(t, rr))
}

func TestPages(t *testing.T) {
	app := setupTest(t, 5)

	rr := app.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "home.html", app.view.name)
	require.Len(t, app.view.page["Folders"], 1)
	require.Len(t, app.view.page["Videos"], 1)
	require.Equal(t, false, app.view.page["IsAdmin"])

	rr = app.do(http.MethodGet, "/node/root", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "node.html", app.view.name)
	require.Len(t, app.view.page["Children"], 2)

	rr = app.do(http.MethodGet, "/node/doc", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, app.view.page["Crumbs"], 1)
	require.NotContains(t, app.view.page, "Children")

	rr = app.do(http.MethodGet, "/node/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "error.html", app.view.name)
	require.Equal(t, http.StatusNotFound, app.view.page["StatusCode"])

	rr = app.do(http.MethodGet, "/search?q=talk", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "talk", app.view.page["Query"])
	require.Len(t, app.view.page["Results"], 1)
}

func TestAdminRoutesRequireUnlock(t *testing.T) {
	app := setupTest(t, 5)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/admin/nodes"},
		{http.MethodPatch, "/api/admin/nodes/doc"},
		{http.MethodDelete, "/api/admin/nodes/doc"},
		{http.MethodPost, "/api/admin/nodes/doc/move"},
		{http.MethodPost, "/api/admin/import"},
		{http.MethodPost, "/api/admin/sync"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := app.doJSON(tc.method, tc.path, `{}`)
			require.Equal(t, http.StatusForbidden, rr.Code)
			require.Equal(t, "Forbidden", decodeError(t, rr))
		})
	}

	rr := app.do(http.MethodPost, "/admin/lock", nil, "")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUnlockAndLock(t *testing.T) {
	app := setupTest(t, 5)

	form := "passcode=123"
	rr := app.do(http.MethodPost, "/admin/unlock", strings.NewReader(form), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Incorrect passcode", app.view.page["Error"])
	require.False(t, app.sessions.GetBool(context.Background(), session.AdminKey))

	rr = app.do(http.MethodPost, "/admin/unlock", strings.NewReader("passcode=770"), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.True(t, app.sessions.GetBool(context.Background(), session.AdminKey))
	require.Equal(t, 1, app.sessions.renewCalls)

	rr = app.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, true, app.view.page["IsAdmin"])

	rr = app.do(http.MethodPost, "/admin/lock", nil, "")
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.False(t, app.sessions.GetBool(context.Background(), session.AdminKey))
}

func TestUnlockJSON(t *testing.T) {
	app := setupTest(t, 5)
	rr := app.doJSON(http.MethodPost, "/admin/unlock", `{"passcode":"770"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"unlocked":true}`, rr.Body.String())
}

func TestUnlockIsRateLimited(t *testing.T) {
	app := setupTest(t, 2)
	for i := 0; i < 2; i++ {
		rr := app.doJSON(http.MethodPost, "/admin/unlock", `{"passcode":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := app.doJSON(http.MethodPost, "/admin/unlock", `{"passcode":"770"}`)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))

	// the form itself is never limited
	rr = app.do(http.MethodGet, "/admin/unlock", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminMutations(t *testing.T) {
	app := setupTest(t, 5)
	app.unlock()

	rr := app.doJSON(http.MethodPost, "/api/admin/nodes", `{"name":"Lecture","type":"file","parentId":"root","contentType":"video","url":"https://youtu.be/y"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "Lecture", app.nodes.lastDraft.Name)
	require.Equal(t, "root", *app.nodes.lastDraft.ParentID)
	f, ok := app.nodes.lastDraft.Body.(*data.File)
	require.True(t, ok)
	require.Equal(t, data.ContentVideo, f.ContentType)

	rr = app.doJSON(http.MethodPost, "/api/admin/nodes", `{"name":"Box"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, data.KindFolder, app.nodes.lastDraft.Body.Kind())

	rr = app.doJSON(http.MethodPost, "/api/admin/nodes", `{"name":"x","type":"shelf"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.doJSON(http.MethodPost, "/api/admin/nodes", `{"name":"x","bogus":1}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.doJSON(http.MethodPost, "/api/admin/nodes", `{"name":"x","type":"file","translation":"bogus"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.doJSON(http.MethodPatch, "/api/admin/nodes/doc", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Renamed", *app.nodes.lastPatch.Name)
	require.Nil(t, app.nodes.lastPatch.ContentEN)

	rr = app.do(http.MethodDelete, "/api/admin/nodes/doc", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"deleted":["doc"]}`, rr.Body.String())

	rr = app.do(http.MethodDelete, "/api/admin/nodes/zzz", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.doJSON(http.MethodPost, "/api/admin/nodes/doc/move", `{"parentId":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, app.nodes.lastMove)

	rr = app.doJSON(http.MethodPost, "/api/admin/sync", ``)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"synced":3}`, rr.Body.String())
}

func TestAdminErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid move", fmt.Errorf("x: %w", service.ErrInvalidMove), http.StatusConflict},
		{"invalid input", fmt.Errorf("name is required: %w", service.ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("x: %w", data.ErrNotFound), http.StatusNotFound},
		{"no remote", service.ErrNoRemote, http.StatusConflict},
		{"persistence", &service.PersistenceError{Op: "move", Err: errors.New("down")}, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := setupTest(t, 5)
			app.unlock()
			app.nodes.err = tc.err

			rr := app.doJSON(http.MethodPost, "/api/admin/nodes/doc/move", `{"parentId":"vid"}`)
			require.Equal(t, tc.code, rr.Code)
			require.NotEmpty(t, decodeError(t, rr))
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportHandler(t *testing.T) {
	app := setupTest(t, 5)
	app.unlock()

	body, ct := multipartBody(t, map[string]string{"parentId": "root", "lang": "en"}, "Lesson.txt", "hello\n\nworld")
	rr := app.do(http.MethodPost, "/api/admin/import", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, "Lesson.txt", app.imports.lastImport.Filename)
	require.Equal(t, "root", *app.imports.lastImport.ParentID)
	require.Equal(t, translate.English, app.imports.lastImport.Source)
	require.Equal(t, "hello\n\nworld", string(app.imports.lastImport.Data))
	require.Contains(t, rr.Body.String(), `"translation":"pending"`)

	body, ct = multipartBody(t, nil, "x.txt", "hi")
	rr = app.do(http.MethodPost, "/api/admin/import", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Nil(t, app.imports.lastImport.ParentID)
	require.Equal(t, translate.Hebrew, app.imports.lastImport.Source, "uploads default to Hebrew")

	body, ct = multipartBody(t, map[string]string{"lang": "fr"}, "x.txt", "hi")
	rr = app.do(http.MethodPost, "/api/admin/import", body, ct)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body, ct = multipartBody(t, nil, "", "")
	rr = app.do(http.MethodPost, "/api/admin/import", body, ct)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	app.imports.err = fmt.Errorf(`".pdf": %w`, importer.ErrUnsupportedFormat)
	body, ct = multipartBody(t, nil, "scan.pdf", "%PDF")
	rr = app.do(http.MethodPost, "/api/admin/import", body, ct)
	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	require.Equal(t, "Unsupported file format", decodeError(t, rr))
}

func TestImportHandler_TooLarge(t *testing.T) {
	app := setupTest(t, 5)
	app.unlock()

	body, ct := multipartBody(t, nil, "big.txt", strings.Repeat("a", 2<<20))
	rr := app.do(http.MethodPost, "/api/admin/import", body, ct)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestTranslateHandler(t *testing.T) {
	app := setupTest(t, 5)
	app.unlock()

	rr := app.doJSON(http.MethodPost, "/api/admin/nodes/doc/translate", `{"source":"en"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, translate.English, app.imports.lastSource)

	rr = app.doJSON(http.MethodPost, "/api/admin/nodes/doc/translate", `{"source":"xx"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSeo(t *testing.T) {
	app := setupTest(t, 5)

	rr := app.do(http.MethodGet, "/robots.txt", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Sitemap: https://archive.example.org/sitemap.xml")

	rr = app.do(http.MethodGet, "/sitemap.xml", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := rr.Body.String()
	require.Contains(t, out, "<loc>https://archive.example.org/</loc>")
	require.Contains(t, out, "<loc>https://archive.example.org/node/root</loc>")
	require.Contains(t, out, "<lastmod>1970-01-01</lastmod>")
	require.Equal(t, 4, strings.Count(out, "<url>"))
}

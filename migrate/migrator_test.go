package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/portal-migrate/apim"
	"github.com/toothbrush/portal-migrate/media"
	"github.com/toothbrush/portal-migrate/snapshot"
)

// fakePortal is a stub management API for one service.  Items are served one per page so that
// every listing exercises nextLink.
type fakePortal struct {
	t       *testing.T
	service apim.Service
	url     string

	types []string
	items map[string][]string // content type -> raw items

	mu       sync.Mutex
	puts     []put
	sasCalls int
	requests int
	failPath string
	failCode int
}

type put struct {
	Path string
	Body string
}

func newFakePortal(t *testing.T, svc apim.Service) *fakePortal {
	f := &fakePortal{
		t:       t,
		service: svc,
		items:   map[string][]string{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	f.url = srv.URL
	return f
}

func (f *fakePortal) prefix() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ApiManagement/service/%s",
		f.service.SubscriptionID, f.service.ResourceGroupName, f.service.ServiceName)
}

func (f *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	assert.Equal(f.t, apim.APIVersion, r.URL.Query().Get("api-version"))
	assert.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))

	path, ok := strings.CutPrefix(r.URL.Path, f.prefix())
	if !ok {
		http.NotFound(w, r)
		return
	}
	if f.failPath != "" && path == f.failPath {
		w.WriteHeader(f.failCode)
		fmt.Fprint(w, `{"error":{"code":"ResourceNotFound"}}`)
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && path == "/contentTypes":
		values := []string{}
		for _, ct := range f.types {
			values = append(values, fmt.Sprintf(`{"id":"/contentTypes/%s","name":"%s"}`, ct, ct))
		}
		fmt.Fprintf(w, `{"value":[%s]}`, strings.Join(values, ","))

	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "contentItems":
		items := f.items[parts[1]]
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		resp := `{"value":[]}`
		if page < len(items) {
			resp = fmt.Sprintf(`{"value":[%s]`, items[page])
			if page+1 < len(items) {
				resp += fmt.Sprintf(`,"nextLink":"%s%s%s?page=%d"`, f.url, f.prefix(), path, page+1)
			}
			resp += "}"
		}
		fmt.Fprint(w, resp)

	case r.Method == http.MethodPut && len(parts) == 4 && parts[2] == "contentItems":
		assert.Equal(f.t, "*", r.Header.Get("If-Match"))
		body, _ := io.ReadAll(r.Body)
		f.puts = append(f.puts, put{Path: path, Body: string(body)})
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, string(body))

	case r.Method == http.MethodPost && path == "/portalconfigs/default/listMediaContentSecrets":
		f.sasCalls++
		fmt.Fprintf(w, `{"containerSasUrl":"https://%s.blob.core.windows.net/content?sig=x"}`, f.service.ServiceName)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakePortal) api(t *testing.T) *apim.API {
	api, err := apim.NewAPIWithEndpoint(context.Background(), f.url, f.service, apim.StaticToken("test-token"))
	require.NoError(t, err)
	return api
}

type memContainer struct {
	mu    sync.Mutex
	blobs map[string][]byte
	order []string
}

func newMemContainer() *memContainer {
	return &memContainer{blobs: map[string][]byte{}}
}

func (m *memContainer) List(ctx context.Context) ([]media.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []media.BlobInfo{}
	for _, n := range m.order {
		out = append(out, media.BlobInfo{Name: n, Size: int64(len(m.blobs[n]))})
	}
	return out, nil
}

func (m *memContainer) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	m.mu.Lock()
	data, ok := m.blobs[name]
	m.mu.Unlock()
	if !ok {
		return 0, errors.New("no such blob")
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (m *memContainer) Upload(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[name]; !ok {
		m.order = append(m.order, name)
	}
	m.blobs[name] = data
	return nil
}

func opener(c media.Container) media.Opener {
	return func(ctx context.Context, sasURL string) (media.Container, error) {
		return c, nil
	}
}

var (
	devService  = apim.Service{SubscriptionID: "sub", ResourceGroupName: "rg-dev", ServiceName: "apim-dev"}
	prodService = apim.Service{SubscriptionID: "sub", ResourceGroupName: "rg-prod", ServiceName: "apim-prod"}
)

func configFor(svc apim.Service, folder string) Config {
	return Config{
		SubscriptionID:    svc.SubscriptionID,
		ResourceGroupName: svc.ResourceGroupName,
		ServiceName:       svc.ServiceName,
		SnapshotFolder:    folder,
	}
}

func TestConfigValidate(t *testing.T) {
	err := Config{ServiceName: "svc"}.Validate()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"SUBSCRIPTION_ID", "RESOURCE_GROUP_NAME", "snapshot folder"}, cfgErr.Missing)

	assert.NoError(t, configFor(devService, "x").Validate())

	_, err = New(Config{}, nil)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExampleScenario(t *testing.T) {
	source := newFakePortal(t, devService)
	source.types = []string{"page"}
	source.items["page"] = []string{
		`{"id":"contentTypes/page/contentItems/1","title":"Home"}`,
		`{"id":"contentTypes/page/contentItems/2","title":"About"}`,
	}

	folder := t.TempDir()
	m, err := New(configFor(devService, folder), source.api(t), WithSkipMedia(true))
	require.NoError(t, err)

	summary, err := m.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ContentTypes)
	assert.Equal(t, 2, summary.ContentItems)

	raw, err := os.ReadFile(filepath.Join(folder, "data.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"contentTypes/page/contentItems/1": {"title":"Home"},
		"contentTypes/page/contentItems/2": {"title":"About"}
	}`, string(raw))

	manifest, err := snapshot.ReadManifest(folder)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, "apim-dev", manifest.ServiceName)
	assert.Equal(t, []string{"page"}, manifest.ContentTypes)
	assert.True(t, manifest.MediaSkipped)
	assert.Equal(t, 0, source.sasCalls)
}

func TestExportImportRoundTrip(t *testing.T) {
	source := newFakePortal(t, devService)
	source.types = []string{"page", "layout", "url"}
	source.items["page"] = []string{
		`{"id":"/contentTypes/page/contentItems/home","title":"Home","nav":{"order":2,"enabled":true}}`,
		`{"id":"/contentTypes/page/contentItems/about","locales":{"en-us":{"title":"About","permalink":"/about"}}}`,
		`{"id":"/contentTypes/page/contentItems/apis","title":"APIs"}`,
	}
	source.items["layout"] = []string{
		`{"id":"/contentTypes/layout/contentItems/main","template":["a","b"]}`,
	}

	sourceBlobs := newMemContainer()
	for _, b := range []struct{ name, data string }{
		{"logo.png", "\x89PNG\x00\x01"},
		{"fonts/inter.woff2", "wOF2"},
	} {
		require.NoError(t, sourceBlobs.Upload(context.Background(), b.name, strings.NewReader(b.data)))
	}

	folder := t.TempDir()
	exporter, err := New(configFor(devService, folder), source.api(t), WithOpener(opener(sourceBlobs)))
	require.NoError(t, err)

	summary, err := exporter.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.ContentItems)
	assert.Equal(t, 2, summary.Media.Files)
	assert.Equal(t, 1, source.sasCalls)

	// a sidecar that must not travel
	require.NoError(t, os.WriteFile(filepath.Join(folder, "media", "logo.png.info"), []byte("{}"), 0644))

	target := newFakePortal(t, prodService)
	targetBlobs := newMemContainer()
	importer, err := New(configFor(prodService, folder), target.api(t), WithOpener(opener(targetBlobs)))
	require.NoError(t, err)

	summary, err = importer.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.ContentItems)
	assert.Equal(t, 2, summary.Media.Files)

	want := []put{
		{"/contentTypes/page/contentItems/home", `{"title":"Home","nav":{"order":2,"enabled":true}}`},
		{"/contentTypes/page/contentItems/about", `{"locales":{"en-us":{"title":"About","permalink":"/about"}}}`},
		{"/contentTypes/page/contentItems/apis", `{"title":"APIs"}`},
		{"/contentTypes/layout/contentItems/main", `{"template":["a","b"]}`},
	}
	require.Len(t, target.puts, len(want))
	for i, w := range want {
		assert.Equal(t, w.Path, target.puts[i].Path)
		assert.JSONEq(t, w.Body, target.puts[i].Body)
		assert.NotContains(t, target.puts[i].Body, `"id"`)
	}

	assert.Equal(t, sourceBlobs.blobs, targetBlobs.blobs)
	assert.NotContains(t, targetBlobs.blobs, "logo.png.info")
}

func TestExportIsIdempotent(t *testing.T) {
	source := newFakePortal(t, devService)
	source.types = []string{"page"}
	source.items["page"] = []string{
		`{"id":"/contentTypes/page/contentItems/a","v":1}`,
		`{"id":"/contentTypes/page/contentItems/b","v":2}`,
	}
	blobs := newMemContainer()
	require.NoError(t, blobs.Upload(context.Background(), "img/a.png", strings.NewReader("a")))

	folder := t.TempDir()
	m, err := New(configFor(devService, folder), source.api(t), WithOpener(opener(blobs)))
	require.NoError(t, err)

	_, err = m.Export(context.Background())
	require.NoError(t, err)

	source.items["page"] = source.items["page"][:1]
	_, err = m.Export(context.Background())
	require.NoError(t, err)

	snap, err := snapshot.Read(folder)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())

	files, err := media.ListMediaFiles(filepath.Join(folder, "media"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "img/a.png", files[0].BlobName)
}

func TestCaptureAbortsOnHTTPError(t *testing.T) {
	source := newFakePortal(t, devService)
	source.types = []string{"page", "layout"}
	source.items["page"] = []string{`{"id":"/contentTypes/page/contentItems/a"}`}
	source.failPath = "/contentTypes/layout/contentItems"
	source.failCode = http.StatusNotFound

	folder := t.TempDir()
	m, err := New(configFor(devService, folder), source.api(t), WithOpener(opener(newMemContainer())))
	require.NoError(t, err)

	_, err = m.Export(context.Background())
	var herr *apim.HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)

	_, statErr := os.Stat(filepath.Join(folder, "data.json"))
	assert.True(t, os.IsNotExist(statErr), "no snapshot written on failed capture")
	assert.Equal(t, 0, source.sasCalls, "media phase never started")
}

func TestCaptureFailureKeepsPreviousSnapshot(t *testing.T) {
	folder := t.TempDir()
	old := snapshot.New()
	old.Set("/contentTypes/page/contentItems/old", json.RawMessage(`{}`))
	require.NoError(t, snapshot.Write(folder, old))

	source := newFakePortal(t, devService)
	source.failPath = "/contentTypes"
	source.failCode = http.StatusInternalServerError

	m, err := New(configFor(devService, folder), source.api(t))
	require.NoError(t, err)

	_, _, err = m.Capture(context.Background())
	require.Error(t, err)

	snap, err := snapshot.Read(folder)
	require.NoError(t, err)
	_, ok := snap.Get("/contentTypes/page/contentItems/old")
	assert.True(t, ok)
}

func TestImportStopsAtFirstFailedWrite(t *testing.T) {
	folder := t.TempDir()
	snap := snapshot.New()
	snap.Set("/contentTypes/page/contentItems/1", json.RawMessage(`{"t":1}`))
	snap.Set("/contentTypes/page/contentItems/2", json.RawMessage(`{"t":2}`))
	snap.Set("/contentTypes/page/contentItems/3", json.RawMessage(`{"t":3}`))
	require.NoError(t, snapshot.Write(folder, snap))

	target := newFakePortal(t, prodService)
	target.failPath = "/contentTypes/page/contentItems/2"
	target.failCode = http.StatusBadRequest

	m, err := New(configFor(prodService, folder), target.api(t), WithOpener(opener(newMemContainer())))
	require.NoError(t, err)

	summary, err := m.Import(context.Background())
	var herr *apim.HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
	assert.Equal(t, 1, summary.ContentItems)
	require.Len(t, target.puts, 1, "earlier writes are not rolled back, later ones never happen")
	assert.Equal(t, 0, target.sasCalls)
}

func TestImportWithoutMediaMakesNoBlobCalls(t *testing.T) {
	folder := t.TempDir()
	snap := snapshot.New()
	snap.Set("contentTypes/page/contentItems/1", json.RawMessage(`{"title":"Home"}`))
	require.NoError(t, snapshot.Write(folder, snap))

	target := newFakePortal(t, prodService)
	opened := false
	m, err := New(configFor(prodService, folder), target.api(t), WithOpener(func(ctx context.Context, sasURL string) (media.Container, error) {
		opened = true
		return newMemContainer(), nil
	}))
	require.NoError(t, err)

	summary, err := m.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, media.Result{}, summary.Media)
	assert.Equal(t, 0, target.sasCalls)
	assert.False(t, opened)
	require.Len(t, target.puts, 1)
	assert.Equal(t, "/contentTypes/page/contentItems/1", target.puts[0].Path)
}

func TestImportDryRun(t *testing.T) {
	folder := t.TempDir()
	snap := snapshot.New()
	snap.Set("/contentTypes/page/contentItems/1", json.RawMessage(`{}`))
	require.NoError(t, snapshot.Write(folder, snap))
	require.NoError(t, os.MkdirAll(filepath.Join(folder, "media"), 0750))

	require.NoError(t, os.MkdirAll(filepath.Join(folder, "media", "img"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "media", "img", "logo.png"), []byte("png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "media", "img", "logo.png.info"), []byte("{}"), 0644))

	var logs bytes.Buffer
	target := newFakePortal(t, prodService)
	m, err := New(configFor(prodService, folder), target.api(t),
		WithDryRun(true),
		WithLogger(log.New(&logs, "", 0)),
		WithOpener(func(ctx context.Context, sasURL string) (media.Container, error) {
			t.Fatal("dry run must not open the media container")
			return nil, nil
		}))
	require.NoError(t, err)

	summary, err := m.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ContentItems)
	assert.Equal(t, media.Result{}, summary.Media)
	assert.Empty(t, target.puts)
	assert.Equal(t, 0, target.sasCalls)

	out := logs.String()
	assert.Contains(t, out, "(dry run) PUT /contentTypes/page/contentItems/1")
	assert.Contains(t, out, "(dry run) upload img/logo.png")
	assert.Contains(t, out, "(dry run) would upload 1 media files (3 bytes)")
	assert.NotContains(t, out, "logo.png.info")
}

func TestImportDryRunSkipMediaIsQuiet(t *testing.T) {
	folder := t.TempDir()
	snap := snapshot.New()
	snap.Set("/contentTypes/page/contentItems/1", json.RawMessage(`{}`))
	require.NoError(t, snapshot.Write(folder, snap))

	var logs bytes.Buffer
	target := newFakePortal(t, prodService)
	m, err := New(configFor(prodService, folder), target.api(t),
		WithDryRun(true), WithSkipMedia(true), WithLogger(log.New(&logs, "", 0)))
	require.NoError(t, err)

	_, err = m.Import(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "media")
}

func TestImportMissingSnapshot(t *testing.T) {
	target := newFakePortal(t, prodService)
	m, err := New(configFor(prodService, t.TempDir()), target.api(t))
	require.NoError(t, err)

	_, err = m.Import(context.Background())
	var ioErr *snapshot.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, 0, target.requests)
}

func TestManifestTimestamp(t *testing.T) {
	source := newFakePortal(t, devService)
	folder := t.TempDir()
	m, err := New(configFor(devService, folder), source.api(t), WithSkipMedia(true))
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("x", 3600)) }

	_, err = m.Export(context.Background())
	require.NoError(t, err)

	manifest, err := snapshot.ReadManifest(folder)
	require.NoError(t, err)
	assert.True(t, manifest.CapturedAt.Equal(time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)))
	assert.Equal(t, 0, manifest.ContentItems)
}

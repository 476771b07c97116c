package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/testutil"
)

func apiStub() http.Handler {
	r := chi.NewRouter()
	r.Get("/notes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Route", "notes")
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func serve(h http.Handler, method, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	env := testutil.NewEnv(t, testutil.Recognizer(""))
	h := newHandler(NewDefaultConfig(), env.Library, apiStub())

	if w := serve(h, http.MethodGet, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	if w := serve(h, http.MethodGet, "/health/ready"); w.Code != http.StatusOK {
		t.Errorf("ready = %d, body %s", w.Code, w.Body)
	}

	missing := media.New(env.Index, env.Tags, []string{filepath.Join(t.TempDir(), "gone")}, "Inbox", testutil.Logger())
	h = newHandler(NewDefaultConfig(), missing, apiStub())
	if w := serve(h, http.MethodGet, "/health/ready"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with missing root = %d, want 503", w.Code)
	}
}

func TestAPIMount(t *testing.T) {
	env := testutil.NewEnv(t, testutil.Recognizer(""))
	h := newHandler(NewDefaultConfig(), env.Library, apiStub())

	w := serve(h, http.MethodGet, "/api/notes")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-Route"); got != "notes" {
		t.Errorf("route = %q, want notes", got)
	}
	if w := serve(h, http.MethodGet, "/notes"); w.Code != http.StatusNotFound {
		t.Errorf("unmounted path = %d, want 404", w.Code)
	}
}

func TestCORS(t *testing.T) {
	env := testutil.NewEnv(t, testutil.Recognizer(""))

	h := newHandler(NewDefaultConfig(), env.Library, apiStub())
	if w := serve(h, http.MethodGet, "/api/notes", "Origin", "http://localhost:5173"); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS headers set without configured origins")
	}

	cfg := NewDefaultConfig()
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	h = newHandler(cfg, env.Library, apiStub())

	w := serve(h, http.MethodOptions, "/api/notes",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", http.MethodPut)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}

	w = serve(h, http.MethodGet, "/api/notes", "Origin", "http://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Library.Roots = []string{filepath.Join(dir, "pictures")}
	cfg.Notes.BaseDir = filepath.Join(dir, "data")
	cfg.SQLite.Path = filepath.Join(dir, "noor.db")
	cfg.OCR.Binary = "noor-missing-tesseract"
	return cfg
}

func TestOpenCreatesDirectories(t *testing.T) {
	cfg := testConfig(t)
	app, err := newApplication([]Option{WithConfig(cfg), WithLogger(testutil.Logger())})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := app.open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer svc.Close()

	if _, err := os.Stat(cfg.Library.Roots[0]); err != nil {
		t.Errorf("library root not created: %v", err)
	}
	if _, err := os.Stat(svc.notes.StoragePath()); err != nil {
		t.Errorf("notes dir not created: %v", err)
	}
	if !svc.library.Readable() {
		t.Error("library should be readable")
	}
}

func TestScanAndProcessCommands(t *testing.T) {
	cfg := testConfig(t)
	shots := filepath.Join(cfg.Library.Roots[0], "Screenshots")
	testutil.WriteImage(t, filepath.Join(shots, "a.png"), time.Now())

	opts := []Option{WithConfig(cfg), WithLogger(testutil.Logger())}

	res, proc, err := Scan(context.Background(), false, opts...)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Success || res.NewImagesFound != 1 || proc != nil {
		t.Errorf("scan = %+v, %+v", res, proc)
	}

	// the pending list survives between runs; the recognizer is missing so
	// processing yields no text
	out, err := Process(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Processed != 0 || out.Failed != 1 {
		t.Errorf("process = %+v", out)
	}
}

func TestOptionsRequireConfig(t *testing.T) {
	if err := Run(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("Run without config = %v", err)
	}
	if _, err := Process(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("Process without config = %v", err)
	}
}

package export

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewPreviewServer(t *testing.T) {
	server := NewPreviewServer("/tmp/test", 9002, nil)

	if server.bundlePath != "/tmp/test" {
		t.Errorf("Expected bundlePath '/tmp/test', got %s", server.bundlePath)
	}
	if server.Port() != 9002 {
		t.Errorf("Expected port 9002, got %d", server.Port())
	}
	if server.URL() != "http://localhost:9002" {
		t.Errorf("Unexpected URL %s", server.URL())
	}
}

func TestFindAvailablePort(t *testing.T) {
	port, err := FindAvailablePort(19000, 19100)
	if err != nil {
		t.Fatalf("FindAvailablePort failed: %v", err)
	}
	if port < 19000 || port > 19100 {
		t.Errorf("Port %d is outside expected range 19000-19100", port)
	}
}

func TestPreviewServer_Start_MissingBundle(t *testing.T) {
	if err := NewPreviewServer("/nonexistent/path/12345", 19050, nil).Start(); err == nil {
		t.Error("Expected error for missing bundle path")
	}
}

func TestPreviewServer_Start_MissingIndex(t *testing.T) {
	if err := NewPreviewServer(t.TempDir(), 19051, nil).Start(); err == nil {
		t.Error("Expected error for missing index.html")
	}
}

func TestPreviewServer_Handler(t *testing.T) {
	dir := t.TempDir()
	index := `<!DOCTYPE html><html><body>report</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewPreviewServer(dir, 0, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Pragma") != "no-cache" || resp.Header.Get("Cache-Control") == "" {
		t.Error("Expected no-cache headers")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != index {
		t.Errorf("Expected body %q, got %q", index, body)
	}

	statusResp, err := http.Get(srv.URL + "/__preview__/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer statusResp.Body.Close()
	var st previewStatus
	if err := json.NewDecoder(statusResp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Status != "running" || !st.HasIndex || st.BundlePath != dir {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestNoCacheMiddleware_OPTIONS(t *testing.T) {
	handler := noCacheMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Inner handler should not be called for OPTIONS")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for OPTIONS, got %d", rec.Code)
	}
	if rec.Header().Get("Expires") != "0" {
		t.Errorf("Expected Expires: 0, got %s", rec.Header().Get("Expires"))
	}
}

func TestPreviewServer_StopWhileServing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	port, err := FindAvailablePort(19200, 19300)
	if err != nil {
		t.Fatalf("FindAvailablePort: %v", err)
	}
	p := NewPreviewServer(dir, port, nil)

	done := make(chan error, 1)
	go func() { done <- p.Start() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(p.URL() + "/__preview__/status")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start returned %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestPreviewServer_StopBeforeStart(t *testing.T) {
	if err := NewPreviewServer(t.TempDir(), 19052, nil).Stop(); err != nil {
		t.Errorf("Stop before Start = %v", err)
	}
}

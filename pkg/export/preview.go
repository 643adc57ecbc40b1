package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"
)

// Preview port range tried when no port is given.
const (
	PreviewPortRangeStart = 9000
	PreviewPortRangeEnd   = 9100
)

// PreviewServer serves an exported report directory on localhost with
// caching disabled, so a re-export shows up on reload.
type PreviewServer struct {
	bundlePath string
	port       int
	server     *http.Server
	logger     *slog.Logger
}

// NewPreviewServer creates a preview server for the directory holding
// index.html.
func NewPreviewServer(bundlePath string, port int, logger *slog.Logger) *PreviewServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &PreviewServer{
		bundlePath: bundlePath,
		port:       port,
		logger:     logger,
	}
	p.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return p
}

// Handler returns the HTTP handler serving the bundle.
func (p *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", noCacheMiddleware(http.FileServer(http.Dir(p.bundlePath))))
	mux.HandleFunc("/__preview__/status", p.statusHandler)
	return mux
}

func (p *PreviewServer) checkBundle() error {
	if _, err := os.Stat(p.bundlePath); os.IsNotExist(err) {
		return fmt.Errorf("bundle path does not exist: %s", p.bundlePath)
	}
	if _, err := os.Stat(filepath.Join(p.bundlePath, "index.html")); os.IsNotExist(err) {
		return fmt.Errorf("no index.html found in bundle: %s", p.bundlePath)
	}
	return nil
}

// Start serves until the server is stopped.
func (p *PreviewServer) Start() error {
	if err := p.checkBundle(); err != nil {
		return err
	}
	p.logger.Info("preview server started", "url", p.URL(), "bundle", p.bundlePath)
	return p.server.ListenAndServe()
}

// StartWithGracefulShutdown serves until SIGINT or SIGTERM.
func (p *PreviewServer) StartWithGracefulShutdown(openBrowser bool) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errChan := make(chan error, 1)
	go func() {
		if err := p.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if openBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := OpenInBrowser(p.URL()); err != nil {
				fmt.Printf("Open %s in your browser\n", p.URL())
			}
		}()
	}

	fmt.Printf("\nPreview server running at %s\n", p.URL())
	fmt.Printf("Serving: %s\n", p.bundlePath)
	fmt.Print("\nPress Ctrl+C to stop\n\n")

	select {
	case <-stop:
		fmt.Println("\nShutting down preview server...")
		return p.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the server. It is safe to call from another
// goroutine while Start is serving, and before Start.
func (p *PreviewServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.server.Shutdown(ctx)
}

// Port returns the port the server listens on.
func (p *PreviewServer) Port() int {
	return p.port
}

// URL returns the server's base URL.
func (p *PreviewServer) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

type previewStatus struct {
	Status     string    `json:"status"`
	Port       int       `json:"port"`
	BundlePath string    `json:"bundle_path"`
	HasIndex   bool      `json:"has_index"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

func (p *PreviewServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	st := previewStatus{Status: "running", Port: p.port, BundlePath: p.bundlePath}
	if info, err := os.Stat(filepath.Join(p.bundlePath, "index.html")); err == nil {
		st.HasIndex = true
		st.ModifiedAt = info.ModTime()
	}
	json.NewEncoder(w).Encode(st)
}

func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FindAvailablePort returns the first free localhost port in [start, end].
func FindAvailablePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, end)
}

// StartPreview serves bundlePath on the first free port in the preview
// range until interrupted.
func StartPreview(bundlePath string, openBrowser bool, logger *slog.Logger) error {
	port, err := FindAvailablePort(PreviewPortRangeStart, PreviewPortRangeEnd)
	if err != nil {
		return fmt.Errorf("could not find available port: %w", err)
	}
	return NewPreviewServer(bundlePath, port, logger).StartWithGracefulShutdown(openBrowser)
}

// OpenInBrowser opens url with the platform's default handler.
func OpenInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

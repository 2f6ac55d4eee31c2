package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/wikidom/pkg/format"
)

// missingPageText is compiled in place of pages that do not exist.
const missingPageText = "There is currently no text in this page.\n"

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Preview a directory of pages over HTTP",
		Long: `Serve the *.wiki files in a directory, compiling each page on request.
Pages are reached under the article path (default /wiki/Page_Name); links to
pages without a source file are rendered as red links and answer 404.`,
		Example: `  wikidom serve pages/
  wikidom serve pages/ --port 9000`,
		Args: cobra.ExactArgs(1),
		RunE: runServe,
	}
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (default 8080)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if !isDir(dir) {
		return fmt.Errorf("not a directory: %s", dir)
	}
	cc, cleanup, err := NewCommandContext(cmd, dirPages{root: dir})
	if err != nil {
		return err
	}
	defer cleanup()

	port := cc.Cfg.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	return newPageServer(cc, dir).Serve(cmd.Context(), port)
}

// pageServer compiles page sources on request.
type pageServer struct {
	cc  *CommandContext
	dir string
}

func newPageServer(cc *CommandContext, dir string) *pageServer {
	return &pageServer{cc: cc, dir: dir}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *pageServer) Serve(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.cc.Logger.Info("starting preview server", "addr", fmt.Sprintf("http://localhost:%d", port), "dir", s.dir)
	s.cc.Renderer.Success(fmt.Sprintf("Serving %s at http://localhost:%d/ (Ctrl+C to stop)", s.dir, port))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.cc.Logger.Debug("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Routes returns the HTTP handler.
func (s *pageServer) Routes() http.Handler {
	cfg := s.cc.Cfg
	r := chi.NewMux()
	r.Use(
		s.logRequests,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	articlePath := "/" + strings.Trim(cfg.ArticlePath, "/")
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, articlePath+"/Main_Page", http.StatusFound)
	})
	r.Get(articlePath+"/*", func(w http.ResponseWriter, req *http.Request) {
		name, err := url.PathUnescape(chi.URLParam(req, "*"))
		if err != nil {
			http.Error(w, "bad page name", http.StatusBadRequest)
			return
		}
		s.renderPage(w, name)
	})
	r.Get(cfg.ScriptPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("action") == "raw" {
			s.rawPage(w, req, q.Get("title"))
			return
		}
		s.renderPage(w, q.Get("title"))
	})
	return r
}

func (s *pageServer) pageName(raw string) string {
	res := s.cc.Resolver
	return res.Expand(res.Canonicalize(raw))
}

// readSource reads the source of a page. Names that resolve outside the
// served directory are treated as missing.
func (s *pageServer) readSource(name string) (string, []byte, error) {
	path := sourcePath(s.dir, name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path, nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	return path, data, err
}

func (s *pageServer) renderPage(w http.ResponseWriter, raw string) {
	name := s.pageName(raw)
	status := http.StatusOK
	path, data, err := s.readSource(name)
	if err != nil {
		status = http.StatusNotFound
		data = []byte(missingPageText)
	}

	res, err := s.cc.Compile(path, data, name)
	if err != nil {
		s.cc.Logger.Error("compile failed", "page", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := format.WriteDocument(w, res.Root, name); err != nil {
		s.cc.Logger.Warn("write response", "page", name, "error", err)
	}
}

func (s *pageServer) rawPage(w http.ResponseWriter, req *http.Request, raw string) {
	_, data, err := s.readSource(s.pageName(raw))
	if err != nil {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *pageServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.cc.Logger.Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "elapsed", time.Since(start))
	})
}

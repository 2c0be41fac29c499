// Package server publishes the sitemap documents over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zvonler/forumsitemap/model"
	"github.com/zvonler/forumsitemap/sitemap"
	"github.com/zvonler/forumsitemap/utils"
)

const noDataMessage = "No sitemap data is available"

type Server struct {
	gen         *sitemap.Generator
	linkEnabled bool
	mux         *http.ServeMux
}

// New registers the sitemap routes under the path of the generator's base
// URL. robots.txt is always served from the root.
func New(gen *sitemap.Generator, linkEnabled bool) *Server {
	s := &Server{gen: gen, linkEnabled: linkEnabled, mux: http.NewServeMux()}
	prefix := gen.Links().Base.Path

	s.mux.HandleFunc("GET "+prefix+"/sitemap", s.document(gen.Index))
	s.mux.HandleFunc("GET "+prefix+"/sitemap/current", s.document(gen.Current))
	s.mux.HandleFunc("GET "+prefix+"/sitemap/additional", s.document(gen.Additional))
	s.mux.HandleFunc("GET "+prefix+"/sitemap/forum/{id}", s.forumDocument(gen.Forum))
	s.mux.HandleFunc("GET "+prefix+"/sitemap/forum/{id}/topics", s.forumDocument(gen.Topics))
	s.mux.HandleFunc("GET "+prefix+"/sitemap/style.xsl", s.stylesheet)
	s.mux.HandleFunc("GET /robots.txt", s.robots)
	return s
}

// Handler wraps the routes with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		utils.Info("server", "listen", "addr="+addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) document(build func() ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := build()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeXML(w, doc)
	}
}

func (s *Server) forumDocument(build func(model.ForumID) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		doc, err := build(model.ForumID(id))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeXML(w, doc)
	}
}

func (s *Server) stylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", sitemap.StylesheetContentType)
	w.Write(sitemap.Stylesheet)
}

// robots advertises the sitemap index to crawlers when linking is enabled.
func (s *Server) robots(w http.ResponseWriter, r *http.Request) {
	if !s.linkEnabled {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Sitemap: %s\n", s.gen.Links().IndexSitemap())
}

func writeXML(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", sitemap.ContentType)
	w.Write(doc)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sitemap.ErrAuthorizationDenied):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, sitemap.ErrNoData):
		http.Error(w, noDataMessage, http.StatusNotFound)
	case errors.Is(err, sitemap.ErrNotFound):
		http.NotFound(w, r)
	default:
		utils.Error("server", r.URL.Path, err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		utils.Info("server", "request", fmt.Sprintf("id=%s method=%s path=%s status=%d duration=%s",
			id, r.Method, r.URL.Path, rec.status, time.Since(started)))
	})
}

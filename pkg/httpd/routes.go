package httpd

import (
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote"
	"github.com/silene/opam/pkg/remote/httpapi"
	"github.com/silene/opam/pkg/remote/status"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// maxUploadBytes bounds the buffered part of multipart uploads.
const maxUploadBytes = 128 << 20

// APIParams configure the route handlers.
type APIParams struct {
	Logger *zap.Logger
}

// API exposes a repository backend as the route handlers understood
// by the pkg/remote/httpapi client.
type API struct {
	backend remote.Server
	l       *zap.Logger
	metrics *metrics
}

// NewAPI builds the handlers around a repository backend.
func NewAPI(backend remote.Server, params APIParams) *API {
	l := params.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &API{backend: backend, l: l, metrics: newMetrics()}
}

/* handlers */

func (a *API) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nvs, err := a.backend.List(r.Context())
		if err != nil {
			a.internalError(w, r, err)
			return
		}
		names := make([]string, 0, len(nvs))
		for _, nv := range nvs {
			names = append(names, nv.String())
		}
		b, err := yaml.Marshal(names)
		if err != nil {
			a.internalError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Write(b)
	}
}

func (a *API) HandleGetSpec() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nv, ok := a.packageParam(w, r)
		if !ok {
			return
		}
		b, err := a.backend.GetSpec(r.Context(), nv)
		if errors.Is(err, status.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			a.internalError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Write(b)
	}
}

func (a *API) HandleGetArchive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nv, ok := a.packageParam(w, r)
		if !ok {
			return
		}
		b, err := a.backend.GetArchive(r.Context(), nv)
		if errors.Is(err, status.ErrNoArchive) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			a.internalError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(b)
	}
}

func (a *API) HandleNewArchive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nv, ok := a.packageParam(w, r)
		if !ok {
			return
		}
		spec, archive, ok := a.uploadParts(w, r)
		if !ok {
			return
		}
		key, err := a.backend.NewArchive(r.Context(), nv, spec, archive)
		if err != nil {
			a.publicationError(w, r, err)
			return
		}
		a.l.Info("published", zap.Stringer("package", nv))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, key)
	}
}

func (a *API) HandleUpdateArchive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nv, ok := a.packageParam(w, r)
		if !ok {
			return
		}
		spec, archive, ok := a.uploadParts(w, r)
		if !ok {
			return
		}
		key := r.Header.Get(httpapi.KeyHeader)
		if err := a.backend.UpdateArchive(r.Context(), nv, spec, archive, key); err != nil {
			a.publicationError(w, r, err)
			return
		}
		a.l.Info("republished", zap.Stringer("package", nv))
	}
}

func (a *API) packageParam(w http.ResponseWriter, r *http.Request) (model.NV, bool) {
	nv, err := model.ParseNV(chi.URLParam(r, "nv"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return model.NV{}, false
	}
	return nv, true
}

func (a *API) uploadParts(w http.ResponseWriter, r *http.Request) (spec, archive []byte, ok bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "malformed multipart upload", http.StatusBadRequest)
		return nil, nil, false
	}
	spec, err := formFile(r, "spec")
	if err != nil {
		http.Error(w, "missing spec upload", http.StatusBadRequest)
		return nil, nil, false
	}
	// the archive part is optional: spec-only republications skip it
	archive, _ = formFile(r, "archive")
	return spec, archive, true
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ioutil.ReadAll(f)
}

func (a *API) publicationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, status.ErrBadKey):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, status.ErrBadSpec):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, status.ErrNotSupported):
		http.Error(w, err.Error(), http.StatusMethodNotAllowed)
	default:
		a.internalError(w, r, err)
	}
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.l.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// InitRouter builds the route table for the package daemon.
func InitRouter(a *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.instrument)

	r.Get("/packages", a.HandleList())
	r.Get("/packages/{nv}/spec", a.HandleGetSpec())
	r.Get("/packages/{nv}/archive", a.HandleGetArchive())
	r.Post("/packages/{nv}", a.HandleNewArchive())
	r.Put("/packages/{nv}", a.HandleUpdateArchive())

	r.Get("/metrics", a.metrics.Handler().ServeHTTP)
	r.Get("/healthz", healthzEndpoint)
	r.Get("/readyz", readyzEndpoint)

	return r
}

func healthzEndpoint(rw http.ResponseWriter, r *http.Request) {
	rw.Write([]byte("OK"))
}

func readyzEndpoint(rw http.ResponseWriter, r *http.Request) {
	rw.Write([]byte("OK"))
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/calcstore/internal/app"
	"github.com/R3E-Network/calcstore/internal/app/metrics"
	"github.com/R3E-Network/calcstore/internal/apperrors"
	"github.com/R3E-Network/calcstore/internal/config"
	"github.com/R3E-Network/calcstore/internal/middleware"
	"github.com/R3E-Network/calcstore/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a router exposing the REST API, the static assets in
// static and the metrics endpoint.
func NewHandler(application *app.Application, static fs.FS, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Kind: "not_found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Kind: "method_not_allowed"})
	})

	r.HandleFunc("/", h.root).Methods(http.MethodGet, http.MethodHead)
	for _, path := range []string{"/add", "/add/"} {
		r.HandleFunc(path, h.add).Methods(http.MethodPost)
	}
	for _, path := range []string{"/items", "/items/"} {
		r.HandleFunc(path, h.createItem).Methods(http.MethodPost)
		r.HandleFunc(path, h.listItems).Methods(http.MethodGet)
	}
	for _, path := range []string{"/operations", "/operations/"} {
		r.HandleFunc(path, h.listOperations).Methods(http.MethodGet)
	}
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	if static != nil {
		files := http.FileServer(http.FS(filesOnly{fsys: static}))
		r.Handle("/favicon.ico", files).Methods(http.MethodGet, http.MethodHead)
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", files)).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API is up and running"})
}

func (h *handler) add(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	if h.app.Arithmetic.Mode() == config.AddModeHistory {
		var payload addIntRequest
		if err := decodeJSON(w, r, &payload); err != nil {
			h.writeError(w, r, err)
			return
		}
		op, err := h.app.Arithmetic.AddAndRecord(ctx, payload.A.value, payload.B.value)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"result": op.Result})
		return
	}

	var payload addFloatRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	result := h.app.Arithmetic.Add(payload.A.value, payload.B.value)
	if math.IsInf(result, 0) {
		h.writeError(w, r, apperrors.E(apperrors.KindValidation, "result overflows a 64-bit float"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"result": result})
}

func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	var payload itemRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	it, err := h.app.Catalog.Create(context.WithoutCancel(r.Context()), *payload.Name, payload.Price.value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Catalog.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) listOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.app.Arithmetic.History(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)

	entry := h.log.WithError(err).WithFields(map[string]interface{}{
		"trace_id": middleware.TraceID(r.Context()),
		"method":   r.Method,
		"path":     r.URL.Path,
		"kind":     kind,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	writeJSON(w, status, errorBody{Error: publicMessage(err, status), Kind: string(kind)})
}

// publicMessage hides causes of server-side failures from callers.
func publicMessage(err error, status int) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return http.StatusText(status)
}

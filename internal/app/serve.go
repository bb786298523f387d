package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/model"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// ServeCommand exposes the catalog over a small JSON API.
type ServeCommand struct {
	bind string

	env    *Env
	server *http.Server
}

func NewServeCommand() *ServeCommand { return &ServeCommand{} }

func (c *ServeCommand) Name() string { return "serve" }

func (c *ServeCommand) Desc() string {
	return "启动 HTTP API, 浏览与编辑游戏元数据"
}

func (c *ServeCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.bind, "bind", "", "监听地址, 默认使用配置中的 serve.bind")
}

func (c *ServeCommand) PreRun(ctx context.Context, env *Env) error {
	c.env = env
	c.bind = strings.TrimSpace(c.bind)
	if c.bind == "" {
		c.bind = env.Config.Serve.Bind
	}
	logutil.GetLogger(ctx).Info("starting serve", zap.String("bind", c.bind))
	return nil
}

func (c *ServeCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	catalog, err := c.env.Catalog(ctx, true)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    c.bind,
		Handler: newAPIRouter(ctx, c.env, catalog),
	}
	c.server = srv
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("api ready",
		zap.String("addr", srv.Addr),
		zap.Int("systems", len(catalog.Systems())))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *ServeCommand) PostRun(ctx context.Context) error {
	if c.server != nil {
		_ = c.server.Close()
	}
	return nil
}

type apiHandler struct {
	env     *Env
	catalog *system.Catalog
	baseCtx context.Context
	// writes go through the store and the gamelist file one at a time
	writeMu sync.Mutex
}

func newAPIRouter(ctx context.Context, env *Env, catalog *system.Catalog) http.Handler {
	h := &apiHandler{env: env, catalog: catalog, baseCtx: ctx}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(h.accessLog)

	r.Get("/api/sorts", h.handleSorts)
	r.Get("/api/systems", h.handleSystems)
	r.Route("/api/systems/{system}", func(r chi.Router) {
		r.Get("/children", h.handleChildren)
		r.Get("/metadata", h.handleGetMetadata)
		r.Put("/metadata", h.handlePutMetadata)
	})
	return r
}

func (h *apiHandler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logutil.GetLogger(h.baseCtx).Debug("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("cost", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *apiHandler) handleSorts(w http.ResponseWriter, r *http.Request) {
	specs := db.Sorts()
	out := make([]model.Sort, 0, len(specs))
	for i, s := range specs {
		out = append(out, model.Sort{Index: i, Description: s.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) handleSystems(w http.ResponseWriter, r *http.Request) {
	systems := h.catalog.Systems()
	out := make([]model.System, 0, len(systems))
	for _, sys := range systems {
		m, err := toSystemModel(r.Context(), h.env.Store, sys)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) handleChildren(w http.ResponseWriter, r *http.Request) {
	sys, ok := h.lookupSystem(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	dirID, err := resolveFileID(sys, q.Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	recursive, err := boolParam(q.Get("recursive"), false)
	if err != nil {
		writeError(w, err)
		return
	}
	folders, err := boolParam(q.Get("folders"), true)
	if err != nil {
		writeError(w, err)
		return
	}
	sortIndex := 0
	if raw := q.Get("sort"); raw != "" {
		if sortIndex, err = strconv.Atoi(raw); err != nil {
			writeError(w, &badRequestError{msg: fmt.Sprintf("invalid sort %q", raw)})
			return
		}
	}
	spec := db.SortAt(sortIndex)
	nodes, err := h.env.Store.ChildrenOf(r.Context(), sys, dirID, db.ChildrenOptions{
		Recursive:      recursive,
		IncludeFolders: folders,
		Sort:           &spec,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ChildrenResponse{
		System: sys.Name(),
		Path:   dirID,
		Sort:   spec.Description,
		Files:  toFileModels(r.Context(), nodes),
	})
}

func (h *apiHandler) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	sys, ok := h.lookupSystem(w, r)
	if !ok {
		return
	}
	id, err := resolveFileID(sys, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	rec, _, err := h.env.Store.GetMetadata(r.Context(), id, sys.Name())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMetadataModel(sys.Name(), id, rec))
}

func (h *apiHandler) handlePutMetadata(w http.ResponseWriter, r *http.Request) {
	sys, ok := h.lookupSystem(w, r)
	if !ok {
		return
	}
	id, err := resolveFileID(sys, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, &badRequestError{msg: fmt.Sprintf("invalid payload: %v", err)})
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	ctx := r.Context()
	rec, kind, err := h.env.Store.GetMetadata(ctx, id, sys.Name())
	if err != nil {
		writeError(w, err)
		return
	}
	for key, value := range fields {
		if err := rec.Set(key, value); err != nil {
			writeError(w, &badRequestError{msg: err.Error()})
			return
		}
	}
	if err := h.env.Store.SetMetadata(ctx, id, sys.Name(), kind, rec); err != nil {
		writeError(w, err)
		return
	}
	if err := h.env.Gamelists.Update(ctx, sys); err != nil {
		writeError(w, err)
		return
	}
	logutil.GetLogger(ctx).Info("metadata updated via api",
		zap.String("system", sys.Name()),
		zap.String("file", id),
		zap.Int("fields", len(fields)))
	writeJSON(w, http.StatusOK, toMetadataModel(sys.Name(), id, rec))
}

func (h *apiHandler) lookupSystem(w http.ResponseWriter, r *http.Request) (*system.Definition, bool) {
	name := chi.URLParam(r, "system")
	sys, ok := h.catalog.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: fmt.Sprintf("system %s not found", name)})
		return nil, false
	}
	return sys, true
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func boolParam(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &badRequestError{msg: fmt.Sprintf("invalid boolean %q", raw)}
	}
	return v, nil
}

func statusOf(err error) int {
	var (
		bad     *badRequestError
		outside *pathid.PathOutsideRootError
	)
	switch {
	case db.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &bad), errors.As(err, &outside):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), model.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func init() {
	RegisterRunner("serve", func() IRunner { return NewServeCommand() })
}

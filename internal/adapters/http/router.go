package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catalog-qa/internal/core/ports"
	"github.com/kirillkom/catalog-qa/internal/observability/metrics"
)

const serviceName = "api"

// maxImportBytes caps an uploaded catalog spreadsheet at 50 MiB.
const maxImportBytes = 50 << 20

type Router struct {
	resolver ports.QueryResolver
	importer ports.CatalogImporter
	products ports.ProductReader
	metrics  *metrics.HTTPServerMetrics
	limiter  *clientLimiter
}

func NewRouter(
	resolver ports.QueryResolver,
	importer ports.CatalogImporter,
	products ports.ProductReader,
	serverMetrics *metrics.HTTPServerMetrics,
	rps float64,
	burst int,
) *Router {
	return &Router{
		resolver: resolver,
		importer: importer,
		products: products,
		metrics:  serverMetrics,
		limiter:  newClientLimiter(rps, burst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/qa/query", rt.resolveQuery)
	mux.HandleFunc("/v1/products/", rt.getProductByID)
	mux.HandleFunc("/v1/catalog/import", rt.importCatalog)

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = rateLimitMiddleware(rt.limiter, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) resolveQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		Language string `json:"language"`
		TopK     int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	res, err := rt.resolver.Resolve(r.Context(), req.Question, req.Language, req.TopK)
	if err != nil {
		writeError(w, r, "resolve query", err)
		return
	}

	rt.metrics.RecordResolution(serviceName, string(res.Intent), string(res.State), len(res.Evidence), time.Since(start))
	if res.Flags.PartialRetrieval {
		rt.metrics.RecordPartialRetrieval(serviceName)
	}
	if res.Flags.RerankerDegraded {
		rt.metrics.RecordRerankerDegraded(serviceName)
	}
	if !res.Report.Accept {
		rt.metrics.RecordAnswerRejected(serviceName)
	}

	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) getProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/products/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product id is required"})
		return
	}

	rec, err := rt.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (rt *Router) importCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	key, err := rt.importer.Import(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeError(w, r, "import catalog", err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"key":    key,
		"status": "queued",
	})
}

func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; there is nobody left to answer.
		return
	}

	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("handler_error",
			"request_id", requestIDFromContext(r.Context()),
			"operation", operation,
			"error", err,
		)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

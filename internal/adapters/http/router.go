package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/metrics"
)

type RouterConfig struct {
	ServiceName      string
	MaxUploadBytes   int64
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxConcurrent    int
	BackpressureWait time.Duration
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.ServiceName == "" {
		c.ServiceName = "api"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.BackpressureWait <= 0 {
		c.BackpressureWait = 100 * time.Millisecond
	}
	return c
}

type Router struct {
	ingestUC ports.DocumentIngestor
	searchUC ports.SearchService
	catalog  ports.ProviderCatalog
	repo     ports.DocumentRepository
	metrics  *metrics.HTTPServerMetrics
	cfg      RouterConfig
}

func NewRouter(
	ingestUC ports.DocumentIngestor,
	searchUC ports.SearchService,
	catalog ports.ProviderCatalog,
	repo ports.DocumentRepository,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	return &Router{
		ingestUC: ingestUC,
		searchUC: searchUC,
		catalog:  catalog,
		repo:     repo,
		metrics:  m,
		cfg:      cfg.withDefaults(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/providers", rt.listProviders)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, rt.cfg.BackpressureWait)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := rt.searchUC.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.cfg.ServiceName, string(resp.Mode), resp.Degraded,
			len(resp.Results), time.Duration(resp.TookMS)*time.Millisecond)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSearchRequest(r *http.Request) (domain.SearchRequest, error) {
	const op = "httpadapter.parseSearchRequest"
	q := r.URL.Query()

	req := domain.SearchRequest{
		Query: q.Get("query"),
		Mode:  domain.SearchMode(q.Get("mode")),
		Filter: domain.SearchFilter{
			CollectionID: q.Get("collection_id"),
		},
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return req, domain.WrapError(domain.ErrValidation, op,
				errInvalidParam("limit", raw))
		}
		req.Limit = limit
	}
	if raw := q.Get("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, domain.WrapError(domain.ErrValidation, op,
				errInvalidParam("min_score", raw))
		}
		req.MinScore = minScore
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return req, domain.WrapError(domain.ErrValidation, op,
				errInvalidParam("since", raw))
		}
		req.Filter.Since = since
	}

	return req, nil
}

func (rt *Router) listProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.catalog.List())
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		r.FormValue("collection_id"),
		r.FormValue("title"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.cfg.ServiceName, doc.MimeType, fileHeader.Size)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/reembed"); ok {
		rt.reembedDocument(w, r, id)
		return
	}
	rt.getDocumentByID(w, r, rest)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentView(doc))
}

func (rt *Router) reembedDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if err := rt.ingestUC.RequestReembed(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": "queued"})
}

// documentView drops the full extracted content from API responses.
func documentView(doc *domain.Document) *domain.Document {
	view := *doc
	view.Content = ""
	return &view
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

type invalidParamError struct {
	name  string
	value string
}

func (e invalidParamError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return invalidParamError{name: name, value: value}
}

package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsearch"
	"github.com/kailas-cloud/ftsearch/internal/config"
	logpkg "github.com/kailas-cloud/ftsearch/internal/logger"
	"github.com/kailas-cloud/ftsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/ftsearch/internal/usecase/health"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeValidationFailed = "validation_failed"
	codeIndexNotFound    = "index_not_found"
	codeDocumentNotFound = "document_not_found"
	codeRemoteError      = "remote_error"
	codeMalformedReply   = "malformed_reply"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a client error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server exposes the ftsearch client over HTTP. Every index named in a path shares
// the same connection.
type Server struct {
	conn          ftsearch.Conn
	clientOpts    []ftsearch.Option
	health        *healthuc.Service
	search        config.SearchConfig
	batch         config.BatchConfig
	logger        *zap.Logger
	errorHandlers []errorHandler

	mu      sync.Mutex
	clients map[string]*ftsearch.Client
}

// NewServer creates an HTTP API server. clientOpts are passed to every per-index client.
func NewServer(
	conn ftsearch.Conn,
	health *healthuc.Service,
	search config.SearchConfig,
	batch config.BatchConfig,
	logger *zap.Logger,
	clientOpts ...ftsearch.Option,
) *Server {
	s := &Server{
		conn:       conn,
		clientOpts: clientOpts,
		health:     health,
		search:     search,
		batch:      batch,
		logger:     logger,
		clients:    make(map[string]*ftsearch.Client),
	}
	s.errorHandlers = []errorHandler{
		configurationHandler,
		remoteCommandHandler,
		sentinelHandler(ftsearch.ErrMalformedReply, http.StatusBadGateway, codeMalformedReply),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/indexes/{index}", func(r chi.Router) {
		r.Post("/", s.CreateIndex)
		r.Get("/", s.GetIndex)
		r.Delete("/", s.DropIndex)
		r.Get("/search", s.SearchDocuments)
		r.Get("/explain", s.ExplainQuery)
		r.Post("/documents/batch", s.BatchUpsert)
		r.Put("/documents/{id}", s.UpsertDocument)
		r.Delete("/documents/{id}", s.DeleteDocument)
	})
}

// client returns the cached client for an index.
func (s *Server) client(index string) (*ftsearch.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[index]; ok {
		return c, nil
	}
	c, err := ftsearch.NewWithConn(index, s.conn, s.clientOpts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // configuration errors are mapped by handleError
	}
	s.clients[index] = c
	s.logger.Debug("index client created", zap.String("index", index))
	return c, nil
}

// indexClient resolves the {index} path parameter and returns the request with its
// logger tagged by index.
func (s *Server) indexClient(w http.ResponseWriter, r *http.Request) (*ftsearch.Client, *http.Request, bool) {
	index := chi.URLParam(r, "index")
	r = r.WithContext(logpkg.WithFields(r.Context(), zap.String("index", index)))

	c, err := s.client(index)
	if err != nil {
		s.handleError(w, r, err)
		return nil, r, false
	}
	return c, r, true
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

type fieldDefinition struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // text, numeric
	Weight   *float64 `json:"weight,omitempty"`
	Sortable bool     `json:"sortable,omitempty"`
	NoStem   bool     `json:"no_stem,omitempty"`
	NoIndex  bool     `json:"no_index,omitempty"`
}

type createIndexRequest struct {
	Fields []fieldDefinition `json:"fields"`
}

// CreateIndex handles POST /indexes/{index}.
func (s *Server) CreateIndex(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	var req createIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	fields, err := fieldsFromRequest(req.Fields)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := c.CreateIndex(r.Context(), fields...); err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"index": c.IndexName(), "fields": len(fields)})
}

// GetIndex handles GET /indexes/{index}.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	exists, err := c.IndexExists(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, codeIndexNotFound, "index not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": c.IndexName()})
}

// DropIndex handles DELETE /indexes/{index}.
func (s *Server) DropIndex(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	if err := c.DropIndex(r.Context()); err != nil {
		s.handleError(w, r, err)
		return
	}

	s.mu.Lock()
	delete(s.clients, c.IndexName())
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

type upsertDocumentRequest struct {
	Fields  map[string]any  `json:"fields"`
	Score   *float64        `json:"score,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Replace bool            `json:"replace,omitempty"`
	Partial bool            `json:"partial,omitempty"`
	NoSave  bool            `json:"no_save,omitempty"`
}

func (req upsertDocumentRequest) options() []ftsearch.AddOption {
	var opts []ftsearch.AddOption
	if req.Score != nil {
		opts = append(opts, ftsearch.WithScore(*req.Score))
	}
	if len(req.Payload) > 0 {
		opts = append(opts, ftsearch.WithPayload(req.Payload))
	}
	if req.Replace {
		opts = append(opts, ftsearch.Replace())
	}
	if req.Partial {
		opts = append(opts, ftsearch.Partial())
	}
	if req.NoSave {
		opts = append(opts, ftsearch.NoSave())
	}
	return opts
}

// UpsertDocument handles PUT /indexes/{index}/documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	var req upsertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := c.AddDocument(r.Context(), id, ftsearch.FieldsFromMap(req.Fields), req.options()...); err != nil {
		s.handleError(w, r, err)
		return
	}

	metrics.DocumentsWritten.WithLabelValues(c.IndexName(), "single").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// DeleteDocument handles DELETE /indexes/{index}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	deleted, err := c.DeleteDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, codeDocumentNotFound, "document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchItem struct {
	ID string `json:"id"`
	upsertDocumentRequest
}

type batchUpsertRequest struct {
	Documents []batchItem `json:"documents"`
	Replace   bool        `json:"replace,omitempty"`
	Partial   bool        `json:"partial,omitempty"`
	NoSave    bool        `json:"no_save,omitempty"`
}

// BatchUpsert handles POST /indexes/{index}/documents/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	var req batchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) > s.batch.MaxDocuments {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "too many documents in batch")
		return
	}

	docs := make([]ftsearch.BatchDoc, len(req.Documents))
	for i, item := range req.Documents {
		docs[i] = ftsearch.BatchDoc{
			ID:      item.ID,
			Fields:  ftsearch.FieldsFromMap(item.Fields),
			Options: item.options(),
		}
	}
	shared := upsertDocumentRequest{Replace: req.Replace, Partial: req.Partial, NoSave: req.NoSave}

	indexer := ftsearch.NewBatchIndexer(c,
		ftsearch.WithChunkSize(s.batch.ChunkSize),
		ftsearch.WithConcurrency(s.batch.Concurrency),
		ftsearch.WithFlushRate(s.batch.FlushesPerSec, s.batch.Concurrency),
	)
	if err := indexer.AddDocuments(r.Context(), docs, shared.options()...); err != nil {
		s.handleError(w, r, err)
		return
	}

	metrics.DocumentsWritten.WithLabelValues(c.IndexName(), "batch").Add(float64(len(docs)))
	writeJSON(w, http.StatusOK, map[string]any{"indexed": len(docs)})
}

type documentResponse struct {
	ID      string            `json:"id"`
	Fields  map[string]string `json:"fields,omitempty"`
	Payload any               `json:"payload,omitempty"`
}

type searchResponse struct {
	Total      int64              `json:"total"`
	DurationMS float64            `json:"duration_ms"`
	Documents  []documentResponse `json:"documents"`
}

// SearchDocuments handles GET /indexes/{index}/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	q, snippets, err := s.queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	res, err := c.Search(r.Context(), q, snippets)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	metrics.SearchHits.WithLabelValues(c.IndexName()).Observe(float64(res.Total))
	writeJSON(w, http.StatusOK, searchResultToResponse(res, q.HasPayloads()))
}

// ExplainQuery handles GET /indexes/{index}/explain.
func (s *Server) ExplainQuery(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.indexClient(w, r)
	if !ok {
		return
	}

	var q string
	if err := bindQuery(r, "q", true, &q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	plan, err := c.Explain(r.Context(), q)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plan": plan})
}

func searchResultToResponse(res *ftsearch.Result, withPayloads bool) searchResponse {
	docs := make([]documentResponse, len(res.Docs))
	for i, d := range res.Docs {
		item := documentResponse{ID: d.ID, Fields: d.Fields}
		if withPayloads {
			item.Payload = payloadValue(d.Payload)
		}
		docs[i] = item
	}
	return searchResponse{
		Total:      res.Total,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
		Documents:  docs,
	}
}

// payloadValue embeds JSON payloads as is and anything else as a string.
func payloadValue(p json.RawMessage) any {
	if json.Valid(p) {
		return p
	}
	return string(p)
}

func fieldsFromRequest(defs []fieldDefinition) ([]ftsearch.Field, error) {
	fields := make([]ftsearch.Field, 0, len(defs))
	for _, d := range defs {
		var opts []ftsearch.FieldOption
		if d.Weight != nil {
			opts = append(opts, ftsearch.WithWeight(*d.Weight))
		}
		if d.Sortable {
			opts = append(opts, ftsearch.Sortable())
		}
		if d.NoStem {
			opts = append(opts, ftsearch.NoStem())
		}
		if d.NoIndex {
			opts = append(opts, ftsearch.NoIndex())
		}

		var (
			f   ftsearch.Field
			err error
		)
		switch d.Type {
		case "text", "":
			f, err = ftsearch.NewTextField(d.Name, opts...)
		case "numeric":
			f, err = ftsearch.NewNumericField(d.Name, opts...)
		default:
			return nil, &ftsearch.ConfigurationError{Reason: "field " + d.Name + ": unknown type " + d.Type}
		}
		if err != nil {
			return nil, err //nolint:wrapcheck // configuration errors are mapped by handleError
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// configurationHandler reports invalid input with its reason.
func configurationHandler(w http.ResponseWriter, err error) bool {
	var ce *ftsearch.ConfigurationError
	if !errors.As(err, &ce) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, ce.Reason)
	return true
}

// remoteCommandHandler maps server error replies. Unknown indexes become 404.
func remoteCommandHandler(w http.ResponseWriter, err error) bool {
	var rce *ftsearch.RemoteCommandError
	if !errors.As(err, &rce) {
		return false
	}
	if ftsearch.IsUnknownIndex(err) {
		writeError(w, http.StatusNotFound, codeIndexNotFound, rce.Message)
		return true
	}
	writeError(w, http.StatusBadGateway, codeRemoteError, rce.Message)
	return true
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

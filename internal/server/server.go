package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"datasnap/internal/database"
	"datasnap/internal/llm"
	"datasnap/internal/narrative"
)

var md = goldmark.New()

// Server is the HTTP JSON API for narrative generation and storage.
type Server struct {
	db        *database.DB
	registry  *narrative.Registry
	assembler *narrative.Assembler
	provider  llm.Provider
	mux       *http.ServeMux
}

// New creates a new Server. The provider may be nil; AI generation
// methods then fall back to templates.
func New(db *database.DB, provider llm.Provider) (*Server, error) {
	registry := narrative.DefaultRegistry()
	assembler, err := narrative.NewAssembler(registry, provider)
	if err != nil {
		return nil, fmt.Errorf("building narrative assembler: %w", err)
	}

	s := &Server{
		db:        db,
		registry:  registry,
		assembler: assembler,
		provider:  provider,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/narratives/statistical-test", s.handleStatisticalTest)
	s.mux.HandleFunc("/api/narratives/data-summary", s.handleDataSummary)
	s.mux.HandleFunc("/api/narratives/visualization", s.handleVisualization)
	s.mux.HandleFunc("/api/narratives/batch", s.handleBatch)
	s.mux.HandleFunc("/api/narratives/templates", s.handleTemplates)
	s.mux.HandleFunc("/api/narratives/templates/", s.handleTemplateTest)
	s.mux.HandleFunc("/api/narratives/health", s.handleHealth)
	s.mux.HandleFunc("/api/narratives/save", s.handleSave)
	s.mux.HandleFunc("/api/narratives/search", s.handleSearch)
	s.mux.HandleFunc("/api/narratives/stats", s.handleStats)
	s.mux.HandleFunc("/api/narratives", s.handleList)
	s.mux.HandleFunc("/api/narratives/", s.handleNarrativeByID)
	s.mux.HandleFunc("/narratives/", s.handleView)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, typ narrative.Type) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	req, err := narrative.DecodeRequest(body, typ)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.assembler.Generate(r.Context(), req)
	if err != nil {
		writeNarrativeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleStatisticalTest(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, narrative.TypeStatisticalTest)
}

func (s *Server) handleDataSummary(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, narrative.TypeDataSummary)
}

func (s *Server) handleVisualization(w http.ResponseWriter, r *http.Request) {
	s.handleGenerate(w, r, narrative.TypeVisualization)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Requests        []json.RawMessage `json:"requests"`
		GlobalContext   map[string]any    `json:"global_context"`
		CombineInsights bool              `json:"combine_insights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "batch requires at least one request")
		return
	}

	requests := make([]narrative.Request, 0, len(body.Requests))
	for i, raw := range body.Requests {
		req, err := narrative.DecodeRequest(raw, "")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("request %d: %v", i, err))
			return
		}
		requests = append(requests, req)
	}

	result, err := s.assembler.GenerateBatch(r.Context(), requests, body.CombineInsights, body.GlobalContext)
	if err != nil {
		writeNarrativeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	templates := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// handleTemplateTest handles POST /api/narratives/templates/{id}/test.
func (s *Server) handleTemplateTest(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/narratives/templates/")
	templateID, ok := strings.CutSuffix(path, "/test")
	if !ok || templateID == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	n, err := s.assembler.RenderWithTemplate(r.Context(), templateID, fields)
	if err != nil {
		writeNarrativeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"service":            "narrative-generation",
		"templates_loaded":   len(s.registry.List()),
		"provider_available": s.provider != nil,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Narrative narrative.Narrative `json:"narrative"`
		DatasetID *int64              `json:"dataset_id"`
		UserID    *string             `json:"user_id"`
		Tags      []string            `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body.Narrative.Title == "" || body.Narrative.Content == "" {
		writeError(w, http.StatusBadRequest, "narrative title and content are required")
		return
	}

	rec := database.RecordFromNarrative(&body.Narrative, body.DatasetID, body.UserID, body.Tags)
	id, err := s.db.InsertNarrative(rec)
	if err != nil {
		log.Printf("saving narrative: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save narrative")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	var f database.NarrativeFilters

	if v := q.Get("user_id"); v != "" {
		f.UserID = &v
	}
	if v := q.Get("dataset_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dataset_id")
			return
		}
		f.DatasetID = &id
	}
	if v := q.Get("narrative_type"); v != "" {
		f.NarrativeType = &v
	}
	if v := q.Get("favorite"); v != "" {
		b := v == "true" || v == "1"
		f.Favorite = &b
	}
	if v := q.Get("archived"); v != "" {
		b := v == "true" || v == "1"
		f.Archived = &b
	}
	if v := q.Get("tag"); v != "" {
		f.Tag = &v
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	f.OrderBy = q.Get("order_by")
	f.SortAsc = q.Get("order") == "asc"

	recs, err := s.db.ListNarratives(f)
	if err != nil {
		log.Printf("listing narratives: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list narratives")
		return
	}
	if recs == nil {
		recs = []database.NarrativeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"narratives": recs,
		"count":      len(recs),
	})
}

// handleNarrativeByID dispatches /api/narratives/{id} and
// /api/narratives/{id}/favorite|archive.
func (s *Server) handleNarrativeByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/narratives/")
	parts := strings.SplitN(path, "/", 2)

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "favorite":
			s.handleFavorite(w, r, id)
		case "archive":
			s.handleArchive(w, r, id)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r, id)
	case http.MethodPut:
		s.handleUpdate(w, r, id)
	case http.MethodDelete:
		s.handleDelete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id int64) {
	rec, err := s.db.GetNarrative(id)
	if err != nil {
		log.Printf("getting narrative %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load narrative")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("narrative %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var body struct {
		Title   *string  `json:"title"`
		Summary *string  `json:"summary"`
		Tags    []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	found, err := s.db.UpdateNarrative(id, body.Title, body.Summary, body.Tags)
	if err != nil {
		log.Printf("updating narrative %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update narrative")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("narrative %d not found", id))
		return
	}

	rec, err := s.db.GetNarrative(id)
	if err != nil || rec == nil {
		writeError(w, http.StatusInternalServerError, "failed to load narrative")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	found, err := s.db.DeleteNarrative(id)
	if err != nil {
		log.Printf("deleting narrative %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete narrative")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("narrative %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rec, err := s.db.ToggleFavorite(id)
	if err != nil {
		log.Printf("toggling favorite %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("narrative %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	archived := true
	if r.Body != nil {
		var body struct {
			Archived *bool `json:"archived"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Archived != nil {
			archived = *body.Archived
		}
	}

	found, err := s.db.ArchiveNarrative(id, archived)
	if err != nil {
		log.Printf("archiving narrative %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to archive narrative")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("narrative %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_archived": archived})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := s.db.SearchNarratives(query, limit)
	if err != nil {
		log.Printf("searching narratives: %v", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if recs == nil {
		recs = []database.NarrativeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":      query,
		"narratives": recs,
		"count":      len(recs),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var userID *string
	if v := r.URL.Query().Get("user_id"); v != "" {
		userID = &v
	}

	stats, err := s.db.GetNarrativeStats(userID)
	if err != nil {
		log.Printf("computing stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

const viewPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<article>
<h1>%s</h1>
<p><em>%s</em></p>
%s
</article>
</body>
</html>
`

// handleView renders a stored narrative's markdown as HTML.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/narratives/")
	idStr, ok := strings.CutSuffix(path, "/view")
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	rec, err := s.db.GetNarrative(id)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, r)
		return
	}

	title := template.HTMLEscapeString(rec.Title)
	summary := template.HTMLEscapeString(rec.Summary)

	var buf bytes.Buffer
	if err := md.Convert([]byte(rec.Content), &buf); err != nil {
		buf.Reset()
		buf.WriteString("<pre>" + template.HTMLEscapeString(rec.Content) + "</pre>")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, viewPage, title, title, summary, buf.String())
}

// writeNarrativeError maps a structured generation error to an HTTP status.
func writeNarrativeError(w http.ResponseWriter, err error) {
	apiErr := narrative.AsError(err)

	status := http.StatusInternalServerError
	switch apiErr.ErrorType {
	case narrative.ErrTypeTemplateNotFound:
		status = http.StatusNotFound
	case narrative.ErrTypeTemplateRender, narrative.ErrTypeValidation:
		status = http.StatusBadRequest
	}

	writeJSON(w, status, apiErr)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, provider llm.Provider, port int) error {
	srv, err := New(db, provider)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}

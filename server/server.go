package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ai_content_agents/docstore"
	"ai_content_agents/generator"
	"ai_content_agents/metrics"
	"ai_content_agents/validate"
	"ai_content_agents/website"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 1 << 20
)

// Docs is the documentation store behind /api/docs; *docstore.Store
// implements it.
type Docs interface {
	Upsert(ctx context.Context, key docstore.Key, content string) (docstore.Section, error)
	Get(ctx context.Context, key docstore.Key) (docstore.Section, error)
	List(ctx context.Context, owner, repo string) ([]docstore.Section, error)
}

// PageAnalyzer fetches a page for a website audit; *website.Analyzer
// implements it.
type PageAnalyzer interface {
	Analyze(ctx context.Context, rawURL string) (website.Report, error)
}

type Server struct {
	agent     *generator.Agent
	validator *validate.Validator
	docs      Docs
	pages     PageAnalyzer
	log       *logrus.Logger
	timeout   time.Duration

	maxEntries int
	entryTTL   time.Duration
	now        func() time.Time

	artifacts *boundedStore[generator.Artifact]
	sessions  *boundedStore[*chat]
}

// chat serializes the turns of one session.
type chat struct {
	mu   sync.Mutex
	sess *generator.Session
}

type Option func(*Server)

// WithDocs enables the /api/docs routes.
func WithDocs(d Docs) Option {
	return func(s *Server) { s.docs = d }
}

func WithValidator(v *validate.Validator) Option {
	return func(s *Server) { s.validator = v }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithPageAnalyzer replaces the fetcher used for website audits.
func WithPageAnalyzer(p PageAnalyzer) Option {
	return func(s *Server) { s.pages = p }
}

// WithRetention bounds the artifacts and sessions kept in memory. Entries
// unused for ttl expire; past limit the least recently used go first.
func WithRetention(limit int, ttl time.Duration) Option {
	return func(s *Server) {
		s.maxEntries = limit
		s.entryTTL = ttl
	}
}

// WithTimeout bounds the time spent on one generation request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func New(agent *generator.Agent, opts ...Option) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	s := &Server{
		agent:      agent,
		validator:  validate.NewValidator(nil),
		pages:      website.New(nil),
		log:        logrus.StandardLogger(),
		timeout:    defaultTimeout,
		maxEntries: defaultMaxEntries,
		entryTTL:   defaultEntryTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.artifacts = newBoundedStore[generator.Artifact](s.maxEntries, s.entryTTL, s.now)
	s.sessions = newBoundedStore[*chat](s.maxEntries, s.entryTTL, s.now)
	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate-portfolio", s.handleFixedKind(generator.KindPortfolio))
	mux.HandleFunc("/api/prompt-evaluator", s.handleFixedKind(generator.KindPromptEvaluation))
	mux.HandleFunc("/api/generate/{kind}", s.handleGenerate)
	mux.HandleFunc("/api/validate", s.handleValidate)
	mux.HandleFunc("/api/artifacts/{id}", s.handleArtifact)
	mux.HandleFunc("/api/sessions", s.handleSessionCreate)
	mux.HandleFunc("/api/sessions/{id}", s.handleSessionByID)
	mux.HandleFunc("/api/docs/{owner}/{repo}", s.handleDocsList)
	mux.HandleFunc("/api/docs/{owner}/{repo}/{section}", s.handleDocsSection)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return s.logMiddleware(mux)
}

// --- Generation ---

type artifactResp struct {
	generator.Artifact
	Warning string `json:"warning,omitempty"`
}

type validationResp struct {
	Error  string          `json:"error"`
	Errors validate.Errors `json:"errors"`
}

func (s *Server) handleFixedKind(kind generator.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var in generator.UserInput
		if !decode(w, r, &in) {
			return
		}
		in.Kind = kind
		s.generate(w, r, in)
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	kind, err := generator.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var in generator.UserInput
	if !decode(w, r, &in) {
		return
	}
	in.Kind = kind
	s.generate(w, r, in)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, in generator.UserInput) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.agent.Generate(ctx, s.withMaterial(ctx, in))
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	s.artifacts.Set(res.Artifact.ID, res.Artifact)
	writeJSON(w, http.StatusOK, artifactResp{Artifact: res.Artifact, Warning: res.Warning()})
}

// withMaterial replaces whatever material the client sent. Only a dataset
// summary is taken from the request; a website audit fetches the page.
func (s *Server) withMaterial(ctx context.Context, in generator.UserInput) generator.UserInput {
	switch in.Kind {
	case generator.KindDataInsights:
		return in
	case generator.KindWebsiteAudit:
		in.Material = ""
		if len(validate.ValidateURL(in.URL)) > 0 {
			return in
		}
		report, err := s.pages.Analyze(ctx, strings.TrimSpace(in.URL))
		if err != nil {
			s.log.WithError(err).WithField("url", in.URL).Warn("page fetch failed")
			in.Material = "The page could not be fetched: " + err.Error()
			return in
		}
		in.Material = report.Material()
		return in
	default:
		in.Material = ""
		return in
	}
}

func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	var errs validate.Errors
	if errors.As(err, &errs) {
		writeJSON(w, http.StatusBadRequest, validationResp{Error: "validation failed", Errors: errs})
		return
	}
	s.log.WithError(err).Error("generation failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var form validate.WebsiteForm
	if !decode(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, s.validator.ValidateUserInput(form))
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	art, ok := s.artifacts.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	writeJSON(w, http.StatusOK, artifactResp{Artifact: art})
}

// --- Q&A sessions ---

type askReq struct {
	Question string `json:"question"`
	Material string `json:"material"`
}

type sessionResp struct {
	SessionID string              `json:"session_id"`
	Answer    *generator.Artifact `json:"answer,omitempty"`
	Warning   string              `json:"warning,omitempty"`
	History   []generator.Turn    `json:"history"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req askReq
	if !decode(w, r, &req) {
		return
	}
	id := uuid.NewString()
	c := &chat{sess: generator.NewSession(id, s.agent)}
	s.sessions.Set(id, c)
	if !s.ask(w, r, c, req) {
		s.sessions.Remove(id)
	}
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c.mu.Lock()
		defer c.mu.Unlock()
		writeJSON(w, http.StatusOK, sessionResp{SessionID: c.sess.ID, History: c.sess.History})
	case http.MethodPost:
		var req askReq
		if !decode(w, r, &req) {
			return
		}
		s.ask(w, r, c, req)
	case http.MethodDelete:
		s.sessions.Remove(c.sess.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, c *chat, req askReq) bool {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.sess.Ask(ctx, req.Question, req.Material)
	if err != nil {
		s.writeAgentError(w, err)
		return false
	}
	writeJSON(w, http.StatusOK, sessionResp{
		SessionID: c.sess.ID,
		Answer:    &res.Artifact,
		Warning:   res.Warning(),
		History:   c.sess.History,
	})
	return true
}

// --- Documentation ---

type putSectionReq struct {
	Content string `json:"content"`
}

func (s *Server) handleDocsList(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) || !s.docsEnabled(w) {
		return
	}
	sections, err := s.docs.List(r.Context(), r.PathValue("owner"), r.PathValue("repo"))
	if err != nil {
		s.log.WithError(err).Error("listing documentation")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleDocsSection(w http.ResponseWriter, r *http.Request) {
	if !s.docsEnabled(w) {
		return
	}
	key := docstore.Key{
		Owner:   r.PathValue("owner"),
		Repo:    r.PathValue("repo"),
		Section: r.PathValue("section"),
	}

	switch r.Method {
	case http.MethodGet:
		sec, err := s.docs.Get(r.Context(), key)
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			s.log.WithError(err).WithField("section", key.String()).Error("reading documentation")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, sec)
	case http.MethodPut:
		var req putSectionReq
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		sec, err := s.docs.Upsert(r.Context(), key, req.Content)
		if err != nil {
			s.log.WithError(err).WithField("section", key.String()).Error("storing documentation")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, sec)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) docsEnabled(w http.ResponseWriter) bool {
	if s.docs == nil {
		writeError(w, http.StatusServiceUnavailable, "documentation store not configured")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "provider": s.agent.Provider()})
}

// --- Helpers ---

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		methodNotAllowed(w, method)
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, methods ...string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  rec.status,
			"elapsed": time.Since(start),
		}).Debug("request")
	})
}

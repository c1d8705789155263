package webui

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pro-prompt-builder/internal/generation"
	"pro-prompt-builder/internal/metrics"
	"pro-prompt-builder/internal/notify"
	"pro-prompt-builder/internal/promptform"
	"pro-prompt-builder/internal/session"
	"pro-prompt-builder/internal/styles"
)

const (
	maxBodyBytes      = 64 << 10
	maxStyleFileBytes = 64 << 10
)

type Options struct {
	Workspace *session.Workspace
	Logger    *slog.Logger
	// Metrics mounts the Prometheus handler at /metrics.
	Metrics bool
}

type Server struct {
	ws     *session.Workspace
	logger *slog.Logger
	mux    *http.ServeMux
}

type apiError struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

type sessionView struct {
	ID       string  `json:"id,omitempty"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	Percent  int     `json:"percent"`
	Result   string  `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type stateResponse struct {
	Record       promptform.Record    `json:"record"`
	Generation   string               `json:"generation"`
	Session      sessionView          `json:"session"`
	LastResult   string               `json:"lastResult,omitempty"`
	Notification *notify.Notification `json:"notification"`
	Toast        *notify.Notification `json:"toast"`
}

type fieldRequest struct {
	Field  string          `json:"field"`
	Value  json.RawMessage `json:"value"`
	Option string          `json:"option"`
}

type fieldInfo struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Category string   `json:"category"`
	List     bool     `json:"list"`
	Options  []string `json:"options,omitempty"`
}

type importResponse struct {
	Applied []string          `json:"applied"`
	Skipped map[string]string `json:"skipped,omitempty"`
	Ignored []string          `json:"ignored,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		ws:     opts.Workspace,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/fields", s.handleFields)
	s.mux.HandleFunc("/api/fields/select", s.handleSelect)
	s.mux.HandleFunc("/api/fields/deselect", s.handleDeselect)
	s.mux.HandleFunc("/api/options", s.handleOptions)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/styles", s.handleStyles)
	s.mux.HandleFunc("/api/snippet", s.handleSnippet)
	s.mux.HandleFunc("/api/copy", s.handleCopy)
	s.mux.HandleFunc("/api/reset", s.handleReset)
	if opts.Metrics {
		s.mux.Handle("/metrics", metrics.Handler())
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return withLogging(s.mux, s.logger)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, ok := decodeField(w, r)
	if !ok {
		return
	}

	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "value is not valid JSON"})
		return
	}
	if err := s.ws.Update(promptform.Field(req.Field), value); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, ok := decodeField(w, r)
	if !ok {
		return
	}

	err := s.ws.Select(promptform.Field(req.Field), req.Option)
	switch {
	case errors.Is(err, promptform.ErrAlreadySelected):
		writeJSON(w, http.StatusConflict, s.state())
	case err != nil:
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, s.state())
	}
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, ok := decodeField(w, r)
	if !ok {
		return
	}
	if err := s.ws.Deselect(promptform.Field(req.Field), req.Option); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	fields := make([]fieldInfo, 0, len(promptform.Fields()))
	for _, f := range promptform.Fields() {
		c, _ := promptform.CategoryOf(f)
		info := fieldInfo{
			Name:     string(f),
			Label:    promptform.Label(f),
			Category: c.String(),
			List:     promptform.IsList(f),
		}
		if info.List || f == promptform.FieldAspectRatio {
			info.Options = promptform.Options(f)
		}
		fields = append(fields, info)
	}
	writeJSON(w, http.StatusOK, fields)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	sess, err := s.ws.Generate(r.Context())
	var verr *promptform.ValidationError
	switch {
	case errors.As(err, &verr):
		missing := make([]string, 0, len(verr.Missing))
		for _, f := range verr.Missing {
			missing = append(missing, string(f))
		}
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: generation.MessageValidation, Missing: missing})
	case errors.Is(err, generation.ErrBusy):
		writeJSON(w, http.StatusConflict, toSessionView(sess))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, toSessionView(sess))
	}
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		raw, err := s.ws.SaveStyles()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}
		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.Header().Set("content-disposition", `attachment; filename="`+styles.FileName+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)

	case http.MethodPost:
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStyleFileBytes))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: session.MessageInvalidFile})
			return
		}
		report, err := s.ws.LoadStyles(raw)
		var perr *styles.ParseError
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusBadRequest, apiError{Error: session.MessageInvalidFile})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toImportResponse(report))

	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	}
}

func (s *Server) handleSnippet(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	snippet, err := s.ws.Snippet()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	w.Header().Set("content-type", "text/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, snippet)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}

	var (
		text string
		err  error
	)
	switch req.Target {
	case "snippet":
		text, err = s.ws.CopySnippet()
	case "result":
		text, err = s.ws.CopyResult()
	default:
		writeJSON(w, http.StatusBadRequest, apiError{Error: "target must be snippet or result"})
		return
	}

	switch {
	case errors.Is(err, session.ErrNoResult):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	s.ws.Reset()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) state() stateResponse {
	orch := s.ws.Orchestrator()
	resp := stateResponse{
		Record:     s.ws.Record(),
		Generation: orch.State().String(),
		Session:    toSessionView(orch.Snapshot()),
		LastResult: orch.Result(),
	}
	if n, ok := s.ws.Notifications().Session.Current(); ok {
		resp.Notification = &n
	}
	if n, ok := s.ws.Notifications().Toast.Current(); ok {
		resp.Toast = &n
	}
	return resp
}

func toSessionView(sess generation.Session) sessionView {
	v := sessionView{
		ID:       sess.ID,
		State:    sess.State.String(),
		Progress: sess.Progress,
		Percent:  sess.Percent(),
		Result:   sess.Result,
	}
	if sess.Err != nil {
		v.Error = generation.MessageFailed
	}
	return v
}

func toImportResponse(report styles.ImportReport) importResponse {
	out := importResponse{
		Applied: make([]string, 0, len(report.Applied)),
		Ignored: report.Ignored,
	}
	for _, f := range report.Applied {
		out.Applied = append(out.Applied, string(f))
	}
	if len(report.Skipped) > 0 {
		out.Skipped = make(map[string]string, len(report.Skipped))
		for _, sk := range report.Skipped {
			out.Skipped[string(sk.Field)] = sk.Err.Error()
		}
	}
	return out
}

func decodeField(w http.ResponseWriter, r *http.Request) (fieldRequest, bool) {
	var req fieldRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return req, false
	}
	if _, ok := promptform.ParseField(req.Field); !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown field: " + req.Field})
		return req, false
	}
	return req, true
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}

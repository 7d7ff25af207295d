package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/smartdoorlock/server/internal/doorlock/service"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

type Dependencies struct {
	Logger        *log.Logger
	Addr          string
	IngestService *service.IngestService
	OtpService    *service.OtpService
	QueryService  *service.QueryService
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	router     chi.Router
	ingest     *service.IngestService
	otp        *service.OtpService
	query      *service.QueryService
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger: d.Logger,
		ingest: d.IngestService,
		otp:    d.OtpService,
		query:  d.QueryService,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(loggingMiddleware(d.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	// Device boundary (write path).
	r.Post("/v1/access_records", s.handleRecordAccess)
	r.Post("/v1/otp/issue", s.handleIssueOtp)
	r.Post("/v1/otp/verify", s.handleVerifyOtp)

	// Dashboard boundary (read-only).
	r.Get("/v1/access_records", s.handleQueryAccessRecords)
	r.Get("/v1/otp_records", s.handleQueryOtpRecords)
	r.Get("/v1/devices", s.handleListDevices)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ── Device boundary ──────────────────────────────────────────────────────────

func (s *Server) handleRecordAccess(w http.ResponseWriter, r *http.Request) {
	var sub types.AccessSubmission
	if !decodeJSON(w, r, &sub) {
		return
	}

	id, err := s.ingest.RecordAccess(r.Context(), sub)
	if err != nil {
		s.writeWriteError(w, "access_records", err)
		return
	}

	writeJSON(w, http.StatusCreated, types.AccessAccepted{
		OK:         true,
		ID:         id,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleIssueOtp(w http.ResponseWriter, r *http.Request) {
	var req types.IssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.otp.Issue(r.Context(), req.DeviceID)
	if err != nil {
		s.writeWriteError(w, "otp issue", err)
		return
	}

	writeJSON(w, http.StatusCreated, types.IssueResponse{
		OK:        true,
		ID:        rec.ID,
		Otp:       rec.Otp,
		Status:    rec.Status.String(),
		ExpiresAt: rec.ExpiresAt.Format(time.RFC3339Nano),
	})
}

func (s *Server) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.otp.Verify(r.Context(), req.DeviceID, req.Code)
	if err != nil {
		s.writeWriteError(w, "otp verify", err)
		return
	}

	// A failed verification is an outcome, not a transport error.
	writeJSON(w, http.StatusOK, types.VerifyResponse{
		OK:         true,
		Verified:   res.Verified,
		Reason:     res.Reason,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// ── Dashboard boundary ───────────────────────────────────────────────────────

func (s *Server) handleQueryAccessRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var actionFilter *types.Action
	if raw := q.Get("action"); raw != "" {
		action, ok := types.ParseAction(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_action",
				"action must be one of PIN_ENTRY, TIMEOUT, MASTER_RESET")
			return
		}
		actionFilter = &action
	}

	recs, page, more, err := s.query.AccessRecords(
		r.Context(),
		q.Get("device_id"),
		actionFilter,
		intParam(q.Get("page")),
		intParam(q.Get("page_size")),
	)
	if err != nil {
		s.logger.Printf("access records query error: %v", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, accessRecordPage{
		OK:       true,
		Records:  accessRecordViews(recs),
		Page:     page.Number,
		PageSize: page.Size,
		More:     more,
	})
}

func (s *Server) handleQueryOtpRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	recs, page, more, err := s.query.OtpRecords(
		r.Context(),
		intParam(q.Get("page")),
		intParam(q.Get("page_size")),
	)
	if err != nil {
		s.logger.Printf("otp records query error: %v", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, otpRecordPage{
		OK:       true,
		Records:  otpRecordViews(recs),
		Page:     page.Number,
		PageSize: page.Size,
		More:     more,
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.query.Devices(r.Context())
	if err != nil {
		s.logger.Printf("devices query error: %v", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, devicePage{OK: true, Devices: deviceViews(devices)})
}

// ── Shared plumbing ──────────────────────────────────────────────────────────

// writeWriteError maps write-path failures for the device boundary:
// validation problems are the device's fault (400), anything else means
// the ledger could not take the write (503, device should retry).
func (s *Server) writeWriteError(w http.ResponseWriter, op string, err error) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "validation_error", verr.Error())
		return
	}
	s.logger.Printf("%s error: %v", op, err)
	writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "could not persist, retry later")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

// intParam parses a positive query parameter, treating anything
// malformed as unset so the query service applies its defaults.
func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	OK      bool   `json:"ok"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{OK: false, Code: code, Message: message})
}

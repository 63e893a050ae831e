package receiver

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxFormBytes = 1 << 20

// HTTPHandler accepts echoprint ingest posts and keeps them in a Log.
type HTTPHandler struct {
	log         *Log
	logger      *zap.Logger
	decodeCodes bool
	now         func() time.Time
	router      chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes. With
// decodeCodes set, posts whose code does not inflate to a fingerprint are
// rejected.
func NewHTTPHandler(log *Log, logger *zap.Logger, decodeCodes bool) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTPHandler{
		log:         log,
		logger:      logger,
		decodeCodes: decodeCodes,
		now:         time.Now,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/ingest", h.handleIngest)
	r.Get("/submissions", h.handleList)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	sub := Submission{
		Code:    r.PostForm.Get("code"),
		Version: r.PostForm.Get("version"),
		Length:  r.PostForm.Get("length"),
		Artist:  r.PostForm.Get("artist"),
		Track:   r.PostForm.Get("track"),
	}
	if !valid(sub) {
		h.logger.Warn("rejected ingest",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("code_bytes", len(sub.Code)),
			zap.String("version", sub.Version),
			zap.String("length", sub.Length),
		)
		writeError(w, http.StatusBadRequest, "missing or invalid required fields")
		return
	}

	if h.decodeCodes {
		fp, err := DecodeCode(sub.Code)
		if err != nil {
			h.logger.Warn("rejected ingest code",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusBadRequest, "invalid code")
			return
		}
		sub.Codes = len(fp.Codes)
	}

	sub.ID = uuid.NewString()
	sub.ReceivedAt = h.now().UTC()
	h.log.Append(sub)

	h.logger.Info("ingest accepted",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("track_id", sub.ID),
		zap.String("artist", sub.Artist),
		zap.String("track", sub.Track),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"track_id": sub.ID,
		"track":    sub.Track,
		"artist":   sub.Artist,
	})
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.log.List())
}

// valid applies the echoprint server's ingest checks: a code, a version
// four UTF-16 units long and a length with a leading integer.
func valid(s Submission) bool {
	if s.Code == "" || utf16Len(s.Version) != 4 {
		return false
	}
	_, ok := leadingInt(s.Length)
	return ok
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// leadingInt parses like JavaScript's parseInt(s, 10): leading white space
// is skipped, an optional sign is read, then as many decimal digits as
// follow. Anything after the digits is ignored.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// out of int64 range, still a number to parseInt
		n = math.MaxInt64
	}
	if neg {
		n = -n
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/apperr"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/security"
)

// maxBodyBytes caps request bodies; every text field is bounded well below this
const maxBodyBytes = 64 << 10

func clientFrom(r *http.Request) core.Client {
	return core.Client{
		ID:     security.ClientIP(r.Header),
		Secure: security.IsHTTPS(r.Header),
	}
}

// decode reads a JSON body into v
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(err, apperr.CategoryValidation, core.CodeInvalidInput, "Corps de requête invalide")
	}
	return nil
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decode(w, r, &fields); err != nil {
		s.writeError(w, r, RouteIntent, err)
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}

	result, err := s.gateway.ClassifyIntent(r.Context(), clientFrom(r), fields)
	if err != nil {
		s.writeError(w, r, RouteIntent, err)
		return
	}

	s.metrics.RecordIntentSource(string(result.Source))
	s.logger.Info("Intent classified",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("mission", string(result.Mission)),
		zap.String("source", string(result.Source)))
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImprove(w http.ResponseWriter, r *http.Request) {
	var req core.ImproveRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, RouteImprove, err)
		return
	}

	result, err := s.gateway.ImproveText(r.Context(), clientFrom(r), req)
	if err != nil {
		s.writeError(w, r, RouteImprove, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req core.SummaryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, RouteSummary, err)
		return
	}

	result, err := s.gateway.Summarize(r.Context(), clientFrom(r), req)
	if err != nil {
		s.writeError(w, r, RouteSummary, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"llmConfigured": s.gateway.LLMConfigured(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := apperr.HTTPStatus(err)
	wire := apperr.WireFrom(err)

	fields := []zap.Field{
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("endpoint", endpoint),
		zap.String("client_id", security.ClientIP(r.Header)),
		zap.String("reason", wire.Error),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields...)
	} else {
		s.logger.Info("Request rejected", fields...)
	}
	s.metrics.RecordRejection(endpoint, wire.Error)

	if e, ok := apperr.As(err); ok && e.RetryAfter() > 0 {
		secs := int(math.Ceil(e.RetryAfter().Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	s.writeJSON(w, status, wire)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

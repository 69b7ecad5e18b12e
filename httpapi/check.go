package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/distlimit/distlimit"
)

type checkRequest struct {
	Key      string `json:"key"`
	Tokens   int    `json:"tokens"`
	ClientIP string `json:"clientIp,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

type checkMetadata struct {
	Key            string `json:"key"`
	MatchedPattern string `json:"matchedPattern,omitempty"`
	LatencyMicros  int64  `json:"latencyMicros"`
}

type checkResponse struct {
	Allowed           bool          `json:"allowed"`
	RemainingTokens   int           `json:"remainingTokens"`
	ResetTime         time.Time     `json:"resetTime"`
	RetryAfterSeconds *int          `json:"retryAfterSeconds,omitempty"`
	Algorithm         string        `json:"algorithm"`
	Metadata          checkMetadata `json:"metadata"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Tokens <= 0 {
		writeError(w, http.StatusBadRequest, distlimit.NewInvalidInputError("tokens", "must be >= 1"))
		return
	}
	if err := distlimit.ValidateBucketKey(req.Key); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.orchestrator.Check(r.Context(), req.Key, req.Tokens)
	if err != nil {
		s.logger.Error("check failed", "requestId", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := checkResponse{
		Allowed:         result.Allowed,
		RemainingTokens: result.Remaining,
		ResetTime:       result.ResetAt,
		Algorithm:       string(result.Algorithm),
		Metadata: checkMetadata{
			Key:            result.Key,
			MatchedPattern: result.MatchedPattern,
			LatencyMicros:  result.LatencyMicros,
		},
	}

	if !result.Allowed {
		retryAfter := int(result.RetryAfter.Seconds())
		resp.RetryAfterSeconds = &retryAfter
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", result.ResetAt.Format(time.RFC3339))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

var errMissingKeyParam = errors.New("httpapi: missing required 'key' query parameter")

// bucketPrefixes enumerates the shared namespace's key prefixes (§6's
// store key layout), used for the admin listing and stats endpoints, which
// have no narrower scope to search within.
var bucketPrefixes = []string{
	"ratelimit:bucket:",
	"ratelimit:sliding:",
	"ratelimit:swc:",
	"ratelimit:fixed:",
	"ratelimit:leaky:",
	"config:key:",
	"config:pattern:",
}

const defaultAdminKeysLimit = 100

type keyDescriptorBody struct {
	Key string        `json:"key"`
	TTL time.Duration `json:"ttlSeconds"`
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	limit := defaultAdminKeysLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	out := make([]keyDescriptorBody, 0, limit)
	for _, prefix := range bucketPrefixes {
		if len(out) >= limit {
			break
		}
		descs, err := s.store.Scan(r.Context(), prefix)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		for _, d := range descs {
			if len(out) >= limit {
				break
			}
			out = append(out, keyDescriptorBody{Key: d.Key, TTL: d.TTL / time.Second})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int, len(bucketPrefixes))
	for _, prefix := range bucketPrefixes {
		descs, err := s.store.Scan(r.Context(), prefix)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		counts[prefix] = len(descs)
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, errMissingKeyParam)
		return
	}
	if err := s.store.Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteKeyPattern(w http.ResponseWriter, r *http.Request) {
	pattern := r.PathValue("pattern")
	descs, err := s.store.Scan(r.Context(), pattern)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	keys := make([]string, len(descs))
	for i, d := range descs {
		keys[i] = d.Key
	}
	if len(keys) > 0 {
		if err := s.store.Delete(r.Context(), keys...); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.resolver.ClearCache()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health == nil || s.health.Healthy() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
}

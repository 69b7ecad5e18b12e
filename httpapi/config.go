package httpapi

import (
	"net/http"
	"time"

	"github.com/distlimit/distlimit"
	"github.com/distlimit/distlimit/resolver"
	"github.com/distlimit/distlimit/strategies"
)

type configBody struct {
	Algorithm           string  `json:"algorithm"`
	Capacity            int     `json:"capacity"`
	RefillRate          float64 `json:"refillRate"`
	RefillPeriodSeconds int     `json:"refillPeriodSeconds"`
	Priority            int     `json:"priority,omitempty"`
	KeyPattern          string  `json:"keyPattern,omitempty"`
	CreatedAt           time.Time `json:"createdAt,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt,omitempty"`
}

func toConfigBody(cfg resolver.Config) configBody {
	return configBody{
		Algorithm:           string(cfg.Algorithm),
		Capacity:            cfg.Capacity,
		RefillRate:          cfg.RefillRate,
		RefillPeriodSeconds: cfg.RefillPeriodSeconds,
		Priority:            cfg.Priority,
		KeyPattern:          cfg.KeyPattern,
		CreatedAt:           cfg.CreatedAt,
		UpdatedAt:           cfg.UpdatedAt,
	}
}

func (b configBody) toResolverConfig() resolver.Config {
	return resolver.Config{
		Algorithm:           strategies.AlgorithmTag(b.Algorithm),
		Capacity:            b.Capacity,
		RefillRate:          b.RefillRate,
		RefillPeriodSeconds: b.RefillPeriodSeconds,
		Priority:            b.Priority,
	}
}

func (s *Server) handleGetKeyConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := distlimit.ValidateBucketKey(key); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := s.resolver.GetConfig(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigBody(cfg))
}

func (s *Server) handleSaveKeyConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := distlimit.ValidateBucketKey(key); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body configBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.resolver.SaveKeyConfig(r.Context(), key, body.toResolverConfig()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleDeleteKeyConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.resolver.DeleteKeyConfig(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSavePatternConfig(w http.ResponseWriter, r *http.Request) {
	pat := r.PathValue("pattern")
	if err := distlimit.ValidateKeyPattern(pat); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body configBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.resolver.SavePatternConfig(r.Context(), pat, body.toResolverConfig()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleDeletePatternConfig(w http.ResponseWriter, r *http.Request) {
	pat := r.PathValue("pattern")
	if err := s.resolver.DeletePatternConfig(r.Context(), pat); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := s.resolver.GetAllPatterns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]configBody, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, toConfigBody(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.resolver.ReloadConfigurations(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/depgraph/pkg/buildinfo"
	"github.com/matzehuels/depgraph/pkg/deps"
	"github.com/matzehuels/depgraph/pkg/errors"
	"github.com/matzehuels/depgraph/pkg/version"
)

const (
	msgResolved = "Dependencies resolved."
	msgNotFound = "Package was not found."
	msgInternal = "Dependencies could not be resolved."
)

type envelope struct {
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}

type packageRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	ref, err := packageFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: errors.UserMessage(err), Payload: ref})
		return
	}

	// Detached: coalesced callers share this run. The resolver's budget
	// still bounds it.
	ctx := context.WithoutCancel(r.Context())
	v, err, shared := s.inflight.Do(ref.Name+"@"+ref.Version, func() (any, error) {
		return s.resolver.Resolve(ctx, ref.Name, ref.Version)
	})
	if err != nil {
		s.writeResolveError(w, r, ref, err)
		return
	}

	res := v.(*deps.Result)
	w.Header().Set("X-Run-Id", res.RunID)
	if shared {
		s.logger.Debug("shared resolution", "package", ref.Name, "version", ref.Version, "run", res.RunID)
	}
	writeJSON(w, http.StatusOK, envelope{Message: msgResolved, Payload: res.Tree})
}

func (s *Server) writeResolveError(w http.ResponseWriter, r *http.Request, ref packageRef, err error) {
	switch code := errors.GetCode(err); {
	case code == errors.ErrCodeRootNotFound:
		writeJSON(w, http.StatusNotFound, envelope{Message: msgNotFound, Payload: ref})
	case code.Input():
		writeJSON(w, http.StatusBadRequest, envelope{Message: errors.UserMessage(err), Payload: ref})
	default:
		s.logger.Error("resolve failed", "package", ref.Name, "version", ref.Version,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Message: msgInternal, Payload: ref})
	}
}

// packageFromRequest reads name and version from the route. Parameters may
// arrive percent-encoded ("@types%2Fnode"), and a scope segment must start
// with "@".
func packageFromRequest(r *http.Request) (packageRef, error) {
	param := func(key string) (string, error) {
		raw := chi.URLParam(r, key)
		v, err := url.PathUnescape(raw)
		if err != nil {
			return raw, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed %s %q", key, raw)
		}
		return v, nil
	}

	name, err := param("name")
	if err != nil {
		return packageRef{Name: name}, err
	}
	ver, err := param("version")
	if err != nil {
		return packageRef{Name: name, Version: ver}, err
	}
	scope, err := param("scope")
	if err != nil {
		return packageRef{Name: name, Version: ver}, err
	}
	if ver == "" {
		ver = version.Latest
	}

	if scope != "" {
		if !strings.HasPrefix(scope, "@") {
			return packageRef{Name: scope + "/" + name, Version: ver},
				errors.New(errors.ErrCodeInvalidPackage, "scope must start with @: %q", scope)
		}
		name = scope + "/" + name
	}

	ref := packageRef{Name: name, Version: ver}
	if err := errors.ValidatePackageName(name); err != nil {
		return ref, err
	}
	return ref, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

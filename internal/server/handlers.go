package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/BerryBytes/awsbridge/internal/auth"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/console"
	"github.com/BerryBytes/awsbridge/internal/profile"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/BerryBytes/awsbridge/models"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
)

var (
	profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	regionPattern      = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)
)

type errorResponse struct {
	Action  string `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Action: "error", Code: code, Message: message})
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "rateLimited", "too many failed attempts")
		return
	}
	writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing API token")
}

// mapError converts internal failures into client-safe responses. The
// full error stays server-side; only generic text crosses the channel.
func mapError(err error) (int, string, string) {
	var federationErr *console.FederationError
	switch {
	case errors.Is(err, console.ErrProfileNotFound):
		return http.StatusNotFound, "profileNotFound", "profile not found"
	case errors.Is(err, ssocache.ErrTokenExpired):
		return http.StatusForbidden, "ssoTokenExpired", "SSO session expired - run aws sso login"
	case errors.As(err, &federationErr):
		return http.StatusBadGateway, "federationError", "federation request failed"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "badRequest", "invalid request"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

var errBadRequest = errors.New("bad request")

type operationFunc func(ctx context.Context, r *http.Request) (any, error)

// timed runs an operation under its timeout budget, converting
// expiry into a TimedOut response without blocking the dispatcher.
// Panics are caught, logged with context, and answered generically.
func (s *Server) timed(budget time.Duration, op operationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), budget)
		defer cancel()

		type outcome struct {
			payload any
			err     error
		}
		done := make(chan outcome, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					logrus.WithFields(logrus.Fields{
						"path":  r.URL.Path,
						"panic": p,
					}).Error("Handler panicked")
					done <- outcome{err: errors.New("handler panicked")}
				}
			}()
			payload, err := op(ctx, r)
			done <- outcome{payload: payload, err: err}
		}()

		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"budget": budget.String(),
			}).Error("Operation timed out")
			writeError(w, http.StatusGatewayTimeout, "timeout", "operation timed out")
		case result := <-done:
			if result.err != nil {
				status, code, message := mapError(result.err)
				logrus.WithError(result.err).WithField("path", r.URL.Path).Warn("Operation failed")
				writeError(w, status, code, message)
				return
			}
			writeJSON(w, http.StatusOK, result.payload)
		}
	}
}

type profilesResponse struct {
	Action   string           `json:"action"`
	Profiles []models.Profile `json:"profiles"`
}

func (s *Server) handleProfiles(_ context.Context, _ *http.Request) (any, error) {
	profiles, err := s.profiles.Profiles(profile.Options{EnrichSSO: false})
	if err != nil {
		return nil, err
	}
	return profilesResponse{Action: "profiles", Profiles: profiles}, nil
}

func (s *Server) handleEnrich(_ context.Context, _ *http.Request) (any, error) {
	profiles, err := s.profiles.Profiles(profile.Options{EnrichSSO: true})
	if err != nil {
		return nil, err
	}
	return profilesResponse{Action: "ssoProfiles", Profiles: profiles}, nil
}

type consoleURLResponse struct {
	Action string `json:"action"`
	URL    string `json:"url"`
	Color  string `json:"color"`
	Icon   string `json:"icon"`
}

func (s *Server) handleConsoleURL(ctx context.Context, r *http.Request) (any, error) {
	name := mux.Vars(r)["name"]
	if !profileNamePattern.MatchString(name) {
		return nil, errBadRequest
	}

	region := r.URL.Query().Get("region")
	if region == "" {
		var body struct {
			Region string `json:"region"`
		}
		// Body is optional; region may also arrive as a query parameter.
		_ = json.NewDecoder(r.Body).Decode(&body)
		region = body.Region
	}
	if region != "" && !regionPattern.MatchString(region) {
		return nil, errBadRequest
	}

	consoleURL, err := s.console.ConsoleURL(ctx, name, region)
	if err != nil {
		return nil, err
	}

	tagged := models.Profile{Name: name}
	s.metadata.Apply(&tagged)
	return consoleURLResponse{
		Action: "consoleUrl",
		URL:    consoleURL,
		Color:  tagged.Color,
		Icon:   tagged.Icon,
	}, nil
}

func (s *Server) handleOpenURL(_ context.Context, r *http.Request) (any, error) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		return nil, errBadRequest
	}
	if err := ValidateExternalURL(body.URL); err != nil {
		logrus.WithError(err).Warn("Rejected external URL")
		return nil, errBadRequest
	}

	if err := s.opener.Open(body.URL); err != nil {
		return nil, err
	}
	return map[string]string{"action": "urlOpened", "url": body.URL}, nil
}

func (s *Server) handleRegions(ctx context.Context, _ *http.Request) (any, error) {
	catalog, err := s.regions.Regions(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"action": "regions", "regions": catalog}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"action":         "health",
		"status":         "healthy",
		"version":        config.Version,
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
		"pid":            os.Getpid(),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			payload["rss_bytes"] = mem.RSS
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BerryBytes/awsbridge/internal/auth"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/profile"
	"github.com/BerryBytes/awsbridge/internal/regions"
	"github.com/BerryBytes/awsbridge/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ProfileSource lists profiles; satisfied by profile.Aggregator.
type ProfileSource interface {
	Profiles(opts profile.Options) ([]models.Profile, error)
}

// ConsoleURLSource generates console URLs; satisfied by console.Generator.
type ConsoleURLSource interface {
	ConsoleURL(ctx context.Context, profileName, region string) (string, error)
}

// RegionSource lists the region catalog; satisfied by regions.Catalog.
type RegionSource interface {
	Regions(ctx context.Context) ([]regions.Region, error)
}

// Server is the loopback HTTP dispatcher in front of the bridge. It
// authenticates every request except health, applies a per-operation
// timeout budget, and translates internal failures into structured,
// non-leaking error responses.
type Server struct {
	settings   *config.Settings
	auth       *auth.Authenticator
	profiles   ProfileSource
	console    ConsoleURLSource
	regions    RegionSource
	metadata   *profile.MetadataProvider
	opener     URLOpener
	startedAt  time.Time
	httpServer *http.Server
}

func New(
	settings *config.Settings,
	authenticator *auth.Authenticator,
	profiles ProfileSource,
	console ConsoleURLSource,
	regionCatalog RegionSource,
	metadata *profile.MetadataProvider,
	opener URLOpener,
) *Server {
	s := &Server{
		settings:  settings,
		auth:      authenticator,
		profiles:  profiles,
		console:   console,
		regions:   regionCatalog,
		metadata:  metadata,
		opener:    opener,
		startedAt: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         settings.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: settings.EnrichTimeout + 5*time.Second,
	}
	return s
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogging)
	r.Use(corsHeaders)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/profiles", s.authed(s.timed(s.settings.ProfilesTimeout, s.handleProfiles))).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/profiles/enrich", s.authed(s.timed(s.settings.EnrichTimeout, s.handleEnrich))).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/profiles/{name}/console-url", s.authed(s.timed(s.settings.ConsoleTimeout, s.handleConsoleURL))).
		Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/open-url", s.authed(s.timed(s.settings.ProfilesTimeout, s.handleOpenURL))).
		Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/regions", s.authed(s.timed(s.settings.EnrichTimeout, s.handleRegions))).
		Methods(http.MethodGet, http.MethodOptions)
	return r
}

// Run serves until ctx is canceled, then drains in-flight requests
// before returning. Requests mid-federation-call are never abandoned.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.httpServer.Addr).Info("Bridge API listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down, draining in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.EnrichTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

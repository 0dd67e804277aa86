package nativemsg

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/console"
	"github.com/BerryBytes/awsbridge/internal/profile"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/BerryBytes/awsbridge/models"
	"github.com/sirupsen/logrus"
)

// Action is the closed set of operations the stdio channel carries.
type Action string

const (
	ActionGetProfiles Action = "getProfiles"
	ActionEnrichSSO   Action = "enrichSSOProfiles"
	ActionOpenProfile Action = "openProfile"
)

// Request is one browser-originated message.
type Request struct {
	Action      Action `json:"action"`
	ProfileName string `json:"profileName,omitempty"`
	Region      string `json:"region,omitempty"`
}

// ProfileSource lists profiles; satisfied by profile.Aggregator.
type ProfileSource interface {
	Profiles(opts profile.Options) ([]models.Profile, error)
}

// ConsoleURLSource generates console URLs; satisfied by console.Generator.
type ConsoleURLSource interface {
	ConsoleURL(ctx context.Context, profileName, region string) (string, error)
}

// Host speaks the browser native messaging protocol over a pipe pair.
// The browser spawns this process per extension session, so requests
// arrive strictly sequentially; authentication rides on the process
// ancestry rather than a bearer token.
type Host struct {
	In       io.Reader
	Out      io.Writer
	Profiles ProfileSource
	Console  ConsoleURLSource
	Metadata *profile.MetadataProvider
	Settings *config.Settings
}

// Run reads frames until EOF or ctx cancellation. Responses mirror
// the HTTP dispatcher's action-tagged shapes.
func (h *Host) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var req Request
		if err := ReadFrame(h.In, &req); err != nil {
			if errors.Is(err, io.EOF) {
				logrus.Info("Input stream closed, exiting")
				return nil
			}
			logrus.WithError(err).Error("Unreadable frame, exiting")
			return err
		}

		response := h.dispatch(ctx, &req)
		if err := WriteFrame(h.Out, response); err != nil {
			return err
		}
	}
}

func (h *Host) dispatch(ctx context.Context, req *Request) any {
	switch req.Action {
	case ActionGetProfiles:
		return h.run(ctx, h.Settings.ProfilesTimeout, func(ctx context.Context) (any, error) {
			return h.listProfiles(profile.Options{EnrichSSO: false}, "profiles")
		})
	case ActionEnrichSSO:
		return h.run(ctx, h.Settings.EnrichTimeout, func(ctx context.Context) (any, error) {
			return h.listProfiles(profile.Options{EnrichSSO: true}, "ssoProfiles")
		})
	case ActionOpenProfile:
		return h.run(ctx, h.Settings.ConsoleTimeout, func(ctx context.Context) (any, error) {
			return h.openProfile(ctx, req.ProfileName, req.Region)
		})
	default:
		logrus.WithField("action", req.Action).Warn("Unknown action")
		return errorMessage("unknown action")
	}
}

// run applies the operation's timeout budget and converts failures
// into generic error frames; detail stays in the log.
func (h *Host) run(ctx context.Context, budget time.Duration, op func(context.Context) (any, error)) any {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		payload any
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logrus.WithField("panic", p).Error("Handler panicked")
				done <- outcome{err: errors.New("handler panicked")}
			}
		}()
		payload, err := op(ctx)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case <-ctx.Done():
		logrus.WithField("budget", budget.String()).Error("Operation timed out")
		return errorMessage("operation timed out")
	case result := <-done:
		if result.err != nil {
			logrus.WithError(result.err).Warn("Operation failed")
			return errorMessage(clientMessage(result.err))
		}
		return result.payload
	}
}

func (h *Host) listProfiles(opts profile.Options, action string) (any, error) {
	profiles, err := h.Profiles.Profiles(opts)
	if err != nil {
		return nil, err
	}
	return map[string]any{"action": action, "profiles": profiles}, nil
}

func (h *Host) openProfile(ctx context.Context, profileName, region string) (any, error) {
	if profileName == "" {
		return nil, errors.New("missing profileName")
	}

	url, err := h.Console.ConsoleURL(ctx, profileName, region)
	if err != nil {
		return nil, err
	}

	tagged := models.Profile{Name: profileName}
	h.Metadata.Apply(&tagged)
	return map[string]any{
		"action":      "openUrl",
		"profileName": profileName,
		"url":         url,
		"color":       tagged.Color,
		"icon":        tagged.Icon,
	}, nil
}

func errorMessage(message string) map[string]string {
	return map[string]string{"action": "error", "message": message}
}

func clientMessage(err error) string {
	var federationErr *console.FederationError
	switch {
	case errors.Is(err, console.ErrProfileNotFound):
		return "profile not found"
	case errors.Is(err, ssocache.ErrTokenExpired):
		return "SSO session expired - run aws sso login"
	case errors.As(err, &federationErr):
		return "federation request failed"
	default:
		return "internal error"
	}
}

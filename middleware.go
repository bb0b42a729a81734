package sqlreplay

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
)

// MiddlewareConfig is the configuration passed to Middleware.
type MiddlewareConfig struct {
	// Registry scopes are opened on. This is a required field and cannot be
	// nil.
	Registry *Registry
	// Prefix of cache names derived from request paths. Defaults to "http".
	Prefix string
	// Name optionally overrides how a request maps to a cache name.
	Name func(r *http.Request) string
	// SeedRandom attaches a *rand.Rand seeded from the cache name and
	// discriminator to each request context; see Rand.
	SeedRandom bool
	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

type randKey struct{}

// Rand returns the pseudo-random source attached to ctx by a Middleware
// configured with SeedRandom. Without one it returns a time-seeded source.
// Application code which samples or shuffles should draw from Rand so that
// recording and replaying runs make the same choices.
func Rand(ctx context.Context) *rand.Rand {
	if r, ok := ctx.Value(randKey{}).(*rand.Rand); ok {
		return r
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Middleware returns an HTTP middleware which runs every request inside a
// scope of config.Registry. The cache name is derived from the request path
// and the discriminator from its query parameters. Requests are expected to
// be served one at a time: a request arriving while another scope is open
// fails with 500.
func Middleware(config *MiddlewareConfig) (func(http.Handler) http.Handler, error) {
	if config == nil {
		return nil, fmt.Errorf("config can't be nil")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("registry must be set in MiddlewareConfig")
	}

	cfg := *config
	if cfg.Prefix == "" {
		cfg.Prefix = "http"
	}
	if cfg.Name == nil {
		cfg.Name = func(r *http.Request) string {
			return path.Join(cfg.Prefix, path.Clean("/"+r.URL.Path))
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := cfg.Name(r)
			logger := cfg.Logger.WithFields(log.Fields{"name": name, "path": r.URL.Path})

			disc, err := Discriminator(r.URL.Query())
			if err != nil {
				logger.WithField("err", err).Error("failed to hash query parameters")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			ctx := r.Context()
			if cfg.SeedRandom {
				seed, err := seedFor(name, disc)
				if err != nil {
					logger.WithField("err", err).Error("failed to derive random seed")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				ctx = context.WithValue(ctx, randKey{}, rand.New(rand.NewSource(seed)))
			}

			var served bool
			err = cfg.Registry.Use(ctx, name, disc, func(ctx context.Context) error {
				served = true
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				logger.WithField("err", err).Error("query cache scope failed")
				if !served {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
		})
	}, nil
}

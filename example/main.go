package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/prashanthpai/sqlreplay"

	"github.com/dgraph-io/ristretto"
	redis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	defaultMaxCachedEntries = 10000
)

type book struct {
	Name  string `db:"name" json:"name"`
	Pages int    `db:"pages" json:"pages"`
}

func newFileStore(root string) (*sqlreplay.Ristretto, error) {
	// cost is the number of fixture entries
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10 * defaultMaxCachedEntries,
		MaxCost:            defaultMaxCachedEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return sqlreplay.NewRistretto(c, sqlreplay.NewFileStore(afero.NewOsFs(), root, nil)), nil
}

func newRedisStore(addr string) (*sqlreplay.Redis, error) {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})

	if _, err := r.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	return sqlreplay.NewRedis(r, "sqr:", nil), nil
}

func main() {
	var (
		dsn       = flag.String("dsn", "host=127.0.0.1 port=5432 user=postgres dbname=postgres sslmode=disable", "postgres DSN")
		root      = flag.String("fixtures", "testdata/fixtures", "directory holding fixtures")
		redisAddr = flag.String("redis", "", "keep fixtures in redis at this address instead of files")
		listen    = flag.String("listen", "127.0.0.1:8080", "address to serve on")
	)
	flag.Parse()

	cfg := &sqlreplay.Config{}
	if *redisAddr != "" {
		store, err := newRedisStore(*redisAddr)
		if err != nil {
			log.WithField("err", err).Fatal("newRedisStore() failed")
		}
		cfg.Store = store
	} else {
		store, err := newFileStore(*root)
		if err != nil {
			log.WithField("err", err).Fatal("newFileStore() failed")
		}
		cfg.Store = store
	}

	registry, err := sqlreplay.NewRegistry(cfg)
	if err != nil {
		log.WithField("err", err).Fatal("sqlreplay.NewRegistry() failed")
	}

	interceptor, err := sqlreplay.NewInterceptor(&sqlreplay.InterceptorConfig{
		Registry: registry,
		OnError: func(err error) {
			log.WithField("err", err).Warn("replay failed")
		},
	})
	if err != nil {
		log.WithField("err", err).Fatal("sqlreplay.NewInterceptor() failed")
	}

	defer func() {
		fmt.Printf("\nInterceptor metrics: %+v\n", interceptor.Stats())
	}()

	// install the wrapper which wraps pgx driver
	sql.Register("pgx-sqlreplay", interceptor.Driver(stdlib.GetDefaultDriver()))

	if err := run(registry, *dsn, *listen); err != nil {
		log.WithField("err", err).Error("run() failed")
	}
}

func run(registry *sqlreplay.Registry, dsn, listen string) error {
	db, err := sqlx.Open("pgx-sqlreplay", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	// requests share one current scope, so serve them one at a time
	db.SetMaxOpenConns(1)

	middleware, err := sqlreplay.Middleware(&sqlreplay.MiddlewareConfig{
		Registry:   registry,
		SeedRandom: true,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/books", middleware(booksHandler(db)))

	srv := &http.Server{
		Addr:              listen,
		Handler:           serialize(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.WithField("addr", listen).Info("serving")
	return srv.ListenAndServe()
}

func booksHandler(db *sqlx.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var books []book
		err := db.SelectContext(r.Context(), &books, `
			-- @replay-as hash
			SELECT name, pages FROM books WHERE pages > $1`, 10)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// pick a "book of the day" the same way on every replay
		var featured *book
		if len(books) > 0 {
			featured = &books[sqlreplay.Rand(r.Context()).Intn(len(books))]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(map[string]interface{}{
			"books":    books,
			"featured": featured,
		})
	})
}

// serialize lets one request at a time through to h.
func serialize(h http.Handler) http.Handler {
	sem := make(chan struct{}, 1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sem <- struct{}{}
		defer func() { <-sem }()
		h.ServeHTTP(w, r)
	})
}

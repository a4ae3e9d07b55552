package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/knowr/games/knowr"
	"github.com/Seednode/knowr/storage"
	"github.com/julienschmidt/httprouter"
)

const (
	logDate  string        = `2006-01-02T15:04:05.000-07:00`
	timeout  time.Duration = 10 * time.Second
	gamePath string        = "/knowr"
)

type stateStore interface {
	knowr.Store
	io.Closer
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; img-src 'self' data:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("knowr v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// openStore returns the SQLite store at cfg.db, or an in-memory store when
// no database path is configured.
func openStore(cfg *Config) (stateStore, error) {
	if cfg.db == "" {
		logf(cfg, "STORE: No database configured, players and scores will not survive a restart")

		return storage.NewMemory(), nil
	}

	store, err := storage.OpenSQLite(cfg.db)
	if err != nil {
		return nil, err
	}

	logf(cfg, "STORE: Using %s", cfg.db)

	return store, nil
}

// newSession builds the game session and restores any saved players and
// scores into it before anything can be served.
func newSession(ctx context.Context, cfg *Config, catalog knowr.Catalog, gateway *knowr.Gateway) *knowr.Session {
	session := knowr.NewSession(catalog,
		knowr.WithMaxRounds(cfg.rounds),
		knowr.WithSnapshotSink(gateway.Save),
	)

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if snap, ok := gateway.Load(loadCtx); ok {
		session.Restore(snap)
		logf(cfg, "STORE: Restored %d players", len(session.Players()))
	}

	return session
}

func newRouter(cfg *Config, hub *Hub, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/", serveHomePage(cfg))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerKnowrGame(cfg, gamePath, hub, mux, errs)

	return mux
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: knowr v%s", releaseVersion)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	catalog, err := loadCatalog(cfg.catalog)
	if err != nil {
		return err
	}

	logf(cfg, "START: Loaded %d prompts, %d rounds per game", catalog.Len(), cfg.rounds)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	gateway := knowr.NewGateway(store, errorf)

	hub := newHub(newSession(ctx, cfg, catalog, gateway))
	go hub.run(ctx, cfg)

	errs := make(chan error, 64)
	go drainErrors(errs)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, hub, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			logf(cfg, "SERVE: Listening on %s://%s%s%s", cfg.scheme(), srv.Addr, cfg.prefix, gamePath)
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			logf(cfg, "SERVE: Listening on %s://%s%s%s", cfg.scheme(), srv.Addr, cfg.prefix, gamePath)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorf("%v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return shutdown(shutdownCtx, srv, hub, gateway)
}

// shutdown stops the server, then waits for the hub to apply its last
// intent before flushing state, so no save arrives after the gateway closes.
func shutdown(ctx context.Context, srv *http.Server, hub *Hub, gateway *knowr.Gateway) error {
	_ = srv.Shutdown(ctx)

	select {
	case <-hub.done:
	case <-ctx.Done():
		return fmt.Errorf("wait for game loop: %w", ctx.Err())
	}

	if err := gateway.Close(ctx); err != nil {
		return fmt.Errorf("flush state: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solvefy/solvefy/internal/auth"
	"github.com/solvefy/solvefy/internal/handler"
	appI18n "github.com/solvefy/solvefy/internal/i18n"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/session"
	"github.com/solvefy/solvefy/internal/store"
)

const sessionCleanupInterval = time.Hour

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "solvefy",
		Short:        "Homework Q&A service for the Vietnamese school curriculum",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), checkCmd(), exportCmd(), userCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `solvefy --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// storeFlags registers the flags every command needs to open the store.
func storeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("backend", "file", "Storage backend (file, sqlite)")
	f.String("data-dir", "data", "Directory of the JSON collection files (file backend)")
	f.String("db", "solvefy.db", "SQLite database path (sqlite backend)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	storeFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("redis-url", "", "Redis URL for auth sessions (empty keeps sessions in the store)")
	f.String("jwt-secret", "", "HMAC secret for bearer tokens (or set SOLVEFY_JWT_SECRET)")
	f.Duration("session-ttl", auth.DefaultTTL, "Lifetime of a login session")
	f.Bool("trust-client-identity", false, "Let requests without a token act as the userId they send")
	f.StringP("lang", "l", "vi", "Default response language (vi, en)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /api)")
	f.String("base-url", "", "Public origin used in the sitemap (e.g. https://solvefy.vn)")
	f.String("admin-password", "", "Initial admin password (or set SOLVEFY_ADMIN_PASSWORD)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SOLVEFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("solvefy")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/solvefy")
	v.AddConfigPath("/etc/solvefy")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	st, err := store.Open(ctx, v.GetString("backend"), v.GetString("data-dir"), v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(ctx, st, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	checks := map[string]func(context.Context) error{}
	var sessions session.Store
	if url := v.GetString("redis-url"); url != "" {
		client, err := session.Dial(ctx, url)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		rs := session.NewRedisStore(client)
		checks["redis"] = rs.Ping
		sessions = rs
		slog.Info("auth sessions in redis")
	} else {
		sessions = session.NewCollectionStore(st)
		go cleanupSessions(ctx, st)
	}

	secret := v.GetString("jwt-secret")
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("no jwt-secret configured, using a random one; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: secret,
		TTL:    v.GetDuration("session-ttl"),
	})
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}

	h, err := handler.New(st, auth.NewAuthenticator(st, sessions, tokens), handler.Config{
		BasePath:            v.GetString("base-path"),
		BaseURL:             v.GetString("base-url"),
		TrustClientIdentity: v.GetBool("trust-client-identity"),
		Checks:              checks,
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Mount(r)

	basePath := handler.NormalizeBasePath(v.GetString("base-path"))
	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("starting server",
		"addr", addr,
		"backend", v.GetString("backend"),
		"lang", lang,
		"base_path", basePath,
		"trust_client_identity", v.GetBool("trust-client-identity"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cleanupSessions drops expired auth sessions from the store until ctx ends.
func cleanupSessions(ctx context.Context, st *store.Store) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.CleanupExpiredSessions(ctx)
			if err != nil {
				slog.Error("failed to clean up sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("removed expired sessions", "count", n)
			}
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func seedAdmin(ctx context.Context, st *store.Store, password string) error {
	count, err := st.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		slog.Warn("no users and no admin password: set --admin-password or SOLVEFY_ADMIN_PASSWORD to seed an admin")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = st.CreateUser(ctx, store.UserInput{
		Username:     "admin",
		Password:     password,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         model.UserRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}

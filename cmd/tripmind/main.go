// Command tripmind is the terminal client for the TripMind API. Every command
// that changes a trip goes through a planner session, so edits are applied
// optimistically and rolled back when the server rejects them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pkordes/tripmind/internal/client"
	"github.com/pkordes/tripmind/internal/config"
	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/optimistic"
	"github.com/pkordes/tripmind/internal/planner"
	"github.com/pkordes/tripmind/internal/repo"
	"github.com/pkordes/tripmind/internal/suggest"
)

var (
	Version = "dev"

	verbose bool

	cfg       config.ClientConfig
	logger    *slog.Logger
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "tripmind",
	Short: "Plan trips from the terminal",
	Long: `tripmind talks to a TripMind API server.

Set TRIPMIND_API_URL to point it at a server other than http://localhost:8080.
Set SESSION_DATABASE_URL to keep fetched suggestions in Postgres between runs.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return err
		}
		level := config.ParseLogLevel(cfg.LogLevel)
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		apiClient, err = client.New(cfg.APIURL, client.Options{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Logger:            logger,
		})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openSession opens a planner session for the trip named by arg. The
// returned close function flushes pending edits and releases the session
// store.
func openSession(ctx context.Context, arg string) (*planner.Session, func(), error) {
	id, err := parseTripID(arg)
	if err != nil {
		return nil, nil, err
	}

	store, release, err := sessionStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	sess, err := planner.Open(ctx, apiClient, id, planner.Options{
		Logger:           logger,
		SessionStore:     store,
		NotesQuietPeriod: cfg.NotesDebounce,
		PollInterval:     cfg.PollInterval,
		PollMaxAttempts:  cfg.PollMaxAttempts,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return sess, func() {
		sess.Close()
		release()
	}, nil
}

// sessionStore selects where suggestion lists are cached. Without
// SESSION_DATABASE_URL the cache lives only as long as the process.
func sessionStore(ctx context.Context) (suggest.KeyValueStore, func(), error) {
	if cfg.SessionDatabaseURL == "" {
		return suggest.NewMemoryStore(cfg.CacheMaxEntries, 0), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.SessionDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session database: %w", err)
	}
	logger.Debug("using postgres session store", "session_id", cfg.SessionID)
	return repo.NewSessionStore(pool, cfg.SessionID), pool.Close, nil
}

func parseTripID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid trip id %q", arg)
	}
	return id, nil
}

// awaitCommit blocks until an optimistic edit settles and reports a rollback
// as an error.
func awaitCommit(ch planner.CommitResult) (domain.Trip, error) {
	st := optimistic.Final(ch)
	switch st.Kind {
	case optimistic.RolledBack:
		return st.Value, fmt.Errorf("change was not saved: %w", st.Err)
	case optimistic.Superseded:
		logger.Debug("edit superseded by a newer change", "seq", st.Seq)
	}
	return st.Value, nil
}

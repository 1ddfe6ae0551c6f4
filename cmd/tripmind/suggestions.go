package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/repo"
	"github.com/pkordes/tripmind/internal/suggest"
)

var (
	// suggestions flags
	suggestPrefs   string
	suggestRefresh bool

	// cache purge flags
	purgeOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(suggestionsCmd)
	suggestionsCmd.AddCommand(suggestionsListCmd)
	suggestionsCmd.AddCommand(suggestionsSaveCmd)

	suggestionsCmd.PersistentFlags().StringVar(&suggestPrefs, "prefs", "", "Free-text preferences sent with the request")
	suggestionsListCmd.Flags().BoolVar(&suggestRefresh, "refresh", false, "Ignore cached suggestions and ask again")

	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cachePurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 24*time.Hour, "Remove entries not written for this long")
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Browse and save flight, hotel, transport and activity suggestions",
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list <trip-id> <category>",
	Short: "List suggestions for a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := domain.ParseCategory(args[1])
		if err != nil {
			return err
		}
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		set, err := sess.Suggestions(cmd.Context(), category, suggestPrefs, suggestRefresh)
		if err != nil {
			return err
		}
		return printSuggestions(os.Stdout, set)
	},
}

var suggestionsSaveCmd = &cobra.Command{
	Use:   "save <trip-id> <category> <suggestion-id>",
	Short: "Save a suggestion into the trip",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := domain.ParseCategory(args[1])
		if err != nil {
			return err
		}
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		// Load the list first; with the in-memory store nothing survives
		// between runs.
		if _, err := sess.Suggestions(cmd.Context(), category, suggestPrefs, false); err != nil {
			return err
		}
		ch, err := sess.SaveSuggestion(cmd.Context(), category, args[2])
		if err != nil {
			return err
		}
		t, err := awaitCommit(ch)
		if err != nil {
			return err
		}
		fmt.Printf("saved; %d %s on the trip\n", len(t.Metadata.Bookings(category)), category)
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the Postgres suggestion cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove stale entries from every session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pool, err := sessionPool(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := repo.PurgeSessions(cmd.Context(), pool, purgeOlderThan)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries\n", n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry of this session (SESSION_ID)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pool, err := sessionPool(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		return repo.NewSessionStore(pool, cfg.SessionID).Clear(cmd.Context())
	},
}

// sessionPool opens the Postgres suggestion cache for maintenance commands.
func sessionPool(cmd *cobra.Command) (*pgxpool.Pool, error) {
	if cfg.SessionDatabaseURL == "" {
		return nil, errors.New("SESSION_DATABASE_URL is not set; the in-memory cache needs no maintenance")
	}
	pool, err := pgxpool.New(cmd.Context(), cfg.SessionDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	return pool, nil
}

func printSuggestions(out io.Writer, set suggest.Set) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPROVIDER\tPRICE\tSAVED")
	for _, s := range set.Items {
		price := "-"
		if s.Price != nil {
			price = fmt.Sprintf("%.2f %s", *s.Price, s.Currency)
		}
		saved := ""
		if set.IsCommitted(s.ID) {
			saved = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Provider, price, saved)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "fetched %s\n", set.FetchedAt.Local().Format(time.DateTime))
	return err
}

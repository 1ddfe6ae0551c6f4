package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/genjob"
	"github.com/pkordes/tripmind/internal/planner"
)

const progressRefresh = 250 * time.Millisecond

var (
	// itinerary generate flags
	generateInstruction string

	// itinerary add flags
	activityDay      int
	activityTime     string
	activityLocation string
	activityNotes    string
	activityCost     float64

	// itinerary export flags
	exportFormat string
)

func init() {
	rootCmd.AddCommand(itineraryCmd)
	itineraryCmd.AddCommand(itineraryShowCmd)
	itineraryCmd.AddCommand(itineraryGenerateCmd)
	itineraryCmd.AddCommand(itineraryAddCmd)
	itineraryCmd.AddCommand(itineraryRemoveCmd)
	itineraryCmd.AddCommand(itineraryExportCmd)

	itineraryGenerateCmd.Flags().StringVar(&generateInstruction, "instruction", "", "Free-text guidance for the planner")

	itineraryAddCmd.Flags().IntVar(&activityDay, "day", 1, "Itinerary day, starting at 1")
	itineraryAddCmd.Flags().StringVar(&activityTime, "time", "", "Start time, e.g. 09:30")
	itineraryAddCmd.Flags().StringVar(&activityLocation, "location", "", "Where it happens")
	itineraryAddCmd.Flags().StringVar(&activityNotes, "notes", "", "Anything worth remembering")
	itineraryAddCmd.Flags().Float64Var(&activityCost, "cost", 0, "Expected cost")

	itineraryExportCmd.Flags().StringVar(&exportFormat, "format", "table", "Output format: table, csv or json")
}

var itineraryCmd = &cobra.Command{
	Use:   "itinerary",
	Short: "Generate, edit and export day-by-day plans",
}

var itineraryShowCmd = &cobra.Command{
	Use:   "show <trip-id>",
	Short: "Print the itinerary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTripID(args[0])
		if err != nil {
			return err
		}
		t, err := apiClient.GetTrip(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printItinerary(os.Stdout, t)
	},
}

var itineraryGenerateCmd = &cobra.Command{
	Use:   "generate <trip-id>",
	Short: "Ask the server to plan every day and wait for it",
	Long: `Ask the server to plan every day of the trip and poll until the
itinerary is complete. Polling stops after POLL_MAX_ATTEMPTS polls spaced
POLL_INTERVAL apart; the server keeps working and "itinerary show" picks the
result up later. Interrupting the command stops polling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		job, err := sess.GenerateItinerary(cmd.Context(), generateInstruction)
		if err != nil {
			return err
		}
		out := waitWithProgress(sess, job)

		switch out.State {
		case genjob.StateSucceeded:
			return printItinerary(os.Stdout, out.Trip)
		case genjob.StateTimedOut:
			return errors.New("the itinerary is still being generated; run \"tripmind itinerary show\" later")
		case genjob.StateCancelled:
			return errors.New("stopped waiting for the itinerary")
		default:
			if out.Err != nil {
				return out.Err
			}
			return errors.New(out.Message)
		}
	},
}

var itineraryAddCmd = &cobra.Command{
	Use:   "add <trip-id> <title>",
	Short: "Add an activity to a day",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		a := domain.Activity{
			Title:    args[1],
			Time:     activityTime,
			Location: activityLocation,
			Notes:    activityNotes,
		}
		if cmd.Flags().Changed("cost") {
			a.Cost = &activityCost
		}
		ch, err := sess.AddActivity(cmd.Context(), activityDay, a)
		if err != nil {
			return err
		}
		t, err := awaitCommit(ch)
		if err != nil {
			return err
		}
		return printItinerary(os.Stdout, t)
	},
}

var itineraryRemoveCmd = &cobra.Command{
	Use:   "remove <trip-id> <activity-id>",
	Short: "Remove an activity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		ch, err := sess.DeleteActivity(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		_, err = awaitCommit(ch)
		return err
	},
}

var itineraryExportCmd = &cobra.Command{
	Use:   "export <trip-id>",
	Short: "Export the itinerary, one row per activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTripID(args[0])
		if err != nil {
			return err
		}
		rows, err := apiClient.ExportItinerary(cmd.Context(), id)
		if err != nil {
			return err
		}

		switch exportFormat {
		case "table":
			return writeExportTable(rows)
		case "csv":
			return writeExportCSV(rows)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		default:
			return fmt.Errorf("unknown format %q (want table, csv or json)", exportFormat)
		}
	},
}

// waitWithProgress draws a bar of generated days until job finishes.
func waitWithProgress(sess *planner.Session, job *genjob.Job) genjob.Outcome {
	total := max(sess.GenerationProgress().TotalDays, 1)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Generating itinerary"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	ticker := time.NewTicker(progressRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-job.Done():
			p := sess.GenerationProgress()
			_ = bar.Set(p.DaysGenerated)
			_ = bar.Finish()
			out, _ := job.Outcome()
			return out
		case <-ticker.C:
			p := sess.GenerationProgress()
			if p.TotalDays > 0 && p.TotalDays != total {
				total = p.TotalDays
				bar.ChangeMax(total)
			}
			_ = bar.Set(p.DaysGenerated)
		}
	}
}

func printItinerary(out io.Writer, t domain.Trip) error {
	if !t.HasItinerary() {
		_, err := fmt.Fprintln(out, "no itinerary yet")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range t.Metadata.Itinerary {
		fmt.Fprintf(w, "Day %d\t%s\t%s\n", d.Day, d.Date, d.Title)
		for _, a := range d.Activities {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", a.ID, a.Time, a.Title, a.Location)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if g := t.Metadata.Generation; g.Partial {
		_, err := fmt.Fprintf(out, "%d of %d days generated so far\n", g.DaysGenerated, g.TotalDays)
		return err
	}
	return nil
}

var exportHeader = []string{"day", "date", "day_title", "time", "activity", "location", "notes", "cost"}

func exportRecord(r api.ExportRow) []string {
	cost := ""
	if r.Cost != nil {
		cost = strconv.FormatFloat(*r.Cost, 'f', 2, 64)
	}
	date := ""
	if r.Date != nil {
		date = r.Date.String()
	}
	return []string{
		strconv.Itoa(r.Day), date, r.DayTitle,
		deref(r.Time), deref(r.Activity), deref(r.Location), deref(r.Notes), cost,
	}
}

func writeExportTable(rows []api.ExportRow) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, h := range exportHeader {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w)
	for _, r := range rows {
		for i, v := range exportRecord(r) {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, v)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func writeExportCSV(rows []api.ExportRow) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(exportRecord(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

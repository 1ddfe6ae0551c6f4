package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/phase"
)

var (
	// trips list flags
	listPage  int
	listLimit int

	// trips create flags
	createDestination string
	createStart       string
	createEnd         string
	createTravelers   int
	createBudget      float64
	createPrefs       []string
)

func init() {
	rootCmd.AddCommand(tripsCmd)
	tripsCmd.AddCommand(tripsListCmd)
	tripsCmd.AddCommand(tripsCreateCmd)
	tripsCmd.AddCommand(tripsShowCmd)
	tripsCmd.AddCommand(tripsDeleteCmd)

	tripsListCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	tripsListCmd.Flags().IntVar(&listLimit, "limit", 20, "Trips per page (max 100)")

	tripsCreateCmd.Flags().StringVar(&createDestination, "destination", "", "Where the trip goes (required)")
	tripsCreateCmd.Flags().StringVar(&createStart, "start", "", "First day, YYYY-MM-DD")
	tripsCreateCmd.Flags().StringVar(&createEnd, "end", "", "Last day, YYYY-MM-DD")
	tripsCreateCmd.Flags().IntVar(&createTravelers, "travelers", 1, "Number of travelers")
	tripsCreateCmd.Flags().Float64Var(&createBudget, "budget", 0, "Total budget")
	tripsCreateCmd.Flags().StringSliceVar(&createPrefs, "pref", nil, "Travel preference (repeatable)")
	_ = tripsCreateCmd.MarkFlagRequired("destination")
}

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "List, create and inspect trips",
}

var tripsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trips, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		trips, page, err := apiClient.ListTrips(cmd.Context(), listPage, listLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDESTINATION\tDATES\tTRAVELERS\tSTATUS")
		for _, t := range trips {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Destination, dateRange(t), t.TravelersCount, t.Status)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\npage %d, %d of %d trips\n", page.Page, len(trips), page.Total)
		return nil
	},
}

var tripsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a trip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := api.CreateTripRequest{
			Destination:    createDestination,
			TravelersCount: &createTravelers,
			Preferences:    createPrefs,
		}
		var err error
		if req.StartDate, err = parseDateFlag("start", createStart); err != nil {
			return err
		}
		if req.EndDate, err = parseDateFlag("end", createEnd); err != nil {
			return err
		}
		if cmd.Flags().Changed("budget") {
			req.Budget = &createBudget
		}

		trip, err := apiClient.CreateTrip(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Println(trip.ID)
		return nil
	},
}

var tripsShowCmd = &cobra.Command{
	Use:   "show <trip-id>",
	Short: "Show a trip with its phase and panels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		t := sess.Trip()
		panels := make([]string, 0, 8)
		for _, p := range sess.Panels() {
			panels = append(panels, string(p))
		}
		done, total := domain.ChecklistProgress(t.Metadata.Checklist)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Destination:\t%s\n", t.Destination)
		fmt.Fprintf(w, "Dates:\t%s\n", dateRange(t))
		fmt.Fprintf(w, "Travelers:\t%d\n", t.TravelersCount)
		if t.Budget != nil {
			fmt.Fprintf(w, "Budget:\t%.2f\n", *t.Budget)
		}
		fmt.Fprintf(w, "Phase:\t%s\n", sess.Phase())
		fmt.Fprintf(w, "Panels:\t%s\n", strings.Join(panels, ", "))
		if n := sess.DaysUntilStart(); n > 0 {
			fmt.Fprintf(w, "Starts in:\t%d days\n", n)
		}
		if sess.Phase() == phase.Active {
			fmt.Fprintf(w, "Today:\tday %d of %d\n", sess.CurrentDayIndex(), t.ExpectedDays())
		}
		fmt.Fprintf(w, "Itinerary:\t%d of %d days\n", len(t.Metadata.Itinerary), t.ExpectedDays())
		fmt.Fprintf(w, "Checklist:\t%d/%d done\n", done, total)
		fmt.Fprintf(w, "Spent:\t%.2f across %d expenses\n", domain.TotalExpenses(t.Metadata.Expenses), len(t.Metadata.Expenses))
		for _, c := range domain.Categories {
			if b := t.Metadata.Bookings(c); len(b) > 0 {
				fmt.Fprintf(w, "Saved %s:\t%d\n", c, len(b))
			}
		}
		if t.Metadata.Notes != "" {
			fmt.Fprintf(w, "Notes:\t%s\n", t.Metadata.Notes)
		}
		return w.Flush()
	},
}

var tripsDeleteCmd = &cobra.Command{
	Use:   "delete <trip-id>",
	Short: "Delete a trip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTripID(args[0])
		if err != nil {
			return err
		}
		return apiClient.DeleteTrip(cmd.Context(), id)
	},
}

func parseDateFlag(name, value string) (*openapi_types.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD, got %q", name, value)
	}
	return &openapi_types.Date{Time: d}, nil
}

func dateRange(t domain.Trip) string {
	switch {
	case t.StartDate != nil && t.EndDate != nil:
		return t.StartDate.Format(time.DateOnly) + " to " + t.EndDate.Format(time.DateOnly)
	case t.StartDate != nil:
		return "from " + t.StartDate.Format(time.DateOnly)
	default:
		return "undated"
	}
}

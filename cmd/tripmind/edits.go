package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/tripmind/internal/domain"
	"github.com/pkordes/tripmind/internal/optimistic"
)

var (
	// expense add flags
	expenseAmount      float64
	expenseCurrency    string
	expenseCategory    string
	expenseDescription string
	expenseDate        string
)

func init() {
	rootCmd.AddCommand(checklistCmd)
	checklistCmd.AddCommand(checklistListCmd)
	checklistCmd.AddCommand(checklistAddCmd)
	checklistCmd.AddCommand(checklistToggleCmd)

	rootCmd.AddCommand(notesCmd)

	rootCmd.AddCommand(expenseCmd)
	expenseCmd.AddCommand(expenseAddCmd)

	expenseAddCmd.Flags().Float64Var(&expenseAmount, "amount", 0, "Amount spent (required)")
	expenseAddCmd.Flags().StringVar(&expenseCurrency, "currency", "USD", "ISO currency code")
	expenseAddCmd.Flags().StringVar(&expenseCategory, "category", "", "Spending category, e.g. food")
	expenseAddCmd.Flags().StringVar(&expenseDescription, "description", "", "What the money was spent on (required)")
	expenseAddCmd.Flags().StringVar(&expenseDate, "date", "", "Day of the spend, YYYY-MM-DD (defaults to today)")
	_ = expenseAddCmd.MarkFlagRequired("amount")
	_ = expenseAddCmd.MarkFlagRequired("description")
}

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Manage the pre-trip checklist",
}

var checklistListCmd = &cobra.Command{
	Use:   "list <trip-id>",
	Short: "Show checklist items",
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
		return printChecklist(os.Stdout, t.Metadata.Checklist)
	},
}

var checklistAddCmd = &cobra.Command{
	Use:   "add <trip-id> <label>",
	Short: "Append an item to the checklist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		ch, err := sess.AddChecklistItem(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		t, err := awaitCommit(ch)
		if err != nil {
			return err
		}
		return printChecklist(os.Stdout, t.Metadata.Checklist)
	},
}

var checklistToggleCmd = &cobra.Command{
	Use:   "toggle <trip-id> <item-id>",
	Short: "Check or uncheck a checklist item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		ch, err := sess.ToggleChecklistItem(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		t, err := awaitCommit(ch)
		if err != nil {
			return err
		}
		return printChecklist(os.Stdout, t.Metadata.Checklist)
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes <trip-id> <text>",
	Short: "Replace the trip notes",
	Long: `Replace the trip notes. The edit is saved once the notes debounce
period (NOTES_DEBOUNCE) has passed, or at exit, whichever comes first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		if err := sess.EditNotes(args[1]); err != nil {
			return err
		}
		st, ok := sess.FlushNotes()
		if ok && st.Kind == optimistic.RolledBack {
			return fmt.Errorf("notes were not saved: %w", st.Err)
		}
		fmt.Println("notes saved")
		return nil
	},
}

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Record trip spending",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add <trip-id>",
	Short: "Record an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spentOn := expenseDate
		if spentOn == "" {
			spentOn = time.Now().Format(time.DateOnly)
		} else if _, err := time.Parse(time.DateOnly, spentOn); err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD, got %q", spentOn)
		}

		sess, closeSession, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer closeSession()

		ch, err := sess.AddExpense(cmd.Context(), domain.Expense{
			Amount:      expenseAmount,
			Currency:    expenseCurrency,
			Category:    expenseCategory,
			Description: expenseDescription,
			SpentOn:     spentOn,
		})
		if err != nil {
			return err
		}
		t, err := awaitCommit(ch)
		if err != nil {
			return err
		}
		fmt.Printf("total spent: %.2f\n", domain.TotalExpenses(t.Metadata.Expenses))
		return nil
	},
}

func printChecklist(out io.Writer, items []domain.ChecklistItem) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tITEM")
	for _, item := range items {
		mark := " "
		if item.Checked {
			mark = "x"
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\n", item.ID, mark, item.Label)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	done, total := domain.ChecklistProgress(items)
	_, err := fmt.Fprintf(out, "%d/%d done\n", done, total)
	return err
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sharedtable/fare/internal/matching"
	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/partition"
)

var matchCmd = &cobra.Command{
	Use:   "match [slot-id]",
	Short: "Form and persist dinner groups",
	Long: `Form dinner groups from the pending signups of a time slot and persist
them. With --all, every open slot is matched.

Signups left over because too few remained stay pending for the next run.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if matchAll && len(args) > 0 {
			return errors.New("--all takes no slot id")
		}
		if !matchAll && len(args) != 1 {
			return errors.New("expected exactly one slot id, or --all")
		}
		return nil
	},
	RunE: runMatch,
}

var previewCmd = &cobra.Command{
	Use:   "preview <slot-id>",
	Short: "Show the groups a match would form",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List time slots",
	Args:  cobra.NoArgs,
	RunE:  runSlots,
}

var releaseCmd = &cobra.Command{
	Use:   "release <slot-id>",
	Short: "Reopen a slot stuck in matching",
	Long: `Move a slot that an interrupted run left in matching back to open.
Groups that run already persisted are kept; their signups are not regrouped.

Only use this when no run is in progress for the slot.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Show the group size policy table",
	Args:  cobra.NoArgs,
	RunE:  runPolicies,
}

func runMatch(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if matchAll {
		reports, err := e.matcher.RunOpen(ctx)
		for _, r := range reports {
			printReport(out, r)
		}
		if len(reports) == 0 && err == nil {
			fmt.Fprintln(out, "No open slots matched.")
		}
		return err
	}

	report, err := e.matcher.Run(ctx, args[0])
	if err != nil {
		return err
	}
	printReport(out, report)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	plan, err := e.matcher.Preview(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Slot %s (%s %s, %s, status %s)\n",
		plan.Slot.ID, plan.Slot.Date, plan.Slot.Time, plan.DinnerType, plan.Slot.Status)
	for i, g := range plan.Groups {
		fmt.Fprintf(out, "  group %d: %d members%s\n", i+1, len(g.Signups), venue(g.RestaurantName))
		for _, s := range g.Signups {
			fmt.Fprintf(out, "    %s  user %s\n", s.ID, s.UserID)
		}
	}
	fmt.Fprintf(out, "  remainder: %d\n", len(plan.Remainder))
	return nil
}

func runSlots(cmd *cobra.Command, args []string) error {
	status := models.TimeSlotStatus(strings.ToLower(slotStatus))
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", slotStatus)
	}

	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	slots, err := e.store.ListTimeSlots(cmd.Context(), status)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTIME\tTYPE\tSTATUS")
	for _, s := range slots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Date, s.Time, s.DinnerType, s.Status)
	}
	return w.Flush()
}

func runRelease(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.matcher.Release(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Slot %s released, status open\n", args[0])
	return nil
}

func runPolicies(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	printPolicies(cmd.OutOrStdout(), e.matcher.Policies())
	return nil
}

func printPolicies(out io.Writer, table *partition.PolicyTable) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tMIN\tMAX\tIDEAL\tDESCRIPTION")
	for _, e := range table.Entries() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", e.DinnerType, e.Policy.Min, e.Policy.Max, e.Policy.Ideal, e.Policy.Description)
	}
	_ = w.Flush()
}

func printReport(out io.Writer, r *matching.Report) {
	fmt.Fprintf(out, "Slot %s (%s): %d groups, %d grouped, %d remaining, status %s\n",
		r.SlotID, r.DinnerType, len(r.Groups), r.Grouped(), len(r.Remainder), r.SlotStatus)
	for i, g := range r.Groups {
		fmt.Fprintf(out, "  group %d: %s, %d members%s\n", i+1, g.ID, g.GroupSize, venue(g.RestaurantName))
	}
	if r.Failed > 0 {
		fmt.Fprintf(out, "  %d groups failed to persist; their signups stay pending\n", r.Failed)
	}
}

func venue(name string) string {
	if name == "" {
		return ""
	}
	return " at " + name
}

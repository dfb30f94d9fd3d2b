// Command fare is the operator CLI. It runs matching directly against the
// database without going through the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sharedtable/fare/internal/config"
	"github.com/sharedtable/fare/internal/events"
	"github.com/sharedtable/fare/internal/matching"
	"github.com/sharedtable/fare/internal/storage/sqlite"
	"github.com/sharedtable/fare/pkg/logging"
)

var (
	configPath string
	matchAll   bool
	slotStatus string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "fare",
	Short:         "Operate SharedTable dinner matching",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `fare forms dinner groups from the pending signups of a time slot.

Available subcommands:
  match    - Form and persist groups for one slot, or every open slot
  preview  - Show the groups a match would form without writing anything
  slots    - List time slots
  release  - Reopen a slot left in matching by an interrupted run
  policies - Show the group size policy table`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./fare.yaml if present)")

	matchCmd.Flags().BoolVar(&matchAll, "all", false, "Match every open slot")
	slotsCmd.Flags().StringVar(&slotStatus, "status", "", "Only list slots with this status")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(policiesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// env holds what a command needs to run matching.
type env struct {
	store   *sqlite.SQLiteStore
	matcher *matching.Matcher
	closers []func() error
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// setup loads config and opens the store, publisher and matcher. The
// configured restaurants are seeded into an empty database.
func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	policies, err := cfg.PolicyTable()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	e := &env{store: store, closers: []func() error{store.Close}}

	if _, err := store.SeedRestaurants(ctx, cfg.SeedRestaurants()); err != nil {
		e.Close()
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange, logger)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, p.Close)
		publisher = p
	}

	e.matcher = matching.New(store, policies, publisher,
		matching.WithLogger(logger),
		matching.WithConcurrency(cfg.MatchConcurrency),
		matching.WithTimeout(cfg.MatchTimeout),
	)
	return e, nil
}

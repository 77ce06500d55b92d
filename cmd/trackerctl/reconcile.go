package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"example.com/expense-tracker/backend/internal/database"
	"example.com/expense-tracker/backend/internal/notifications"
	"example.com/expense-tracker/backend/internal/server"
)

var flagOwner string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run due auto-payments and refresh budget snapshots",
	Long:  "Synchronizes one owner (--owner) or every owner with recurring expenses.",
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&flagOwner, "owner", "", "Owner id to reconcile (default: all owners)")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	var owner uuid.UUID
	if flagOwner != "" {
		parsed, err := uuid.Parse(flagOwner)
		if err != nil {
			return fmt.Errorf("invalid --owner: %w", err)
		}
		owner = parsed
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	publisher := notifications.Multi{}
	if cfg.Broker.URL != "" {
		broker, err := notifications.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			return err
		}
		defer broker.Close()
		publisher = append(publisher, broker)
	}

	service := server.NewTracker(cfg.Ledger, logger, db, publisher)

	if owner != uuid.Nil {
		result, err := service.Sync(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "owner %s: %d payment(s), remaining %s of %s\n",
			owner, len(result.Paid), result.Snapshot.RemainBudget.StringFixed(2), result.Snapshot.TotalBudget.StringFixed(2))
		return nil
	}

	synced, err := service.SweepAll(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d owner(s)\n", synced)
	return err
}

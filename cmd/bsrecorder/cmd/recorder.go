package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvarr/internal/config"
	"github.com/jmylchreest/tvarr/internal/database"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/jmylchreest/tvarr/internal/repository"
)

// recorderCmd groups the room-management subcommands. These operate
// directly on the persisted configuration; a running daemon picks up
// additions and removals the next time it restarts (Manager.Load).
var recorderCmd = &cobra.Command{
	Use:   "recorder",
	Short: "Manage recorded rooms",
}

var recorderAddCmd = &cobra.Command{
	Use:   "add <platform> <room-id> <account-id>",
	Short: "Add a room to the recorder configuration",
	Args:  cobra.ExactArgs(3),
	RunE:  runRecorderAdd,
}

var recorderRemoveCmd = &cobra.Command{
	Use:   "remove <platform> <room-id>",
	Short: "Remove a room from the recorder configuration",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecorderRemove,
}

var recorderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured rooms",
	Args:  cobra.NoArgs,
	RunE:  runRecorderList,
}

var recorderEnableCmd = &cobra.Command{
	Use:   "enable <platform> <room-id>",
	Short: "Enable a configured room",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecorderSetEnabled(true),
}

var recorderDisableCmd = &cobra.Command{
	Use:   "disable <platform> <room-id>",
	Short: "Disable a configured room without removing it",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecorderSetEnabled(false),
}

func init() {
	rootCmd.AddCommand(recorderCmd)
	recorderCmd.AddCommand(recorderAddCmd, recorderRemoveCmd, recorderListCmd, recorderEnableCmd, recorderDisableCmd)
}

func runRecorderAdd(cmd *cobra.Command, args []string) error {
	plat, roomID := models.Platform(args[0]), args[1]
	accountID, err := models.ParseULID(args[2])
	if err != nil {
		return fmt.Errorf("parsing account id: %w", err)
	}

	recorderRepo, accountRepo, closeDB, err := openRepositories()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	account, err := accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("looking up account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %s not found", accountID)
	}

	row := &models.RecorderRow{
		Platform:  plat,
		RoomID:    roomID,
		AccountID: accountID,
		Enabled:   models.BoolPtr(true),
	}
	if err := recorderRepo.Create(ctx, row); err != nil {
		return fmt.Errorf("persisting recorder: %w", err)
	}

	fmt.Printf("added %s/%s (id=%s)\n", plat, roomID, row.ID)
	return nil
}

func runRecorderRemove(cmd *cobra.Command, args []string) error {
	plat, roomID := models.Platform(args[0]), args[1]

	recorderRepo, _, closeDB, err := openRepositories()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	row, err := recorderRepo.GetByRoom(ctx, plat, roomID)
	if err != nil {
		return fmt.Errorf("looking up recorder: %w", err)
	}
	if row == nil {
		return fmt.Errorf("%s/%s not found", plat, roomID)
	}

	if err := recorderRepo.Delete(ctx, row.ID); err != nil {
		return fmt.Errorf("deleting recorder: %w", err)
	}

	fmt.Printf("removed %s/%s\n", plat, roomID)
	return nil
}

func runRecorderList(cmd *cobra.Command, args []string) error {
	recorderRepo, _, closeDB, err := openRepositories()
	if err != nil {
		return err
	}
	defer closeDB()

	rows, err := recorderRepo.GetAll(context.Background())
	if err != nil {
		return fmt.Errorf("listing recorders: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("no rooms configured")
		return nil
	}

	for _, row := range rows {
		state := "enabled"
		if !row.IsEnabled() {
			state = "disabled"
		}
		fmt.Printf("%-12s %-32s %-9s account=%s\n", row.Platform, row.RoomID, state, row.AccountID)
	}
	return nil
}

func runRecorderSetEnabled(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		plat, roomID := models.Platform(args[0]), args[1]

		recorderRepo, _, closeDB, err := openRepositories()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := context.Background()
		row, err := recorderRepo.GetByRoom(ctx, plat, roomID)
		if err != nil {
			return fmt.Errorf("looking up recorder: %w", err)
		}
		if row == nil {
			return fmt.Errorf("%s/%s not found", plat, roomID)
		}

		row.Enabled = models.BoolPtr(enabled)
		if err := recorderRepo.Update(ctx, row); err != nil {
			return fmt.Errorf("updating recorder: %w", err)
		}

		verb := "enabled"
		if !enabled {
			verb = "disabled"
		}
		fmt.Printf("%s %s/%s\n", verb, plat, roomID)
		return nil
	}
}

// openRepositories opens the configured database and returns the
// recorder and account repositories, plus a closer for the underlying
// connection pool.
func openRepositories() (repository.RecorderRepository, repository.AccountRepository, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.Database, nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	closer := func() {
		db.Close()
	}

	return repository.NewRecorderRepository(db.DB), repository.NewAccountRepository(db.DB), closer, nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvarr/internal/models"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage platform credential bundles",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <platform> <user-id>",
	Short: "Register a credential bundle for a platform account",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountAdd,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountList,
}

func init() {
	accountAddCmd.Flags().String("cookies", "", "opaque cookie blob sent with every request")
	accountAddCmd.Flags().String("csrf", "", "CSRF token, for platforms that require one")
	accountAddCmd.Flags().String("name", "", "display name for this account")

	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountAddCmd, accountListCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	plat, userID := models.Platform(args[0]), args[1]
	cookies, _ := cmd.Flags().GetString("cookies")
	csrf, _ := cmd.Flags().GetString("csrf")
	name, _ := cmd.Flags().GetString("name")

	_, accountRepo, closeDB, err := openRepositories()
	if err != nil {
		return err
	}
	defer closeDB()

	row := &models.AccountRow{
		Platform: plat,
		UserID:   userID,
		Name:     name,
		Cookies:  cookies,
		CSRF:     csrf,
	}
	if err := accountRepo.Create(context.Background(), row); err != nil {
		return fmt.Errorf("persisting account: %w", err)
	}

	fmt.Printf("added account %s/%s (id=%s)\n", plat, userID, row.ID)
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	_, accountRepo, closeDB, err := openRepositories()
	if err != nil {
		return err
	}
	defer closeDB()

	rows, err := accountRepo.GetAll(context.Background())
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("no accounts registered")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%-12s %-24s %-20s id=%s\n", row.Platform, row.UserID, row.Name, row.ID)
	}
	return nil
}

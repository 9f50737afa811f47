package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rath-service/internal/accounts"
	"rath-service/internal/admin"
	"rath-service/internal/config"
	"rath-service/internal/contact"
	"rath-service/internal/logger"
	"rath-service/internal/store/postgres"
	"rath-service/migrations"
	"rath-service/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		logger.Setup(cfg.LogFile, cfg.LogLevel)

		database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		return database.RunMigrations(cmd.Context(), migrations.FS)
	},
}

var approveFlags struct {
	phone string
	email string
}

var approveDriverCmd = &cobra.Command{
	Use:   "approve-driver",
	Short: "Mark a pending driver as verified",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := contact.FromFields(approveFlags.phone, approveFlags.email)
		if c.IsZero() {
			return fmt.Errorf("one of --phone or --email is required")
		}

		cfg := config.Load()
		logger.Setup(cfg.LogFile, cfg.LogLevel)

		database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		svc := accounts.NewService(postgres.NewAccountRepo(database.Pool))
		acct, res, err := svc.ApproveDriver(cmd.Context(), c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s): %s\n", acct.Name, c, acct.ID, res)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := admin.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	approveDriverCmd.Flags().StringVar(&approveFlags.phone, "phone", "", "driver phone number")
	approveDriverCmd.Flags().StringVar(&approveFlags.email, "email", "", "driver email")
}

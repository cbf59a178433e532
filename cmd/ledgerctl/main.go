package main

import (
	"context"
	"fmt"
	"os"
	"unicode"

	"finance-ledger-go/internal/common"
	"finance-ledger-go/internal/config"
	"finance-ledger-go/internal/models"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// app carries the services shared by every subcommand. They are built in
// the root command's PersistentPreRunE once flags have been parsed.
type app struct {
	verbose  bool
	services *common.Services
	cleanup  func()
}

func (a *app) user(ctx context.Context, idOrEmail string) (*models.User, error) {
	return common.ResolveUser(ctx, a.services.DbService, idOrEmail)
}

func main() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl manages users, accounts and statements in the finance ledger",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	rootCmd.AddCommand(newUsersCmd(a))
	rootCmd.AddCommand(newAccountsCmd(a))
	rootCmd.AddCommand(newImportCmd(a))
	rootCmd.AddCommand(newTransactionsCmd(a))
	rootCmd.AddCommand(newSummaryCmd(a))
	rootCmd.AddCommand(newReconcileCmd(a))
	rootCmd.AddCommand(newRulesCmd(a))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		a.close()
		pterm.Error.Println(capitalize(err.Error()))
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !a.verbose {
		cfg.Logging.Level = "warn"
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		loggerCleanup()
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	a.services = services
	a.cleanup = func() {
		services.Close()
		loggerCleanup()
	}
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

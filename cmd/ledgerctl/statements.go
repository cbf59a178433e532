package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"finance-ledger-go/internal/common"
	"finance-ledger-go/internal/importer"
	"finance-ledger-go/internal/ledger"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var userRef, accountId string
	importCmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV bank statement into an account",
		Long: `Import a CSV bank statement. The header must carry amount, txn_type and
txn_date; merchant, description, category, currency and posted_date are
optional. Duplicate rows and rows without a merchant are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), userRef)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open statement: %w", err)
			}
			defer file.Close()

			spinner, _ := pterm.DefaultSpinner.Start("Importing " + args[0])
			report, err := a.services.Importer.Import(cmd.Context(), user.Id, accountId, file)
			if spinner != nil {
				_ = spinner.Stop()
			}
			if report != nil {
				common.RenderImportReport(report)
			}
			if errors.Is(err, importer.ErrNothingImported) {
				pterm.Warning.Println("No rows were imported")
				return nil
			}
			return err
		},
	}
	importCmd.Flags().StringVarP(&userRef, "user", "u", "", "owner id or email")
	importCmd.Flags().StringVarP(&accountId, "account", "a", "", "target account id")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("account")
	return importCmd
}

func newTransactionsCmd(a *app) *cobra.Command {
	var userRef, accountId, from, to string
	var limit int
	transactionsCmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), userRef)
			if err != nil {
				return err
			}
			fromDate, toDate, err := parseRange(from, to)
			if err != nil {
				return err
			}

			transactions, err := a.services.Ledger.ListTransactions(cmd.Context(), user.Id, ledger.TransactionQuery{
				AccountId: accountId,
				From:      fromDate,
				To:        toDate,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if len(transactions) == 0 {
				pterm.Info.Println("No transactions in range")
				return nil
			}
			return common.RenderTransactions(transactions)
		},
	}
	transactionsCmd.Flags().StringVarP(&userRef, "user", "u", "", "owner id or email")
	transactionsCmd.Flags().StringVarP(&accountId, "account", "a", "", "only this account")
	transactionsCmd.Flags().StringVar(&from, "from", "", "earliest txn_date")
	transactionsCmd.Flags().StringVar(&to, "to", "", "latest txn_date")
	transactionsCmd.Flags().IntVar(&limit, "limit", ledger.DefaultListLimit, "maximum rows")
	_ = transactionsCmd.MarkFlagRequired("user")
	return transactionsCmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var userRef, accountId, from, to string
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and the spending breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), userRef)
			if err != nil {
				return err
			}
			fromDate, toDate, err := parseRange(from, to)
			if err != nil {
				return err
			}

			summary, err := a.services.Ledger.Summary(cmd.Context(), user.Id, ledger.SummaryScope{
				AccountId: accountId,
				From:      fromDate,
				To:        toDate,
			})
			if err != nil {
				return err
			}
			common.PrintHeader(fmt.Sprintf("Summary for %s", user.Email))
			return common.RenderSummary(summary)
		},
	}
	summaryCmd.Flags().StringVarP(&userRef, "user", "u", "", "owner id or email")
	summaryCmd.Flags().StringVarP(&accountId, "account", "a", "", "only this account")
	summaryCmd.Flags().StringVar(&from, "from", "", "earliest txn_date")
	summaryCmd.Flags().StringVar(&to, "to", "", "latest txn_date")
	_ = summaryCmd.MarkFlagRequired("user")
	return summaryCmd
}

func newReconcileCmd(a *app) *cobra.Command {
	var userRef string
	reconcileCmd := &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Check a stored balance against its transaction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), userRef)
			if err != nil {
				return err
			}
			if err := a.services.Ledger.ReconcileAccount(cmd.Context(), user.Id, args[0]); err != nil {
				return err
			}
			pterm.Success.Printf("Account %s is consistent\n", args[0])
			return nil
		},
	}
	reconcileCmd.Flags().StringVarP(&userRef, "user", "u", "", "owner id or email")
	_ = reconcileCmd.MarkFlagRequired("user")
	return reconcileCmd
}

func parseRange(from, to string) (*time.Time, *time.Time, error) {
	var fromDate, toDate *time.Time
	if from != "" {
		t, err := ledger.ParseDate(from)
		if err != nil {
			return nil, nil, err
		}
		fromDate = &t
	}
	if to != "" {
		t, err := ledger.ParseDate(to)
		if err != nil {
			return nil, nil, err
		}
		toDate = &t
	}
	return fromDate, toDate, nil
}

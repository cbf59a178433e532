package main

import (
	"fmt"

	"finance-ledger-go/internal/common"
	"finance-ledger-go/internal/ledger"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newAccountsCmd(a *app) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Open and list bank accounts",
	}

	var userRef, balance string
	var req ledger.AccountRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Open an account with an opening balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), userRef)
			if err != nil {
				return err
			}
			req.OpeningBalance, err = decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("invalid opening balance %q", balance)
			}

			account, err := a.services.Ledger.CreateAccount(cmd.Context(), user.Id, req)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Opened %s account %s at %s (%s)\n",
				account.AccountType, account.MaskedAccount, account.BankName, account.Id)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&userRef, "user", "u", "", "owner id or email")
	addCmd.Flags().StringVar(&req.BankName, "bank", "", "bank name")
	addCmd.Flags().StringVar(&req.AccountType, "type", "checking", "checking, savings or credit")
	addCmd.Flags().StringVar(&req.MaskedAccount, "masked", "", "masked account number, e.g. ****1234")
	addCmd.Flags().StringVar(&req.Currency, "currency", "USD", "ISO currency code")
	addCmd.Flags().StringVar(&balance, "balance", "0", "opening balance")
	_ = addCmd.MarkFlagRequired("user")
	_ = addCmd.MarkFlagRequired("bank")
	_ = addCmd.MarkFlagRequired("masked")

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's accounts with balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), listUser)
			if err != nil {
				return err
			}
			accounts, err := a.services.Ledger.ListAccounts(cmd.Context(), user.Id)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				pterm.Info.Printf("%s has no accounts\n", user.Email)
				return nil
			}
			common.PrintHeader(fmt.Sprintf("Accounts for %s", user.Email))
			return common.RenderAccounts(accounts)
		},
	}
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "owner id or email")
	_ = listCmd.MarkFlagRequired("user")

	accountsCmd.AddCommand(addCmd, listCmd)
	return accountsCmd
}

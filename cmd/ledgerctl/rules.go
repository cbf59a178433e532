package main

import (
	"strings"

	"finance-ledger-go/internal/common"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newRulesCmd(a *app) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage per-user category rules",
	}

	var userRef, category string
	var keywords []string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a keyword rule; user rules win over the default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), userRef)
			if err != nil {
				return err
			}
			rule, err := a.services.Ledger.CreateCategoryRule(cmd.Context(), user.Id, category, strings.Join(keywords, ","))
			if err != nil {
				return err
			}
			pterm.Success.Printf("Rule %s: %s -> %s\n", rule.Id, rule.Keywords, rule.CategoryName)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&userRef, "user", "u", "", "owner id or email")
	addCmd.Flags().StringVar(&category, "category", "", "category to assign")
	addCmd.Flags().StringSliceVar(&keywords, "keyword", nil, "keyword to match (repeatable or comma separated)")
	_ = addCmd.MarkFlagRequired("user")
	_ = addCmd.MarkFlagRequired("category")

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), listUser)
			if err != nil {
				return err
			}
			rules, err := a.services.Ledger.ListCategoryRules(cmd.Context(), user.Id)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				pterm.Info.Println("No rules defined")
				return nil
			}
			return common.RenderCategoryRules(rules)
		},
	}
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "owner id or email")
	_ = listCmd.MarkFlagRequired("user")

	var deleteUser string
	deleteCmd := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.user(cmd.Context(), deleteUser)
			if err != nil {
				return err
			}
			if err := a.services.Ledger.DeleteCategoryRule(cmd.Context(), user.Id, args[0]); err != nil {
				return err
			}
			pterm.Success.Printf("Deleted rule %s\n", args[0])
			return nil
		},
	}
	deleteCmd.Flags().StringVarP(&deleteUser, "user", "u", "", "owner id or email")
	_ = deleteCmd.MarkFlagRequired("user")

	rulesCmd.AddCommand(addCmd, listCmd, deleteCmd)
	return rulesCmd
}

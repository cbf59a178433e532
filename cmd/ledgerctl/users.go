package main

import (
	"fmt"
	"regexp"

	"finance-ledger-go/internal/common"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func newUsersCmd(a *app) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Add and list ledger users",
	}

	var name, email string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(name) < 2 {
				return fmt.Errorf("name must be at least 2 characters")
			}
			if !emailPattern.MatchString(email) {
				return fmt.Errorf("invalid email format: %s", email)
			}

			user, err := a.services.DbService.CreateUser(cmd.Context(), uuid.New().String(), name, email)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Created user %s (%s)\n", user.Name, user.Id)
			return nil
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "display name")
	addCmd.Flags().StringVar(&email, "email", "", "unique email address")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("email")

	var filter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := common.InitializeUsers(cmd.Context(), a.services.DbService, filter)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				pterm.Info.Println("No users yet")
				return nil
			}
			common.PrintHeader("Users")
			return common.RenderUsers(users)
		},
	}
	listCmd.Flags().StringVar(&filter, "email", "", "only show the user with this email")

	usersCmd.AddCommand(addCmd, listCmd)
	return usersCmd
}

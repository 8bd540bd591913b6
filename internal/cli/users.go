package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TWRT/task-manager/internal/models"
	"github.com/TWRT/task-manager/internal/repository"
	"github.com/TWRT/task-manager/internal/service"
)

// UsersFile is the document accepted by "users import".
type UsersFile struct {
	Users []models.User `yaml:"users"`
}

func newUsersCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the user directory tasks are assigned against",
	}
	cmd.AddCommand(
		newUsersAddCommand(opts),
		newUsersListCommand(opts),
		newUsersImportCommand(opts),
	)
	return cmd
}

func newUsersAddCommand(opts *rootOptions) *cobra.Command {
	var user models.User
	var role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, logger, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			user.Role = models.Role(role)
			saved, err := service.NewUserService(repository.NewUserRepository(db), logger).SaveUser(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", saved.Id, saved.Email, saved.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.Id, "id", "", "user id (generated when empty)")
	cmd.Flags().StringVar(&user.Name, "name", "", "display name")
	cmd.Flags().StringVar(&user.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(models.RoleMember), "admin or member")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersListCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, _, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := repository.NewUserRepository(db).ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(users)
			}
			return printUsers(cmd.OutOrStdout(), users)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newUsersImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Add or update users from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := readUsersFile(args[0])
			if err != nil {
				return err
			}

			db, _, logger, err := opts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewUserService(repository.NewUserRepository(db), logger)
			for i, u := range users {
				if _, err := svc.SaveUser(cmd.Context(), u); err != nil {
					return fmt.Errorf("user %d (%s): %w", i, u.Email, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users\n", len(users))
			return nil
		},
	}
}

func readUsersFile(path string) ([]models.User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc UsersFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Users, nil
}

func printUsers(w io.Writer, users []models.User) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Id, u.Name, u.Email, u.Role)
	}
	return tw.Flush()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage API accounts",
}

var usersSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin and student accounts",
	Long: `Create the default accounts used for a fresh installation:

  admin     admin123    administrator
  student1  student123  student

Accounts that already exist are left untouched. Change the passwords before
exposing the server.`,
	Args: cobra.NoArgs,
	RunE: runUsersSeed,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersCreate,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable an account",
	Long: `Disable an account. A disabled account can no longer log in and its
existing sessions are rejected on the next request.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersSetActive(false),
}

var usersEnableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Re-enable a disabled account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersSetActive(true),
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersSeedCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDisableCmd)
	usersCmd.AddCommand(usersEnableCmd)

	usersCreateCmd.Flags().String("role", database.RoleStudent, "Account role (student or admin)")
	usersCreateCmd.Flags().String("full-name", "", "Display name")
	usersCreateCmd.Flags().String("school", "", "School name")
}

type seedAccount struct {
	username string
	password string
	fullName string
	role     string
	school   string
}

var defaultAccounts = []seedAccount{
	{"admin", "admin123", "مدير النظام", database.RoleAdmin, "الإدارة"},
	{"student1", "student123", "أحمد الطالب", database.RoleStudent, "مدرسة النور"},
}

func userStore(cfg *config.Config) (database.UserWriter, error) {
	if _, err := connectDatabase(cfg); err != nil {
		return nil, err
	}
	return database.GetUserWriter(context.Background())
}

// createAccount hashes the password and inserts the account.
func createAccount(ctx context.Context, users database.UserWriter, acc seedAccount) (*database.User, error) {
	if !database.ValidRole(acc.role) {
		return nil, fmt.Errorf("invalid role %q", acc.role)
	}
	if acc.username == "" || len([]rune(acc.username)) > database.MaxUsernameLength {
		return nil, fmt.Errorf("username must be 1-%d characters", database.MaxUsernameLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &database.User{
		Username:     acc.username,
		PasswordHash: string(hash),
		FullName:     acc.fullName,
		Role:         acc.role,
		SchoolName:   acc.school,
		IsActive:     true,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// setAccountActive looks the account up by username and flips its active flag.
func setAccountActive(ctx context.Context, users database.UserWriter, username string, active bool) (*database.User, error) {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %q not found", username)
	}
	if err := users.SetActive(ctx, user.ID, active); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	user.IsActive = active
	return user, nil
}

func runUsersSeed(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	users, err := userStore(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, acc := range defaultAccounts {
		user, err := createAccount(ctx, users, acc)
		if errors.Is(err, database.ErrUserExists) {
			fmt.Printf("  exists   %s\n", acc.username)
			continue
		}
		if err != nil {
			return fmt.Errorf("creating %s: %w", acc.username, err)
		}
		fmt.Printf("  created  %s (%s, ID %d)\n", user.Username, user.Role, user.ID)
	}
	return nil
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	users, err := userStore(cfg)
	if err != nil {
		return err
	}

	user, err := createAccount(context.Background(), users, seedAccount{
		username: args[0],
		password: args[1],
		fullName: mustGetString(cmd, "full-name"),
		role:     mustGetString(cmd, "role"),
		school:   mustGetString(cmd, "school"),
	})
	if errors.Is(err, database.ErrUserExists) {
		return fmt.Errorf("user %q already exists", args[0])
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("Created user %s (%s, ID %d)\n", user.Username, user.Role, user.ID)
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	users, err := userStore(cfg)
	if err != nil {
		return err
	}

	list, err := users.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No users found. Run 'sign-vision users seed' to create the default accounts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tROLE\tSCHOOL\tACTIVE")
	fmt.Fprintln(w, "--\t--------\t----\t----\t------\t------")

	for i := range list {
		u := &list[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.FullName, u.Role, u.SchoolName, u.IsActive)
	}

	w.Flush()

	fmt.Printf("\nTotal: %d users\n", len(list))
	return nil
}

func runUsersSetActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		users, err := userStore(cfg)
		if err != nil {
			return err
		}

		user, err := setAccountActive(context.Background(), users, args[0], active)
		if err != nil {
			return err
		}

		state := "disabled"
		if active {
			state = "enabled"
		}
		fmt.Printf("User %s %s\n", user.Username, state)
		return nil
	}
}

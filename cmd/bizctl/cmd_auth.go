package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

var (
	regName     string
	regIdentity string
	regPassword string
	regRole     string

	loginIdentity string
	loginPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new admin or employee profile",
	Long: `Registers a profile. At most three admins may exist at any time.

New employees cannot log in until an admin assigns them to a shop.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and keep the session for later commands",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in profile",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	registerCmd.Flags().StringVar(&regName, "name", "", "Full name (required)")
	registerCmd.Flags().StringVar(&regIdentity, "identity", "", "Email or national id (required)")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "Password, 6 to 72 characters (required)")
	registerCmd.Flags().StringVar(&regRole, "role", string(domain.RoleEmployee), "Role: admin or employee")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("identity")
	registerCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringVar(&loginIdentity, "identity", "", "Email or national id (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (required)")
	loginCmd.MarkFlagRequired("identity")
	loginCmd.MarkFlagRequired("password")
}

func runRegister(cmd *cobra.Command, args []string) error {
	role, err := domain.ParseRole(regRole)
	if err != nil {
		return err
	}
	p, err := client.Register(cmd.Context(), ports.RegisterInput{
		FullName: regName,
		Identity: regIdentity,
		Password: regPassword,
		Role:     role,
	})
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Registered %s (%s) as %s\n", p.FullName, p.Identity, p.Role)
	fmt.Fprintf(out, "  id: %s\n", p.ID)
	if p.PendingAssignment() {
		fmt.Fprintln(out, "  An admin must assign a shop before this profile can log in.")
	}
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	sess, err := client.Authenticate(cmd.Context(), loginIdentity, loginPassword)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", sess.Profile.FullName)
	printProfile(cmd.OutOrStdout(), sess.Profile)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sess := client.Session()
	if sess == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	printProfile(cmd.OutOrStdout(), sess.Profile)
	fmt.Fprintf(cmd.OutOrStdout(), "  session expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	loggedIn := client.Session() != nil
	client.Logout(cmd.Context())
	if loggedIn {
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
	}
	return nil
}

func printProfile(out io.Writer, p domain.Profile) {
	fmt.Fprintf(out, "  name:     %s\n", p.FullName)
	fmt.Fprintf(out, "  identity: %s\n", p.Identity)
	switch st := p.Standing().(type) {
	case domain.AdminStanding:
		fmt.Fprintln(out, "  role:     admin")
	case domain.EmployeeStanding:
		fmt.Fprintln(out, "  role:     employee")
		fmt.Fprintf(out, "  shop:     %s\n", st.Shop.DisplayName())
	}
}

// describe turns domain errors into messages a shell user can act on.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAssignmentPending):
		return fmt.Errorf("%w: ask an admin to assign you to a shop", err)
	case errors.Is(err, domain.ErrAdminQuotaExceeded):
		return fmt.Errorf("%w: only %d admins are allowed", err, domain.MaxAdmins)
	case errors.Is(err, domain.ErrNotAuthenticated):
		return fmt.Errorf("%w: run 'bizctl login' first", err)
	case errors.Is(err, domain.ErrInvalidShop):
		names := make([]string, len(domain.Shops))
		for i, s := range domain.Shops {
			names[i] = string(s)
		}
		return fmt.Errorf("%w: choose one of %s", err, strings.Join(names, ", "))
	case errors.Is(err, domain.ErrBackendUnavailable):
		return fmt.Errorf("%w: try again later", err)
	}
	return err
}

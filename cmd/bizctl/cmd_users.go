package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/service"
)

var (
	listReload bool
	listRole   string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the landing dashboard for the logged-in profile",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show roster counts per role and shop (admin only)",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage staff profiles (admin only)",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every profile in registration order",
	Long: `Lists profiles from the local cache. The cache is filled on first use
and refreshed only with --reload.`,
	Args: cobra.NoArgs,
	RunE: runUsersList,
}

var usersAssignCmd = &cobra.Command{
	Use:   "assign <user-id> <shop>",
	Short: "Assign an employee to a shop (boutique, house-decor)",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersAssign,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a profile and its account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

func init() {
	usersListCmd.Flags().BoolVar(&listReload, "reload", false, "Refresh the list from the backend")
	usersListCmd.Flags().StringVar(&listRole, "role", "", "Only show admin or employee profiles")
	overviewCmd.Flags().BoolVar(&listReload, "reload", false, "Refresh the counts from the backend")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAssignCmd)
	usersCmd.AddCommand(usersDeleteCmd)
}

// requireAdmin returns the current session if it belongs to an admin.
func requireAdmin() (*domain.Session, error) {
	sess := client.Session()
	if sess == nil {
		return nil, describe(domain.ErrNotAuthenticated)
	}
	if sess.Profile.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	return sess, nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	sess := client.Session()
	if sess == nil {
		return describe(domain.ErrNotAuthenticated)
	}
	out := cmd.OutOrStdout()

	switch st := sess.Profile.Standing().(type) {
	case domain.AdminStanding:
		list, err := cachedUsers(cmd, false)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(out, "Welcome, %s (admin)\n\n", sess.Profile.FullName)
		printOverview(out, list)
	case domain.EmployeeStanding:
		fmt.Fprintf(out, "Welcome, %s\n\n", sess.Profile.FullName)
		fmt.Fprintf(out, "  You work at %s.\n", st.Shop.DisplayName())
	}
	return nil
}

func runOverview(cmd *cobra.Command, args []string) error {
	if _, err := requireAdmin(); err != nil {
		return err
	}
	list, err := cachedUsers(cmd, listReload)
	if err != nil {
		return describe(err)
	}
	printOverview(cmd.OutOrStdout(), list)
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	if _, err := requireAdmin(); err != nil {
		return err
	}
	var role domain.Role
	if listRole != "" {
		r, err := domain.ParseRole(listRole)
		if err != nil {
			return err
		}
		role = r
	}

	list, err := cachedUsers(cmd, listReload)
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-36s  %-24s  %-28s  %-8s  %s\n", "ID", "NAME", "IDENTITY", "ROLE", "SHOP")
	shown := 0
	for _, p := range list.Profiles {
		if role != "" && p.Role != role {
			continue
		}
		shop := "-"
		if p.Role == domain.RoleEmployee {
			shop = p.AssignedShop.DisplayName()
		}
		fmt.Fprintf(out, "%-36s  %-24s  %-28s  %-8s  %s\n", p.ID, p.FullName, p.Identity, p.Role, shop)
		shown++
	}
	fmt.Fprintf(out, "\n%d profile(s)\n", shown)
	printFreshness(out, list)
	return nil
}

func runUsersAssign(cmd *cobra.Command, args []string) error {
	if _, err := requireAdmin(); err != nil {
		return err
	}
	shop, err := domain.ParseShop(args[1])
	if err != nil {
		return describe(err)
	}
	p, err := client.AssignEmployeeToShop(cmd.Context(), args[0], shop)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s now works at %s.\n", p.FullName, p.AssignedShop.DisplayName())
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	sess, err := requireAdmin()
	if err != nil {
		return err
	}
	self := sess.Profile.ID == args[0]
	if err := client.DeleteUser(cmd.Context(), args[0]); err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
	if self {
		fmt.Fprintln(cmd.OutOrStdout(), "You deleted your own profile and have been logged out.")
	}
	return nil
}

// cachedUsers returns the cached list, loading it when it was never loaded
// or when reload is set.
func cachedUsers(cmd *cobra.Command, reload bool) (service.UserList, error) {
	list := client.Users()
	if reload || list.LoadedAt.IsZero() {
		return client.Reload(cmd.Context())
	}
	return list, nil
}

func printOverview(out io.Writer, list service.UserList) {
	ov := domain.BuildOverview(list.Profiles)
	fmt.Fprintf(out, "  admins:               %d/%d\n", ov.Admins, ov.AdminCapacity)
	fmt.Fprintf(out, "  employees:            %d\n", ov.TotalEmployees)
	fmt.Fprintf(out, "  awaiting assignment:  %d\n", ov.UnassignedEmployees)
	for _, shop := range domain.Shops {
		fmt.Fprintf(out, "  %-21s %d\n", shop.DisplayName()+":", ov.EmployeesByShop[shop])
	}
	printFreshness(out, list)
}

func printFreshness(out io.Writer, list service.UserList) {
	fmt.Fprintf(out, "  (as of %s", list.LoadedAt.Local().Format("2006-01-02 15:04:05"))
	if list.Stale {
		fmt.Fprint(out, ", out of date: run 'bizctl users list --reload'")
	}
	fmt.Fprintln(out, ")")
}

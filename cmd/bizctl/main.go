// Command bizctl is the back-office client of the identity service. It keeps
// its session in a marker file between runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/bizguardian/manager/internal/app"
	"github.com/bizguardian/manager/internal/core/service"
	"github.com/bizguardian/manager/internal/infrastructure/marker"
	"github.com/bizguardian/manager/internal/pkg/config"
	"github.com/bizguardian/manager/pkg/logger"
)

var (
	// Global flags
	verbose    bool
	markerPath string

	backend *app.Backend
	client  *service.SessionClient
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bizctl",
	Short: "bizctl - back-office staff and shop assignment",
	Long: `bizctl registers staff, logs in and manages shop assignments.

The backend is selected with the same environment as the server
(STORE_DRIVER, SESSION_DRIVER, SQLITE_PATH, MONGO_URI, REDIS_ADDR, JWT_SECRET).
The session survives between runs in a marker file (BIZCTL_MARKER).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&markerPath, "marker", "", "Session marker file (default: BIZCTL_MARKER or the user config dir)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup builds the backend and restores the persisted session.
func setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadContext(ctx, envconfig.OsLookuper())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: true, Service: "bizctl", Output: os.Stderr})

	path := markerPath
	if path == "" {
		path = cfg.MarkerPath
	}
	if path == "" {
		path = marker.DefaultPath()
	}

	b, err := app.NewBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	backend = b
	backend.Dispatcher.Start(context.WithoutCancel(ctx))

	client = service.NewSessionClient(backend.Identity, marker.NewFileStore(path), log.With().Str("component", "session").Logger())
	if _, err := client.RestoreSession(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// teardown flushes pending verification requests and closes the backend.
func teardown() {
	if backend == nil {
		return
	}
	backend.Dispatcher.Close()
	backend.Dispatcher.Wait()
	if err := backend.Close(context.Background()); err != nil {
		l := logger.Get()
		l.Warn().Err(err).Msg("closing backend")
	}
	backend = nil
	client = nil
}

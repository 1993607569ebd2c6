package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gotest-mcp/internal/app"
)

// rootFlags holds the persistent flags shared by every command.
var rootFlags app.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gotest-mcp",
	Short: "Serve Go test discovery and execution over MCP",
	Long: `gotest-mcp exposes the tests of a Go project to MCP clients through two
tools, discover-tests and execute-tests. Tests are found by parsing the source
tree and run with go test -json.

The same operations are available directly from the command line with
'gotest-mcp discover' and 'gotest-mcp execute'.`,
	// Errors are printed by Execute so that test failures can exit quietly
	// with their own code.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCodeError ends the process with code without printing anything more.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gotest-mcp version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newApplication builds the application from the persistent flags. Commands
// other than serve pass quiet to keep informational logs off the terminal.
func newApplication(cmd *cobra.Command, quiet bool, overrides func(*app.Config)) (*app.Application, error) {
	cfg := rootFlags
	cfg.Version = rootCmd.Version
	if quiet && cfg.LogLevel == "" && !cfg.Debug {
		cfg.LogLevel = "warn"
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return app.NewApplication(&cfg, cmd.ErrOrStderr())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.ConfigPath, "config", "", "Additional configuration file layered over the user and project files")
	flags.StringVar(&rootFlags.Root, "root", "", "Root of the Go project (default: project.root or the working directory)")
	flags.StringVar(&rootFlags.GoBinary, "go", "", "go executable used to run tests")
	flags.StringVar(&rootFlags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&rootFlags.LogFormat, "log-format", "", "Log format: text or json")
	flags.BoolVar(&rootFlags.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newExecuteCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// Package command implements the csrexport command line.
package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/CSRExport/internal/app"
	"github.com/JonMunkholm/CSRExport/internal/config"
	"github.com/JonMunkholm/CSRExport/internal/logging"
)

// Loader returns the configuration commands run with.
type Loader func() (*config.Config, error)

// Env carries what every subcommand needs to reach the export service.
type Env struct {
	load      Loader
	outputDir string
	verbose   bool
}

// open loads configuration and starts the service. Logs go to stderr so
// command output stays pipeable.
func (e *Env) open(ctx context.Context, errOut io.Writer) (*app.App, error) {
	cfg, err := e.load()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if e.verbose {
		level = "debug"
	}
	logging.Setup(logging.Options{Level: level, Format: cfg.Logging.Format, Output: errOut})

	return app.Open(ctx, cfg, app.Options{DownloadDir: e.outputDir, DisableNotify: !cfg.Notify.Desktop})
}

// withApp runs fn against an open service and closes it afterwards.
func (e *Env) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := e.open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// NewRootCommand builds the csrexport command tree.
func NewRootCommand(load Loader) *cobra.Command {
	env := &Env{load: load}

	root := &cobra.Command{
		Use:   "csrexport",
		Short: "CSR Export - report and export engine for CSR platform data",
		Long: `csrexport turns CSR platform records (projects, NGOs, volunteers,
payments and more) into CSV, Excel, PDF or JSON documents.

Every export runs as a tracked job. Job history is kept in the configured
store and is shared with the HTTP job API.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&env.outputDir, "output-dir", "o", "", "Directory for finished exports (default: EXPORT_DOWNLOAD_DIR)")
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(ExportCommand(env))
	root.AddCommand(JobsCommand(env))
	root.AddCommand(TemplatesCommand())
	root.AddCommand(EntitiesCommand())
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(load Loader) {
	if err := NewRootCommand(load).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

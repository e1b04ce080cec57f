// Command clipboard-sync runs the clipboard daemon and manages its items.
package main

import (
	"clipboard-sync/internal/config"
	"clipboard-sync/internal/logging"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	// configDir is set by the --config-dir flag.
	configDir string

	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipboard-sync",
	Short: "Clipboard history with sharing, mirroring and link previews",
	Long: `clipboard-sync keeps a searchable clipboard history in SQLite, mirrors it
to a cloud folder, shares single items by link, and serves the widget
snapshot, the curator dashboard API and link previews over HTTP.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return teardown() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.clipboard-sync)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dev", false, "human-readable development logging")
	v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("log.development", rootCmd.PersistentFlags().Lookup("dev"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

// setup loads config and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	// Commands that need neither config nor storage
	switch cmd.Name() {
	case "version", "hash-password":
		return nil
	}

	dir := configDir
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return err
		}
		dir = d
	}

	loaded, err := config.Load(v, dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	l, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func teardown() error {
	if st != nil {
		if err := st.close(); err != nil {
			return err
		}
		st = nil
	}
	logger.Sync()
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clipboard-sync %s\n", version)
	},
}

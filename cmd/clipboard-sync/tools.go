package main

import (
	"bufio"
	"clipboard-sync/internal/auth"
	"clipboard-sync/internal/preview"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <url>",
	Short: "Fetch the Open Graph preview for a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper := preview.New(preview.Config{
			Timeout:   cfg.Preview.Timeout,
			UserAgent: cfg.Preview.UserAgent,
		}, logger)
		p, err := scraper.Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash for admin.password_hash",
	Long: `Hash-password prints a bcrypt hash suitable for the admin.password_hash
config key. Without an argument the password is read from the first line
of stdin, which keeps it out of shell history.`,
	Example: `  echo -n 's3cret' | clipboard-sync hash-password`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

// Package main provides the davdiscover CLI binary: it discovers the
// CalDAV/CardDAV services behind a server URL or an email address and
// prints the resulting configuration.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cyp0633/libdavdiscover/discover"
)

var (
	version = "dev"

	usernameFlag   string
	passwordFlag   string
	preemptiveFlag bool
	timeoutFlag    time.Duration
	outputFlag     string
	showLogFlag    bool
	saveLogFlag    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "davdiscover <url | mailto-address>",
		Short: "Discover CalDAV/CardDAV services for an account",
		Long: `davdiscover locates the calendar and contacts services behind a server
URL or an email address, following the usual chain: the given URL
itself, the /.well-known/ bootstrap paths, then DNS SRV/TXT service
records.

The password can also be supplied via the DAVDISCOVER_PASSWORD
environment variable, which keeps it out of the shell history.`,
		Version:      version,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "Account user name for Basic authentication")
	rootCmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "Account password (prefer DAVDISCOVER_PASSWORD)")
	rootCmd.Flags().BoolVar(&preemptiveFlag, "preemptive", false, "Send credentials without waiting for a 401 challenge")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "Per-request HTTP timeout")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.Flags().BoolVar(&showLogFlag, "show-log", false, "Print the discovery trace to stderr")
	rootCmd.Flags().BoolVar(&saveLogFlag, "save-log", false, "Save the discovery trace under the XDG state directory")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	password := passwordFlag
	if password == "" {
		password = os.Getenv("DAVDISCOVER_PASSWORD")
	}
	format, err := parseOutputFormat(outputFlag)
	if err != nil {
		return err
	}

	cfg := discover.DefaultConfig()
	cfg.Client = &http.Client{Timeout: timeoutFlag}

	conf, err := discover.FindServicesWithConfig(cmd.Context(), args[0], discover.Credentials{
		UserName:   usernameFlag,
		Password:   password,
		Preemptive: preemptiveFlag,
	}, cfg)
	if err != nil {
		return err
	}

	if showLogFlag {
		fmt.Fprint(cmd.ErrOrStderr(), conf.Logs)
	}
	if saveLogFlag {
		path, err := saveLog(conf.Logs)
		if err != nil {
			return fmt.Errorf("saving discovery log: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "discovery log saved to %s\n", path)
	}

	if err := printConfiguration(cmd.OutOrStdout(), format, conf); err != nil {
		return err
	}
	if conf.CalDAV == nil && conf.CardDAV == nil {
		return fmt.Errorf("no CalDAV or CardDAV service found for %s (re-run with --show-log for details)", args[0])
	}
	return nil
}

// saveLog writes the trace to a fresh file under the XDG state
// directory and returns its path.
func saveLog(logs string) (string, error) {
	dir := filepath.Join(xdg.StateHome, "davdiscover")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+".log")
	if err := os.WriteFile(path, []byte(logs), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

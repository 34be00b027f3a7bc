// Package cli holds the daybar command tree. Every command talks to a
// running daybard daemon over its local HTTP surface; the hours command is
// the one exception, it writes the shared settings file directly and lets
// the daemon's file watcher pick the change up.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/client"
	"github.com/yourname/daybar/internal/config"
)

var (
	cfg *config.Config
	cli *client.Client

	flagAddr  string
	flagToken string
)

var rootCmd = &cobra.Command{
	Use:   "daybar",
	Short: "Workday progress overlay for your terminal",
	Long: "daybar renders a workday progress bar and an optional focus countdown,\n" +
		"kept in sync across every attached terminal by the daybard daemon.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		addr := flagAddr
		if addr == "" {
			addr = baseURL(cfg.ListenAddr)
		}
		token := flagToken
		if token == "" {
			token = cfg.LocalAuthToken
		}
		cli = client.New(addr, token, internal.NopLogger{})
	},
}

// baseURL turns a listen address like ":8170" into a dialable URL.
func baseURL(listen string) string {
	if strings.HasPrefix(listen, "http://") || strings.HasPrefix(listen, "https://") {
		return listen
	}
	if strings.HasPrefix(listen, ":") {
		return "http://127.0.0.1" + listen
	}
	return "http://" + listen
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "daemon base URL (default derived from LISTEN_ADDR)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token (default LOCAL_AUTH_TOKEN)")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

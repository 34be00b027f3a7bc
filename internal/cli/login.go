package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/yourname/daybar/internal/identity"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and cache the session with the daemon",
	Long: "Opens the identity provider in a browser, then forwards the issued token\n" +
		"to the daemon. Pass --token to skip the browser step.",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := loginToken
		if token == "" {
			if cfg.AuthServiceURL == "" {
				return errors.New("no AUTH_SERVICE_URL configured, pass --token instead")
			}
			if err := browser.OpenURL(cfg.AuthServiceURL); err != nil {
				cmd.Printf("could not open a browser, visit %s (%v)\n", cfg.AuthServiceURL, err)
			}
			cmd.Print("paste the issued token: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return errors.New("empty token")
		}
		if identity.TokenExpired(token, time.Now()) {
			return errors.New("token is expired or unparseable")
		}
		session, err := identity.SessionFromToken(token)
		if err != nil {
			return fmt.Errorf("reading token claims: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cli.CompleteAuth(ctx, *session, token); err != nil {
			return err
		}
		cmd.Printf("signed in as %s\n", session.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the cached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cli.SignOut(ctx); err != nil {
			return err
		}
		cmd.Println("signed out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "use an already-issued token")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

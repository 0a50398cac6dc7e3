package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kingrea/newsroom/internal/domain"
	"github.com/kingrea/newsroom/internal/identity"
)

var loginProvider string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser with GitHub or Google",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := domain.Provider(loginProvider)
		if !provider.Valid() {
			return fmt.Errorf("unknown provider %q (want github or google)", loginProvider)
		}
		auth := newIdentity()
		defer auth.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Opening %s sign-in in your browser...\n", provider.DisplayName())
		session, err := auth.SignIn(cmd.Context(), provider)
		if err != nil {
			desk.Warn("CLI sign-in failed: %v", err)
			return err
		}
		role, _ := auth.Role(cmd.Context(), session.UserID())
		desk.Info("Signed in · %s", session.User.Email)
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", displayUser(session), role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := newIdentity()
		defer auth.Close()
		if err := auth.SignOut(cmd.Context()); err != nil {
			return err
		}
		desk.Info("Signed out")
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := newIdentity()
		defer auth.Close()
		session, err := auth.Session(cmd.Context())
		if errors.Is(err, identity.ErrNoSession) {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in. Run `newsroom login`.")
			return nil
		}
		if err != nil {
			return err
		}
		role, err := auth.Role(cmd.Context(), session.UserID())
		if err != nil {
			logger.Sugar().Warnw("role lookup failed", "error", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "User:    %s\n", displayUser(session))
		fmt.Fprintf(out, "Role:    %s\n", role)
		fmt.Fprintf(out, "Expires: %s\n", expiryText(session.ExpiresAt))
		return nil
	},
}

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Work with stories on the backend",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent stories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		articles, err := newBackend().ListArticles(cmd.Context())
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No stories yet.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), articleTable(articles, time.Now()))
		return nil
	},
}

func articleTable(articles []domain.Article, now time.Time) string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		updated := "-"
		if !a.CreatedAt.IsZero() {
			updated = humanize.RelTime(a.CreatedAt.Time, now, "ago", "from now")
		}
		rows = append(rows, []string{string(a.ID), a.DisplayTitle(), string(a.Status.OrDraft()), updated})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("ID", "Title / Topic", "Status", "Last Updated").
		Rows(rows...).
		String()
}

// expiryText renders a session expiry relative to now, or "-" when the
// provider did not report one.
func expiryText(expires time.Time) string {
	if expires.IsZero() {
		return "-"
	}
	return humanize.Time(expires)
}

func displayUser(session *domain.Session) string {
	if session.User.Email != "" {
		return session.User.Email
	}
	return session.UserID()
}

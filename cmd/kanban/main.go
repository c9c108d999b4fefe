package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nhle/kanban-sync/internal/app"
	"github.com/nhle/kanban-sync/internal/credential"
	"github.com/nhle/kanban-sync/internal/logging"
	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/persist"
	"github.com/nhle/kanban-sync/internal/remote"
	"github.com/nhle/kanban-sync/internal/store"
	appsync "github.com/nhle/kanban-sync/internal/sync"
)

var Version = "dev"

var (
	configPath string
	logLevel   string
	offline    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "kanban",
		Short:        "Kanban boards in the terminal, synced with your server",
		Version:      Version,
		SilenceUsage: true,
		RunE:         runBoard,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Work from the local cache only")

	rootCmd.AddCommand(boardsCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(resetCacheCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is everything a command needs to load and change boards.
type session struct {
	cfg     *model.AppConfig
	log     *log.Logger
	cache   store.Cache
	client  *remote.Client
	creds   *credential.Store
	adapter *persist.Adapter

	logCloser io.Closer
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if offline {
		cfg.Remote.BaseURL = ""
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: logger, logCloser: closer}

	s.cache, err = store.Open(ctx, cfg.Cache)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	opts := []persist.Option{persist.WithLogger(logger)}
	if cfg.Remote.BaseURL != "" {
		s.client, err = remote.NewClient(cfg.Remote.BaseURL,
			remote.WithTimeout(time.Duration(cfg.Remote.TimeoutSec)*time.Second),
			remote.WithCSRFCookie(cfg.Remote.CSRFCookie),
		)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating API client: %w", err)
		}
		opts = append(opts, persist.WithRemote(s.client))

		s.creds, err = credential.Open(filepath.Join(filepath.Dir(configPath), "keyring"))
		if err != nil {
			logger.Warn("keyring unavailable, running without a stored account", "err", err)
		} else {
			opts = append(opts, persist.WithCredentials(s.creds))
		}
	}
	s.adapter = persist.New(s.cache, opts...)

	logger.Info("session opened", "remote", cfg.Remote.BaseURL, "cache", cfg.Cache.Driver)
	return s, nil
}

// controller builds a session controller. Background pushes are enabled
// when push is set and a server is configured.
func (s *session) controller(push bool) *appsync.Controller {
	opts := []appsync.Option{appsync.WithLogger(s.log)}
	if push && s.client != nil {
		opts = append(opts, appsync.WithPusher(persist.NewPusher(s.client, s.log)))
	}
	return appsync.New(s.adapter, opts...)
}

func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.Warn("closing cache", "err", err)
		}
	}
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
}

func runBoard(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	m := app.New(s.controller(true),
		app.WithLogger(s.log),
		app.WithDefaultTheme(s.cfg.Display.Theme),
	)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}

func boardsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "Load the boards and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ctrl := s.controller(false)
			notices, err := ctrl.Start(cmd.Context())
			for _, n := range notices {
				fmt.Fprintf(os.Stderr, "%s: %s\n", n.Level, n.Message)
			}
			if err != nil {
				return err
			}

			h := ctrl.Snapshot()
			if asJSON {
				out, err := sonic.ConfigStd.MarshalIndent(h, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding boards: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			printHierarchy(cmd.OutOrStdout(), h, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func printHierarchy(w io.Writer, h model.Hierarchy, now time.Time) {
	for _, b := range h.Boards {
		marker := " "
		if b.ID == h.CurrentBoardID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\n", marker, b.Name)
		for _, l := range b.Lists {
			fmt.Fprintf(w, "    %s (%d)\n", l.Title, len(l.Tasks))
			for _, t := range l.Tasks {
				line := fmt.Sprintf("      - %s [%s]", t.Content, t.Priority)
				if t.DueDate != nil {
					line += " due " + model.FormatDate(t.DueDate)
					if t.IsOverdue(now) {
						line += " (overdue)"
					}
				}
				fmt.Fprintln(w, line)
			}
		}
	}
}

func loginCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the server and store the account in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if s.client == nil {
				return errors.New("no server configured: set remote.base_url")
			}
			if s.creds == nil {
				return errors.New("no keyring available to store the account")
			}
			if username == "" {
				username = s.cfg.Remote.Username
			}

			var password string
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Username").
					Value(&username).
					Validate(huh.ValidateNotEmpty()),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&password).
					Validate(huh.ValidateNotEmpty()),
			))
			if err := form.Run(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			err = s.client.Login(ctx, remote.Credentials{Username: username, Password: password})
			if err != nil {
				return fmt.Errorf("signing in as %s: %w", username, err)
			}
			acct := credential.Account{Username: username, Password: password}
			if err := s.creds.SaveAccount(s.client.BaseURL(), acct); err != nil {
				return err
			}
			fmt.Printf("Signed in to %s as %s.\n", s.client.BaseURL(), username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account name (defaults to remote.username)")
	return cmd
}

func resetCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-cache",
		Short: "Discard the locally cached boards; preferences are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.cache.ClearSnapshot(cmd.Context()); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Println("Local board cache cleared.")
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(configPath)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			cfg, err := model.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := model.SaveConfig(configPath, cfg); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

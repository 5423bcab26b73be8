package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/identity"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/repository/sqlite"
	"github.com/DenQuizon/comet-collections-extension/pkg/config"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/services"
	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

// app holds what every subcommand needs once storage is open.
type app struct {
	cfg         *config.Config
	repo        *sqlite.SQLiteRepository
	collections *services.CollectionService
	logger      *slog.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "comet",
		Short:         "Manage saved page collections from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.repo != nil {
				return a.repo.Close()
			}
			return nil
		},
	}

	root.AddCommand(
		a.listCmd(),
		a.openCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.migrateCmd(),
		a.loginCmd(),
		a.logoutCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	a.cfg = config.Load()
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	repo, err := sqlite.NewSQLiteRepository(a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.repo = repo

	// Browser actions are not available from the terminal; the coordinator
	// still owns storage setup and the entitlement cache.
	entitlement := services.NewEntitlementService(repo, nil, nil, "", a.logger)
	coordinator := services.NewCoordinator(repo, nil, nil, entitlement, a.logger)
	if err := coordinator.Install(ctx); err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}
	a.collections = services.NewCollectionService(repo, coordinator, a.logger)
	a.collections.Load(ctx)
	return nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [search]",
		Short: "List collections, optionally filtered by a search term",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collections := a.collections.Collections()
			if len(args) == 1 {
				collections = filterCollections(collections, args[0])
			}
			if len(collections) == 0 {
				pterm.Info.Println("No collections yet")
				return nil
			}

			data := pterm.TableData{{"ID", "Name", "Pages", "Created"}}
			for _, c := range collections {
				data = append(data, []string{c.ID, c.Name, strconv.Itoa(len(c.Pages)), c.CreatedAt.Local().Format(time.DateOnly)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
}

func filterCollections(collections []domain.Collection, term string) []domain.Collection {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []domain.Collection
	for _, c := range collections {
		if c.NameMatches(term) {
			out = append(out, c)
			continue
		}
		for _, p := range c.Pages {
			if p.Matches(term) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (a *app) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <collection-id>",
		Short: "Open every page of a collection in the default browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range a.collections.Collections() {
				if c.ID != args[0] {
					continue
				}
				if len(c.Pages) == 0 {
					pterm.Info.Printf("%s has no pages\n", c.Name)
					return nil
				}
				for _, p := range c.Pages {
					if err := browser.OpenURL(p.URL); err != nil {
						pterm.Warning.Printf("Could not open %s: %v\n", p.URL, err)
					}
				}
				pterm.Success.Printf("Opened %d pages from %s\n", len(c.Pages), c.Name)
				return nil
			}
			return domain.ErrCollectionNotFound
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var (
		output   string
		selected []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write collections as an export file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			file := a.collections.Export(ctx)
			if len(selected) > 0 {
				for _, id := range selected {
					a.collections.ToggleSelected(id)
				}
				var err error
				if file, err = a.collections.ExportSelected(ctx); err != nil {
					return err
				}
			}

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			encoder := json.NewEncoder(w)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(file); err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			if output != "" {
				pterm.Success.Printf("Exported %d collections to %s\n", len(file.Collections), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	cmd.Flags().StringSliceVar(&selected, "id", nil, "export only these collection ids")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import collections from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importMode, err := domain.ParseImportMode(mode)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n, err := a.collections.Import(cmd.Context(), data, importMode)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Imported %d collections (%s)\n", n, importMode)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.ImportMerge), "replace or merge")
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending storage migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := services.Migrate(cmd.Context(), a.repo, services.Migrations, a.logger)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Storage is at schema version %d\n", version)
			return nil
		},
	}
}

func (a *app) loginCmd() *cobra.Command {
	var token, refresh string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token in the system keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				loginURL := a.cfg.BaseURL + "/auth/google/login"
				pterm.Info.Println("Open this URL in your browser to log in:")
				pterm.Println(loginURL)
				if err := browser.OpenURL(loginURL); err != nil {
					pterm.Warning.Printf("Could not open browser automatically: %v\n", err)
				}
				return nil
			}

			store := identity.NewStore(a.cfg.KeyringService)
			if err := store.Save(&oauth2.Token{AccessToken: token, RefreshToken: refresh, TokenType: "Bearer"}); err != nil {
				return err
			}
			pterm.Success.Println("Token saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token to store")
	cmd.Flags().StringVar(&refresh, "refresh-token", "", "refresh token to store")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token and cached entitlement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := identity.NewStore(a.cfg.KeyringService).Delete(); err != nil {
				return err
			}
			if err := a.repo.Delete(cmd.Context(), services.KeyPremiumStatus); err != nil {
				return err
			}
			pterm.Success.Println("Logged out")
			return nil
		},
	}
}

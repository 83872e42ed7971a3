// newsfeed - агрегатор новостей NewsAPI, New York Times и RSS.
//
// Использование:
//
//	newsfeed serve               # HTTP API, поллер и воркеры
//	newsfeed latest --page 2     # лента последних новостей
//	newsfeed category science    # лента категории
//	newsfeed breaking            # срочные новости
//	newsfeed search <term>       # поиск по загруженным лентам
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsfeed/internal/app"
	"newsfeed/internal/config"
	"newsfeed/internal/logger"
	"newsfeed/internal/models"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	configPath string
	json       bool
	verbose    bool
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "newsfeed",
		Short:         "Multi-source news aggregator",
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "путь к YAML-конфигурации")
	rootCmd.PersistentFlags().BoolVar(&flags.json, "json", false, "вывод в JSON")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "писать лог в stdout")

	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(latestCmd(flags))
	rootCmd.AddCommand(categoryCmd(flags))
	rootCmd.AddCommand(breakingCmd(flags))
	rootCmd.AddCommand(searchCmd(flags))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp собирает приложение для разовых команд; лог глушится, чтобы не мешать выводу.
func openApp(ctx context.Context, flags *globalFlags) (*app.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	if !flags.verbose {
		logger.Discard()
	}
	return app.New(ctx, cfg)
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API, поллер и воркеры",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel)
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	defer logger.Log.Info("Application stopped")

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.StartBackground(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.Server().Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Log.Errorf("Forced shutdown: %v", err)
		return err
	}
	return nil
}

func latestCmd(flags *globalFlags) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Лента последних новостей",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if page < 1 {
				page = 1
			}
			result := a.Engine.LatestPage(cmd.Context(), page, pageSize)
			if flags.json {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printArticles(cmd.OutOrStdout(), result.Items)
			printPagination(cmd.OutOrStdout(), result.Pagination)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "номер страницы")
	cmd.Flags().IntVarP(&pageSize, "page-size", "n", 20, "размер страницы (до 100)")
	return cmd
}

func categoryCmd(flags *globalFlags) *cobra.Command {
	var withBreaking bool

	cmd := &cobra.Command{
		Use:   "category <name>",
		Short: "Лента категории или раздела NYT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Feed.Category(cmd.Context(), args[0], withBreaking)
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printArticles(cmd.OutOrStdout(), items)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&withBreaking, "breaking", "b", false, "подмешать срочные новости")
	return cmd
}

func breakingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "breaking",
		Short: "Срочные новости",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			items := a.Engine.Breaking(cmd.Context())
			if flags.json {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printArticles(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func searchCmd(flags *globalFlags) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Поиск по общей ленте и, с --remote, по архиву NewsAPI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.Feed.Refresh(ctx, models.CategoryGeneral); err != nil {
				return err
			}

			var items []models.Article
			if remote {
				items, err = a.Feed.SearchRemote(ctx, a.Catalog.NewsAPI.Everything, args[0])
				if err != nil {
					logger.Log.Warnf("Archive search failed: %v", err)
				}
			} else {
				items = a.Feed.Search(args[0])
			}

			if flags.json {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printArticles(cmd.OutOrStdout(), items)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "искать также в архиве NewsAPI")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("newsfeed %s\n", version)
		},
	}
}

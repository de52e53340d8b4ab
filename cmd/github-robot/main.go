package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	vcsurl "github.com/gitsight/go-vcsurl"
	"github.com/spf13/cobra"

	"github.com/Toxicable/github-robot/internal/bot"
	"github.com/Toxicable/github-robot/internal/config"
	"github.com/Toxicable/github-robot/internal/gh"
	"github.com/Toxicable/github-robot/internal/logging"
	"github.com/Toxicable/github-robot/internal/server"
	"github.com/Toxicable/github-robot/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "github-robot",
	Short: "Repository automation bot (PR sync, triage status)",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(logging.DefaultLogger()).WithName("github-robot")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() { <-sigs; cancel() }()

		st, closeStore, err := buildStore(ctx, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		client, err := buildClient()
		if err != nil {
			return err
		}

		task := bot.NewTask(st, client, logger)
		triage := bot.NewTriageTask(task, client.REST, config.StatusContext(), logger)
		dispatcher := bot.NewDispatcher(logger)
		triage.Register(dispatcher)

		srv := server.New(dispatcher, config.WebhookSecret(), logger)
		httpServer := &http.Server{
			Addr:              config.BindAddress(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "address", config.BindAddress())
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <pr-url> | <owner/repo> <number>",
	Short: "Synchronize one pull request into the store and print it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(logging.DefaultLogger()).WithName("sync")

		owner, repo, number, err := parseSyncArgs(args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() { <-sigs; cancel() }()

		st, closeStore, err := buildStore(ctx, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		client, err := buildClient()
		if err != nil {
			return err
		}

		repoInfo, _, err := client.REST.Repositories.Get(ctx, owner, repo)
		if err != nil {
			return fmt.Errorf("fetching repository %s/%s: %w", owner, repo, err)
		}

		task := bot.NewTask(st, client, logger)
		record, err := task.UpdatePR(ctx, owner, repo, number, repoInfo.GetID(), nil)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func parseSyncArgs(args []string) (owner, repo string, number int, err error) {
	if len(args) == 2 {
		parts := strings.SplitN(args[0], "/", 2)
		if len(parts) != 2 {
			return "", "", 0, fmt.Errorf("expected owner/repo, got %q", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid pull request number %q", args[1])
		}
		return parts[0], parts[1], n, nil
	}

	// Single arg: a PR URL like https://github.com/owner/repo/pull/123
	repoPart, numPart, found := strings.Cut(args[0], "/pull/")
	if !found {
		return "", "", 0, fmt.Errorf("expected a pull request URL, got %q", args[0])
	}
	numPart = strings.TrimSuffix(strings.SplitN(numPart, "/", 2)[0], "/")
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request number in %q", args[0])
	}
	info, err := vcsurl.Parse(repoPart)
	if err != nil {
		return "", "", 0, fmt.Errorf("parsing repository URL: %w", err)
	}
	return info.Username, info.Name, n, nil
}

func buildStore(ctx context.Context, logger logging.Logger) (*store.Store, func(), error) {
	dsn := config.PostgresURL()
	if dsn == "" {
		logger.Info("no postgres url configured, using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}
	database, err := store.NewDatabase(store.Config{DSN: dsn, Debug: config.StoreDebug()})
	if err != nil {
		return nil, nil, err
	}
	if err := database.Bootstrap(ctx); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return store.NewBunStore(database), func() { _ = database.Close() }, nil
}

func buildClient() (*gh.Client, error) {
	if config.AppID() != 0 && config.PrivateKeyPath() != "" {
		return gh.NewAppClient(config.AppID(), config.InstallationID(), config.PrivateKeyPath())
	}
	return gh.NewTokenClient(config.GitHubToken()), nil
}

func main() {
	config.Init(rootCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("github-robot: %v", err)
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"datanerd/internal/dataset"
	"datanerd/internal/session"
	"datanerd/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat over the configured dataset",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}
	engine, err := buildEngine(ds)
	if err != nil {
		return err
	}

	history, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open exchange store: %w", err)
	}
	defer history.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	// Watch mode reloads the dataset between exchanges.
	if cfg.Dataset.Watch {
		watcher, werr := dataset.NewWatcher(cfg.Dataset.Path, cfg.Dataset.Enrich, engine.SetDataset)
		if werr != nil {
			return fmt.Errorf("failed to watch dataset: %w", werr)
		}
		group.Go(func() error {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		defer cancel()
		return chatLoop(ctx, engine, history)
	})

	return group.Wait()
}

func chatLoop(ctx context.Context, engine *session.Engine, history *store.Store) error {
	renderer := newMarkdownRenderer()
	ds := engine.Dataset()

	fmt.Println(titleStyle.Render("dataNERD"))
	fmt.Printf("Loaded %d rows, %d columns from %s\n", len(ds.Rows), len(ds.Headers), cfg.Dataset.Path)
	fmt.Println(mutedStyle.Render("Ask a question, or type /quit to exit."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "/quit" || question == "/exit" {
			return nil
		}
		if question == "/profile" {
			fmt.Println(engine.Dataset().Profile())
			continue
		}

		result, err := engine.Ask(ctx, question)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			continue
		}

		printExchange(renderer, result)

		if err := history.SaveExchange(result); err != nil {
			zlog.Warnw("failed to save exchange", "error", err)
		}
	}
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/chat"
	"github.com/poiesic/recall/reembed"
	"github.com/poiesic/recall/source"
	"github.com/poiesic/recall/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Retrieval-augmented knowledge base over local and web content",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory",
				Value:   "./recall-data",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "OpenAI-compatible service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:     "embedding-model",
				Usage:    "Embedding model name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "chat-model",
				Usage: "Chat model name (required for ask)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files, directories, URLs or literal text",
				ArgsUsage: "[path ...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Reprocess sources that were already ingested",
					},
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "Web page URL to ingest",
					},
					&cli.StringSliceFlag{
						Name:  "text",
						Usage: "Literal text to ingest",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the ingested content",
				ArgsUsage: "<query>",
				Action:    searchCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question answered from the ingested content",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"c"},
						Usage:   "Conversation ID to continue",
					},
				},
			},
			{
				Name:   "sources",
				Usage:  "List the ingested sources",
				Action: sourcesCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete an ingested source",
				ArgsUsage: "<source-key>",
				Action:    deleteCommand,
			},
			{
				Name:   "reset",
				Usage:  "Delete all embeddings and source records",
				Action: resetCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed all stored chunks into a new vector store",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "Path to the target vector store directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openApplication wires the stores and AI providers from the global
// flags. The caller must Close the returned application.
func openApplication(c *cli.Context) (*recall.Application, error) {
	configOpts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	}
	if model := c.String("chat-model"); model != "" {
		configOpts = append(configOpts, ai.WithChatModel(model))
	}
	config := ai.NewConfig(configOpts...)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dataDir := c.String("db")
	store, err := badger.NewStore(filepath.Join(dataDir, "meta"))
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	vectors, err := badger.NewVectorStore(filepath.Join(dataDir, "vectors"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	opts := []recall.ApplicationOption{
		recall.WithEmbedder(embedder),
		recall.WithVectorStore(vectors),
		recall.WithStore(store),
	}
	if c.String("chat-model") != "" {
		model, err := openai.NewChatModel(config)
		if err != nil {
			vectors.Close()
			store.Close()
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		opts = append(opts, recall.WithModel(model))
	}

	app, err := recall.New(c.Context, opts...)
	if err != nil {
		vectors.Close()
		store.Close()
		return nil, err
	}
	return app, nil
}

func ingestCommand(c *cli.Context) error {
	sources, err := collectSources(c)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("nothing to ingest: pass paths, --url or --text")
	}

	app, err := openApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	register := app.AddSource
	if c.Bool("force") {
		register = app.ReprocessSource
	}

	for _, src := range sources {
		result, err := register(c.Context, src)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", src.UniqueKey(), err)
		}
		if result.ChunksAdded == 0 {
			fmt.Printf("%s: unchanged, skipped\n", result.SourceKey)
			continue
		}
		fmt.Printf("%s: %d chunks\n", result.SourceKey, result.ChunksAdded)
	}
	return nil
}

// collectSources builds one source per path, URL and text flag.
// Directories become a single walking source.
func collectSources(c *cli.Context) ([]source.Source, error) {
	var sources []source.Source
	for _, path := range c.Args().Slice() {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			sources = append(sources, source.NewDirectory(path))
			continue
		}
		src, err := source.ForFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		sources = append(sources, src)
	}
	for _, url := range c.StringSlice("url") {
		sources = append(sources, source.NewWeb(url))
	}
	for _, text := range c.StringSlice("text") {
		sources = append(sources, source.NewText(text))
	}
	return sources, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	app, err := openApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.Search(c.Context, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%d. [%.4f] %s\n", i+1, result.Score, result.PageContent)
		if src := result.Metadata["source"]; src != "" {
			fmt.Printf("   source: %s\n", src)
		}
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}
	if c.String("chat-model") == "" {
		return fmt.Errorf("--chat-model is required for ask")
	}

	app, err := openApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	var opts *chat.QueryOptions
	if id := c.String("conversation"); id != "" {
		opts = &chat.QueryOptions{ConversationID: id}
	}

	response, err := app.Query(c.Context, question, opts)
	if err != nil {
		return err
	}

	fmt.Println(response.Content)
	if len(response.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, ref := range response.Sources {
			fmt.Printf("  - %s\n", ref.Source)
		}
	}
	fmt.Fprintf(os.Stderr, "tokens: input=%s output=%s\n",
		response.TokenUse.InputTokens, response.TokenUse.OutputTokens)
	return nil
}

func sourcesCommand(c *cli.Context) error {
	app, err := openApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Sources(c.Context)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No sources.")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s\t%s\t%d chunks\n", record.UniqueKey, record.SourceType, record.ChunksProcessed)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("source key is required")
	}

	app, err := openApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	deleted, err := app.DeleteSource(c.Context, key)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("%s: not found\n", key)
		return nil
	}
	fmt.Printf("%s: deleted\n", key)
	return nil
}

func resetCommand(c *cli.Context) error {
	app, err := openApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Reset(c.Context); err != nil {
		return err
	}
	fmt.Println("Reset complete.")
	return nil
}

func reembedCommand(c *cli.Context) error {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := openai.NewEmbedder(config)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	source, err := badger.NewVectorStore(filepath.Join(c.String("db"), "vectors"))
	if err != nil {
		return fmt.Errorf("failed to open source vector store: %w", err)
	}
	defer source.Close()

	target, err := badger.NewVectorStore(c.String("target"))
	if err != nil {
		return fmt.Errorf("failed to open target vector store: %w", err)
	}
	defer target.Close()

	lister, ok := source.(reembed.ChunkLister)
	if !ok {
		return fmt.Errorf("source vector store does not support chunk enumeration")
	}

	migrator := reembed.NewMigrator(lister, target, embedder, &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}, os.Stderr)

	return migrator.Run(c.Context)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

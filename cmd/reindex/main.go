package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/freshbazaar/assistant"
	"github.com/freshbazaar/assistant/catalog"
	"github.com/freshbazaar/assistant/persistence/chromem"
	"github.com/freshbazaar/assistant/provider/openai"
)

// Offline indexing job. Run as a single exclusive process; the online
// service may keep answering against the collection while this runs, which
// can briefly observe a partially rebuilt index.
func main() {
	cmd := &cli.Command{
		Name:  "reindex",
		Usage: "Index the product catalog into the vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the assistant working directory",
			},
			&cli.BoolFlag{
				Name:  "rebuild",
				Usage: "Drop and recreate the collection before indexing",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	godotenv.Load()

	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".freshbazaar", "assistant")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()

	var cfg assistant.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
	}

	if cfg.Catalog.DSN == "" {
		cfg.Catalog.DSN = filepath.Join(path, "catalog.db")
	}

	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	store, err := chromem.NewStore(cfg.Vector)
	if err != nil {
		return err
	}

	source, err := catalog.NewSource(cfg.Catalog)
	if err != nil {
		return err
	}

	client, err := openai.NewClient(cfg.Provider)
	if err != nil {
		return err
	}

	svc, err := assistant.NewService(cfg, source, client, client, store)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = assistant.LoggingMiddleware(log)(svc)

	summary, err := svc.Reindex(ctx, cmd.Bool("rebuild"))
	if err != nil {
		return err
	}

	bs, err := json.MarshalIndent(&summary, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(bs))
	return nil
}

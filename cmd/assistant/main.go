package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/freshbazaar/assistant"
	"github.com/freshbazaar/assistant/catalog"
	"github.com/freshbazaar/assistant/persistence/chromem"
	"github.com/freshbazaar/assistant/provider/openai"

	mcpE "github.com/freshbazaar/assistant/mcp"
	httpT "github.com/freshbazaar/assistant/transport/http"
	natsT "github.com/freshbazaar/assistant/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "assistant",
		Usage: "Catalog assistant service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the assistant working directory",
			},
			&cli.StringFlag{
				Name:    "market-id",
				Usage:   "Market ID used in NATS subjects",
				Value:   "default",
				Sources: cli.EnvVars("MARKET_ID"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL (empty disables the NATS transport)",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
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

	endpoints := assistant.EndpointSet{
		Ask:     assistant.AskEndpoint(svc),
		Reindex: assistant.ReindexEndpoint(svc),
	}

	natsURL := cmd.String("nats")
	if natsURL != "" {
		marketID := cmd.String("market-id")

		opts := []nats.Option{
			nats.Name("Catalog Assistant - " + marketID),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "assistant",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "markets." + marketID + ".assistant"

		root := srv.AddGroup(topic)
		natsT.AddEndpoints(root, endpoints)
	}

	r := gin.Default()
	httpT.AddRouters(r, endpoints)

	mcpEndpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
	mcpEndpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
	mcpEndpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
	mcpEndpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
	mcpEndpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
	httpT.AddStreamableRouters(r, mcpEndpoints)

	httpAddr := cmd.String("http-addr")
	go r.Run(httpAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

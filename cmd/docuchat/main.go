package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/docuchat/docuchat"
	"github.com/docuchat/docuchat/ai/gemini"
	"github.com/docuchat/docuchat/extract"
	"github.com/docuchat/docuchat/persistence/chromem"
	"github.com/docuchat/docuchat/queue"

	jetstreamQ "github.com/docuchat/docuchat/queue/jetstream"
	memoryQ "github.com/docuchat/docuchat/queue/memory"
	httpT "github.com/docuchat/docuchat/transport/http"
	natsT "github.com/docuchat/docuchat/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "docuchat",
		Usage: "Document and video RAG chat service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the docuchat working directory",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   nats.DefaultURL,
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Gemini API key",
				Sources: cli.EnvVars("GEMINI_API_KEY", "GOOGLE_API_KEY"),
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
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".docuchat")
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

	var cfg docuchat.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	cfg.AI.APIKey = cmd.String("api-key")
	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
		return err
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:         cfg.AI.APIKey,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		ChatModel:      cfg.AI.ChatModel,
		MaxAttempts:    cfg.AI.MaxAttempts,
		RetryBaseDelay: cfg.AI.RetryBaseDelay.Duration(),
	})

	if err != nil {
		return err
	}
	defer client.Close()

	store, err := chromem.NewChromemStore(cfg.Vector)
	if err != nil {
		return err
	}

	extractors := extract.NewRegistry()
	extractors.Register(queue.SourceKindFile, &extract.FileExtractor{
		MaxSegmentChars: cfg.Ingest.MaxSegmentChars,
	})

	if cfg.Ingest.TranscriptURL != "" {
		extractors.Register(queue.SourceKindURL, &extract.TranscriptExtractor{
			Endpoint:        cfg.Ingest.TranscriptURL,
			MaxSegmentChars: cfg.Ingest.MaxSegmentChars,
		})
	} else {
		log.Warn("transcript service not configured, video uploads will be rejected")
	}

	var (
		jobs queue.Queue
		nc   *nats.Conn
	)

	switch cfg.Queue.Driver {
	case docuchat.QueueDriverMemory:
		jobs = memoryQ.NewQueue(memoryQ.Config{
			MaxDeliver: cfg.Queue.MaxDeliver,
		})

	default:
		nc, err = nats.Connect(cmd.String("nats"),
			nats.Name("Docuchat Server"),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		jobs, err = jetstreamQ.NewQueue(ctx, nc, jetstreamQ.Config{
			Stream:      cfg.Queue.Stream,
			Subject:     cfg.Queue.Subject,
			Consumer:    cfg.Queue.Consumer,
			MaxDeliver:  cfg.Queue.MaxDeliver,
			AckWait:     cfg.Queue.AckWait.Duration(),
			Concurrency: cfg.Queue.Concurrency,
		})

		if err != nil {
			return err
		}
	}

	svc, err := docuchat.NewService(ctx, cfg, docuchat.Dependencies{
		Queue:      jobs,
		Store:      store,
		Embedder:   client,
		Generator:  client,
		Extractors: extractors,
	})

	if err != nil {
		return err
	}
	defer svc.Close()

	svc = docuchat.LoggingMiddleware(log)(svc)

	endpoints := docuchat.EndpointSet{
		SubmitIngestion: docuchat.SubmitIngestionEndpoint(svc),
		IngestionStatus: docuchat.IngestionStatusEndpoint(svc),
		Chat:            docuchat.ChatEndpoint(svc),
	}

	// Add NATS Transport
	if nc != nil {
		srv, err := micro.AddService(nc, micro.Config{
			Name:    "docuchat",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("docuchat")
		natsT.AddEndpoints(root, endpoints)
	}

	verifier := docuchat.NewStaticTokenVerifier(cfg.Auth)

	r := gin.Default()
	httpT.AddRouters(r, endpoints, verifier, cfg.Ingest.UploadDir)

	go r.Run(cmd.String("http-addr"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

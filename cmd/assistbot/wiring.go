package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"

	"assistbot/internal/assistant"
	"assistbot/internal/config"
	"assistbot/internal/image"
	"assistbot/internal/provider"
	"assistbot/internal/question"
	"assistbot/internal/storage"
	"assistbot/internal/todo"
	"assistbot/internal/vision"
)

// App holds the assembled assistant and the resources it owns.
type App struct {
	Assistant *assistant.Assistant
	store     storage.Store
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// loadAWSConfig resolves credentials and region once; every AWS collaborator shares it.
func loadAWSConfig(ctx context.Context, ac config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(ac.Region)}
	if ac.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(ac.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func buildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, awsCfg)
}

// assemble constructs every collaborator and handler from cfg. Nothing here
// talks to the network; clients connect lazily on first use.
func assemble(cfg *config.Config, awsCfg aws.Config) (*App, error) {
	store, err := storage.Open(cfg.Storage, awsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("todo store: %w", err)
	}

	model, err := provider.NewFactory(awsCfg, logger).Get(cfg.Model)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("language model: %w", err)
	}

	rek := vision.NewRekognition(rekognition.NewFromConfig(awsCfg), logger)
	fetcher := image.NewHTTPFetcher(time.Duration(cfg.Vision.DownloadTimeoutSeconds)*time.Second, cfg.Vision.MaxImageBytes)

	a := assistant.New(assistant.Config{
		Todo: todo.NewHandler(todo.HandlerConfig{
			Store:  store,
			Logger: logger,
		}),
		Image: image.NewHandler(image.HandlerConfig{
			Fetcher:       fetcher,
			Vision:        rek,
			MaxLabels:     cfg.Vision.MaxLabels,
			MinConfidence: cfg.Vision.MinConfidence,
			Logger:        logger,
		}),
		Question: question.NewHandler(question.HandlerConfig{
			Model:           model,
			ProtocolVersion: cfg.Model.ProtocolVersion,
			MaxTokens:       cfg.Model.MaxTokens,
			Logger:          logger,
		}),
		Logger: logger,
	})

	return &App{Assistant: a, store: store}, nil
}

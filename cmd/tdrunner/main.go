// Command tdrunner executes one Tabsdata function invocation: it loads
// the request document and the pre-extracted bundle, drives the user
// function through its source and destination strategies, reconciles the
// offset checkpoint and writes the response document.
//
// Exit codes: 0 done, 1 execution failure, 2 invalid request or config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tabsdata-labs/tabsdata-go/internal/bundle"
	"github.com/tabsdata-labs/tabsdata-go/internal/execution"
	"github.com/tabsdata-labs/tabsdata-go/internal/platform/env"
	"github.com/tabsdata-labs/tabsdata-go/internal/platform/objectstore"
	"github.com/tabsdata-labs/tabsdata-go/internal/request"
	"github.com/tabsdata-labs/tabsdata-go/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	requestFile := flag.String("request", env.String("TD_REQUEST_FILE", ""), "path to the request document")
	bundleFolder := flag.String("bundle", env.String("TD_BUNDLE_FOLDER", ""), "path to the extracted function bundle")
	flag.Parse()

	if *requestFile == "" || *bundleFolder == "" {
		logger.Error("missing arguments", "request", *requestFile, "bundle", *bundleFolder)
		os.Exit(2)
	}

	raw, err := os.ReadFile(*requestFile)
	if err != nil {
		logger.Error("request file unreadable", "path", *requestFile, "error", err)
		os.Exit(2)
	}
	req, err := request.Parse(raw)
	if err != nil {
		logger.Error("invalid request document", "error", err)
		os.Exit(2)
	}
	logger = logger.With("execution_id", req.ExecutionID, "transaction_id", req.TransactionID)

	config, err := bundle.LoadFunctionConfig(*bundleFolder)
	if err != nil {
		logger.Error("invalid function bundle", "error", err)
		os.Exit(2)
	}

	resolver, err := buildResolver()
	if err != nil {
		logger.Error("invalid storage config", "error", err)
		os.Exit(2)
	}

	paths := bundle.ExecutionPaths{
		BundleFolder:   *bundleFolder,
		ResponseFolder: filepath.Join(*bundleFolder, "response"),
		OutputFolder:   filepath.Join(*bundleFolder, "output"),
		RequestFile:    *requestFile,
	}

	ec := execution.NewContext(logger, paths, config, req, resolver)
	if err := execution.Run(ctx, ec); err != nil {
		logger.Error("invocation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("invocation done", "response", paths.ResponseFile())
}

// buildResolver registers the storage backends. The local backend is
// always available; s3 is wired only when TD_MINIO_ENDPOINT is set.
func buildResolver() (*storage.Resolver, error) {
	resolver := storage.NewResolver()
	resolver.Register("file", storage.NewLocalStore())

	if env.String("TD_MINIO_ENDPOINT", "") == "" {
		return resolver, nil
	}
	cfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("object store config: %w", err)
	}
	client, err := objectstore.NewMinIOClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	s3, err := storage.NewS3Store(client)
	if err != nil {
		return nil, err
	}
	resolver.Register("s3", s3)
	return resolver, nil
}

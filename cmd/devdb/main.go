// Command devdb starts a throwaway PostgreSQL container for local
// development, prints its DSN and removes it on Ctrl+C.
//
//	DB_DRIVER=postgres DATABASE_URL=$(go run ./cmd/devdb | head -1) go run ./cmd/server
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/blogpost-api/internal/devdb"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inst, err := devdb.Start(ctx, devdb.DefaultConfig(), logger)
	if err != nil {
		logger.Error("failed to start database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(inst.DSN())
	logger.Info("postgres is ready; press Ctrl+C to remove it")

	<-ctx.Done()

	if err := inst.Close(); err != nil {
		logger.Error("failed to remove container", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("container removed")
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nikogura/resume-ai/pkg/resume"
	"github.com/nikogura/resume-ai/pkg/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listenAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var seedFiles []string

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the AI tasks over HTTP",
	Long: `Starts the HTTP API used by the resume editor.

Resumes are read from PostgreSQL when DATABASE_URL (or server.database_url) is
set, and from memory otherwise. --seed loads resume files into the store at
startup and prints their ids.

Examples:
  resume-ai serve --seed resume.json
  DATABASE_URL=postgres://localhost/resumes resume-ai serve --listen :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config, :3000)")
	serveCmd.Flags().StringSliceVar(&seedFiles, "seed", nil, "Resume JSON files to load at startup")
}

func runServe(_ *cobra.Command, _ []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var store resume.Store
	store, err = openStore(ctx, cfg.Server.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	err = seedStore(ctx, store, seedFiles)
	if err != nil {
		return err
	}

	addr := cfg.Server.Listen
	if listenAddr != "" {
		addr = listenAddr
	}

	srv := server.New(client, store,
		server.WithLogger(logrus.StandardLogger()),
		server.WithResultCheck(getVerbose()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	fmt.Printf("Serving on %s with %s backend\n", addr, client.Backend().Name())

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	err = srv.Shutdown()
	if err != nil {
		err = errors.Wrap(err, "failed to shut down HTTP API")
	}
	return err
}

func openStore(ctx context.Context, dsn string) (store resume.Store, err error) {
	if dsn == "" {
		store = resume.NewMemoryStore()
		return store, err
	}

	var pg *resume.PGStore
	pg, err = resume.NewPGStore(ctx, dsn)
	if err != nil {
		return store, err
	}

	err = pg.Migrate(ctx)
	if err != nil {
		pg.Close()
		return store, err
	}

	store = pg
	return store, err
}

func seedStore(ctx context.Context, store resume.Store, paths []string) (err error) {
	for _, path := range paths {
		var doc resume.Document
		doc, err = resume.Load(path)
		if err != nil {
			return err
		}

		err = store.Save(ctx, doc)
		if err != nil {
			err = errors.Wrapf(err, "failed to seed %s", path)
			return err
		}

		fmt.Printf("Seeded %s as %s\n", path, doc.ID)
	}
	return err
}

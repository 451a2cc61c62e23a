package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/shorturl/internal/app/server"
	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/config"
	"github.com/atinyakov/shorturl/internal/logger"
	"github.com/atinyakov/shorturl/internal/repository"
	"github.com/atinyakov/shorturl/internal/storage"
	"github.com/atinyakov/shorturl/internal/storage/dynamo"
	"github.com/atinyakov/shorturl/internal/validator"

	_ "net/http/pprof"
)

var buildVersion string
var buildDate string
var buildCommit string

const shutdownTimeout = 10 * time.Second

// store is what the service needs from a backend plus the ability to release it.
type store interface {
	service.Storage
	io.Closer
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	options, err := config.Parse(args)
	if err != nil {
		return err
	}

	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))

	l := logger.New()
	if err := l.Init(options.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zapLogger := l.Log
	defer func() {
		_ = zapLogger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStorage(ctx, options, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			zapLogger.Error("storage close failed", zap.Error(err))
		}
	}()

	v, err := validator.FromPolicy(options.ValidationPolicy, net.DefaultResolver, options.DNSTimeout, zapLogger)
	if err != nil {
		return err
	}
	zapLogger.Info("url validation policy", zap.Strings("checks", options.ValidationPolicy))

	URLService := service.NewURL(s, v, zapLogger)
	r := server.Init(server.Options{
		ViewsDir:      options.ViewsDir,
		PublicDir:     options.PublicDir,
		TrustedSubnet: options.TrustedSubnet,
	}, zapLogger, URLService)

	srv := &http.Server{
		Addr:              options.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if options.EnablePprof {
		pprofSrv := &http.Server{Addr: "localhost:6060", Handler: http.DefaultServeMux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			zapLogger.Info("Starting pprof server", zap.String("addr", pprofSrv.Addr))
			return ignoreClosed(pprofSrv.ListenAndServe())
		})
		g.Go(func() error {
			<-gCtx.Done()
			return shutdown(pprofSrv)
		})
	}

	g.Go(func() error {
		if options.EnableHTTPS {
			manager := &autocert.Manager{
				Cache:  autocert.DirCache("cache-dir"),
				Prompt: autocert.AcceptTOS,
			}
			srv.Addr = ":443"
			srv.TLSConfig = manager.TLSConfig()
			zapLogger.Info("Server is running with TLS", zap.String("addr", srv.Addr))
			return ignoreClosed(srv.ListenAndServeTLS("", ""))
		}

		zapLogger.Info("Server is running", zap.String("addr", srv.Addr))
		return ignoreClosed(srv.ListenAndServe())
	})

	g.Go(func() error {
		<-gCtx.Done()
		zapLogger.Info("shutting down")
		return shutdown(srv)
	})

	return g.Wait()
}

// openStorage picks the backend: database, then DynamoDB, then file, then memory.
func openStorage(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (store, error) {
	switch {
	case options.DatabaseDSN != "":
		zapLogger.Info("using db")
		db, err := repository.InitDB(ctx, options.DatabaseDSN, zapLogger)
		if err != nil {
			return nil, err
		}
		zapLogger.Info("Database connected and migrations applied.")
		return repository.CreateURLRepository(db, zapLogger), nil

	case options.DynamoTable != "":
		zapLogger.Info("using dynamodb", zap.String("table", options.DynamoTable), zap.String("region", options.DynamoRegion))
		return dynamo.New(ctx, dynamo.Options{
			Region:   options.DynamoRegion,
			Table:    options.DynamoTable,
			Endpoint: options.DynamoEndpoint,
		}, zapLogger)

	case options.FilePath != "":
		zapLogger.Info("using file", zap.String("filePath", options.FilePath))
		return storage.NewFileStorage(options.FilePath, zapLogger)

	default:
		zapLogger.Info("using in memory storage")
		return storage.CreateMemoryStorage()
	}
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

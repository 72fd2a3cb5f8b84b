package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    cfgpkg "github.com/local/pagemerge/internal/config"
    "github.com/local/pagemerge/internal/imagerender"
    "github.com/local/pagemerge/internal/merge"
    "github.com/local/pagemerge/internal/metrics"
    "github.com/local/pagemerge/internal/pages"
    "github.com/local/pagemerge/internal/pdfio"
    "github.com/local/pagemerge/internal/session"
    "github.com/local/pagemerge/internal/statuscheck"
    "github.com/local/pagemerge/internal/storage"
    "github.com/local/pagemerge/internal/store"
    "github.com/local/pagemerge/internal/web"
)

type statusBackend interface {
    session.StatusStore
    Ping(ctx context.Context) error
    Close() error
}

func runServe(cfg cfgpkg.Config, engine pdfio.Engine, cmd *ServeCmd) error {
    metrics.Init()

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Status store
    var status statusBackend = store.NewMemory()
    if cfg.Status.RedisURL != "" {
        rs, err := store.NewRedisStatus(cfg.Status.RedisURL)
        if err != nil {
            return fmt.Errorf("redis status store: %w", err)
        }
        status = rs
    }
    defer status.Close()

    var pub merge.Publisher
    var bucket statuscheck.BucketChecker
    if cfg.Publish.Bucket != "" {
        s3p, err := storage.NewS3Publisher(ctx, publishOptions(cfg))
        if err != nil {
            return fmt.Errorf("s3 publisher: %w", err)
        }
        pub, bucket = s3p, s3p
    }

    sess := session.New(ctx, session.Dependencies{
        Scanner:   pages.NewScanner(engine, cfg.PDF.ScanWorkers),
        Runner:    merge.NewRunner(merge.NewExecutor(engine), pub),
        Status:    status,
        StatusKey: cfg.Status.Key,
    })
    go sess.Run(ctx)

    folder := cmd.Folder
    if folder == "" { folder = cfg.Server.InputDir }
    if folder != "" {
        if _, err := sess.Load(ctx, folder); err != nil {
            log.Warn().Err(err).Str("folder", folder).Msg("initial folder not loaded")
        }
    }
    out := cmd.Out
    if out == "" { out = cfg.Server.OutputPath }
    sess.SetOutput(out)

    mux := http.NewServeMux()
    checker := statuscheck.New(statuscheck.Options{
        Store:  status,
        Bucket: bucket,
        Paths: func() (string, string) {
            snap := sess.Snapshot()
            return snap.Folder, snap.Output
        },
    })
    web.New(sess, web.Options{
        Preview: imagerender.Options{
            DPI:     cfg.PDF.PreviewDPI,
            Quality: cfg.PDF.PreviewQuality,
            Color:   imagerender.ColorRGB,
        },
        Checker: checker,
    }).RegisterRoutes(mux)

    port := cmd.Port
    if port == "" { port = cfg.Server.Port }
    srv := &http.Server{Addr: ":"+port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

    errc := make(chan error, 1)
    go func(){
        log.Info().Msgf("HTTP server listening on :%s", port)
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errc <- err
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    select {
    case <-stop:
    case err := <-errc:
        return fmt.Errorf("http server: %w", err)
    }
    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer shutdownCancel()
    _ = srv.Shutdown(shutdownCtx)
    log.Info().Msg("shutdown complete")
    return nil
}

func publishOptions(cfg cfgpkg.Config) storage.Options {
    return storage.Options{
        Bucket:          cfg.Publish.Bucket,
        Prefix:          cfg.Publish.Prefix,
        Region:          cfg.Publish.Region,
        Endpoint:        cfg.Publish.Endpoint,
        AccessKeyID:     cfg.Publish.AccessKeyID,
        SecretAccessKey: cfg.Publish.SecretAccessKey,
    }
}

package main

import (
    "context"
    "errors"
    "fmt"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"
    "github.com/schollz/progressbar/v3"

    cfgpkg "github.com/local/pagemerge/internal/config"
    "github.com/local/pagemerge/internal/merge"
    "github.com/local/pagemerge/internal/pages"
    "github.com/local/pagemerge/internal/pdfio"
    "github.com/local/pagemerge/internal/selection"
    "github.com/local/pagemerge/internal/storage"
)

func runScan(cfg cfgpkg.Config, engine pdfio.Engine, cmd *ScanCmd) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    cat, err := pages.NewScanner(engine, cfg.PDF.ScanWorkers).Scan(ctx, cmd.Folder)
    if err != nil {
        return err
    }
    if cat.Len() == 0 {
        fmt.Println("No PDF files found in selected folder")
    }
    for i, d := range cat.Pages {
        fmt.Printf("%4d  %s\n", i+1, d.Label)
    }
    for _, se := range cat.Skipped {
        fmt.Printf("skipped %s: %v\n", se.Path, se.Err)
    }
    if cat.Len() > 0 {
        fmt.Printf("Loaded %d pages from %d PDF files\n", cat.Len(), len(cat.Files))
    }
    return nil
}

// parsePositions turns "3,1,2" into zero-based positions [2 0 1].
func parsePositions(s string) ([]int, error) {
    var out []int
    for _, f := range strings.Split(s, ",") {
        f = strings.TrimSpace(f)
        if f == "" {
            continue
        }
        n, err := strconv.Atoi(f)
        if err != nil || n < 1 {
            return nil, fmt.Errorf("invalid page position %q", f)
        }
        out = append(out, n-1)
    }
    if len(out) == 0 {
        return nil, selection.ErrEmptySelection
    }
    return out, nil
}

func runMerge(cfg cfgpkg.Config, engine pdfio.Engine, cmd *MergeCmd) error {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    positions, err := parsePositions(cmd.Pages)
    if err != nil {
        return err
    }
    cat, err := pages.NewScanner(engine, cfg.PDF.ScanWorkers).Scan(ctx, cmd.Folder)
    if err != nil {
        return err
    }
    list, err := buildSelection(cat, positions)
    if err != nil {
        return err
    }

    var progress merge.Progress
    if !cmd.Quiet {
        bar := progressbar.NewOptions(list.Len(),
            progressbar.OptionSetWriter(os.Stderr),
            progressbar.OptionSetDescription("Extracting pages"),
            progressbar.OptionShowCount(),
            progressbar.OptionSetWidth(40),
            progressbar.OptionThrottle(65*time.Millisecond),
            progressbar.OptionClearOnFinish(),
        )
        progress = func(done, total int) { _ = bar.Set(done) }
    }

    start := time.Now()
    n, err := merge.NewExecutor(engine).Merge(ctx, list.Items(), cmd.Out, progress)
    if err != nil {
        return err
    }
    log.Info().Str("output", cmd.Out).Int("pages", n).Dur("took", time.Since(start)).Msg("merge finished")
    fmt.Printf("Success! Created PDF with %d pages\n", n)

    if cfg.Publish.Bucket != "" {
        pub, err := storage.NewS3Publisher(ctx, publishOptions(cfg))
        if err != nil {
            return fmt.Errorf("s3 publisher: %w", err)
        }
        loc, err := pub.Publish(ctx, cmd.Out)
        if err != nil {
            return err
        }
        fmt.Printf("Uploaded to %s\n", loc)
    }
    return nil
}

// buildSelection adds the catalog pages one position at a time so the given
// order becomes the output order. Repeats of a page are dropped.
func buildSelection(cat *pages.Catalog, positions []int) (*selection.List, error) {
    list := selection.New()
    for _, p := range positions {
        ids, err := cat.IDsAt([]int{p})
        if err != nil {
            return nil, err
        }
        n, err := list.Add(cat, ids)
        if err != nil {
            return nil, err
        }
        if n == 0 {
            log.Warn().Int("position", p+1).Msg("page already selected; skipped")
        }
    }
    if list.Len() == 0 {
        return nil, errors.New("no pages selected")
    }
    return list, nil
}

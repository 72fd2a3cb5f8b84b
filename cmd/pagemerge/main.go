package main

import (
    "fmt"
    "os"

    "github.com/alexflint/go-arg"
    "github.com/rs/zerolog/log"

    cfgpkg "github.com/local/pagemerge/internal/config"
    logpkg "github.com/local/pagemerge/internal/logger"
    "github.com/local/pagemerge/internal/pdfio"
)

type ScanCmd struct {
    Folder string `arg:"positional,required" help:"folder holding the PDF files"`
}

type MergeCmd struct {
    Folder string `arg:"-f,--folder,required" help:"folder holding the PDF files"`
    Pages  string `arg:"-p,--pages,required" help:"1-based catalog positions in output order, e.g. 3,1,2"`
    Out    string `arg:"-o,--out,required" help:"output PDF path; overwritten if it exists"`
    Quiet  bool   `arg:"-q" help:"no progress bar"`
}

type ServeCmd struct {
    Port   string `arg:"--port" help:"HTTP port; defaults to PORT"`
    Folder string `arg:"--folder" help:"folder to load at start; defaults to INPUT_DIR"`
    Out    string `arg:"--out" help:"output path to preset; defaults to OUTPUT_PATH"`
}

type args struct {
    Scan  *ScanCmd  `arg:"subcommand:scan" help:"list the pages found in a folder"`
    Merge *MergeCmd `arg:"subcommand:merge" help:"merge chosen pages into one PDF"`
    Serve *ServeCmd `arg:"subcommand:serve" help:"run the HTTP API"`
}

func (args) Description() string {
    return "pagemerge builds a new PDF from pages picked out of the PDFs in a folder"
}

func main() {
    var a args
    p := arg.MustParse(&a)
    if p.Subcommand() == nil {
        p.Fail("missing subcommand")
    }

    cfg := cfgpkg.Load()
    opts := logpkg.Options{Logging: cfg.Logging, Axiom: cfg.Axiom}
    switch {
    case a.Scan != nil:
        opts.Command = "scan"
    case a.Merge != nil:
        opts.Command = "merge"
    case a.Serve != nil:
        opts.Command = "serve"
    }
    if a.Serve == nil {
        // stdout carries command output
        opts.Console = os.Stderr
    }
    closeLogs, err := logpkg.Init(opts)
    if err != nil {
        fmt.Fprintln(os.Stderr, "logger:", err)
    }
    defer closeLogs()

    engine := pdfio.NewPDFCPU(cfg.PDF.Validation)

    switch {
    case a.Scan != nil:
        err = runScan(cfg, engine, a.Scan)
    case a.Merge != nil:
        err = runMerge(cfg, engine, a.Merge)
    case a.Serve != nil:
        err = runServe(cfg, engine, a.Serve)
    }
    if err != nil {
        log.Error().Err(err).Msg("command failed")
        closeLogs()
        os.Exit(1)
    }
}

package statuscheck

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"
)

// Pinger models the minimal capability of the status store we need for checks.
type Pinger interface {
    Ping(ctx context.Context) error
}

// BucketChecker verifies the publish bucket is reachable.
type BucketChecker interface {
    Check(ctx context.Context) error
}

// Paths returns the folder and output path currently in use.
type Paths func() (folder, output string)

// Checker aggregates readiness checks for what a merge depends on.
type Checker struct {
    store  Pinger
    bucket BucketChecker
    paths  Paths
}

// Options configures the Checker. Bucket may be nil when publishing is off.
type Options struct {
    Store  Pinger
    Bucket BucketChecker
    Paths  Paths
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    StatusStore Status `json:"status_store"`
    S3          Status `json:"s3"`
    InputFolder Status `json:"input_folder"`
    OutputDir   Status `json:"output_dir"`
}

// Ready is false when something a merge needs is broken. An unconfigured
// publisher or an unset path does not count.
func (s Summary) Ready() bool {
    return s.StatusStore.OK && (s.S3.OK || s.S3.Message == msgDisabled)
}

const (
    msgDisabled = "Not configured"
    msgUnset    = "Not set"
)

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{store: opts.Store, bucket: opts.Bucket, paths: opts.Paths}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    var folder, output string
    if c.paths != nil {
        folder, output = c.paths()
    }
    return Summary{
        StatusStore: c.checkStore(ctx),
        S3:          c.checkS3(ctx),
        InputFolder: checkFolder(folder),
        OutputDir:   checkOutputDir(output),
    }
}

func (c *Checker) checkStore(ctx context.Context) Status {
    if c.store == nil {
        return Status{OK: false, Message: "client unavailable"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.store.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
    if c.bucket == nil {
        return Status{OK: false, Message: msgDisabled}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := c.bucket.Check(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func checkFolder(folder string) Status {
    if folder == "" {
        return Status{OK: false, Message: msgUnset}
    }
    fi, err := os.Stat(folder)
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    if !fi.IsDir() {
        return Status{OK: false, Message: "Not a directory"}
    }
    return Status{OK: true, Message: "Readable"}
}

func checkOutputDir(output string) Status {
    if output == "" {
        return Status{OK: false, Message: msgUnset}
    }
    dir := filepath.Dir(output)
    f, err := os.CreateTemp(dir, ".pagemerge-check-*")
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    name := f.Name()
    _ = f.Close()
    _ = os.Remove(name)
    return Status{OK: true, Message: fmt.Sprintf("Writable: %s", dir)}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}

package logger

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "sync"
    "sync/atomic"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"

    "github.com/local/pagemerge/internal/config"
)

const axiomBatch = 200

type ingester interface {
    IngestEvents(ctx context.Context, dataset string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

// axiomSink is an io.Writer that batches zerolog JSON lines of info level
// and above into an Axiom dataset. Events are dropped, never blocked on,
// when the buffer is full.
type axiomSink struct {
    api     ingester
    dataset string

    events  chan axiom.Event
    stop    chan struct{}
    done    chan struct{}
    once    sync.Once
    dropped atomic.Int64
}

func newAxiomSink(c config.AxiomConfig) (*axiomSink, error) {
    opts := []axiom.Option{axiom.SetToken(c.APIKey)}
    if c.OrgID != "" {
        opts = append(opts, axiom.SetOrganizationID(c.OrgID))
    }
    client, err := axiom.NewClient(opts...)
    if err != nil {
        return nil, err
    }
    dataset := c.Dataset
    if dataset == "" {
        dataset = "dev_pagemerge"
    }
    return startAxiomSink(client, dataset, c.FlushInterval), nil
}

func startAxiomSink(api ingester, dataset string, flushEvery time.Duration) *axiomSink {
    if flushEvery <= 0 {
        flushEvery = 10 * time.Second
    }
    s := &axiomSink{
        api:     api,
        dataset: dataset,
        events:  make(chan axiom.Event, 5*axiomBatch),
        stop:    make(chan struct{}),
        done:    make(chan struct{}),
    }
    go s.run(flushEvery)
    return s
}

func (s *axiomSink) Write(p []byte) (int, error) {
    ev := axiom.Event{}
    if err := json.Unmarshal(p, &ev); err != nil {
        ev = axiom.Event{"message": string(p), zerolog.LevelFieldName: zerolog.InfoLevel.String()}
    }
    if name, _ := ev[zerolog.LevelFieldName].(string); name != "" {
        if lvl, err := zerolog.ParseLevel(name); err == nil && lvl < zerolog.InfoLevel {
            return len(p), nil
        }
    }
    ev["service"] = "pagemerge"
    if ts, ok := ev[zerolog.TimestampFieldName]; ok {
        ev[ingest.TimestampField] = ts
    } else {
        ev[ingest.TimestampField] = time.Now()
    }

    select {
    case s.events <- ev:
    default:
        s.dropped.Add(1)
    }
    return len(p), nil
}

func (s *axiomSink) run(flushEvery time.Duration) {
    defer close(s.done)
    ticker := time.NewTicker(flushEvery)
    defer ticker.Stop()

    batch := make([]axiom.Event, 0, axiomBatch)
    flush := func() {
        if len(batch) == 0 {
            return
        }
        ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        if _, err := s.api.IngestEvents(ctx, s.dataset, batch); err != nil {
            fmt.Fprintf(os.Stderr, "axiom ingest of %d events failed: %v\n", len(batch), err)
        }
        cancel()
        batch = batch[:0]
    }

    for {
        select {
        case ev := <-s.events:
            batch = append(batch, ev)
            if len(batch) >= axiomBatch {
                flush()
            }
        case <-ticker.C:
            flush()
        case <-s.stop:
            for {
                select {
                case ev := <-s.events:
                    batch = append(batch, ev)
                default:
                    flush()
                    return
                }
            }
        }
    }
}

// Close drains buffered events into a final batch.
func (s *axiomSink) Close() {
    s.once.Do(func() {
        close(s.stop)
        <-s.done
        if n := s.dropped.Load(); n > 0 {
            fmt.Fprintf(os.Stderr, "axiom dropped %d log events\n", n)
        }
    })
}

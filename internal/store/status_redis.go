package store

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// RedisStatus mirrors statuses into Redis hashes so other processes (dashboards,
// scripts) can follow a session.
type RedisStatus struct {
    client *redis.Client
}

func NewRedisStatus(redisURL string) (*RedisStatus, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    c := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    if err := c.Ping(ctx).Err(); err != nil { return nil, fmt.Errorf("redis ping: %w", err) }
    return &RedisStatus{client: c}, nil
}

func (s *RedisStatus) Set(ctx context.Context, key string, st Status) error {
    m := map[string]interface{}{
        "text":     st.Text,
        "state":    st.State,
        "pages":    st.Pages,
        "files":    st.Files,
        "selected": st.Selected,
        "merging":  st.Merging,
    }
    if st.Updated != nil { m["updated"] = st.Updated.Format(time.RFC3339Nano) }
    if st.Metadata != nil {
        b, _ := json.Marshal(st.Metadata)
        m["metadata"] = string(b)
    }
    return s.client.HSet(ctx, key, m).Err()
}

func (s *RedisStatus) Get(ctx context.Context, key string) (Status, bool, error) {
    res, err := s.client.HGetAll(ctx, key).Result()
    if err != nil { return Status{}, false, err }
    if len(res) == 0 { return Status{}, false, nil }
    st := Status{Text: res["text"], State: res["state"]}
    // ignore parse errors; default 0
    fmt.Sscan(res["pages"], &st.Pages)
    fmt.Sscan(res["files"], &st.Files)
    fmt.Sscan(res["selected"], &st.Selected)
    st.Merging = res["merging"] == "1" || res["merging"] == "true"
    if v := res["updated"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.Updated = &t }
    }
    if v := res["metadata"]; v != "" {
        _ = json.Unmarshal([]byte(v), &st.Metadata)
    }
    return st, true, nil
}

func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStatus) Close() error { return s.client.Close() }

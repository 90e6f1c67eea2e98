package file

import (
    "bufio"
    "context"
    "os"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/fleetware/couchrally/pkg/discovery"
    "github.com/fleetware/couchrally/pkg/discovery/static"
)

// Options configures file/ENV-based fleet lookup. Each line (or CSV entry)
// is an instance spec in the form id@hostname[@launch-time-RFC3339].
type Options struct {
    // Path to a file containing one instance spec per line.
    Path string
    // Env overrides file when non-empty.
    Env string
    // Refresh controls cache staleness; if zero, defaults to 5s.
    Refresh time.Duration
}

type impl struct {
    opts  Options
    mu    sync.Mutex
    last  time.Time
    mtime time.Time
    cache []discovery.Instance
}

func New(opts Options) discovery.Directory { if opts.Refresh <= 0 { opts.Refresh = 5 * time.Second }; return &impl{opts: opts} }

func (i *impl) Instances(ctx context.Context) ([]discovery.Instance, error) {
    i.mu.Lock(); defer i.mu.Unlock()
    // ENV takes precedence
    if v := strings.TrimSpace(os.Getenv(i.opts.Env)); i.opts.Env != "" && v != "" {
        return static.Parse(v)
    }
    if i.opts.Path == "" {
        return nil, discovery.ErrNoInstances
    }
    stat, err := os.Stat(i.opts.Path)
    if err != nil {
        if len(i.cache) > 0 {
            return append([]discovery.Instance(nil), i.cache...), nil
        }
        return nil, discovery.ErrNoInstances
    }
    now := time.Now()
    // If file changed or cache is stale, reload
    if stat.ModTime().After(i.mtime) || now.Sub(i.last) >= i.opts.Refresh {
        loaded, err := loadFile(i.opts.Path)
        if err != nil { return nil, err }
        i.cache = loaded
        i.last = now
        i.mtime = stat.ModTime()
    }
    if len(i.cache) == 0 {
        return nil, discovery.ErrNoInstances
    }
    return append([]discovery.Instance(nil), i.cache...), nil
}

func loadFile(path string) ([]discovery.Instance, error) {
    f, err := os.Open(path)
    if err != nil { return nil, err }
    defer f.Close()
    var specs []string
    s := bufio.NewScanner(f)
    for s.Scan() {
        line := strings.TrimSpace(s.Text())
        if line == "" || strings.HasPrefix(line, "#") { continue }
        specs = append(specs, line)
    }
    if err := s.Err(); err != nil { return nil, err }
    out, err := static.Parse(strings.Join(specs, ","))
    if err != nil { return nil, err }
    sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
    return out, nil
}

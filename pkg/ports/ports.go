// Package ports rewrites the server's static_config file when non-default
// network ports are configured. The file holds Erlang terms, one per line,
// of the form {key, value}. Existing entries for a managed key are replaced
// and missing ones appended; other lines are left untouched.
package ports

import (
    "fmt"
    "os"
    "sort"
    "strings"
)

// Config lists the port settings this tool manages. Zero values are left
// alone (the server's compiled-in defaults apply).
type Config struct {
    RestPort      int // rest_port
    QueryPort     int // query_port
    FTSPort       int // fts_http_port
    MemcachedPort int // memcached_port
    MoxiPort      int // moxi_port
}

func (c Config) entries() map[string]int {
    out := map[string]int{}
    if c.RestPort > 0 { out["rest_port"] = c.RestPort }
    if c.QueryPort > 0 { out["query_port"] = c.QueryPort }
    if c.FTSPort > 0 { out["fts_http_port"] = c.FTSPort }
    if c.MemcachedPort > 0 { out["memcached_port"] = c.MemcachedPort }
    if c.MoxiPort > 0 { out["moxi_port"] = c.MoxiPort }
    return out
}

// Patch rewrites path so each managed key holds the configured value.
// Re-running with the same config is a no-op rewrite. A missing file is
// created with just the managed entries.
func Patch(path string, cfg Config) error {
    entries := cfg.entries()
    if len(entries) == 0 {
        return nil
    }
    var lines []string
    if data, err := os.ReadFile(path); err == nil {
        lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
    } else if !os.IsNotExist(err) {
        return fmt.Errorf("ports: read %s: %w", path, err)
    }

    pending := map[string]int{}
    for k, v := range entries { pending[k] = v }

    var out []string
    for _, line := range lines {
        replaced := false
        for key, val := range pending {
            if strings.HasPrefix(strings.TrimSpace(line), "{"+key+",") {
                out = append(out, formatEntry(key, val))
                delete(pending, key)
                replaced = true
                break
            }
        }
        if !replaced && line != "" {
            out = append(out, line)
        }
    }
    // Append entries that had no existing line, in stable order.
    var keys []string
    for k := range pending { keys = append(keys, k) }
    sort.Strings(keys)
    for _, k := range keys {
        out = append(out, formatEntry(k, pending[k]))
    }

    body := strings.Join(out, "\n") + "\n"
    if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
        return fmt.Errorf("ports: write %s: %w", path, err)
    }
    return nil
}

func formatEntry(key string, value int) string {
    return fmt.Sprintf("{%s, %d}.", key, value)
}

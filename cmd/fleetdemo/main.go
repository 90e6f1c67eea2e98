package main

import (
    "context"
    "flag"
    "fmt"
    "log"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/fleetware/couchrally/pkg/discovery"
    "github.com/fleetware/couchrally/pkg/discovery/gossip"
    "github.com/fleetware/couchrally/pkg/rally"
)

func main() {
    var (
        id        = flag.String("id", "i-demo-1", "instance id")
        host      = flag.String("host", "127.0.0.1", "advertised hostname")
        bind      = flag.String("bind", ":7946", "bind host:port")
        advertise = flag.String("advertise", "", "advertise host:port (optional)")
        joinCSV   = flag.String("join", "", "comma-separated seeds (host:port)")
    )
    flag.Parse()

    ctx, cancel := signalContext()
    defer cancel()

    d, err := gossip.New(gossip.Options{
        InstanceID: *id,
        Hostname:   *host,
        Bind:       *bind,
        Advertise:  *advertise,
        Seeds:      splitCSV(*joinCSV),
        Logger:     log.Default(),
    })
    if err != nil { log.Fatal(err) }
    if err := d.Start(ctx); err != nil { log.Fatal(err) }

    fmt.Println("fleetdemo started. Press Ctrl+C to exit.")
    ticker := time.NewTicker(2 * time.Second)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            _ = d.Stop()
            return
        case <-ticker.C:
            ins, err := d.Instances(ctx)
            if err != nil {
                fmt.Printf("fleet: %v\n", err)
                continue
            }
            summary, err := fleetSummary(ins, *id)
            if err != nil {
                fmt.Printf("rally: %v\n", err)
                continue
            }
            fmt.Print(summary)
        }
    }
}

func fleetSummary(ins []discovery.Instance, id string) (string, error) {
    rp, err := rally.Select(ins)
    if err != nil { return "", err }
    self, err := rally.IsRallyPoint(ins, id)
    if err != nil { return "", err }
    var b strings.Builder
    fmt.Fprintf(&b, "fleet=%d rally=%s self=%v\n", len(ins), rp.ID, self)
    for _, in := range ins {
        fmt.Fprintf(&b, "  %-12s host=%s launched=%s\n", in.ID, in.PrivateHostname, in.LaunchTime.Format(time.RFC3339))
    }
    return b.String(), nil
}

func splitCSV(s string) []string {
    if s == "" { return nil }
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}

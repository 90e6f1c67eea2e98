package gossip

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net"
    "sync"
    "time"

    "github.com/hashicorp/memberlist"

    "github.com/fleetware/couchrally/pkg/discovery"
)

// Options configures the memberlist-backed fleet directory. Each node gossips
// its identity (instance id, launch time, hostnames) as node metadata, so any
// member can compute the same fleet snapshot without a cloud registry.
type Options struct {
    // InstanceID is this node's stable identifier.
    InstanceID string

    // LaunchTime is when this node's process host was started. Zero means
    // time.Now() at Start, which is good enough for tie-breaking as long as
    // the process starts once per boot.
    LaunchTime time.Time

    // Hostname is this node's in-network hostname advertised to peers.
    Hostname string

    // PublicHostname is optional.
    PublicHostname string

    // Bind is the gossip bind address in host:port form.
    Bind string

    // Advertise is the advertised address peers use to reach this node.
    // If empty, memberlist derives it from Bind.
    Advertise string

    // Seeds are initial peers to join.
    Seeds []string

    // Logger is optional. If nil, log.Default() is used.
    Logger *log.Logger
}

type nodeMeta struct {
    ID     string `json:"id"`
    Launch string `json:"launch"`
    Host   string `json:"host"`
    Public string `json:"public,omitempty"`
}

type impl struct {
    mu     sync.RWMutex
    opts   Options
    ml     *memberlist.Memberlist
    closed bool
}

// New constructs a gossip-backed directory. Call Start before Instances.
func New(opts Options) (*Directory, error) {
    if opts.InstanceID == "" {
        return nil, fmt.Errorf("gossip: empty InstanceID")
    }
    if opts.Bind == "" {
        return nil, fmt.Errorf("gossip: empty Bind address")
    }
    if opts.Hostname == "" {
        return nil, fmt.Errorf("gossip: empty Hostname")
    }
    if opts.Logger == nil {
        opts.Logger = log.Default()
    }
    return &Directory{impl: &impl{opts: opts}}, nil
}

// Directory wraps the memberlist lifecycle and implements
// discovery.Directory over the gossiped member set.
type Directory struct {
    impl *impl
}

// Start creates and launches the underlying memberlist instance and joins
// the configured seeds.
func (d *Directory) Start(ctx context.Context) error {
    m := d.impl
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.ml != nil {
        return nil
    }

    cfg := memberlist.DefaultLANConfig()
    cfg.Name = m.opts.InstanceID
    host, portStr, err := net.SplitHostPort(m.opts.Bind)
    if err != nil {
        return fmt.Errorf("gossip: invalid bind address %q: %w", m.opts.Bind, err)
    }
    port, err := parsePort(portStr)
    if err != nil {
        return err
    }
    cfg.BindAddr = host
    cfg.BindPort = port

    if m.opts.Advertise != "" {
        ahost, aportStr, err := net.SplitHostPort(m.opts.Advertise)
        if err != nil {
            return fmt.Errorf("gossip: invalid advertise address %q: %w", m.opts.Advertise, err)
        }
        aport, err := parsePort(aportStr)
        if err != nil {
            return err
        }
        cfg.AdvertiseAddr = ahost
        cfg.AdvertisePort = aport
    }

    launch := m.opts.LaunchTime
    if launch.IsZero() {
        launch = time.Now().UTC()
    }
    metaBytes, _ := json.Marshal(nodeMeta{
        ID:     m.opts.InstanceID,
        Launch: launch.UTC().Format(time.RFC3339Nano),
        Host:   m.opts.Hostname,
        Public: m.opts.PublicHostname,
    })
    cfg.Delegate = &nodeDelegate{meta: metaBytes}

    ml, err := memberlist.Create(cfg)
    if err != nil {
        return err
    }
    m.ml = ml

    if len(m.opts.Seeds) > 0 {
        if _, err := ml.Join(m.opts.Seeds); err != nil {
            m.opts.Logger.Printf("gossip: initial join failed (will rely on later gossip): %v", err)
        }
    }

    go func() {
        <-ctx.Done()
        _ = d.Stop()
    }()
    return nil
}

// Instances decodes the current gossiped member set. Members whose metadata
// cannot be decoded are skipped; an empty result is a lookup error.
func (d *Directory) Instances(ctx context.Context) ([]discovery.Instance, error) {
    m := d.impl
    m.mu.RLock()
    defer m.mu.RUnlock()
    if m.ml == nil {
        return nil, fmt.Errorf("gossip: not started")
    }
    nodes := m.ml.Members()
    out := make([]discovery.Instance, 0, len(nodes))
    for _, n := range nodes {
        if len(n.Meta) == 0 {
            continue
        }
        var meta nodeMeta
        if err := json.Unmarshal(n.Meta, &meta); err != nil || meta.ID == "" {
            continue
        }
        launch, err := time.Parse(time.RFC3339Nano, meta.Launch)
        if err != nil {
            continue
        }
        out = append(out, discovery.Instance{
            ID:              meta.ID,
            LaunchTime:      launch,
            PrivateHostname: meta.Host,
            PublicHostname:  meta.Public,
        })
    }
    if len(out) == 0 {
        return nil, discovery.ErrNoInstances
    }
    return out, nil
}

// Stop leaves the gossip pool and shuts the memberlist down.
func (d *Directory) Stop() error {
    m := d.impl
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.closed {
        return nil
    }
    m.closed = true
    if m.ml != nil {
        _ = m.ml.Leave(time.Second)
        _ = m.ml.Shutdown()
        m.ml = nil
    }
    return nil
}

var _ discovery.Directory = (*Directory)(nil)

func parsePort(s string) (int, error) {
    var p int
    _, err := fmt.Sscanf(s, "%d", &p)
    if err != nil || p < 0 || p > 65535 {
        return 0, fmt.Errorf("invalid port: %q", s)
    }
    return p, nil
}

// nodeDelegate implements memberlist.Delegate to propagate node identity.
type nodeDelegate struct{ meta []byte }

// NodeMeta is broadcast in gossip alive messages; the slice is truncated to
// the given limit.
func (d *nodeDelegate) NodeMeta(limit int) []byte {
    if len(d.meta) <= limit { return d.meta }
    if limit <= 0 { return nil }
    return d.meta[:limit]
}

// Unused hooks for our purposes; required to satisfy the interface.
func (d *nodeDelegate) NotifyMsg([]byte)                       {}
func (d *nodeDelegate) GetBroadcasts(int, int) [][]byte        { return nil }
func (d *nodeDelegate) LocalState(join bool) []byte            { return nil }
func (d *nodeDelegate) MergeRemoteState(buf []byte, join bool) {}

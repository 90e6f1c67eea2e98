package bootstrap

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/fleetware/couchrally/pkg/cluster"
    "github.com/fleetware/couchrally/pkg/controlplane"
    "github.com/fleetware/couchrally/pkg/discovery"
    dASG "github.com/fleetware/couchrally/pkg/discovery/asg"
    dFile "github.com/fleetware/couchrally/pkg/discovery/file"
    dGossip "github.com/fleetware/couchrally/pkg/discovery/gossip"
    dStatic "github.com/fleetware/couchrally/pkg/discovery/static"
    "github.com/fleetware/couchrally/pkg/internal/logutil"
    mgmthttp "github.com/fleetware/couchrally/pkg/mgmt/httpjson"
    obsmetrics "github.com/fleetware/couchrally/pkg/observability/metrics"
    "github.com/fleetware/couchrally/pkg/ports"
    "github.com/fleetware/couchrally/pkg/rally"
    "github.com/fleetware/couchrally/pkg/retry"
)

// DefaultDirectoryWait bounds how long a node waits for itself to appear in
// the fleet directory. The registry is eventually consistent; a freshly
// booted instance may not be listed on the first query.
var DefaultDirectoryWait = retry.Policy{MaxAttempts: 60, Interval: 5 * time.Second}

// Run assembles everything from Config and drives the node through the
// full bootstrap protocol. It returns only when the node is active in the
// cluster or a fatal condition was hit; the caller terminates the process
// with a non-zero status on error.
func Run(ctx context.Context, cfg Config) error {
    cfg.applyDefaults()
    if err := cfg.validateBasics(); err != nil { return err }
    logger := cfg.Logger

    // Patch the server's static_config before anything talks to it.
    if cfg.StaticConfigPath != "" {
        pc := ports.Config{
            QueryPort:     cfg.QueryPort,
            FTSPort:       cfg.FTSPort,
            MemcachedPort: cfg.MemcachedPort,
            MoxiPort:      cfg.MoxiPort,
        }
        if cfg.RestPort != cluster.DefaultRestPort {
            pc.RestPort = cfg.RestPort
        }
        if err := ports.Patch(cfg.StaticConfigPath, pc); err != nil { return err }
    }

    // Resolve who we are before asking who else exists.
    if cfg.InstanceID == "" {
        if cfg.DiscoveryKind != "asg" {
            return fmt.Errorf("%w: instance id is required for discovery=%s", cluster.ErrValidation, cfg.DiscoveryKind)
        }
        ident, err := dASG.LookupLocalIdentity(ctx)
        if err != nil { return err }
        cfg.InstanceID = ident.InstanceID
        if cfg.AWSRegion == "" { cfg.AWSRegion = ident.Region }
        logutil.Infof(logger, "resolved local identity from instance metadata: %s (%s)", ident.InstanceID, ident.Region)
    }

    dir, cleanup, err := buildDirectory(ctx, &cfg)
    if err != nil { return err }
    if cleanup != nil { defer cleanup() }

    self, fleet, err := waitForSelf(ctx, dir, cfg.InstanceID, cfg.DirectoryWait)
    if err != nil { return err }
    obsmetrics.Register()
    obsmetrics.FleetInstances.Set(float64(len(fleet)))

    rp, err := rally.Select(fleet)
    if err != nil { return err }
    isRally := rp.ID == cfg.InstanceID

    clusterCfg, err := cfg.clusterConfig()
    if err != nil { return err }

    nodeHost := cfg.Hostname
    if nodeHost == "" {
        nodeHost = self.Hostname(clusterCfg.UsePublicHostname)
    }
    rallyHost := rp.Hostname(clusterCfg.UsePublicHostname)
    logutil.Infof(logger, "fleet has %d instances; rally point is %s (%s); this node is %s (rally=%v)",
        len(fleet), rp.ID, rallyHost, cfg.InstanceID, isRally)

    orch, err := cluster.New(cluster.Options{
        Config:         clusterCfg,
        RallyHost:      rallyHost,
        NodeHost:       nodeHost,
        Runner:         &controlplane.CLIRunner{Path: cfg.CLIPath, Logger: logger},
        Logger:         logger,
        NodeWait:       cfg.NodeWait,
        ClusterWait:    cfg.ClusterWait,
        RebalanceRetry: cfg.RebalanceRetry,
    })
    if err != nil { return err }

    if cfg.MgmtAddr != "" {
        srv := mgmthttp.NewServer(cfg.MgmtAddr, logger)
        statusFn := func(ctx context.Context) ([]byte, error) {
            st, err := orch.NodeState(ctx)
            if err != nil { return nil, err }
            return json.Marshal(struct {
                InstanceID   string `json:"instance_id"`
                IsRallyPoint bool   `json:"is_rally_point"`
                RallyHost    string `json:"rally_host"`
                NodeHost     string `json:"node_host"`
                State        string `json:"state"`
            }{cfg.InstanceID, isRally, rallyHost, nodeHost, st.String()})
        }
        if err := srv.Start(ctx, statusFn); err != nil { return err }
        defer func() { _ = srv.Stop(context.Background()) }()
        logutil.Infof(logger, "management endpoint listening at %s (status/metrics/healthz)", srv.Addr())
    }

    return orch.Run(ctx, isRally)
}

// RallyPoint resolves the fleet directory from cfg and returns the member
// every instance would elect. Used by the CLI to answer "who initializes
// the cluster" without running the bootstrap itself.
func RallyPoint(ctx context.Context, cfg Config) (discovery.Instance, error) {
    cfg.applyDefaults()
    if err := cfg.validateBasics(); err != nil {
        return discovery.Instance{}, err
    }
    dir, cleanup, err := buildDirectory(ctx, &cfg)
    if err != nil {
        return discovery.Instance{}, err
    }
    if cleanup != nil {
        defer cleanup()
    }
    ins, err := dir.Instances(ctx)
    if err != nil {
        return discovery.Instance{}, err
    }
    return rally.Select(ins)
}

// waitForSelf polls the directory until this instance shows up, then
// returns it together with the fleet snapshot it appeared in.
func waitForSelf(ctx context.Context, dir discovery.Directory, id string, policy retry.Policy) (discovery.Instance, []discovery.Instance, error) {
    var self discovery.Instance
    var fleet []discovery.Instance
    err := retry.Until(ctx, policy, fmt.Sprintf("instance %s not in fleet directory", id), func(ctx context.Context) (bool, error) {
        obsmetrics.RetryAttempts.WithLabelValues("directory-wait").Inc()
        ins, err := dir.Instances(ctx)
        if err == discovery.ErrNoInstances {
            // Eventually consistent registry; keep polling.
            return false, nil
        }
        if err != nil {
            return false, err
        }
        for _, in := range ins {
            if in.ID == id {
                self = in
                fleet = ins
                return true, nil
            }
        }
        return false, nil
    })
    if err != nil {
        return discovery.Instance{}, nil, err
    }
    return self, fleet, nil
}

func buildDirectory(ctx context.Context, cfg *Config) (discovery.Directory, func(), error) {
    switch cfg.DiscoveryKind {
    case "asg":
        d, err := dASG.New(ctx, dASG.Options{GroupName: cfg.ASGName, Region: cfg.AWSRegion})
        if err != nil { return nil, nil, err }
        return d, nil, nil
    case "static":
        ins, err := dStatic.Parse(cfg.InstancesCSV)
        if err != nil { return nil, nil, err }
        return dStatic.New(ins...), nil, nil
    case "file":
        return dFile.New(dFile.Options{Path: cfg.FilePath, Env: cfg.FileEnv}), nil, nil
    case "gossip":
        hostname := cfg.Hostname
        if hostname == "" {
            h, err := os.Hostname()
            if err != nil { return nil, nil, err }
            hostname = h
        }
        d, err := dGossip.New(dGossip.Options{
            InstanceID: cfg.InstanceID,
            Hostname:   hostname,
            Bind:       cfg.GossipBind,
            Advertise:  cfg.GossipAdvertise,
            Seeds:      splitCSV(cfg.GossipSeedsCSV),
            Logger:     cfg.Logger,
        })
        if err != nil { return nil, nil, err }
        if err := d.Start(ctx); err != nil { return nil, nil, err }
        return d, func() { _ = d.Stop() }, nil
    default:
        return nil, nil, fmt.Errorf("%w: unknown discovery kind %q", cluster.ErrValidation, cfg.DiscoveryKind)
    }
}

func splitCSV(csv string) []string {
    var out []string
    for _, p := range strings.Split(csv, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

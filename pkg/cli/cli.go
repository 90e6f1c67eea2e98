package cli

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/fleetware/couchrally/pkg/bootstrap"
    "github.com/fleetware/couchrally/pkg/internal/logutil"
    "github.com/fleetware/couchrally/pkg/memquota"
    httpjson "github.com/fleetware/couchrally/pkg/mgmt/httpjson"
    tracing "github.com/fleetware/couchrally/pkg/observability/tracing"
)

// AddAll attaches the bootstrap subcommands (run/rally/plan/status) to the
// provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewRallyCmd())
    root.AddCommand(NewPlanCmd())
    root.AddCommand(NewStatusCmd())
}

// NewRootCmd builds the couchrally root command with all subcommands
// attached and the global logging flag wired in.
func NewRootCmd() *cobra.Command {
    var logJSON bool
    root := &cobra.Command{
        Use:           "couchrally",
        Short:         "Couchbase fleet bootstrap CLI",
        SilenceUsage:  true,
        SilenceErrors: true,
        PersistentPreRun: func(cmd *cobra.Command, args []string) {
            if logJSON {
                logutil.SetJSON(true)
            }
        },
    }
    root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit log lines as JSON")
    AddAll(root)
    return root
}

// Main runs the root command and returns the process exit code. Fatal
// conditions are logged with the last observed error before the non-zero
// exit.
func Main() int {
    if err := NewRootCmd().Execute(); err != nil {
        logutil.Errorf(nil, "%v", err)
        return 1
    }
    return 0
}

// NewRunCmd returns the "run" command which bootstraps this node into the
// cluster: wait for the local server, then initialize or join and rebalance.
func NewRunCmd() *cobra.Command {
    var (
        configFile  string
        traceEnable bool
        cfg         bootstrap.Config
    )
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Bootstrap this node into the cluster",
        RunE: func(cmd *cobra.Command, args []string) error {
            merged, err := mergeConfig(cmd, configFile, cfg)
            if err != nil { return err }
            merged.Logger = log.Default()

            ctx, cancel := signalContext()
            defer cancel()

            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            return bootstrap.Run(ctx, merged)
        },
    }
    f := cmd.Flags()
    f.StringVar(&configFile, "config", "", "path to a YAML config file; flags given on the command line win")
    f.StringVar(&cfg.Username, "cluster-username", "", "cluster administrator username (required)")
    f.StringVar(&cfg.Password, "cluster-password", "", "cluster administrator password (required)")
    f.StringVar(&cfg.ClusterName, "cluster-name", "", "cluster name (default: the auto scaling group name)")
    f.StringVar(&cfg.ServicesCSV, "services", "", "comma-separated services to run: data,index,query,fts (default all)")
    f.StringVar(&cfg.IndexStorageMode, "index-storage-setting", "", "index storage mode: default|memory_optimized")
    f.IntVar(&cfg.RestPort, "rest-port", 0, "REST API port (default 8091)")
    f.IntVar(&cfg.DataRAMMB, "cluster-ramsize", 0, "data service quota in MB (default: computed from memory)")
    f.IntVar(&cfg.IndexRAMMB, "cluster-index-ramsize", 0, "index service quota in MB (default: computed from memory)")
    f.IntVar(&cfg.SearchRAMMB, "cluster-fts-ramsize", 0, "search service quota in MB (default: computed from memory)")
    f.IntVar(&cfg.TotalMemoryMB, "total-memory", 0, "memory budget in MB for computed quotas (default: physical memory)")
    f.BoolVar(&cfg.UsePublicHostname, "use-public-hostname", false, "wire the cluster over public DNS names")
    f.StringVar(&cfg.InstanceID, "instance-id", "", "this node's instance id (default: from instance metadata)")
    f.StringVar(&cfg.Hostname, "hostname", "", "hostname to register this node under (default: from the directory)")
    f.StringVar(&cfg.DiscoveryKind, "discovery", "", "fleet directory backend: asg|static|file|gossip (default asg)")
    f.StringVar(&cfg.ASGName, "asg-name", "", "auto scaling group holding the fleet (discovery=asg)")
    f.StringVar(&cfg.AWSRegion, "aws-region", "", "AWS region override (default: from instance metadata)")
    f.StringVar(&cfg.InstancesCSV, "instances", "", "comma-separated instance specs id@host[@launch-time] (discovery=static)")
    f.StringVar(&cfg.FilePath, "instances-file", "", "file with one instance spec per line (discovery=file)")
    f.StringVar(&cfg.FileEnv, "instances-env", "", "ENV var holding CSV instance specs; overrides the file when set")
    f.StringVar(&cfg.GossipBind, "gossip-bind", "", "gossip bind address host:port (discovery=gossip)")
    f.StringVar(&cfg.GossipAdvertise, "gossip-adv", "", "gossip advertise address host:port (optional)")
    f.StringVar(&cfg.GossipSeedsCSV, "gossip-seeds", "", "comma-separated gossip seed addresses host:port")
    f.StringVar(&cfg.CLIPath, "cli-path", "", "path to the couchbase-cli binary (default: from PATH)")
    f.StringVar(&cfg.StaticConfigPath, "static-config", "", "static_config file to patch ports into before startup")
    f.IntVar(&cfg.QueryPort, "query-port", 0, "query service port written to static_config")
    f.IntVar(&cfg.FTSPort, "fts-port", 0, "search service port written to static_config")
    f.IntVar(&cfg.MemcachedPort, "memcached-port", 0, "memcached port written to static_config")
    f.IntVar(&cfg.MoxiPort, "moxi-port", 0, "moxi port written to static_config")
    f.StringVar(&cfg.MgmtAddr, "mgmt-addr", "", "management endpoint bind address; empty disables it")
    f.BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    return cmd
}

// NewRallyCmd returns the "rally" command, which prints the member every
// instance in the fleet would elect to initialize the cluster.
func NewRallyCmd() *cobra.Command {
    var (
        timeout time.Duration
        cfg     bootstrap.Config
    )
    cmd := &cobra.Command{
        Use:   "rally",
        Short: "Print the fleet's elected rally point",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            rp, err := bootstrap.RallyPoint(ctx, cfg)
            if err != nil { return err }
            return json.NewEncoder(os.Stdout).Encode(struct {
                ID         string    `json:"id"`
                Hostname   string    `json:"hostname"`
                Public     string    `json:"public_hostname,omitempty"`
                LaunchTime time.Time `json:"launch_time"`
            }{rp.ID, rp.PrivateHostname, rp.PublicHostname, rp.LaunchTime})
        },
    }
    f := cmd.Flags()
    f.StringVar(&cfg.DiscoveryKind, "discovery", "", "fleet directory backend: asg|static|file (default asg)")
    f.StringVar(&cfg.ASGName, "asg-name", "", "auto scaling group holding the fleet (discovery=asg)")
    f.StringVar(&cfg.AWSRegion, "aws-region", "", "AWS region override")
    f.StringVar(&cfg.InstancesCSV, "instances", "", "comma-separated instance specs (discovery=static)")
    f.StringVar(&cfg.FilePath, "instances-file", "", "file with one instance spec per line (discovery=file)")
    f.StringVar(&cfg.FileEnv, "instances-env", "", "ENV var holding CSV instance specs")
    f.DurationVar(&timeout, "timeout", 10*time.Second, "lookup timeout")
    return cmd
}

// NewPlanCmd returns the "plan" command, which prints the per-service memory
// quotas the bootstrap would assign for a given budget and service set.
func NewPlanCmd() *cobra.Command {
    var (
        totalMB     int
        servicesCSV string
    )
    cmd := &cobra.Command{
        Use:   "plan",
        Short: "Print the computed per-service memory quotas",
        RunE: func(cmd *cobra.Command, args []string) error {
            services, err := memquota.ParseServices(servicesCSV)
            if err != nil { return err }
            if totalMB == 0 {
                totalMB, err = memquota.TotalSystemMB()
                if err != nil { return fmt.Errorf("detect system memory: %w", err) }
            }
            quotas, err := memquota.Plan(totalMB, services)
            if err != nil { return err }
            return json.NewEncoder(os.Stdout).Encode(struct {
                TotalMB int                      `json:"total_mb"`
                Quotas  map[memquota.Service]int `json:"quotas_mb"`
            }{totalMB, quotas})
        },
    }
    cmd.Flags().IntVar(&totalMB, "total-memory", 0, "memory budget in MB (default: physical memory)")
    cmd.Flags().StringVar(&servicesCSV, "services", "data,index,query,fts", "comma-separated services")
    return cmd
}

// NewStatusCmd returns the "status" command.
func NewStatusCmd() *cobra.Command {
    var (
        addr    string
        timeout time.Duration
    )
    cmd := &cobra.Command{
        Use:   "status",
        Short: "Fetch a node's bootstrap status as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            client := httpjson.NewClient(timeout)
            data, err := client.GetStatus(ctx, addr)
            if err != nil { return fmt.Errorf("status error: %w", err) }
            os.Stdout.Write(data)
            if len(data) == 0 || data[len(data)-1] != '\n' { os.Stdout.Write([]byte("\n")) }
            return nil
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17091", "management HTTP address of a node (host:port)")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    return cmd
}

// mergeConfig layers command line flags over the optional YAML file: any
// flag changed on the command line wins, everything else comes from the
// file, and remaining gaps fall to package defaults.
func mergeConfig(cmd *cobra.Command, configFile string, flags bootstrap.Config) (bootstrap.Config, error) {
    if configFile == "" {
        return flags, nil
    }
    base, err := bootstrap.LoadFile(configFile)
    if err != nil {
        return bootstrap.Config{}, err
    }
    f := cmd.Flags()
    setS := func(name string, dst *string, v string) {
        if f.Changed(name) { *dst = v }
    }
    setI := func(name string, dst *int, v int) {
        if f.Changed(name) { *dst = v }
    }
    setB := func(name string, dst *bool, v bool) {
        if f.Changed(name) { *dst = v }
    }
    setS("cluster-username", &base.Username, flags.Username)
    setS("cluster-password", &base.Password, flags.Password)
    setS("cluster-name", &base.ClusterName, flags.ClusterName)
    setS("services", &base.ServicesCSV, flags.ServicesCSV)
    setS("index-storage-setting", &base.IndexStorageMode, flags.IndexStorageMode)
    setI("rest-port", &base.RestPort, flags.RestPort)
    setI("cluster-ramsize", &base.DataRAMMB, flags.DataRAMMB)
    setI("cluster-index-ramsize", &base.IndexRAMMB, flags.IndexRAMMB)
    setI("cluster-fts-ramsize", &base.SearchRAMMB, flags.SearchRAMMB)
    setI("total-memory", &base.TotalMemoryMB, flags.TotalMemoryMB)
    setB("use-public-hostname", &base.UsePublicHostname, flags.UsePublicHostname)
    setS("instance-id", &base.InstanceID, flags.InstanceID)
    setS("hostname", &base.Hostname, flags.Hostname)
    setS("discovery", &base.DiscoveryKind, flags.DiscoveryKind)
    setS("asg-name", &base.ASGName, flags.ASGName)
    setS("aws-region", &base.AWSRegion, flags.AWSRegion)
    setS("instances", &base.InstancesCSV, flags.InstancesCSV)
    setS("instances-file", &base.FilePath, flags.FilePath)
    setS("instances-env", &base.FileEnv, flags.FileEnv)
    setS("gossip-bind", &base.GossipBind, flags.GossipBind)
    setS("gossip-adv", &base.GossipAdvertise, flags.GossipAdvertise)
    setS("gossip-seeds", &base.GossipSeedsCSV, flags.GossipSeedsCSV)
    setS("cli-path", &base.CLIPath, flags.CLIPath)
    setS("static-config", &base.StaticConfigPath, flags.StaticConfigPath)
    setI("query-port", &base.QueryPort, flags.QueryPort)
    setI("fts-port", &base.FTSPort, flags.FTSPort)
    setI("memcached-port", &base.MemcachedPort, flags.MemcachedPort)
    setI("moxi-port", &base.MoxiPort, flags.MoxiPort)
    setS("mgmt-addr", &base.MgmtAddr, flags.MgmtAddr)
    return base, nil
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

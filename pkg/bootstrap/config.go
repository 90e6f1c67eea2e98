package bootstrap

import (
    "bytes"
    "fmt"
    "log"
    "os"

    "gopkg.in/yaml.v3"

    "github.com/fleetware/couchrally/pkg/cluster"
    "github.com/fleetware/couchrally/pkg/memquota"
    "github.com/fleetware/couchrally/pkg/retry"
)

// Config carries every knob of the bootstrap process. Values can come from a
// YAML file via LoadFile, with command line flags layered on top by the CLI.
type Config struct {
    // Cluster identity and credentials.
    ClusterName      string `yaml:"cluster_name"`
    Username         string `yaml:"cluster_username"`
    Password         string `yaml:"cluster_password"`
    ServicesCSV      string `yaml:"services"`
    IndexStorageMode string `yaml:"index_storage_setting"`
    RestPort         int    `yaml:"rest_port"`

    // Memory quotas in MB. Zero means computed from TotalMemoryMB, which in
    // turn defaults to the host's physical memory.
    DataRAMMB     int `yaml:"cluster_ramsize"`
    IndexRAMMB    int `yaml:"cluster_index_ramsize"`
    SearchRAMMB   int `yaml:"cluster_fts_ramsize"`
    TotalMemoryMB int `yaml:"total_memory_mb"`

    // UsePublicHostname wires the cluster over public DNS names.
    UsePublicHostname bool `yaml:"use_public_hostname"`

    // Local identity. InstanceID empty with asg discovery means resolve via
    // instance metadata. Hostname overrides whatever the directory reports.
    InstanceID string `yaml:"instance_id"`
    Hostname   string `yaml:"hostname"`

    // Fleet discovery backend: asg, static, file or gossip.
    DiscoveryKind   string `yaml:"discovery"`
    ASGName         string `yaml:"asg_name"`
    AWSRegion       string `yaml:"aws_region"`
    InstancesCSV    string `yaml:"instances"`
    FilePath        string `yaml:"instances_file"`
    FileEnv         string `yaml:"instances_env"`
    GossipBind      string `yaml:"gossip_bind"`
    GossipAdvertise string `yaml:"gossip_advertise"`
    GossipSeedsCSV  string `yaml:"gossip_seeds"`

    // Control plane binary.
    CLIPath string `yaml:"cli_path"`

    // Static config patching. Port values of zero leave the server default.
    StaticConfigPath string `yaml:"static_config_path"`
    QueryPort        int    `yaml:"query_port"`
    FTSPort          int    `yaml:"fts_port"`
    MemcachedPort    int    `yaml:"memcached_port"`
    MoxiPort         int    `yaml:"moxi_port"`

    // MgmtAddr enables the local management endpoint when non-empty.
    MgmtAddr string `yaml:"mgmt_addr"`

    // Retry policies. Zero attempts selects the package defaults.
    DirectoryWait  retry.Policy `yaml:"-"`
    NodeWait       retry.Policy `yaml:"-"`
    ClusterWait    retry.Policy `yaml:"-"`
    RebalanceRetry retry.Policy `yaml:"-"`

    Logger *log.Logger `yaml:"-"`
}

// LoadFile reads a YAML config file into a Config. Unknown keys are an
// error so typos do not silently fall back to defaults.
func LoadFile(path string) (Config, error) {
    var cfg Config
    data, err := os.ReadFile(path)
    if err != nil {
        return cfg, err
    }
    dec := yaml.NewDecoder(bytes.NewReader(data))
    dec.KnownFields(true)
    if err := dec.Decode(&cfg); err != nil {
        return cfg, fmt.Errorf("parse %s: %w", path, err)
    }
    return cfg, nil
}

func (c *Config) applyDefaults() {
    if c.ClusterName == "" {
        c.ClusterName = c.ASGName
    }
    if c.ServicesCSV == "" {
        c.ServicesCSV = memquota.Format(cluster.DefaultServices)
    }
    if c.IndexStorageMode == "" {
        c.IndexStorageMode = cluster.DefaultIndexStorageMode
    }
    if c.RestPort == 0 {
        c.RestPort = cluster.DefaultRestPort
    }
    if c.DiscoveryKind == "" {
        c.DiscoveryKind = "asg"
    }
    if c.DirectoryWait.MaxAttempts == 0 {
        c.DirectoryWait = DefaultDirectoryWait
    }
    if c.Logger == nil {
        c.Logger = log.Default()
    }
}

func (c Config) validateBasics() error {
    switch c.DiscoveryKind {
    case "asg":
        if c.ASGName == "" {
            return fmt.Errorf("%w: asg discovery needs an auto scaling group name", cluster.ErrValidation)
        }
    case "static":
        if c.InstancesCSV == "" {
            return fmt.Errorf("%w: static discovery needs an instance list", cluster.ErrValidation)
        }
    case "file":
        if c.FilePath == "" && c.FileEnv == "" {
            return fmt.Errorf("%w: file discovery needs a file path or env var name", cluster.ErrValidation)
        }
    case "gossip":
        if c.GossipBind == "" {
            return fmt.Errorf("%w: gossip discovery needs a bind address", cluster.ErrValidation)
        }
    default:
        return fmt.Errorf("%w: unknown discovery kind %q", cluster.ErrValidation, c.DiscoveryKind)
    }
    return nil
}

// clusterConfig translates the flat bootstrap knobs into a cluster.Config,
// filling TotalMemoryMB from the host when automatic quotas are in play.
func (c Config) clusterConfig() (cluster.Config, error) {
    services, err := memquota.ParseServices(c.ServicesCSV)
    if err != nil {
        return cluster.Config{}, fmt.Errorf("%w: %v", cluster.ErrValidation, err)
    }
    out := cluster.Config{
        ClusterName:       c.ClusterName,
        Username:          c.Username,
        Password:          c.Password,
        Services:          services,
        IndexStorageMode:  c.IndexStorageMode,
        RestPort:          c.RestPort,
        TotalMemoryMB:     c.TotalMemoryMB,
        DataRAMMB:         c.DataRAMMB,
        IndexRAMMB:        c.IndexRAMMB,
        SearchRAMMB:       c.SearchRAMMB,
        UsePublicHostname: c.UsePublicHostname,
    }
    manual := c.DataRAMMB > 0 || c.IndexRAMMB > 0 || c.SearchRAMMB > 0
    if !manual && out.TotalMemoryMB == 0 {
        mb, err := memquota.TotalSystemMB()
        if err != nil {
            return cluster.Config{}, fmt.Errorf("detect system memory: %w", err)
        }
        out.TotalMemoryMB = mb
    }
    if err := out.Validate(); err != nil {
        return cluster.Config{}, err
    }
    return out, nil
}

package static

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/fleetware/couchrally/pkg/discovery"
)

type staticDirectory struct {
    instances []discovery.Instance
}

func (s *staticDirectory) Instances(ctx context.Context) ([]discovery.Instance, error) {
    if len(s.instances) == 0 {
        return nil, discovery.ErrNoInstances
    }
    return append([]discovery.Instance(nil), s.instances...), nil
}

// New returns a Directory that always reports the given instances. Intended
// for development and tests.
func New(instances ...discovery.Instance) discovery.Directory {
    cleaned := make([]discovery.Instance, 0, len(instances))
    for _, in := range instances {
        if in.ID != "" {
            cleaned = append(cleaned, in)
        }
    }
    return &staticDirectory{instances: cleaned}
}

// Parse converts a comma-separated list of instance specs into instances.
// Each spec is id@hostname[@launch-time-RFC3339]; when the launch time is
// omitted, specs earlier in the list are treated as older.
func Parse(csv string) ([]discovery.Instance, error) {
    if csv == "" {
        return nil, nil
    }
    base := time.Unix(0, 0).UTC()
    parts := strings.Split(csv, ",")
    out := make([]discovery.Instance, 0, len(parts))
    for idx, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        fields := strings.Split(p, "@")
        if len(fields) < 2 {
            return nil, fmt.Errorf("static: invalid instance spec %q (want id@hostname[@launch-time])", p)
        }
        in := discovery.Instance{
            ID:              strings.TrimSpace(fields[0]),
            PrivateHostname: strings.TrimSpace(fields[1]),
            LaunchTime:      base.Add(time.Duration(idx) * time.Second),
        }
        if len(fields) >= 3 {
            ts, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[2]))
            if err != nil {
                return nil, fmt.Errorf("static: invalid launch time in %q: %w", p, err)
            }
            in.LaunchTime = ts
        }
        if in.ID == "" || in.PrivateHostname == "" {
            return nil, fmt.Errorf("static: invalid instance spec %q", p)
        }
        out = append(out, in)
    }
    return out, nil
}

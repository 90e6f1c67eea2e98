package memquota

import (
    "fmt"
    "sort"
    "strings"
)

// Service identifies one Couchbase service. Query takes no memory quota and
// never participates in allocation.
type Service string

const (
    Data   Service = "data"
    Index  Service = "index"
    Query  Service = "query"
    Search Service = "fts"
)

// ParseServices converts a comma-separated service list into services,
// rejecting unknown names and duplicates.
func ParseServices(csv string) ([]Service, error) {
    if strings.TrimSpace(csv) == "" {
        return nil, fmt.Errorf("memquota: empty service list")
    }
    seen := make(map[Service]bool)
    var out []Service
    for _, p := range strings.Split(csv, ",") {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        s := Service(p)
        switch s {
        case Data, Index, Query, Search:
        default:
            return nil, fmt.Errorf("memquota: unknown service %q", p)
        }
        if seen[s] {
            return nil, fmt.Errorf("memquota: duplicate service %q", p)
        }
        seen[s] = true
        out = append(out, s)
    }
    if len(out) == 0 {
        return nil, fmt.Errorf("memquota: empty service list")
    }
    return out, nil
}

// Format renders services back to the CSV form the control plane expects.
func Format(services []Service) string {
    parts := make([]string, len(services))
    for i, s := range services { parts[i] = string(s) }
    return strings.Join(parts, ",")
}

// percentage table keyed by the quota-bearing subset of the selected
// services. Query is excluded before lookup.
var shares = map[string]map[Service]int{
    "data":           {Data: 75},
    "index":          {Index: 75},
    "fts":            {Search: 75},
    "data,index":     {Data: 50, Index: 25},
    "data,fts":       {Data: 50, Search: 25},
    "data,fts,index": {Data: 40, Index: 20, Search: 15},
}

// Plan partitions totalMB across the selected services using the fixed
// percentage table, with floor division. Services without an entry in the
// result take no quota at all; a zero value is never emitted. Service
// combinations outside the table cannot be allocated automatically and are
// an error.
func Plan(totalMB int, services []Service) (map[Service]int, error) {
    if totalMB <= 0 {
        return nil, fmt.Errorf("memquota: non-positive total memory %dMB", totalMB)
    }
    var quotaServices []string
    for _, s := range services {
        switch s {
        case Data, Index, Search:
            quotaServices = append(quotaServices, string(s))
        }
    }
    if len(quotaServices) == 0 {
        // Query-only topology: nothing to allocate.
        return map[Service]int{}, nil
    }
    sort.Strings(quotaServices)
    row, ok := shares[strings.Join(quotaServices, ",")]
    if !ok {
        return nil, fmt.Errorf("memquota: no allocation rule for services %s", strings.Join(quotaServices, ","))
    }
    out := make(map[Service]int, len(row))
    for svc, pct := range row {
        out[svc] = totalMB * pct / 100
    }
    return out, nil
}

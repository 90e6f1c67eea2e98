package memquota

import "testing"

func TestPlan_Table(t *testing.T) {
    cases := []struct {
        name     string
        total    int
        services []Service
        want     map[Service]int
    }{
        {"all three", 1000, []Service{Data, Index, Search}, map[Service]int{Data: 400, Index: 200, Search: 150}},
        {"all three plus query", 1000, []Service{Data, Index, Query, Search}, map[Service]int{Data: 400, Index: 200, Search: 150}},
        {"data index", 1000, []Service{Data, Index}, map[Service]int{Data: 500, Index: 250}},
        {"data search", 1000, []Service{Data, Search}, map[Service]int{Data: 500, Search: 250}},
        {"data only", 1000, []Service{Data}, map[Service]int{Data: 750}},
        {"index only", 1000, []Service{Index}, map[Service]int{Index: 750}},
        {"search only", 1000, []Service{Search}, map[Service]int{Search: 750}},
        {"query only", 1000, []Service{Query}, map[Service]int{}},
        {"floor division", 999, []Service{Data, Index, Search}, map[Service]int{Data: 399, Index: 199, Search: 149}},
    }
    for _, c := range cases {
        got, err := Plan(c.total, c.services)
        if err != nil {
            t.Fatalf("%s: %v", c.name, err)
        }
        if len(got) != len(c.want) {
            t.Fatalf("%s: got %v want %v", c.name, got, c.want)
        }
        for svc, mb := range c.want {
            if got[svc] != mb {
                t.Fatalf("%s: service %s got %dMB want %dMB", c.name, svc, got[svc], mb)
            }
        }
        // Unselected services must be absent, not zero.
        for svc := range got {
            if _, ok := c.want[svc]; !ok {
                t.Fatalf("%s: unexpected quota for %s", c.name, svc)
            }
        }
    }
}

func TestPlan_UnsupportedCombination(t *testing.T) {
    if _, err := Plan(1000, []Service{Index, Search}); err == nil {
        t.Fatalf("expected error for index+fts without data")
    }
}

func TestPlan_NonPositiveTotal(t *testing.T) {
    if _, err := Plan(0, []Service{Data}); err == nil {
        t.Fatalf("expected error for zero total")
    }
}

func TestParseServices(t *testing.T) {
    got, err := ParseServices("data, index ,query,fts")
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if len(got) != 4 || got[0] != Data || got[3] != Search {
        t.Fatalf("unexpected services: %v", got)
    }
    if Format(got) != "data,index,query,fts" {
        t.Fatalf("format round-trip: %q", Format(got))
    }
    for _, bad := range []string{"", "analytics", "data,data"} {
        if _, err := ParseServices(bad); err == nil {
            t.Fatalf("expected error for %q", bad)
        }
    }
}

//go:build integration

package integration

import (
    "context"
    "testing"
    "time"

    "github.com/fleetware/couchrally/pkg/discovery/gossip"
    "github.com/fleetware/couchrally/pkg/rally"
)

func TestGossipDirectory_ThreeNodesConverge(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    base := time.Now().Add(-time.Hour)
    mk := func(id, bind string, seeds []string, launch time.Time) *gossip.Directory {
        d, err := gossip.New(gossip.Options{
            InstanceID: id,
            LaunchTime: launch,
            Hostname:   "127.0.0.1",
            Bind:       bind,
            Seeds:      seeds,
        })
        if err != nil { t.Fatalf("%s: %v", id, err) }
        if err := d.Start(ctx); err != nil { t.Fatalf("%s start: %v", id, err) }
        return d
    }

    d1 := mk("i-aaa", "127.0.0.1:27946", nil, base)
    defer d1.Stop()
    d2 := mk("i-bbb", "127.0.0.1:27947", []string{"127.0.0.1:27946"}, base.Add(time.Minute))
    defer d2.Stop()
    d3 := mk("i-ccc", "127.0.0.1:27948", []string{"127.0.0.1:27946"}, base.Add(2*time.Minute))
    defer d3.Stop()

    // Every member should converge on the same three-instance snapshot and
    // therefore the same rally point.
    deadline := time.Now().Add(15 * time.Second)
    for _, d := range []*gossip.Directory{d1, d2, d3} {
        for {
            ins, err := d.Instances(ctx)
            if err == nil && len(ins) == 3 {
                rp, err := rally.Select(ins)
                if err != nil { t.Fatal(err) }
                if rp.ID != "i-aaa" {
                    t.Fatalf("rally point = %s, want i-aaa", rp.ID)
                }
                break
            }
            if time.Now().After(deadline) {
                t.Fatalf("membership did not converge: ins=%v err=%v", ins, err)
            }
            time.Sleep(200 * time.Millisecond)
        }
    }
}

package rally

import (
    "errors"
    "math/rand"
    "testing"
    "time"

    "github.com/fleetware/couchrally/pkg/discovery"
)

func fleet() []discovery.Instance {
    base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
    return []discovery.Instance{
        {ID: "i-ccc", LaunchTime: base.Add(2 * time.Minute), PrivateHostname: "10.0.0.3"},
        {ID: "i-aaa", LaunchTime: base, PrivateHostname: "10.0.0.1"},
        {ID: "i-bbb", LaunchTime: base.Add(time.Minute), PrivateHostname: "10.0.0.2"},
    }
}

func TestSelect_OldestWins(t *testing.T) {
    rp, err := Select(fleet())
    if err != nil {
        t.Fatalf("select: %v", err)
    }
    if rp.ID != "i-aaa" {
        t.Fatalf("expected i-aaa, got %s", rp.ID)
    }
}

func TestSelect_OrderIndependent(t *testing.T) {
    ins := fleet()
    rng := rand.New(rand.NewSource(7))
    for i := 0; i < 20; i++ {
        rng.Shuffle(len(ins), func(a, b int) { ins[a], ins[b] = ins[b], ins[a] })
        rp, err := Select(ins)
        if err != nil {
            t.Fatalf("select: %v", err)
        }
        if rp.ID != "i-aaa" {
            t.Fatalf("permutation %d: expected i-aaa, got %s", i, rp.ID)
        }
    }
}

func TestSelect_TieBreaksOnID(t *testing.T) {
    base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
    ins := []discovery.Instance{
        {ID: "i-zzz", LaunchTime: base},
        {ID: "i-mmm", LaunchTime: base},
        {ID: "i-aaa", LaunchTime: base},
    }
    rp, err := Select(ins)
    if err != nil {
        t.Fatalf("select: %v", err)
    }
    if rp.ID != "i-aaa" {
        t.Fatalf("expected id tie-break to pick i-aaa, got %s", rp.ID)
    }
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
    ins := fleet()
    first := ins[0].ID
    if _, err := Select(ins); err != nil {
        t.Fatalf("select: %v", err)
    }
    if ins[0].ID != first {
        t.Fatalf("input reordered: got %s want %s", ins[0].ID, first)
    }
}

func TestSelect_EmptyIsFatal(t *testing.T) {
    if _, err := Select(nil); !errors.Is(err, discovery.ErrNoInstances) {
        t.Fatalf("expected ErrNoInstances, got %v", err)
    }
}

func TestIsRallyPoint(t *testing.T) {
    ok, err := IsRallyPoint(fleet(), "i-aaa")
    if err != nil || !ok {
        t.Fatalf("expected i-aaa to be rally point (ok=%v err=%v)", ok, err)
    }
    ok, err = IsRallyPoint(fleet(), "i-bbb")
    if err != nil || ok {
        t.Fatalf("expected i-bbb not rally point (ok=%v err=%v)", ok, err)
    }
}

func TestSelect_SurvivorsConvergeAfterRallyPointLoss(t *testing.T) {
    ins := fleet()
    // Drop the current rally point; the next-oldest must win.
    var rest []discovery.Instance
    for _, in := range ins {
        if in.ID != "i-aaa" {
            rest = append(rest, in)
        }
    }
    rp, err := Select(rest)
    if err != nil {
        t.Fatalf("select: %v", err)
    }
    if rp.ID != "i-bbb" {
        t.Fatalf("expected i-bbb after loss of i-aaa, got %s", rp.ID)
    }
}

package static

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/fleetware/couchrally/pkg/discovery"
)

func TestParse(t *testing.T) {
    got, err := Parse(" i-1@10.0.0.1 , i-2@10.0.0.2@2024-03-01T10:00:00Z ,")
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if len(got) != 2 {
        t.Fatalf("expected 2 instances, got %d", len(got))
    }
    if got[0].ID != "i-1" || got[0].PrivateHostname != "10.0.0.1" {
        t.Fatalf("unexpected first instance: %#v", got[0])
    }
    want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
    if !got[1].LaunchTime.Equal(want) {
        t.Fatalf("launch time: got %v want %v", got[1].LaunchTime, want)
    }
    // Without explicit launch times, list order implies age.
    if !got[0].LaunchTime.Before(got[1].LaunchTime) {
        t.Fatalf("expected first instance older: %v vs %v", got[0].LaunchTime, got[1].LaunchTime)
    }
}

func TestParse_Invalid(t *testing.T) {
    for _, in := range []string{"i-1", "i-1@h@not-a-time", "@h"} {
        if _, err := Parse(in); err == nil {
            t.Fatalf("expected error for %q", in)
        }
    }
}

func TestNew_EmptyIsError(t *testing.T) {
    d := New()
    if _, err := d.Instances(context.Background()); !errors.Is(err, discovery.ErrNoInstances) {
        t.Fatalf("expected ErrNoInstances, got %v", err)
    }
}

func TestNew_ReturnsCopy(t *testing.T) {
    d := New(discovery.Instance{ID: "i-1", PrivateHostname: "h1"})
    got, err := d.Instances(context.Background())
    if err != nil { t.Fatalf("instances: %v", err) }
    got[0].ID = "mutated"
    got2, _ := d.Instances(context.Background())
    if got2[0].ID != "i-1" {
        t.Fatalf("expected defensive copy, got %#v", got2)
    }
}

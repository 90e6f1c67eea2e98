package memquota

import (
    "os"
    "path/filepath"
    "testing"
)

func TestTotalSystemMB(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "meminfo")
    body := "MemTotal:        4046848 kB\nMemFree:          123456 kB\n"
    if err := os.WriteFile(f, []byte(body), 0o644); err != nil { t.Fatal(err) }

    got, err := totalSystemMB(f)
    if err != nil {
        t.Fatalf("totalSystemMB: %v", err)
    }
    if got != 3952 {
        t.Fatalf("got %dMB want 3952MB", got)
    }
}

func TestTotalSystemMB_Missing(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "meminfo")
    if err := os.WriteFile(f, []byte("MemFree: 1 kB\n"), 0o644); err != nil { t.Fatal(err) }
    if _, err := totalSystemMB(f); err == nil {
        t.Fatalf("expected error when MemTotal absent")
    }
}

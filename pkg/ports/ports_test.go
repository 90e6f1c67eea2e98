package ports

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestPatch_ReplacesAndAppends(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "static_config")
    body := "{rest_port, 8091}.\n{loglevel_default, info}.\n"
    if err := os.WriteFile(f, []byte(body), 0o644); err != nil { t.Fatal(err) }

    if err := Patch(f, Config{RestPort: 9091, QueryPort: 9093}); err != nil {
        t.Fatalf("patch: %v", err)
    }
    got, _ := os.ReadFile(f)
    text := string(got)
    if !strings.Contains(text, "{rest_port, 9091}.") {
        t.Fatalf("rest_port not replaced:\n%s", text)
    }
    if !strings.Contains(text, "{query_port, 9093}.") {
        t.Fatalf("query_port not appended:\n%s", text)
    }
    if !strings.Contains(text, "{loglevel_default, info}.") {
        t.Fatalf("unmanaged entry lost:\n%s", text)
    }
    if strings.Contains(text, "{rest_port, 8091}.") {
        t.Fatalf("stale rest_port entry kept:\n%s", text)
    }
}

func TestPatch_Idempotent(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "static_config")
    cfg := Config{RestPort: 9091, FTSPort: 9094}

    if err := Patch(f, cfg); err != nil { t.Fatalf("first patch: %v", err) }
    first, _ := os.ReadFile(f)
    if err := Patch(f, cfg); err != nil { t.Fatalf("second patch: %v", err) }
    second, _ := os.ReadFile(f)
    if string(first) != string(second) {
        t.Fatalf("patch not idempotent:\n%s\nvs\n%s", first, second)
    }
}

func TestPatch_NoManagedPortsIsNoop(t *testing.T) {
    dir := t.TempDir()
    f := filepath.Join(dir, "static_config")
    if err := Patch(f, Config{}); err != nil {
        t.Fatalf("patch: %v", err)
    }
    if _, err := os.Stat(f); !os.IsNotExist(err) {
        t.Fatalf("file should not be created for empty config")
    }
}

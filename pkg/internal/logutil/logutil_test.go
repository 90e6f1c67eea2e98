package logutil

import (
    "bytes"
    "encoding/json"
    "log"
    "strings"
    "testing"
)

func TestTextModePrefixes(t *testing.T) {
    SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)

    Infof(l, "hello %d", 1)
    Warnf(l, "careful")
    Errorf(l, "boom: %v", "reason")

    out := buf.String()
    for _, want := range []string{"INFO hello 1", "WARN careful", "ERROR boom: reason"} {
        if !strings.Contains(out, want) {
            t.Fatalf("output missing %q:\n%s", want, out)
        }
    }
}

func TestJSONMode(t *testing.T) {
    SetJSON(true)
    defer SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)

    Errorf(l, "it %s", "broke")

    var evt map[string]any
    if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &evt); err != nil {
        t.Fatalf("not JSON: %v\n%s", err, buf.String())
    }
    if evt["level"] != "error" || evt["msg"] != "it broke" {
        t.Fatalf("event = %v", evt)
    }
    if evt["ts"] == "" {
        t.Fatal("missing timestamp")
    }
}

func TestNilLoggerUsesDefault(t *testing.T) {
    SetJSON(false)
    // Must not panic.
    Infof(nil, "default logger path")
}

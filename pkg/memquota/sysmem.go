package memquota

import (
    "bufio"
    "fmt"
    "os"
    "strconv"
    "strings"
)

// TotalSystemMB reads the machine's total memory from /proc/meminfo.
// Used as the planner input when the operator gives no manual quotas.
func TotalSystemMB() (int, error) {
    return totalSystemMB("/proc/meminfo")
}

func totalSystemMB(path string) (int, error) {
    f, err := os.Open(path)
    if err != nil {
        return 0, fmt.Errorf("memquota: read meminfo: %w", err)
    }
    defer f.Close()
    s := bufio.NewScanner(f)
    for s.Scan() {
        line := s.Text()
        if !strings.HasPrefix(line, "MemTotal:") {
            continue
        }
        fields := strings.Fields(line)
        if len(fields) < 2 {
            break
        }
        kb, err := strconv.Atoi(fields[1])
        if err != nil {
            return 0, fmt.Errorf("memquota: parse MemTotal %q: %w", fields[1], err)
        }
        return kb / 1024, nil
    }
    if err := s.Err(); err != nil {
        return 0, fmt.Errorf("memquota: read meminfo: %w", err)
    }
    return 0, fmt.Errorf("memquota: MemTotal not found in %s", path)
}

package main

import (
    "os"

    rallycli "github.com/fleetware/couchrally/pkg/cli"
)

func main() {
    os.Exit(rallycli.Main())
}

package main

import (
	"fmt"
	"os"

	"github.com/hsiuhsiu/magic-go/internal/cli"
)

var version = "dev"

func main() {
	cmd := cli.NewRootCommand(version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gomagic:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/jmaddaus/issuetrack/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(os.Args[1:], version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// Command chatclient is a terminal client for the chat backend.
package main

import (
	"fmt"
	"os"

	"github.com/rickgao/chatlink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

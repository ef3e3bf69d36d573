// Command camgatectl inspects and maintains a camera gateway installation
// without going through the HTTP API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "camgatectl:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"carrental/internal/fleet"
)

func main() {
	if err := fleet.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/eligoproject/eligo/cmd/eligo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

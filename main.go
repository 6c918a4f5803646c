package main

import (
	"os"

	"github.com/khianthai/khian/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

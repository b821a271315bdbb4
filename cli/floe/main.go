package main

import (
	"os"

	floecmder "github.com/frostpeakco/floe/cmd/floe"
)

func main() {
	cmd := floecmder.NewFloeCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

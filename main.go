package main

import (
	"os"

	"github.com/botirk38/lastcorr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

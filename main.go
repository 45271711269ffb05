package main

import (
	"os"

	"github.com/korjavin/topicquizbot/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

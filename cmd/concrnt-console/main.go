package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	root := &cli.Command{
		Name:    "concrnt-console",
		Usage:   "Admin and self-service portal for a concrnt domain",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			tokenCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

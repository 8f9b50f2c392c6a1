// Package main provides the nbctl command line client.
package main

import (
	"context"
	"os"

	"github.com/dukex/nbctl/pkg/printer"
)

func main() {
	root := newApp(os.Stdin, os.Stdout, os.Stderr).command()

	if err := root.Run(context.Background(), os.Args); err != nil {
		printer.New(os.Stderr, false).Error(err)
		os.Exit(1)
	}
}

// Package main is the entry point of the timeline counter service
package main

import (
	"os"

	"github.com/d0ngw/timeline-counter/cmd/counterd/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

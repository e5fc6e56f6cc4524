// Package main is the robobot command.
package main

import (
	"log"
	"os"

	"robobot.dev/raubase/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// Command helpdesk runs the Meta webhook receiver and operator API.
//
//	helpdesk serve     start the HTTP server
//	helpdesk migrate   create or update the database schema and exit
//
// Configuration comes from the environment (see internal/config); a .env file
// is loaded first when present.
//
// @title          Helpdesk Webhook API
// @version        1.0
// @description    Inbound Instagram/WhatsApp webhook and operator inbox API.
// @BasePath       /
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "helpdesk",
		Usage:   "Meta webhook receiver for Instagram and WhatsApp conversations",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Load environment overrides from `FILE` (ignored when missing)",
				Value:   ".env",
			},
		},
		Before: func(c *cli.Context) error {
			return loadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}
}

// Package main is plugdump, the headless companion to plugdeck: list,
// export, and import plugin sets from scripts and CI without the TUI.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/pictor-app/plugdeck/internal/app"
	"github.com/pictor-app/plugdeck/internal/installer"
	"github.com/pictor-app/plugdeck/internal/logging"
	"github.com/pictor-app/plugdeck/internal/plugins"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "plugdump",
		Usage: "manage Pictor plugin sets from the command line",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print installed plugins, one name==version per line",
				Flags: []cli.Flag{
					baseDirFlag(),
				},
				Action: listAction,
			},
			{
				Name:  "export",
				Usage: "write the installed plugin list to a file",
				Flags: []cli.Flag{
					baseDirFlag(),
					&cli.StringFlag{
						Name:  "output",
						Usage: "output file path",
						Value: "pictor-plugins.txt",
					},
				},
				Action: exportAction,
			},
			{
				Name:  "import",
				Usage: "install every plugin named in a list file",
				Flags: []cli.Flag{
					baseDirFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "plugin list file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "tool",
						Usage: "installer backend (pip/conda, empty = auto)",
					},
				},
				Action: importAction,
			},
			{
				Name:  "history",
				Usage: "print recent install jobs",
				Flags: []cli.Flag{
					baseDirFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "number of records to show",
						Value: 20,
					},
				},
				Action: historyAction,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func baseDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "base-dir",
		Usage: "directory holding the .plugdeck data directory (default: home)",
	}
}

// newApp builds an app that logs to stderr; headless runs have no TUI to
// keep the terminal clean for.
func newApp(cmd *cli.Command) (*app.App, error) {
	logger := logging.New(os.Stderr, logging.Config{
		Level:  slog.LevelWarn,
		Format: "text",
	})
	return app.New(app.Options{
		BaseDir: cmd.String("base-dir"),
		Logger:  logger,
	})
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	items, err := application.Inventory.List(ctx)
	if err != nil {
		return err
	}
	return plugins.Export(os.Stdout, items)
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	path := cmd.String("output")
	if err := application.ExportPlugins(ctx, path); err != nil {
		return err
	}
	fmt.Printf("plugin list written to %s\n", path)
	return nil
}

func importAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	var tool installer.Tool
	switch cmd.String("tool") {
	case "":
	case "pip":
		tool = installer.Pip
	case "conda":
		tool = installer.Conda
	default:
		return fmt.Errorf("unknown tool %q", cmd.String("tool"))
	}

	ids, err := application.ImportPlugins(cmd.String("file"), tool)
	if err != nil {
		return err
	}

	failures := 0
	for _, id := range ids {
		info, err := application.Queue.Wait(ctx, id)
		if err != nil {
			return err
		}
		switch info.State {
		case installer.StateSucceeded:
			fmt.Printf("ok   %v\n", info.Targets)
		default:
			failures++
			fmt.Printf("FAIL %v (exit %d)\n", info.Targets, info.ExitCode)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d installs failed", failures, len(ids))
	}
	fmt.Printf("installed %d plugins\n", len(ids))
	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	records := application.History.List()
	limit := int(cmd.Int("limit"))
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	for _, rec := range records {
		fmt.Printf("%s  %-9s %-5s %-10s %v\n",
			rec.Finished.Format("2006-01-02 15:04:05"),
			rec.Action, rec.Tool, rec.State, rec.Targets)
	}
	return nil
}

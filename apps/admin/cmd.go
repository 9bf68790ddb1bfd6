package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/skillustad/proctor/core/report"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db   *sql.DB
	repo report.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run database migrations (up, down, status, ...)")
	fmt.Println("  purge -days N          - delete interview reports generated more than N days ago")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("purge", flag.ExitOnError)
	purgeDays := purgeCmd.Int("days", 90, "Reports generated more than this many days ago are deleted.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *purgeDays <= 0 {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(*purgeDays)
	default:
		cli.printUsage()
		return errHelp
	}
}

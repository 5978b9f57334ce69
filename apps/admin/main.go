package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/trezcool/masomo/apps/shared"
	"github.com/trezcool/masomo/core"
)

func main() {
	conf := core.NewConfig()

	logger, err := shared.NewLogger(conf, "ADMIN")
	if err != nil {
		errAndDie(err)
	}

	cli := newCommandLine(conf, logger, os.Stdout)
	err = cli.run(os.Args)
	if cerr := cli.close(); cerr != nil {
		logger.Error("failed to close outline stores", cerr)
	}
	shared.SyncLogger(logger)
	if err != nil {
		if err != errHelp {
			errAndDie(err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
	os.Exit(1)
}

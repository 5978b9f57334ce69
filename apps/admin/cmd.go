package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/apps/shared"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	outline *shared.Outline // built on first use
	gw      *gateway.Gateway
	db      *sql.DB
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	return &commandLine{conf: conf, logger: logger, out: out}
}

func (cli *commandLine) gateway() (*gateway.Gateway, error) {
	if cli.gw != nil {
		return cli.gw, nil
	}
	outline, err := shared.NewOutline(cli.conf, cli.logger)
	if err != nil {
		return nil, err
	}
	cli.outline, cli.gw = outline, outline.Gateway
	return cli.gw, nil
}

func (cli *commandLine) sqlDB() (*sql.DB, error) {
	if cli.db != nil {
		return cli.db, nil
	}
	db, err := database.Open(cli.conf)
	if err != nil {
		return nil, err
	}
	cli.db = db.DB
	return cli.db, nil
}

func (cli *commandLine) close() error {
	var err error
	if cli.outline != nil {
		err = cli.outline.Close()
	}
	if cli.db != nil {
		if cerr := cli.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// withGateway adapts a gateway call into a cobra RunE.
func (cli *commandLine) withGateway(fn func(ctx context.Context, gw *gateway.Gateway, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		gw, err := cli.gateway()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), gw, args)
	}
}

func (cli *commandLine) success(format string, a ...interface{}) {
	fmt.Fprintf(cli.out, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, a...))
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Masomo outline administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.courseCmd(),
		cli.treeCmd(),
		cli.sectionCmd(),
		cli.activityCmd(),
		cli.verifyCmd(),
		cli.cacheCmd(),
	)
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

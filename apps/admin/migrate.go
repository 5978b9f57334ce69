package main

import (
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.sqlDB()
	if err != nil {
		return err
	}
	if err = database.PrepareMigrations(); err != nil {
		return err
	}
	return gooseRunFunc(args[0], db, database.MigrationsDir, args[1:]...)
}

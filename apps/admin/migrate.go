package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/storage/database"
	sqlxdb "github.com/trezcool/shule/storage/database/sqlx"
)

var migrateFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.openDB()
	if err != nil {
		return err
	}
	return migrateFunc(db, args[0], args[1:]...)
}

func (cli *commandLine) seed() error {
	db, err := cli.openDB()
	if err != nil {
		return err
	}
	n, err := sqlxdb.Seed(context.Background(), db, database.Fixtures())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d records inserted\n", n)
	return nil
}

package main

import (
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/shule/apps/api/di/dig"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

func main() {
	var code int
	err := dig_container.New().Invoke(func(
		conf *core.Config,
		storage *dig_container.Storage,
		usrSvc *user.Service,
		validate *validator.Validate,
		translator ut.Translator,
	) {
		defer func() { _ = storage.Close() }()

		var db *sqlx.DB
		openDB := func() (*sqlx.DB, error) {
			if storage.DB != nil {
				return storage.DB, nil
			}
			if db == nil {
				var err error
				if db, err = database.Open(conf); err != nil {
					return nil, err
				}
			}
			return db, nil
		}
		defer func() {
			if db != nil {
				_ = db.Close()
			}
		}()

		cli := commandLine{
			usrSvc:     usrSvc,
			validate:   validate,
			translator: translator,
			openDB:     openDB,
			out:        os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				log.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

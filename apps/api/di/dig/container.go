package dig_container

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/core/user"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	sqlxdb "github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/storage/kv"
)

// Storage is the configured backend: a key-value store for the directory and the sessions,
// and a record store for the resources.
type Storage struct {
	KV      core.KVStore
	Records resource.Repository
	DB      *sqlx.DB // set for the sql backend only
	Health  func(ctx context.Context) error
	Close   func() error
}

func newLogger(conf *core.Config, local *zap.Logger) core.Logger {
	return logsvc.NewRollbarLogger(local.Named("api"), conf)
}

func newStorage(conf *core.Config, logger core.Logger) (*Storage, error) {
	memoryRecords := func() resource.Repository {
		return inmemdb.NewRecordRepository(inmemdb.Open(database.Fixtures()))
	}
	noop := func() error { return nil }

	switch conf.Storage.Backend {
	case core.StorageMemory, "":
		return &Storage{KV: kv.NewMemoryStore(), Records: memoryRecords(), Close: noop}, nil

	case core.StorageRedis:
		store := kv.NewRedisStore(conf.Storage.RedisAddr)
		if err := store.Ping(context.Background()); err != nil {
			_ = store.Close()
			return nil, err
		}
		return &Storage{KV: store, Records: memoryRecords(), Health: store.Ping, Close: store.Close}, nil

	case core.StorageSQL:
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err = seedIfEmpty(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Storage{
			KV:      kv.NewSQLStore(db),
			Records: sqlxdb.NewRecordRepository(db),
			DB:      db,
			Health:  func(ctx context.Context) error { return db.PingContext(ctx) },
			Close:   db.Close,
		}, nil
	}
	return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
}

func seedIfEmpty(db *sqlx.DB, logger core.Logger) error {
	ctx := context.Background()
	names, err := sqlxdb.NewRecordRepository(db).Resources(ctx)
	if err != nil || len(names) > 0 {
		return err
	}
	n, err := sqlxdb.Seed(ctx, db, database.Fixtures())
	if err != nil {
		return err
	}
	logger.Info("record store seeded", map[string]interface{}{"records": n})
	return nil
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newDirectory(conf *core.Config, storage *Storage, logger core.Logger) user.Repository {
	return user.NewDirectory(storage.KV, logger, conf.Auth.PasswordCost)
}

func newUserService(conf *core.Config, repo user.Repository, storage *Storage, logger core.Logger) *user.Service {
	return user.NewService(repo, storage.KV, logger, conf.Auth.PasswordCost)
}

func newResourceService(conf *core.Config, storage *Storage, logger core.Logger) *resource.Service {
	return resource.NewService(storage.Records, logger, resource.Options{Latency: conf.Resource.Latency})
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	storage *Storage,
	usrSvc *user.Service,
	resSvc *resource.Service,
) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address:     conf.Server.Address,
		AppName:     conf.AppName,
		SecretKey:   conf.SecretKey,
		TokenTTL:    conf.Server.TokenExpirationDelta,
		Debug:       conf.Debug,
		TestMode:    conf.TestMode,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Sessions:    storage.KV,
		UserSvc:     usrSvc,
		ResourceSvc: resSvc,
		HealthCheck: storage.Health,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newStorage))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newDirectory))
	must(c.Provide(newUserService))
	must(c.Provide(newResourceService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

package shared

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo/apps/gateway"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
	cachesvc "github.com/trezcool/masomo/services/cache"
	locksvc "github.com/trezcool/masomo/services/lock"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/database"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
	redisdb "github.com/trezcool/masomo/storage/redis"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Outline holds the wired outline stack of an app.
type Outline struct {
	Gateway *gateway.Gateway
	DB      *sqlx.DB // nil with memory storage
	closers []func() error
}

func (o *Outline) Close() error {
	var firstErr error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewLogger returns the configured core.Logger: zap for "json" format, Rollbar + stdlib otherwise.
func NewLogger(conf *core.Config, prefix string) (core.Logger, error) {
	if conf.LogFormat == "json" {
		return logsvc.NewZapLogger(conf.LogFormat, prefix)
	}
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger, nil
}

// SyncLogger flushes logger's buffered entries, if it buffers any.
func SyncLogger(logger core.Logger) {
	if s, ok := logger.(interface{ Sync() }); ok {
		s.Sync()
	}
}

// NewOutline wires storage, exclusion tokens and snapshot cache as configured.
func NewOutline(conf *core.Config, logger core.Logger) (*Outline, error) {
	o := new(Outline)

	var repo course.Repository
	switch conf.Outline.Storage {
	case StorageMemory:
		repo = inmemdb.NewCourseRepository(inmemdb.Open())
	case StoragePostgres:
		db, err := setUpDB(conf)
		if err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		o.DB = db
		o.closers = append(o.closers, db.Close)
		repo = sqlxrepos.NewCourseRepository(db)
	default:
		return nil, errors.Errorf("unknown outline storage %q", conf.Outline.Storage)
	}

	var (
		locker    core.Locker
		snapshots course.SnapshotStore
	)
	if conf.Redis.URL != "" {
		client, err := redisdb.Open(conf.Redis.URL)
		if err != nil {
			_ = o.Close()
			return nil, err
		}
		o.closers = append(o.closers, client.Close)
		locker, snapshots = redisStack(client, conf, logger)
	} else {
		locker = locksvc.NewMemoryLocker(conf.Outline.LockWait)
		snapshots = course.NewMemorySnapshotStore()
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	svc := course.NewService(repo, snapshots, validate, translator, logger)
	o.Gateway = gateway.New(svc, locker, logger)
	return o, nil
}

func redisStack(client *redis.Client, conf *core.Config, logger core.Logger) (core.Locker, course.SnapshotStore) {
	return locksvc.NewRedisLocker(client, conf.Outline.LockWait, conf.Outline.LockTTL, logger),
		cachesvc.NewRedisSnapshotStore(client, conf.Outline.CacheTTL)
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

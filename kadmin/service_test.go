package kadmin

import (
	"context"

	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cloudhut/kadminion/logging"
)

// fakeRunner scripts the outcome of every command the service wants to
// execute and records what it was asked to run.
type fakeRunner struct {
	calls   []Command
	respond func(cmd Command) (ExecResult, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (ExecResult, error) {
	f.calls = append(f.calls, cmd)
	if f.respond == nil {
		return ExecResult{}, nil
	}
	return f.respond(cmd)
}

func newTestService(runner CommandRunner) *Service {
	return newTestServiceWithLogger(runner, zap.NewNop())
}

func newTestServiceWithLogger(runner CommandRunner, logger *zap.Logger) *Service {
	var cfg Config
	cfg.SetDefaults()

	existsCache := ttlcache.NewCache()
	existsCache.SkipTTLExtensionOnHit(true)
	_ = existsCache.SetTTL(cfg.ExistsCacheTTL)

	return &Service{
		cfg:          cfg,
		logger:       logger,
		redactor:     logging.NewRedactor(),
		runner:       runner,
		requestGroup: &singleflight.Group{},
		existsCache:  existsCache,
	}
}

package distributionengine

import (
	"log/slog"
	"time"

	ledgerports "tessera/contexts/value-attribution/contribution-ledger/ports"
	httpadapter "tessera/contexts/value-attribution/distribution-engine/adapters/http"
	ledgeradapter "tessera/contexts/value-attribution/distribution-engine/adapters/ledger"
	"tessera/contexts/value-attribution/distribution-engine/adapters/memory"
	"tessera/contexts/value-attribution/distribution-engine/application/commands"
	"tessera/contexts/value-attribution/distribution-engine/application/queries"
	"tessera/contexts/value-attribution/distribution-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
	Locks   *memory.LockTable
}

type Dependencies struct {
	Resolver   ports.LineageResolver
	Repository ports.Repository
	Locks      ports.AssetLocks
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Outbox     ports.OutboxWriter
	RunTimeout time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Resolver:   deps.Resolver,
		Repository: deps.Repository,
		Locks:      deps.Locks,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Outbox:     deps.Outbox,
		RunTimeout: deps.RunTimeout,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against an in-process ledger repository.
// The distribution store applies aggregate deltas to the same ledger the
// resolver reads, mirroring the transactional coupling of the SQL adapters.
func NewInMemoryModule(ledger ledgerports.Repository, runTimeout time.Duration, logger *slog.Logger) Module {
	store := memory.NewStore(ledger)
	locks := memory.NewLockTable()
	module := NewModule(Dependencies{
		Resolver:   ledgeradapter.NewResolver(ledger),
		Repository: store,
		Locks:      locks,
		Clock:      store,
		IDGen:      store,
		Outbox:     store,
		RunTimeout: runTimeout,
		Logger:     logger,
	})
	module.Store = store
	module.Locks = locks
	return module
}

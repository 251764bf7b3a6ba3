package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "tessera/contexts/value-attribution/distribution-engine/application"
	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	"tessera/contexts/value-attribution/distribution-engine/ports"
	"tessera/internal/shared/events"
)

type RunDistributionCommand struct {
	DistributionID string
	AssetID        string
	ValueAmount    decimal.Decimal
	Method         entities.DistributionMethod
	MaxDepth       int
	Notes          string
}

type UseCase struct {
	Resolver   ports.LineageResolver
	Repository ports.Repository
	Locks      ports.AssetLocks
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Outbox     ports.OutboxWriter
	// RunTimeout bounds one full run (traversal + normalization + commit).
	// Zero disables the budget.
	RunTimeout time.Duration
	Logger     *slog.Logger
}

var half = decimal.NewFromFloat(0.5)

// RunDistribution walks the asset's contribution lineage, weights every
// contributing entity by cost x coherence multiplier, and commits a payout
// set that sums exactly to the distributed value. Failed runs are never
// persisted; cancellation between asset visits discards the accumulator.
func (uc UseCase) RunDistribution(ctx context.Context, cmd RunDistributionCommand) (entities.Distribution, error) {
	logger := application.ResolveLogger(uc.Logger)
	assetID := strings.TrimSpace(cmd.AssetID)

	if !cmd.ValueAmount.IsPositive() {
		logger.Warn("distribution run rejected invalid value",
			"event", "distribution_run_invalid_value",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"asset_id", assetID,
			"value_amount", cmd.ValueAmount.String(),
		)
		return entities.Distribution{}, domainerrors.ErrInvalidValueAmount
	}
	// Payouts settle at two decimal places; finer-grained values cannot
	// reconcile exactly.
	if !cmd.ValueAmount.Equal(cmd.ValueAmount.Truncate(2)) {
		return entities.Distribution{}, domainerrors.ErrInvalidValueAmount
	}
	method := cmd.Method
	if method == "" {
		method = entities.MethodCoherenceWeighted
	}
	if method != entities.MethodCoherenceWeighted {
		return entities.Distribution{}, domainerrors.ErrUnsupportedMethod
	}
	if cmd.MaxDepth < entities.UnlimitedDepth {
		return entities.Distribution{}, domainerrors.ErrInvalidMaxDepth
	}

	release, err := uc.Locks.Acquire(ctx, assetID)
	if err != nil {
		logger.Warn("distribution run lock contention",
			"event", "distribution_run_lock_contention",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"asset_id", assetID,
			"error", err.Error(),
		)
		return entities.Distribution{}, err
	}
	defer release()

	if uc.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.RunTimeout)
		defer cancel()
	}

	exists, err := uc.Resolver.AssetExists(ctx, assetID)
	if err != nil {
		return entities.Distribution{}, err
	}
	if !exists {
		logger.Warn("distribution run root asset missing",
			"event", "distribution_run_asset_not_found",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"asset_id", assetID,
		)
		return entities.Distribution{}, domainerrors.ErrAssetNotFound
	}

	logger.Info("distribution run traversing",
		"event", "distribution_run_traversing",
		"module", "value-attribution/distribution-engine",
		"layer", "application",
		"asset_id", assetID,
		"status", string(entities.DistributionStatusTraversing),
		"max_depth", cmd.MaxDepth,
	)

	accumulator, visitedCount, err := uc.traverse(ctx, assetID, cmd.MaxDepth)
	if err != nil {
		logger.Error("distribution run traversal aborted",
			"event", "distribution_run_traversal_aborted",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"asset_id", assetID,
			"status", string(entities.DistributionStatusFailed),
			"error", err.Error(),
		)
		return entities.Distribution{}, err
	}

	totalWeighted := decimal.Zero
	for _, entry := range accumulator {
		totalWeighted = totalWeighted.Add(entry.WeightedCost)
	}
	if totalWeighted.IsZero() {
		logger.Warn("distribution run found no contributions",
			"event", "distribution_run_no_contributions",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"asset_id", assetID,
			"status", string(entities.DistributionStatusFailed),
			"assets_visited", visitedCount,
		)
		return entities.Distribution{}, domainerrors.ErrNoContributionsFound
	}

	// Contributors are emitted in ascending id order so repeated runs over
	// identical ledger state produce identical output.
	shares := make([]weightedShare, 0, len(accumulator))
	for _, entry := range accumulator {
		if entry.WeightedCost.IsZero() {
			continue
		}
		shares = append(shares, entry)
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].ContributorID < shares[j].ContributorID
	})

	logger.Info("distribution run aggregated",
		"event", "distribution_run_aggregated",
		"module", "value-attribution/distribution-engine",
		"layer", "application",
		"asset_id", assetID,
		"status", string(entities.DistributionStatusAggregated),
		"assets_visited", visitedCount,
		"contributor_count", len(shares),
		"total_weighted_cost", totalWeighted.String(),
	)

	amounts, err := normalizePayouts(cmd.ValueAmount, totalWeighted, shares)
	if err != nil {
		logger.Error("distribution run payout reconciliation failed",
			"event", "distribution_run_reconciliation_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"asset_id", assetID,
			"status", string(entities.DistributionStatusFailed),
			"error", err.Error(),
		)
		return entities.Distribution{}, err
	}

	distribution, deltas, err := uc.buildRecord(ctx, cmd, assetID, method, shares, amounts)
	if err != nil {
		return entities.Distribution{}, err
	}
	distribution.AssetsVisited = visitedCount

	if err := uc.Repository.CommitDistribution(ctx, distribution, deltas); err != nil {
		logger.Error("distribution run commit failed",
			"event", "distribution_run_commit_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"distribution_id", distribution.ID,
			"asset_id", assetID,
			"error", err.Error(),
		)
		return entities.Distribution{}, err
	}

	if err := uc.appendOutbox(ctx, "distribution.completed", distribution.ID, map[string]any{
		"distribution_id":   distribution.ID,
		"asset_id":          assetID,
		"value_amount":      distribution.ValueAmount.String(),
		"total_distributed": distribution.TotalDistributed.String(),
		"payout_count":      len(distribution.Payouts),
	}); err != nil {
		return entities.Distribution{}, err
	}

	logger.Info("distribution run normalized",
		"event", "distribution_run_normalized",
		"module", "value-attribution/distribution-engine",
		"layer", "application",
		"distribution_id", distribution.ID,
		"asset_id", assetID,
		"status", string(entities.DistributionStatusNormalized),
		"value_amount", distribution.ValueAmount.String(),
		"payout_count", len(distribution.Payouts),
		"assets_visited", visitedCount,
	)
	return distribution, nil
}

type traversalFrame struct {
	assetID string
	depth   int
}

// traverse walks the composition graph iteratively with an explicit work
// stack so stack usage stays bounded regardless of graph depth. An asset is
// visited at most once: a shared dependency reached via two paths is
// deduplicated, and a true cycle terminates at the visited-set guard rather
// than erroring. Unknown dependency assets resolve to zero events and zero
// edges, making them leaves.
func (uc UseCase) traverse(ctx context.Context, rootAssetID string, maxDepth int) (map[string]weightedShare, int, error) {
	visited := make(map[string]struct{})
	accumulator := make(map[string]weightedShare)
	stack := []traversalFrame{{assetID: rootAssetID, depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[frame.assetID]; seen {
			continue
		}
		if maxDepth >= 0 && frame.depth > maxDepth {
			continue
		}
		visited[frame.assetID] = struct{}{}

		lineageEvents, err := uc.Resolver.EventsForAsset(ctx, frame.assetID)
		if err != nil {
			return nil, 0, err
		}
		for _, event := range lineageEvents {
			weighted := event.CostAmount.Mul(half.Add(event.CoherenceScore))
			target := event.CreditTarget()
			entry := accumulator[target]
			entry.ContributorID = target
			entry.WeightedCost = entry.WeightedCost.Add(weighted)
			entry.RawCost = entry.RawCost.Add(event.CostAmount)
			accumulator[target] = entry
		}

		dependencies, err := uc.Resolver.DependenciesOf(ctx, frame.assetID)
		if err != nil {
			return nil, 0, err
		}
		// Pushed in reverse so dependencies are visited in declared order.
		for i := len(dependencies) - 1; i >= 0; i-- {
			dependencyID := strings.TrimSpace(dependencies[i])
			if dependencyID == "" {
				continue
			}
			if _, seen := visited[dependencyID]; seen {
				continue
			}
			stack = append(stack, traversalFrame{assetID: dependencyID, depth: frame.depth + 1})
		}
	}
	return accumulator, len(visited), nil
}

func (uc UseCase) buildRecord(
	ctx context.Context,
	cmd RunDistributionCommand,
	assetID string,
	method entities.DistributionMethod,
	shares []weightedShare,
	amounts []decimal.Decimal,
) (entities.Distribution, ports.CommitDeltas, error) {
	distributionID := strings.TrimSpace(cmd.DistributionID)
	if distributionID == "" {
		var err error
		distributionID, err = uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Distribution{}, ports.CommitDeltas{}, err
		}
	}

	contributorIDs := make([]string, 0, len(shares))
	for _, share := range shares {
		contributorIDs = append(contributorIDs, share.ContributorID)
	}
	names, err := uc.Resolver.ContributorNames(ctx, contributorIDs)
	if err != nil {
		return entities.Distribution{}, ports.CommitDeltas{}, err
	}

	now := uc.now()
	payouts := make([]entities.Payout, 0, len(shares))
	earned := make(map[string]decimal.Decimal, len(shares))
	totalDistributed := decimal.Zero
	for i, share := range shares {
		multiplier := decimal.Zero
		if share.RawCost.IsPositive() {
			multiplier = share.WeightedCost.Div(share.RawCost)
		}
		payouts = append(payouts, entities.Payout{
			ContributorID:       share.ContributorID,
			ContributorName:     names[share.ContributorID],
			Amount:              amounts[i],
			Share:               amounts[i].Div(cmd.ValueAmount),
			DirectCost:          share.RawCost,
			CoherenceMultiplier: multiplier,
		})
		earned[share.ContributorID] = amounts[i]
		totalDistributed = totalDistributed.Add(amounts[i])
	}

	distribution := entities.Distribution{
		ID:               distributionID,
		AssetID:          assetID,
		ValueAmount:      cmd.ValueAmount,
		Method:           method,
		MaxDepth:         cmd.MaxDepth,
		Status:           entities.DistributionStatusNormalized,
		Notes:            strings.TrimSpace(cmd.Notes),
		Payouts:          payouts,
		TotalDistributed: totalDistributed,
		CreatedAt:        now,
	}
	deltas := ports.CommitDeltas{
		AssetID:           assetID,
		ValueGenerated:    cmd.ValueAmount,
		ValueDistributed:  totalDistributed,
		ContributorEarned: earned,
	}
	return distribution, deltas, nil
}

func (uc UseCase) appendOutbox(ctx context.Context, eventType string, partitionKey string, data map[string]any) error {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := uc.Outbox.AppendOutbox(ctx, events.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		SourceService: "distribution-engine",
		OccurredAtUTC: uc.now(),
		CorrelationID: eventID,
		PartitionKey:  partitionKey,
		SchemaVersion: 1,
		Payload:       payload,
	}); err != nil {
		logger.Error("distribution outbox append failed",
			"event", "distribution_outbox_append_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"event_type", eventType,
			"partition_key", partitionKey,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

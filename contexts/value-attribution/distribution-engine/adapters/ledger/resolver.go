package ledger

import (
	"context"
	"errors"
	"sort"

	ledgererrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	ledgerports "tessera/contexts/value-attribution/contribution-ledger/ports"
	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	"tessera/contexts/value-attribution/distribution-engine/ports"
)

// Resolver adapts the contribution ledger's repository into the read-only
// lineage view the distribution engine traverses. Assets unknown to the
// ledger resolve to zero events and zero dependencies, so a dangling
// composition edge degrades to a leaf instead of failing a run.
type Resolver struct {
	Ledger ledgerports.Repository
}

func NewResolver(ledger ledgerports.Repository) *Resolver {
	return &Resolver{Ledger: ledger}
}

func (r *Resolver) AssetExists(ctx context.Context, assetID string) (bool, error) {
	_, err := r.Ledger.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrAssetNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Resolver) EventsForAsset(ctx context.Context, assetID string) ([]entities.LineageEvent, error) {
	ledgerEvents, err := r.Ledger.ListEventsByAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrAssetNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(ledgerEvents, func(i, j int) bool {
		return ledgerEvents[i].Sequence < ledgerEvents[j].Sequence
	})
	lineage := make([]entities.LineageEvent, 0, len(ledgerEvents))
	for _, event := range ledgerEvents {
		kind, err := r.contributorKind(ctx, event.ContributorID)
		if err != nil {
			return nil, err
		}
		lineage = append(lineage, entities.LineageEvent{
			EventID:                  event.ID,
			ContributorID:            event.ContributorID,
			ContributorKind:          kind,
			TriggeredByContributorID: event.TriggeredByContributorID,
			CostAmount:               event.CostAmount,
			CoherenceScore:           event.CoherenceScore,
			Sequence:                 event.Sequence,
		})
	}
	return lineage, nil
}

// DependenciesOf merges edges from ASSET_COMPOSITION events (in sequence
// order) with edges declared on the asset record, deduplicated, preserving
// first-seen order.
func (r *Resolver) DependenciesOf(ctx context.Context, assetID string) ([]string, error) {
	seen := make(map[string]struct{})
	var dependencies []string
	appendEdge := func(target string) {
		if target == "" || target == assetID {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		dependencies = append(dependencies, target)
	}

	ledgerEvents, err := r.Ledger.ListEventsByAsset(ctx, assetID)
	if err != nil && !errors.Is(err, ledgererrors.ErrAssetNotFound) {
		return nil, err
	}
	sort.Slice(ledgerEvents, func(i, j int) bool {
		return ledgerEvents[i].Sequence < ledgerEvents[j].Sequence
	})
	for _, event := range ledgerEvents {
		if event.ComposedAssetID != "" {
			appendEdge(event.ComposedAssetID)
		}
	}

	asset, err := r.Ledger.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrAssetNotFound) {
			return dependencies, nil
		}
		return nil, err
	}
	for _, composed := range asset.ComposedAssetIDs {
		appendEdge(composed)
	}
	return dependencies, nil
}

func (r *Resolver) ContributorNames(ctx context.Context, contributorIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(contributorIDs))
	for _, contributorID := range contributorIDs {
		contributor, err := r.Ledger.GetContributor(ctx, contributorID)
		if err != nil {
			if errors.Is(err, ledgererrors.ErrContributorNotFound) {
				names[contributorID] = ""
				continue
			}
			return nil, err
		}
		names[contributorID] = contributor.DisplayName
	}
	return names, nil
}

// contributorKind degrades only the not-found case to an empty kind; any
// other lookup failure must abort the traversal, otherwise a transient error
// would silently divert a re-attributed payout back to the event contributor.
func (r *Resolver) contributorKind(ctx context.Context, contributorID string) (string, error) {
	contributor, err := r.Ledger.GetContributor(ctx, contributorID)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrContributorNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(contributor.Kind), nil
}

var _ ports.LineageResolver = (*Resolver)(nil)

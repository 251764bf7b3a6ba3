// Package distributionengine implements coherence-weighted value
// distribution for Tessera.
//
// A distribution run traverses an asset's composition lineage, weights every
// ledger entry by cost times a coherence multiplier, re-attributes SYSTEM
// work to the triggering human, and commits a payout set whose amounts sum
// to the distributed value exactly.
package distributionengine

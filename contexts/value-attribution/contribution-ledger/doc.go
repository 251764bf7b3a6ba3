// Package contributionledger implements the Contribution Ledger for Tessera.
//
// The module owns contributor, asset, and contribution-event tables and
// exposes HTTP command/query handlers for ledger ingestion. Events are
// append-only: corrections arrive as compensating events, never edits.
package contributionledger

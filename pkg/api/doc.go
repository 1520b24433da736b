// Package api contains the public data model of the atlasflow engine:
// step declarations, execution statuses, per-step and per-run results,
// lifecycle events, and the RunContext shared by executing steps.
package api

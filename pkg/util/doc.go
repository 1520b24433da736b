// Package util provides small generic collection helpers
//
// This package holds the set type used for membership checks across the
// engine, plus ordered-key extraction for deterministic iteration
package util

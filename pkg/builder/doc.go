// Package builder provides a fluent API for declaring pipeline steps
// and assembling them into a validated pipeline
//
// Builders are immutable: every With* call returns a copy, so partial
// declarations can be shared and specialized safely
package builder

// Package engine implements the pipeline execution core: structural
// validation of the step graph, deterministic planning, the sequential
// executor and its status machine, and the event-sourced run service
// layered on top
package engine

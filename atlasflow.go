// Package atlasflow is a deterministic pipeline execution engine. It
// validates a declared set of processing steps as a DAG, plans one
// deterministic execution order, and drives each step through its lifecycle
// while recording a complete, replayable run trace.
package atlasflow

const (
	// Name is the service name reported in logs and health output
	Name = "atlasflow"

	// Version is the engine release version
	Version = "0.3.0"
)

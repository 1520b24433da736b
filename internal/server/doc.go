// Package server exposes the engine over HTTP: run management, health,
// and live lifecycle event streaming
package server

// Package services implements the driving port interfaces.
// Services hold the ingestion, retrieval and session logic and
// orchestrate calls to driven ports (adapters).
package services

// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The session registry owns every live session. Ingestion appends
// chunks to a session and retrieval searches it; neither outlives
// the process.
package services

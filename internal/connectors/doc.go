// Package connectors holds document sources that feed a session.
// Each connector turns an external location into raw documents for
// ingestion. Sessions are append-only, so connectors report new
// documents and never retract one.
package connectors

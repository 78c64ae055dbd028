// Package domain holds Parley's entities: documents and their chunks,
// stored vector records, conversation sessions, routing decisions, web
// results and settings. It imports only the standard library.
package domain

// Package observability provides event logging, metrics calculation, and
// alerting for the second-brain pipeline. It uses structured JSON Lines
// (JSONL) for event persistence and derives processing metrics on-demand
// from the event log.
package observability

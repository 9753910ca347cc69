// Package service orchestrates the core components of the dark-pool
// matching engine: validation, per-symbol order books, the execution
// ledger, WAL durability, and outbound publication.
//
// It provides the in-process API for submitting, cancelling, and
// querying orders, decoupled from network transports like gRPC.
package service

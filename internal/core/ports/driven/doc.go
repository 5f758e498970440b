// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the embedding and generation model
// services, the vector index, the chunk and conversation stores, the
// config store, and the tool contract.
package driven

// Package catalog keeps a content catalog consistent across three
// representations: a primary store (Postgres), a key/value item cache
// (Redis) and a full-text search index (OpenSearch).
//
// It exposes a single Service interface that orchestrates content CRUD, the
// 1:1 media record, ensure-or-create categories and media file uploads.
// Implementations of the store gateway (memory, Postgres), cache (memory,
// Redis), search index (memory, OpenSearch) and blob store (memory,
// filesystem, S3) live under subpackages.
//
// # Consistency Model
//
// The store is the source of truth and every mutation commits there first.
// The cache is maintained synchronously (write-through on mutation,
// read-through on miss) so readers always see their own writes. The search
// index is reconciled asynchronously by the indexer pipeline: mutations
// enqueue a job carrying only the content id, and workers re-read the store
// before writing the index, so jobs may be reordered or coalesced without
// publishing stale documents. Search results therefore lag the store; the
// discovery package compensates by re-hydrating ranked ids through the read
// path and dropping ids whose rows are gone.
package catalog

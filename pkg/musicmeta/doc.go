// Package musicmeta provides a reusable library for music metadata and asset
// management with pluggable repository and blob storage backends.
//
// It exposes a single Service interface covering the upload-and-persist
// pipeline (multi-field asset uploads folded into a metadata record), record
// CRUD with filtered pagination and genre recommendations, and social
// interactions (likes, ratings, comments) over the persisted records.
// Implementations of repositories (memory, Postgres) and blob stores (memory,
// filesystem, S3, MinIO) are provided under subpackages.
//
// Consistency model
//
// All mutable state lives in the injected repositories and blob stores; the
// service itself is stateless and request-parallel. Mutations are
// read-modify-write at document granularity, last-write-wins across
// concurrent requests. Uniqueness checks for likes and ratings are enforced
// inside the repository's atomic per-record primitives. The one double-write
// (a like touches both the record and the user profile) is deliberately not
// transactional.
package musicmeta

// Package database provides SQLite persistence for media assets.
//
// Each asset row stores the extended metadata as a JSON blob together with
// a flattened projection of its curated fields (camera, lens, exposure,
// location, genre) and content hashes for querying. The projection is
// recomputed from the blob on every write so the two never disagree.
//
// The database uses WAL mode and applies schema migrations on open.
package database

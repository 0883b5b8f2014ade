// Package database provides connection pool management for the archive store.
//
// The archiver keeps everything in one PostgreSQL database: reassembled news
// stories and raw market data messages, both written in batches.
package database

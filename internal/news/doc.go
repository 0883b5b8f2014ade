// Package news reassembles machine-readable news stories from the
// fragmented envelopes the feed delivers on news analytics streams.
//
// A story arrives as one or more update messages, each carrying a base64
// fragment of a zlib-compressed JSON document plus the bookkeeping fields
// needed to stitch fragments together (GUID, fragment number, total size).
// The assembler buffers partial stories keyed by item, source, and GUID;
// the adapter drives it from raw feed messages and hands finished stories
// to the application.
package news

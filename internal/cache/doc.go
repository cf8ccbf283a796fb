// Package cache provides the LRU block cache used in front of remote blob
// stores.
//
// Link payloads on MinIO or S3 are read in fixed-size blocks. Each block is
// cached under its blob name and block index, so repeated content lookups
// do not hit the network. Cached bytes are charged to the resource
// controller and the cache refuses entries the controller cannot fund.
package cache

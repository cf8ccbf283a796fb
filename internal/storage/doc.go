// Package storage maps segments to files inside a repository directory.
//
//	<root>/
//	├── LOCK              advisory lock held while a store is open
//	├── segments/
//	│   ├── 0000000000    one block per segment, named by its index
//	│   └── 0000000001
//	└── contents/         link payloads and the reverse content index
//
// LoadAll reads every segment file in index order. SaveAll rewrites every
// segment and then removes files whose index is beyond the new count, so a
// store that shrank leaves no stale trailing segments.
package storage

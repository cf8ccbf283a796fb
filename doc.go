// Package scmemory provides an embedded, persistent semantic memory for Go.
//
// The memory is a hypergraph of typed elements: nodes, links (nodes that
// carry binary content) and arcs. An arc connects any two elements, including
// other arcs. Elements are addressed by a segment, an offset and a generation;
// an address whose element was erased never names a later element.
//
// # Quick Start
//
//	mem, _ := scmemory.Open("./kb")
//	defer mem.Close()
//
//	ctx, _ := mem.NewContext(model.AccessLevelsFull, "loader")
//	defer ctx.Destroy()
//
//	apple, _ := ctx.CreateNode(model.NodeConst)
//	fruit, _ := ctx.CreateNode(model.NodeConstClass)
//	ctx.CreateArc(model.ArcPosConstPerm, fruit, apple)
//
// # Contexts and Access Levels
//
// Every operation runs in a MemoryContext. A context carries a read and a
// write level (0..15). Elements get the levels of the context that created
// them; a context may read an element when its read level is at least the
// element's, and likewise for writes.
//
// # Iteration
//
// Iterator3 and Iterator5 match templates built from model.Fixed and
// model.Any. At least one position must be fixed:
//
//	seq, _ := ctx.Triples(model.Fixed(fruit), model.Any(model.ArcPosConstPerm), model.Any(model.Node))
//	for t := range seq {
//	    fmt.Println(t[2])
//	}
//
// Iterators hold no lock between steps and observe concurrent changes.
//
// # Erasure
//
// EraseElement removes an element and every arc incident to it,
// transitively: arcs into removed arcs are removed as well.
//
// # Content
//
// Link content is stored in a BlobStore (the local repository by default,
// or MinIO and S3 through the blobstore subpackages) and indexed by digest,
// so FindLinksByContent returns every link holding the same bytes.
//
// # Persistence
//
// Save writes a snapshot of all segments and the content index. Close saves
// unless WithoutSaveOnClose is given. Open verifies checksums and arc
// endpoints and refuses a repository that fails validation with ErrCorrupt.
//
// # Identifiers
//
// SetSystemIdentifier and SetMainIdentifier name elements through the
// relations nrel_system_identifier and nrel_main_idtf, stored in the graph
// itself. System identifiers are unique.
package scmemory

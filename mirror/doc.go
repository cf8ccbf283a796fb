// Package mirror copies identifiers of a memory into an external key-value
// target so other processes can resolve names without opening the memory.
//
// The mirror lives outside the memory's failure domain: writes are queued,
// retried a bounded number of times and dropped when the queue is full.
// A keep-alive loop pings the target and reports its health.
//
//	svc := mirror.New(mirror.NewBlobTarget(store, "idtf/"))
//	cancel := svc.Watch(mem)
//	defer svc.Close()
//	defer cancel()
package mirror

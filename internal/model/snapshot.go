package model

// Snapshot is the full task table as of one committed write. Seq grows
// with every published snapshot.
type Snapshot struct {
	Seq   uint64
	Tasks []Task
}

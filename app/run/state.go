package run

// State is a partition's position in the pipeline. Transitions are strictly
// forward; FAILED absorbs from any stage.
type State string

const (
	StateNotStarted  State = "NOT_STARTED"
	StateIngesting   State = "INGESTING"
	StateExtracting  State = "EXTRACTING"
	StateNormalizing State = "NORMALIZING"
	StatePersisted   State = "PERSISTED"
	StateReviewed    State = "REVIEWED"
	StateSkipped     State = "SKIPPED"
	StateMerged      State = "MERGED"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// PartitionRun tracks one partition through a single run.
type PartitionRun struct {
	Name       string
	State      State
	OutputFile string

	Items      int // items in the feed
	NewItems   int // items not yet in the ledger
	Kept       int // records persisted
	Dropped    int // records failing validation
	Excluded   int // records screened out as irrelevant
	Duplicates int // records flagged by the deduplicator
	Merged     int // records sequenced into the merged output

	Err error
}

func (p *PartitionRun) fail(err error) {
	p.State = StateFailed
	p.Err = err
}

package domain

type RepairEventKind string

const (
	RepairStarted  RepairEventKind = "started"
	RepairProgress RepairEventKind = "progress"
	RepairFinished RepairEventKind = "finished"
)

// RepairEvent is emitted by the repair-download service while it fetches a missing skeleton.
type RepairEvent struct {
	Kind            RepairEventKind
	DestinationPath string
	BytesDownloaded int64
	TotalBytes      int64
}

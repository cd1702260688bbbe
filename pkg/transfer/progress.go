package transfer

// progressState collects the callbacks of one upload. The orchestrator only
// reads it when the item starts and finishes, so per-chunk callbacks never
// reach the event stream.
type progressState struct {
	totalKnown bool
	progress   Progress
}

func newProgressState(size int64) *progressState {
	return &progressState{progress: Progress{TotalBytes: size}}
}

func (p *progressState) SetTotal(totalBytes int64) {
	if p.totalKnown || totalBytes < 0 {
		return
	}
	p.totalKnown = true
	p.progress.TotalBytes = totalBytes
}

func (p *progressState) Advance(n int64) {
	if n <= 0 {
		return
	}
	p.progress.BytesCompleted += n
}

func (p *progressState) snapshot() Progress {
	return p.progress
}

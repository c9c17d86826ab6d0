package output

import (
	"context"
	"time"

	"contractfuzz/internal/observe"
)

// Poll drives sink from camp's snapshots at the given interval until ctx is
// canceled or camp reaches observe.Finished, observer
// model (read-only RWMutex snapshots, never touching engine state).
func Poll(ctx context.Context, camp *observe.CampaignData, sink Sink, interval time.Duration) {
	sink.Start(camp.Read().RunID)
	defer sink.Exit()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastStatus observe.Status = -1
	var lastRound uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap := camp.Read()
		if snap.Status != lastStatus {
			sink.UpdateStatus(snap.Status)
			lastStatus = snap.Status
		}
		if snap.CurrentRound != lastRound {
			sink.IncrIteration(snap.CurrentRound)
			lastRound = snap.CurrentRound
		}
		if len(snap.FailedTraces) > 0 {
			sink.UpdateFailedTraces(snap.FailedTraces)
		}
		if snap.Status == observe.Finished {
			return
		}
	}
}

package pipeline

import "sync/atomic"

// counters are updated lock-free from every goroutine that touches the pipeline.
type counters struct {
	pointsAccepted  atomic.Int64
	batchesFlushed  atomic.Int64
	pointsDelivered atomic.Int64
	sendFailures    atomic.Int64
	spooled         atomic.Int64
	replayed        atomic.Int64
	dropped         atomic.Int64
	rejected        atomic.Int64
}

// Stats is a point-in-time snapshot of pipeline activity.
type Stats struct {
	Buffered        int   `json:"buffered"`
	PointsAccepted  int64 `json:"points_accepted"`
	BatchesFlushed  int64 `json:"batches_flushed"`
	PointsDelivered int64 `json:"points_delivered"`
	SendFailures    int64 `json:"send_failures"`
	Spooled         int64 `json:"spooled"`
	Replayed        int64 `json:"replayed"`
	Dropped         int64 `json:"dropped"`
	Rejected        int64 `json:"rejected"`
}

func (c *counters) snapshot(buffered int) Stats {
	return Stats{
		Buffered:        buffered,
		PointsAccepted:  c.pointsAccepted.Load(),
		BatchesFlushed:  c.batchesFlushed.Load(),
		PointsDelivered: c.pointsDelivered.Load(),
		SendFailures:    c.sendFailures.Load(),
		Spooled:         c.spooled.Load(),
		Replayed:        c.replayed.Load(),
		Dropped:         c.dropped.Load(),
		Rejected:        c.rejected.Load(),
	}
}

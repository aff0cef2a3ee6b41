package workers

import (
	"time"
)

// Metrics returns a snapshot of the pool counters.
func (p *WorkerPool) Metrics() PoolMetrics {
	p.wg.RLock()
	defer p.wg.RUnlock()
	return *p.metrics
}

func (p *WorkerPool) incrementSubmitted() {
	p.wg.Lock()
	defer p.wg.Unlock()
	p.metrics.TasksSubmitted++
}

func (p *WorkerPool) incrementCompleted() {
	p.wg.Lock()
	defer p.wg.Unlock()
	p.metrics.TasksCompleted++
}

func (p *WorkerPool) incrementFailed() {
	p.wg.Lock()
	defer p.wg.Unlock()
	p.metrics.TasksFailed++
}

func (p *WorkerPool) recordDuration(d time.Duration) {
	p.wg.Lock()
	defer p.wg.Unlock()
	p.metrics.TotalDuration += d
}

// AverageDuration is the mean task duration, zero before any task ran.
func (m PoolMetrics) AverageDuration() time.Duration {
	done := m.TasksCompleted + m.TasksFailed
	if done == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(done)
}

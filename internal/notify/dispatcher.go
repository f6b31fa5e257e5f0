package notify

import (
	"context"
	"sync"
	"time"

	"github.com/safetyfirst/backend/internal/logger"
)

// Notifier delivers a notice to one destination.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Dispatcher fans notices out to notifiers from a fixed pool of workers.
// Publishing never blocks the caller.
type Dispatcher struct {
	notifiers   []Notifier
	queue       chan Notice
	workerCount int
	timeout     time.Duration
	stopChan    chan struct{}
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher and starts its workers
func NewDispatcher(workers, queueSize int, notifiers ...Notifier) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		notifiers:   notifiers,
		queue:       make(chan Notice, queueSize),
		workerCount: workers,
		timeout:     10 * time.Second,
		stopChan:    make(chan struct{}),
	}

	// Start workers
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Publish enqueues n. It reports false when the queue is full or the
// dispatcher has stopped; the notice is dropped in that case.
func (d *Dispatcher) Publish(n Notice) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	log := logger.WithContext(map[string]interface{}{
		"incident_id": n.Incident.ID.String(),
		"type":        string(n.Type),
	})
	if d.stopped {
		log.Warn("Notification dropped after shutdown")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		log.WithField("queue_size", cap(d.queue)).Warn("Notification queue full, dropping notice")
		return false
	}
}

// Stop delivers what is already queued and waits for the workers to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopChan)
	d.mu.Unlock()

	d.wg.Wait()
}

// worker processes notices from the queue
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(id, n)

		case <-d.stopChan:
			for {
				select {
				case n := <-d.queue:
					d.deliver(id, n)
				default:
					logger.Debug("Notification worker stopping", map[string]interface{}{"workerID": id})
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(workerID int, n Notice) {
	for _, notifier := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := notifier.Notify(ctx, n)
		cancel()
		if err != nil {
			logger.WithError(err, "notify").WithField("workerID", workerID).
				WithField("incident_id", n.Incident.ID.String()).
				Warn("Notification delivery failed")
		}
	}
}

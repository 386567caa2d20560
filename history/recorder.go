package history

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Recorder writes records in the background so a slow store never holds up
// a transaction flow.
type Recorder struct {
	store   Store
	logger  logrus.FieldLogger
	records chan []Record
	retry   time.Duration

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewRecorder(store Store, channelSize int, logger logrus.FieldLogger) *Recorder {
	if channelSize <= 0 {
		channelSize = 64
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recorder{
		store:   store,
		logger:  logger.WithField("component", "history"),
		records: make(chan []Record, channelSize),
		retry:   time.Second,
	}
}

func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)
}

// EnqueueIfPossible queues records without blocking. It returns false when
// the queue is full.
func (r *Recorder) EnqueueIfPossible(records ...Record) bool {
	if len(records) == 0 {
		return true
	}
	select {
	case r.records <- records:
		return true
	default:
		return false
	}
}

// Stop flushes queued records and waits for the writer to exit.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.records) })
	r.wg.Wait()
	if r.cancel != nil {
		r.cancel()
	}
}

// StopWithin is Stop with a deadline: records still unwritten after d are
// dropped. It returns false when the deadline cut the flush short.
func (r *Recorder) StopWithin(d time.Duration) bool {
	r.stopOnce.Do(func() { close(r.records) })
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		if r.cancel != nil {
			r.cancel()
		}
		return true
	case <-timer.C:
	}
	if r.cancel != nil {
		r.cancel()
	}
	<-done
	return false
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	for records := range r.records {
		r.write(ctx, records)
	}
}

// write retries until the store accepts the batch or ctx is done.
func (r *Recorder) write(ctx context.Context, records []Record) {
	for attempt := 1; ; attempt++ {
		err := r.store.Insert(ctx, records)
		if err == nil {
			return
		}
		r.logger.WithError(err).WithFields(logrus.Fields{
			"records": len(records),
			"attempt": attempt,
		}).Warn("Error writing transaction history")

		select {
		case <-ctx.Done():
			r.logger.WithField("records", len(records)).Error("Dropping transaction history")
			return
		case <-time.After(r.retry):
		}
	}
}

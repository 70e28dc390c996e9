package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizguardian/manager/internal/core/domain"
	"github.com/bizguardian/manager/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
	sendTimeout    = 10 * time.Second
)

// Dispatcher routes verification requests to a fixed set of workers using
// consistent hashing on the identity, so that requests for one identity are
// delivered in order. Enqueue never blocks the registering caller.
type Dispatcher struct {
	workers  []chan domain.VerificationRequest
	verifier ports.Verifier
	log      zerolog.Logger
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ports.VerificationQueue = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, verifier ports.Verifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.VerificationRequest, numWorkers),
		verifier: verifier,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.VerificationRequest, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands req to the worker responsible for its identity. It reports
// false and drops the request when that worker's buffer is full.
func (d *Dispatcher) Enqueue(req domain.VerificationRequest) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		VerificationDroppedTotal.Inc()
		d.log.Warn().Str("profile_id", req.ProfileID).Msg("verification queue closed, request dropped")
		return false
	}

	idx := d.shardIndex(req.Identity)
	select {
	case d.workers[idx] <- req:
		VerificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		VerificationDroppedTotal.Inc()
		d.log.Warn().
			Str("profile_id", req.ProfileID).
			Int("worker_id", idx).
			Msg("verification queue full, request dropped")
		return false
	}
}

// Close stops accepting requests. Workers exit once their buffers are
// drained, so Close followed by Wait delivers everything already queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
}

// shardIndex maps an identity deterministically to a worker index.
func (d *Dispatcher) shardIndex(identity string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.VerificationRequest) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-ch:
			if !ok {
				return
			}
			VerificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, req)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, req domain.VerificationRequest) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.verifier.SendVerification(sendCtx, req)
	VerificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		VerificationsSentTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("profile_id", req.ProfileID).
			Int("worker_id", worker).
			Msg("verification delivery failed")
		return
	}
	VerificationsSentTotal.WithLabelValues("sent").Inc()
}

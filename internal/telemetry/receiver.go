package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// EventHandler is the callback contract of the satellite modem driver. The
// driver owns the serial connection, signal gating and session retries and
// reports what happened through these calls.
type EventHandler interface {
	Connected()
	Disconnected()

	SignalUpdate(level int)
	SignalPass()
	SignalFail()

	RxStarted()
	RxFailed()
	RxReceived(mtmsn int, data []byte)
	RxMessageQueue(count int)

	TxStarted()
	TxFailed()
	TxSuccess(momsn int)
}

// Processor annotates one profile. *qc.Engine satisfies it.
type Processor interface {
	Process(p qc.Profile) (qc.Profile, error)
}

// Sink receives annotated profiles. The SQLite profile store satisfies it.
type Sink interface {
	Save(ctx context.Context, p qc.Profile) (uuid.UUID, error)
}

const saveTimeout = 10 * time.Second

// Stats is a snapshot of the link and message counters.
type Stats struct {
	Connected   bool
	SignalLevel int
	Queued      int
	LastMTMSN   int
	LastMOMSN   int
	Received    int
	Rejected    int
	Stored      int
	RxFailures  int
	TxFailures  int
}

// Receiver implements EventHandler. Received messages are decoded, run
// through the engine and saved to the sink.
type Receiver struct {
	processor Processor
	sink      Sink
	logger    *zap.SugaredLogger

	mu    sync.Mutex
	stats Stats
}

var _ EventHandler = (*Receiver)(nil)

// NewReceiver returns a Receiver. A nil sink drops annotated profiles after
// logging them.
func NewReceiver(processor Processor, sink Sink, logger *zap.SugaredLogger) *Receiver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Receiver{
		processor: processor,
		sink:      sink,
		logger:    logger.Named("telemetry"),
	}
}

// Stats returns a copy of the current counters.
func (r *Receiver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Receiver) update(fn func(s *Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *Receiver) Connected() {
	r.update(func(s *Stats) { s.Connected = true })
	r.logger.Info("modem connected")
}

func (r *Receiver) Disconnected() {
	r.update(func(s *Stats) { s.Connected = false })
	r.logger.Warn("modem disconnected")
}

func (r *Receiver) SignalUpdate(level int) {
	r.update(func(s *Stats) { s.SignalLevel = level })
	r.logger.Debugw("signal update", "level", level)
}

func (r *Receiver) SignalPass() {
	r.logger.Debug("signal strength sufficient")
}

func (r *Receiver) SignalFail() {
	r.logger.Warn("signal strength too low for a session")
}

func (r *Receiver) RxStarted() {
	r.logger.Debug("receive session started")
}

func (r *Receiver) RxFailed() {
	r.update(func(s *Stats) { s.RxFailures++ })
	r.logger.Warn("receive session failed")
}

func (r *Receiver) RxMessageQueue(count int) {
	r.update(func(s *Stats) { s.Queued = count })
	r.logger.Debugw("messages waiting at gateway", "count", count)
}

func (r *Receiver) TxStarted() {
	r.logger.Debug("transmit session started")
}

func (r *Receiver) TxFailed() {
	r.update(func(s *Stats) { s.TxFailures++ })
	r.logger.Warn("transmit session failed")
}

func (r *Receiver) TxSuccess(momsn int) {
	r.update(func(s *Stats) { s.LastMOMSN = momsn })
	r.logger.Infow("message sent", "momsn", momsn)
}

// RxReceived handles one mobile-terminated message.
func (r *Receiver) RxReceived(mtmsn int, data []byte) {
	r.update(func(s *Stats) {
		s.Received++
		s.LastMTMSN = mtmsn
	})
	if _, err := r.Handle(context.Background(), mtmsn, data); err != nil {
		r.update(func(s *Stats) { s.Rejected++ })
		r.logger.Errorw("failed to handle message", "mtmsn", mtmsn, "bytes", len(data), "error", err)
	}
}

// Handle decodes, annotates and saves one message. It returns the annotated
// profile.
func (r *Receiver) Handle(ctx context.Context, mtmsn int, data []byte) (qc.Profile, error) {
	p, err := DecodePayload(data)
	if err != nil {
		return qc.Profile{}, err
	}
	out, err := r.processor.Process(p)
	if err != nil {
		return qc.Profile{}, err
	}

	if r.sink == nil {
		r.logger.Infow("profile processed", "mtmsn", mtmsn, "vessel", out.Vessel, "samples", len(out.Samples))
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	id, err := r.sink.Save(ctx, out)
	if err != nil {
		return out, err
	}
	r.update(func(s *Stats) { s.Stored++ })
	r.logger.Infow("profile stored", "mtmsn", mtmsn, "vessel", out.Vessel, "id", id, "samples", len(out.Samples))
	return out, nil
}

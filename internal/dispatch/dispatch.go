package dispatch

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samops/filerelay/internal/audit"
	"github.com/samops/filerelay/internal/envelope"
	"github.com/samops/filerelay/internal/logging"
	"github.com/samops/filerelay/internal/metrics"
	"github.com/samops/filerelay/internal/tracing"
	"github.com/samops/filerelay/internal/transform"
)

// Status classifies the result of one notification attempt.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusSkippedMalformed Status = "skipped_malformed"
	StatusFailed           Status = "failed"
)

// Outcome is the per-notification result. It is never persisted; it only
// drives the acknowledgement decision in the transport layer.
type Outcome struct {
	Status Status
	Reason error
}

// Message is one queue delivery. Receipt is the opaque token identifying the
// delivery; Ack commits its removal from the queue and must only be called
// after every notification in the body has been relocated.
type Message struct {
	Body    []byte
	Receipt string
	Ack     func(ctx context.Context) error
}

// Relocator copies one source object to its computed destination.
type Relocator interface {
	Relocate(ctx context.Context, sourceBucket, sourceKey string, loc transform.TargetLocation) error
}

// Recorder persists a durable trace of completed relocations. Recording is
// best effort and never influences acknowledgement.
type Recorder interface {
	Record(ctx context.Context, r audit.Relocation) error
}

// Dispatcher drives the per-notification pipeline: decode envelope, derive
// the target location, copy, acknowledge. Failures are isolated per message;
// nothing a single message does can abort its siblings.
type Dispatcher struct {
	transformer transform.Transformer
	relocator   Relocator
	recorder    Recorder // optional
	destBucket  string
	log         *logging.Logger
}

// New builds a dispatcher. destBucket is informational, used for logs and
// audit rows; the relocator owns the actual destination.
func New(t transform.Transformer, r Relocator, destBucket string, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		transformer: t,
		relocator:   r,
		destBucket:  destBucket,
		log:         log,
	}
}

// WithRecorder attaches an optional audit recorder.
func (d *Dispatcher) WithRecorder(rec Recorder) *Dispatcher {
	d.recorder = rec
	return d
}

// ProcessBatch handles each message independently and in order. One message's
// failure never aborts processing of the rest of the batch.
func (d *Dispatcher) ProcessBatch(ctx context.Context, msgs []Message) []Outcome {
	outcomes := make([]Outcome, len(msgs))
	for i, m := range msgs {
		outcomes[i] = d.Process(ctx, m)
	}
	return outcomes
}

// Process runs the full pipeline for one message. The message is acknowledged
// only after every storage-event record in its body has been relocated; on
// any failure it is left unacknowledged for the queue's redelivery policy.
func (d *Dispatcher) Process(ctx context.Context, msg Message) Outcome {
	ctx, span := tracing.StartSpan(ctx, "dispatch.notification",
		attribute.String("receipt", msg.Receipt),
	)
	defer span.End()

	notes, err := envelope.Decode(msg.Body)
	if err != nil {
		d.log.WithContext(ctx).WithReceipt(msg.Receipt).WithError(err).Error("unrecognized notification envelope")
		tracing.SetSpanError(ctx, err)
		metrics.RecordNotification(string(StatusSkippedMalformed))
		return Outcome{Status: StatusSkippedMalformed, Reason: err}
	}

	for _, n := range notes {
		if err := d.relocateOne(ctx, n); err != nil {
			d.log.WithContext(ctx).
				WithReceipt(msg.Receipt).
				WithBucket(n.SourceBucket).
				WithKey(n.SourceKey).
				WithError(err).
				Error("notification processing failed")
			tracing.SetSpanError(ctx, err)
			metrics.RecordNotification(string(StatusFailed))
			return Outcome{Status: StatusFailed, Reason: err}
		}
	}

	if msg.Ack != nil {
		if err := msg.Ack(ctx); err != nil {
			// The copy is already durable; redelivery only repeats an
			// idempotent overwrite.
			d.log.WithContext(ctx).WithReceipt(msg.Receipt).WithError(err).
				Warn("acknowledge failed, notification will be redelivered")
			tracing.AddSpanEvent(ctx, "dispatch.ack_failed")
		}
	}
	metrics.RecordNotification(string(StatusSuccess))
	return Outcome{Status: StatusSuccess}
}

func (d *Dispatcher) relocateOne(ctx context.Context, n envelope.Notification) error {
	fileName, folderPath := envelope.SplitKey(n.SourceKey)

	loc, err := d.transformer.Transform(ctx, fileName, folderPath)
	if err != nil {
		var extErr *transform.ExtractionError
		if errors.As(err, &extErr) {
			metrics.RecordExtractionFailure()
		}
		return err
	}
	tracing.AddSpanEvent(ctx, "dispatch.transformed",
		attribute.String("target_path", loc.Path()),
		attribute.String("target_name", loc.FileName),
	)

	start := time.Now()
	if err := d.relocator.Relocate(ctx, n.SourceBucket, n.SourceKey, loc); err != nil {
		return err
	}
	metrics.RecordRelocation(time.Since(start))

	rule := "A"
	if loc.FileName == fileName {
		rule = "B"
	}
	if d.recorder != nil {
		rec := audit.Relocation{
			SourceBucket: n.SourceBucket,
			SourceKey:    n.SourceKey,
			DestBucket:   d.destBucket,
			DestKey:      loc.Key(),
			Rule:         rule,
		}
		if err := d.recorder.Record(ctx, rec); err != nil {
			d.log.WithContext(ctx).WithKey(n.SourceKey).WithError(err).Warn("audit record failed")
		}
	}

	d.log.WithContext(ctx).
		WithBucket(n.SourceBucket).
		WithKey(n.SourceKey).
		WithTarget(d.destBucket + "/" + loc.Key()).
		WithField("rule", rule).
		Info("file relocated")
	return nil
}

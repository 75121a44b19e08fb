package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	TriggeredMessageKind string = "contracts.extraction.triggered"
	StartedMessageKind   string = "contracts.extraction.started"
	CompletedMessageKind string = "contracts.extraction.completed"
	FailedMessageKind    string = "contracts.extraction.failed"
	CancelledMessageKind string = "contracts.extraction.cancelled"
	defaultTopic         string = "contracts.extraction.audit"
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// Sink is the audit trail abstraction seen by the rest of the service.
// Append never propagates writer failures to the caller.
type Sink interface {
	Append(ctx context.Context, kind string, event ExtractionEvent)
	Close() error
}

// Producer buffers events and writes them in the background so a slow audit
// backend never blocks the request path or the worker.
type Producer struct {
	buffer           *buffer
	startConsumingCh chan any
	doneCh           chan any
	writer           Writer
	topic            string
}

var _ Sink = (*Producer)(nil)

func NewProducer(w Writer, opts ...ProducerOption) *Producer {
	p := &Producer{
		buffer:           newBuffer(),
		startConsumingCh: make(chan any),
		doneCh:           make(chan any),
		writer:           w,
		topic:            defaultTopic,
	}

	for _, o := range opts {
		o(p)
	}

	go p.run()
	return p
}

// Append enqueues an audit event. Serialization problems are logged and
// swallowed, matching the fire-and-forget contract.
func (p *Producer) Append(ctx context.Context, kind string, event ExtractionEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		zap.S().Named("audit").Errorw("failed to serialize audit event", "error", err, "kind", kind)
		return
	}

	if err := p.write(kind, bytes.NewReader(body)); err != nil {
		zap.S().Named("audit").Errorw("failed to enqueue audit event", "error", err, "kind", kind)
	}
}

func (p *Producer) write(kind string, body io.Reader) error {
	d, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	prevSize := p.buffer.Size()
	if err := p.buffer.PushBack(&message{
		Kind: kind,
		Data: d,
	}); err != nil {
		return err
	}

	if prevSize == 0 {
		// unblock the consumer and start sending messages
		p.startConsumingCh <- struct{}{}
	}

	return nil
}

func (p *Producer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(closeCtx)
	g.Go(func() error {
		p.doneCh <- struct{}{}
		return p.writer.Close(ctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Named("audit").Errorf("audit producer closed with error: %s", err)
		return err
	}

	zap.S().Named("audit").Info("audit producer closed")

	return nil
}

func (p *Producer) run() {
	for {
		select {
		case <-p.doneCh:
			return
		default:
		}

		if p.buffer.Size() == 0 {
			select {
			case <-p.startConsumingCh:
			case <-p.doneCh:
				return
			}
		}

		msg := p.buffer.Pop()
		if msg == nil {
			continue
		}

		e := cloudevents.NewEvent()
		e.SetID(uuid.NewString())
		e.SetSource("contracts.extraction-service")
		e.SetType(msg.Kind)
		_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

		if err := p.writer.Write(context.TODO(), p.topic, e); err != nil {
			zap.S().Named("audit").Errorw("failed to write audit event", "error", err, "event", e)
		}
	}
}

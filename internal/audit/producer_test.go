package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingWriter struct {
	lock   sync.Mutex
	events []cloudevents.Event
	err    error
}

func (w *recordingWriter) Write(_ context.Context, _ string, e cloudevents.Event) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, e)
	return nil
}

func (w *recordingWriter) Close(_ context.Context) error { return nil }

func (w *recordingWriter) count() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return len(w.events)
}

var _ = Describe("audit producer", func() {
	It("delivers appended events to the writer", func() {
		writer := &recordingWriter{}
		producer := NewProducer(writer)

		producer.Append(context.TODO(), StartedMessageKind, ExtractionEvent{
			ExtractionID: "ex-1",
			ContractID:   "c-42",
			Status:       "processing",
			OccurredAt:   time.Now(),
		})

		Eventually(writer.count).WithTimeout(2 * time.Second).Should(Equal(1))
		Expect(writer.events[0].Type()).To(Equal(StartedMessageKind))

		Expect(producer.Close()).To(Succeed())
	})

	It("swallows writer failures", func() {
		writer := &recordingWriter{err: errors.New("broker down")}
		producer := NewProducer(writer)

		// must not panic nor propagate anything
		producer.Append(context.TODO(), FailedMessageKind, ExtractionEvent{
			ExtractionID: "ex-2",
			Status:       "failed",
			ErrorMessage: "AI call timeout",
		})

		Consistently(writer.count).WithTimeout(200 * time.Millisecond).Should(Equal(0))
		Expect(producer.Close()).To(Succeed())
	})
})

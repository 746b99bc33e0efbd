package worker_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/skyguess/internal/adapters/mq/queue"
	"github.com/okian/skyguess/internal/adapters/mq/worker"
	"github.com/okian/skyguess/internal/domain/model"
	logging "github.com/okian/skyguess/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockPublisher struct {
	mu        sync.Mutex
	published []string
	failFor   map[string]error
	delay     time.Duration
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{failFor: make(map[string]error)}
}

func (p *mockPublisher) Publish(ctx context.Context, e worker.Event) error { //nolint:gocritic // test double
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[e.EventID]; ok {
		return err
	}
	p.published = append(p.published, e.EventID)
	return nil
}

func (p *mockPublisher) Name() string { return "mock" }

func (p *mockPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func event(id string) worker.Event {
	return model.GuessEvent{EventID: id, FlightID: "F1", Status: model.StatusSuccess, Points: model.Points{Total: 42}}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		pub := newMockPublisher()
		w := worker.NewInMemoryWorker(q, pub, worker.WithName("w-test"), worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When events are enqueued", func() {
			convey.So(q.Enqueue(ctx, event("e1")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, event("e2")), convey.ShouldBeNil)

			convey.Convey("Then they are published in order", func() {
				convey.So(waitFor(func() bool { return len(pub.ids()) == 2 }), convey.ShouldBeTrue)
				convey.So(pub.ids(), convey.ShouldResemble, []string{"e1", "e2"})
			})
		})

		convey.Convey("When publishing one event fails", func() {
			pub.mu.Lock()
			pub.failFor["bad"] = errors.New("broker down")
			pub.mu.Unlock()
			convey.So(q.Enqueue(ctx, event("bad")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, event("good")), convey.ShouldBeNil)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return len(pub.ids()) == 1 }), convey.ShouldBeTrue)
				convey.So(pub.ids(), convey.ShouldResemble, []string{"good"})
			})
		})

		convey.Convey("When the worker is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then the worker exits on its own", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					convey.So("worker did not exit", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockPublisher())
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		cancel()

		convey.Convey("Then it stops", func() {
			select {
			case <-w.Done():
			case <-time.After(2 * time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		pub := newMockPublisher()
		pool := worker.NewPool(4, q, pub)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When many events are enqueued and the pool shuts down", func() {
			for i := 0; i < 200; i++ {
				convey.So(q.Enqueue(ctx, event(fmt.Sprintf("e%d", i))), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued event is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pub.ids(), convey.ShouldHaveLength, 200)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a default size", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockPublisher())
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})

	convey.Convey("Given a pool that cannot drain in time", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		pub := newMockPublisher()
		pub.delay = time.Second
		pool := worker.NewPool(1, q, pub)
		pool.Start(context.Background())
		for i := 0; i < 5; i++ {
			convey.So(q.Enqueue(context.Background(), event(fmt.Sprintf("e%d", i))), convey.ShouldBeNil)
		}

		convey.Convey("Then shutdown reports the timeout", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}

func TestLogPublisher(t *testing.T) {
	convey.Convey("Given a log publisher writing json", t, func() {
		var buf bytes.Buffer
		l, err := logging.New(&buf, "json")
		convey.So(err, convey.ShouldBeNil)
		p := worker.NewLogPublisher(l)

		convey.Convey("When an event is published", func() {
			e := event("e1")
			e.LobbyID = "ABCD"
			convey.So(p.Publish(context.Background(), e), convey.ShouldBeNil)

			convey.Convey("Then the event is logged", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, `"event_id":"e1"`)
				convey.So(buf.String(), convey.ShouldContainSubstring, `"lobby_id":"ABCD"`)
				convey.So(p.Name(), convey.ShouldEqual, "log")
			})
		})

		convey.Convey("A nil logger falls back to the default", func() {
			convey.So(worker.NewLogPublisher(nil).Publish(context.Background(), event("e2")), convey.ShouldBeNil)
		})
	})
}

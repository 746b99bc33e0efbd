package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/skyguess/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeWriter struct {
	msgs     []kafkago.Message
	err      error
	closed   bool
	deadline bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher(t *testing.T) {
	ts := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	Convey("Given a publisher over a fake writer", t, func() {
		w := &fakeWriter{}
		p, err := NewPublisher([]string{"localhost:9092"}, "guesses", withWriter(w), WithWriteTimeout(time.Second))
		So(err, ShouldBeNil)
		So(p.Name(), ShouldEqual, "kafka")

		Convey("When a lobby event is published", func() {
			e := model.GuessEvent{
				EventID:    "ev-1",
				LobbyID:    "ABCD",
				PlayerName: "ann",
				FlightID:   "SWR1-LX1-17",
				Points:     model.Points{Origin: 64, Total: 64},
				Status:     model.StatusSuccess,
				TS:         ts,
			}
			So(p.Publish(context.Background(), e), ShouldBeNil)

			Convey("Then the lobby id is the key and the event is the value", func() {
				So(w.msgs, ShouldHaveLength, 1)
				msg := w.msgs[0]
				So(string(msg.Key), ShouldEqual, "ABCD")
				So(msg.Time, ShouldEqual, ts)
				So(msg.Headers, ShouldResemble, []kafkago.Header{{Key: "event-type", Value: []byte("guess")}})

				var decoded model.GuessEvent
				So(json.Unmarshal(msg.Value, &decoded), ShouldBeNil)
				So(decoded.EventID, ShouldEqual, "ev-1")
				So(decoded.Points.Total, ShouldEqual, 64)
				So(decoded.Status, ShouldEqual, model.StatusSuccess)
			})

			Convey("Then the write is bounded by a deadline", func() {
				So(w.deadline, ShouldBeTrue)
			})
		})

		Convey("When a singleplayer event is published", func() {
			So(p.Publish(context.Background(), model.GuessEvent{EventID: "ev-2", FlightID: "F9"}), ShouldBeNil)

			Convey("Then the flight id is the key", func() {
				So(string(w.msgs[0].Key), ShouldEqual, "F9")
			})
		})

		Convey("When the writer fails", func() {
			w.err = errors.New("leader not available")
			err := p.Publish(context.Background(), model.GuessEvent{EventID: "ev-3"})

			Convey("Then the error is wrapped with the topic", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "guesses")
				So(errors.Is(err, w.err), ShouldBeTrue)
			})
		})

		Convey("When the publisher is closed", func() {
			So(p.Close(), ShouldBeNil)
			So(w.closed, ShouldBeTrue)
		})
	})

	Convey("Given invalid construction arguments", t, func() {
		_, err := NewPublisher(nil, "guesses")
		So(errors.Is(err, ErrNoBrokers), ShouldBeTrue)

		_, err = NewPublisher([]string{"b:9092"}, "")
		So(err, ShouldNotBeNil)
	})

	Convey("Given real construction", t, func() {
		p, err := NewPublisher([]string{"b1:9092", "b2:9092"}, "guesses")
		So(err, ShouldBeNil)
		writer, ok := p.writer.(*kafkago.Writer)
		So(ok, ShouldBeTrue)
		So(writer.Topic, ShouldEqual, "guesses")
		So(writer.Addr.String(), ShouldContainSubstring, "b1:9092")
	})
}

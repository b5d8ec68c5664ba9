package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/veloclub/segweek/internal/adapters/mq/queue"
	"github.com/veloclub/segweek/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func obs(id string) model.Observation {
	return model.Observation{
		ParticipantID:      "p1",
		ExternalActivityID: id,
		StartAt:            1700000000,
	}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a small queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Observations round-trip in order", func() {
			So(q.Enqueue(ctx, obs("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, obs("b")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			first := <-out
			So(first.ExternalActivityID, ShouldEqual, "a")
			second := <-out
			So(second.ExternalActivityID, ShouldEqual, "b")
		})

		Convey("A full queue rejects instead of blocking", func() {
			So(q.Enqueue(ctx, obs("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, obs("b")), ShouldBeTrue)
			So(q.Enqueue(ctx, obs("c")), ShouldBeFalse)
		})

		Convey("A closed queue rejects enqueues and drains", func() {
			So(q.Enqueue(ctx, obs("a")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, obs("b")), ShouldBeFalse)

			out := q.Dequeue(ctx)
			got := <-out
			So(got.ExternalActivityID, ShouldEqual, "a")

			select {
			case _, ok := <-out:
				So(ok, ShouldBeFalse)
			case <-time.After(time.Second):
				t.Error("dequeue channel did not close")
			}
		})

		Convey("Close is idempotent", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
		})
	})
}

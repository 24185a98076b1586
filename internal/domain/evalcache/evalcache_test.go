package evalcache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/leakscan/internal/domain/evalcache"
	"github.com/okian/leakscan/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryCache(t *testing.T) {
	Convey("Given a new in-memory cache", t, func() {
		ctx := context.Background()
		c := evalcache.NewInMemoryCache()

		Convey("Then it should start empty", func() {
			So(c.Size(), ShouldEqual, 0)
			_, ok := c.Get(ctx, model.StartPosition)
			So(ok, ShouldBeFalse)
		})

		Convey("When an evaluation is stored", func() {
			ev := &model.Evaluation{BestMove: "e2e4", Score: 20}
			kept := c.Store(ctx, model.StartPosition, ev)

			Convey("Then Get should return the same entry", func() {
				So(kept, ShouldPointTo, ev)
				got, ok := c.Get(ctx, model.StartPosition)
				So(ok, ShouldBeTrue)
				So(got, ShouldPointTo, ev)
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("And a second store for the same position is ignored", func() {
				other := &model.Evaluation{BestMove: "d2d4", Score: 15}
				kept := c.Store(ctx, model.StartPosition, other)
				So(kept, ShouldPointTo, ev)
				got, _ := c.Get(ctx, model.StartPosition)
				So(got.BestMove, ShouldEqual, "e2e4")
				So(c.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a no-data sentinel is stored", func() {
			c.Store(ctx, model.StartPosition, nil)

			Convey("Then it should be a hit with a nil evaluation", func() {
				got, ok := c.Get(ctx, model.StartPosition)
				So(ok, ShouldBeTrue)
				So(got, ShouldBeNil)
			})
		})

		Convey("When many goroutines store the same position", func() {
			var wg sync.WaitGroup
			results := make([]*model.Evaluation, 32)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = c.Store(ctx, model.StartPosition, &model.Evaluation{Score: i})
				}(i)
			}
			wg.Wait()

			Convey("Then every writer should observe the single kept entry", func() {
				So(c.Size(), ShouldEqual, 1)
				kept, _ := c.Get(ctx, model.StartPosition)
				for _, r := range results {
					So(r, ShouldPointTo, kept)
				}
			})
		})
	})

	Convey("Given a bounded cache", t, func() {
		ctx := context.Background()
		c := evalcache.NewInMemoryCache(evalcache.WithMaxSize(2))

		Convey("When more positions than the cap are stored", func() {
			for i := 0; i < 3; i++ {
				c.Store(ctx, model.Position(fmt.Sprintf("pos-%d", i)), &model.Evaluation{Score: i})
			}

			Convey("Then earlier entries should be kept and the overflow dropped", func() {
				So(c.Size(), ShouldEqual, 2)
				_, ok := c.Get(ctx, "pos-0")
				So(ok, ShouldBeTrue)
				_, ok = c.Get(ctx, "pos-2")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

package oracle_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/leakscan/internal/adapters/fetch"
	"github.com/okian/leakscan/internal/adapters/oracle"
	"github.com/okian/leakscan/internal/domain/evalcache"
	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// fakeOracle answers cloud-eval requests from a fixed table keyed by FEN.
type fakeOracle struct {
	answers map[string]string
	status  int
	delay   time.Duration
	calls   int32
	gotFEN  atomic.Value
	gotPV   atomic.Value
}

func (f *fakeOracle) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		fen := r.URL.Query().Get("fen")
		f.gotFEN.Store(fen)
		f.gotPV.Store(r.URL.Query().Get("multiPv"))
		time.Sleep(f.delay)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		body, ok := f.answers[fen]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func newClient(srv *httptest.Server, opts ...oracle.Option) *oracle.Client {
	f := fetch.New(fetch.WithSleeper(noSleep), fetch.WithEndpoint("oracle"))
	opts = append([]oracle.Option{oracle.WithBaseURL(srv.URL)}, opts...)
	return oracle.New(f, evalcache.NewInMemoryCache(), opts...)
}

func TestClient_Evaluate(t *testing.T) {
	start := model.StartPosition
	ctx := context.Background()

	Convey("Given an oracle that knows the start position", t, func() {
		fake := &fakeOracle{answers: map[string]string{
			string(start): `{"fen":"x","knodes":100,"depth":30,"pvs":[{"moves":"e2e4 e7e5 g1f3","cp":20}]}`,
		}}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := newClient(srv, oracle.WithMultiPV(2))

		Convey("When the position is evaluated twice", func() {
			first, err1 := c.Evaluate(ctx, start)
			second, err2 := c.Evaluate(ctx, start)

			Convey("Then one request should be made and both results agree", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldNotBeNil)
				So(second, ShouldPointTo, first)
				So(first.BestMove, ShouldEqual, "e2e4")
				So(first.Score, ShouldEqual, 20)
				So(first.Depth, ShouldEqual, 30)
				So(atomic.LoadInt32(&fake.calls), ShouldEqual, 1)
				So(c.CacheSize(), ShouldEqual, 1)
			})

			Convey("And the FEN and line count should be sent as query parameters", func() {
				So(fake.gotFEN.Load(), ShouldEqual, string(start))
				So(fake.gotPV.Load(), ShouldEqual, "2")
			})
		})

		Convey("When an unknown position is evaluated twice", func() {
			unknown := model.Position("8/8/8/8/8/8/8/K6k w - - 0 1")
			first, err1 := c.Evaluate(ctx, unknown)
			second, err2 := c.Evaluate(ctx, unknown)

			Convey("Then no data should be returned and the 404 cached", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeNil)
				So(second, ShouldBeNil)
				So(atomic.LoadInt32(&fake.calls), ShouldEqual, 1)
			})
		})

		Convey("When many goroutines evaluate the same position at once", func() {
			fake.delay = 100 * time.Millisecond
			var wg sync.WaitGroup
			results := make([]*model.Evaluation, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], _ = c.Evaluate(ctx, start)
				}(i)
			}
			wg.Wait()

			Convey("Then they should all see the same evaluation", func() {
				for _, r := range results {
					So(r, ShouldPointTo, results[0])
				}
				So(results[0], ShouldNotBeNil)
				So(atomic.LoadInt32(&fake.calls), ShouldEqual, 1)
				So(c.CacheSize(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given oracle answers with edge-case lines", t, func() {
		cases := map[string]string{
			"mate":       `{"depth":40,"pvs":[{"moves":"d8h4","mate":-2}]}`,
			"mate0":      `{"depth":40,"pvs":[{"moves":"","mate":0}]}`,
			"empty":      `{"depth":40,"pvs":[]}`,
			"nomoves":    `{"depth":12,"pvs":[{"moves":"","cp":-35}]}`,
			"noscore":    `{"depth":12,"pvs":[{"moves":"e2e4"}]}`,
			"firstonly":  `{"depth":22,"pvs":[{"moves":"g1f3 d7d5","cp":15},{"moves":"e2e4","cp":10}]}`,
			"bigmate":    `{"depth":40,"pvs":[{"moves":"a1a8","mate":5000}]}`,
			"whitemate3": `{"depth":40,"pvs":[{"moves":"h5f7","mate":3}]}`,
		}
		fake := &fakeOracle{answers: map[string]string{}}
		for k, v := range cases {
			fake.answers[k] = v
		}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := newClient(srv)

		eval := func(key string) *model.Evaluation {
			ev, err := c.Evaluate(ctx, model.Position(key))
			So(err, ShouldBeNil)
			return ev
		}

		Convey("Then mate scores should be folded onto the centipawn scale", func() {
			ev := eval("mate")
			So(ev, ShouldNotBeNil)
			So(ev.Score, ShouldEqual, -(model.MateScore - 2))
			So(ev.For(model.Black), ShouldEqual, model.MateScore-2)

			So(eval("whitemate3").Score, ShouldEqual, model.MateScore-3)
			So(eval("bigmate").Score, ShouldEqual, model.MateScore-model.MaxMateDistance)
		})

		Convey("Then lines without a usable score should mean no data", func() {
			So(eval("mate0"), ShouldBeNil)
			So(eval("empty"), ShouldBeNil)
			So(eval("noscore"), ShouldBeNil)
		})

		Convey("Then an empty move list should leave the best move unset", func() {
			ev := eval("nomoves")
			So(ev, ShouldNotBeNil)
			So(ev.BestMove, ShouldBeEmpty)
			So(ev.Score, ShouldEqual, -35)
		})

		Convey("Then only the top line should be used", func() {
			ev := eval("firstonly")
			So(ev.BestMove, ShouldEqual, "g1f3")
			So(ev.Score, ShouldEqual, 15)
		})
	})

	Convey("Given an oracle that keeps failing", t, func() {
		fake := &fakeOracle{status: http.StatusServiceUnavailable}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := newClient(srv)

		Convey("When a position is evaluated twice", func() {
			first, err1 := c.Evaluate(ctx, start)
			calls := atomic.LoadInt32(&fake.calls)
			second, err2 := c.Evaluate(ctx, start)

			Convey("Then exhaustion should be cached as no data", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeNil)
				So(second, ShouldBeNil)
				So(calls, ShouldEqual, 4)
				So(atomic.LoadInt32(&fake.calls), ShouldEqual, 4)
			})
		})
	})

	Convey("Given an oracle that rejects the request", t, func() {
		fake := &fakeOracle{status: http.StatusBadRequest}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := newClient(srv)

		Convey("Then the position should be treated as unknown", func() {
			ev, err := c.Evaluate(ctx, start)
			So(err, ShouldBeNil)
			So(ev, ShouldBeNil)
		})
	})

	Convey("Given a canceled context", t, func() {
		fake := &fakeOracle{answers: map[string]string{}}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := newClient(srv)

		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When a position is evaluated", func() {
			ev, err := c.Evaluate(cctx, start)

			Convey("Then the cancellation should be returned and nothing cached", func() {
				So(ev, ShouldBeNil)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(c.CacheSize(), ShouldEqual, 0)
			})
		})
	})
}

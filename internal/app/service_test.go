package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/leakscan/internal/adapters/fetch"
	"github.com/okian/leakscan/internal/adapters/gamesource"
	service "github.com/okian/leakscan/internal/app"
	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/moves"
	"github.com/okian/leakscan/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// aliceGames has alice answering 1.e4 with a6 three times and Nf6 once.
const aliceGames = `{"id":"g1","moves":"e4 a6 d4","players":{"white":{"user":{"name":"bob"}},"black":{"user":{"name":"alice"}}}}
{"id":"g2","moves":"e4 a6 Nf3","players":{"white":{"user":{"name":"carol"}},"black":{"user":{"name":"Alice"}}}}
{"id":"g3","moves":"e4 a6 c4","players":{"white":{"user":{"name":"dave"}},"black":{"user":{"name":"alice"}}}}
{"id":"g4","moves":"e4 Nf6 e5","players":{"white":{"user":{"name":"erin"}},"black":{"user":{"name":"alice"}}}}
{"id":"g5","moves":"d4 d5","players":{"white":{"user":{"name":"frank"}},"black":{"user":{"name":"gina"}}}}
`

type upstream struct {
	srv *httptest.Server

	mu          sync.Mutex
	games       string
	gamesStatus int
	oracleDown  bool
	evals       map[string]string

	gameCalls   int32
	oracleCalls int32
	gotMax      atomic.Value
}

func (u *upstream) set(f func(u *upstream)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	f(u)
}

func newUpstream() *upstream {
	u := &upstream{games: aliceGames, evals: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games/user/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.gameCalls, 1)
		u.gotMax.Store(r.URL.Query().Get("max"))
		u.mu.Lock()
		status, games := u.gamesStatus, u.games
		u.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(games))
	})
	mux.HandleFunc("/api/cloud-eval", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.oracleCalls, 1)
		u.mu.Lock()
		down := u.oracleDown
		body, ok := u.evals[r.URL.Query().Get("fen")]
		u.mu.Unlock()
		if down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	u.srv = httptest.NewServer(mux)
	return u
}

func apply(pos model.Position, token string) model.Position {
	next, ok := moves.NewChessApplier().Apply(pos, token)
	if !ok {
		panic("illegal test move " + token)
	}
	return next
}

func newService(u *upstream, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithGamesBaseURL(u.srv.URL),
		service.WithOracleBaseURL(u.srv.URL),
		service.WithBaseBackoff(time.Millisecond),
		service.WithMaxRetries(1),
		service.WithOracleConcurrency(4),
	}
	return service.New(append(base, opts...)...)
}

func TestService_Analyze(t *testing.T) {
	afterE4 := apply(model.StartPosition, "e4")
	afterA6 := apply(afterE4, "a6")

	Convey("Given a service backed by fake game and oracle servers", t, func() {
		u := newUpstream()
		defer u.srv.Close()
		u.set(func(u *upstream) {
			u.evals[string(afterE4)] = `{"depth":40,"pvs":[{"moves":"c7c5 g1f3","cp":30}]}`
			u.evals[string(afterA6)] = `{"depth":38,"pvs":[{"moves":"d2d4","cp":100}]}`
		})

		svc := newService(u)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When alice's openings are analyzed", func() {
			report, err := svc.Analyze(ctx, "  alice ", model.Options{MaxOpeningMoves: 3})

			Convey("Then the a6 habit should be the only leak", func() {
				So(err, ShouldBeNil)
				So(report.RunID, ShouldNotBeEmpty)
				So(report.Username, ShouldEqual, "alice")
				So(report.GamesAnalyzed, ShouldEqual, 4)
				So(report.RepeatedPositions, ShouldEqual, 1)
				So(len(report.Leaks), ShouldEqual, 1)

				leak := report.Leaks[0]
				So(leak.Before, ShouldEqual, afterE4)
				So(leak.After, ShouldEqual, afterA6)
				So(leak.Move, ShouldEqual, "a6")
				So(leak.BestMove, ShouldEqual, "c7c5")
				So(leak.ReachCount, ShouldEqual, 4)
				So(leak.MoveCount, ShouldEqual, 3)
				So(leak.CPLoss, ShouldEqual, 70)
				So(leak.SideToMove, ShouldEqual, model.Black)
			})

			Convey("And the default game count should be requested", func() {
				So(u.gotMax.Load(), ShouldEqual, "100")
			})

			Convey("And the stats should count the run", func() {
				stats := svc.GetStats()
				So(stats.Analyses, ShouldEqual, int64(1))
				So(stats.Failures, ShouldEqual, int64(0))
				So(stats.LeaksFound, ShouldEqual, int64(1))
				So(stats.GamesAnalyzed, ShouldEqual, int64(4))
				So(stats.MinRepeat, ShouldEqual, 3)
				So(stats.DefaultOptions.MaxGames, ShouldEqual, 100)
			})
		})

		Convey("When the threshold is at the loss", func() {
			report, err := svc.Analyze(ctx, "alice", model.Options{MaxOpeningMoves: 3, CPLossThreshold: 70})

			Convey("Then nothing should be reported", func() {
				So(err, ShouldBeNil)
				So(report.RepeatedPositions, ShouldEqual, 1)
				So(report.Leaks, ShouldBeEmpty)
			})
		})

		Convey("When each analysis gets a fresh run", func() {
			first, err1 := svc.Analyze(ctx, "alice", model.Options{MaxOpeningMoves: 3})
			calls := atomic.LoadInt32(&u.oracleCalls)
			second, err2 := svc.Analyze(ctx, "alice", model.Options{MaxOpeningMoves: 3})

			Convey("Then the runs should agree but not share evaluations", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.RunID, ShouldNotEqual, second.RunID)
				So(second.Leaks, ShouldResemble, first.Leaks)
				So(atomic.LoadInt32(&u.oracleCalls), ShouldEqual, 2*calls)
			})
		})

		Convey("When the export holds an empty games list", func() {
			u.set(func(u *upstream) { u.games = `{"games": []}` })
			report, err := svc.Analyze(ctx, "alice", model.Options{})

			Convey("Then an empty report should be returned", func() {
				So(err, ShouldBeNil)
				So(report.GamesAnalyzed, ShouldEqual, 0)
				So(report.RepeatedPositions, ShouldEqual, 0)
				So(report.Leaks, ShouldNotBeNil)
				So(report.Leaks, ShouldBeEmpty)
				So(atomic.LoadInt32(&u.oracleCalls), ShouldEqual, 0)
			})
		})

		Convey("When the player does not exist", func() {
			u.set(func(u *upstream) { u.gamesStatus = http.StatusNotFound })
			_, err := svc.Analyze(ctx, "ghost", model.Options{})

			Convey("Then a user-not-found error should be returned", func() {
				So(errors.Is(err, gamesource.ErrUserNotFound), ShouldBeTrue)
				So(svc.GetStats().Failures, ShouldEqual, int64(1))
			})
		})

		Convey("When the game source stays unavailable", func() {
			u.set(func(u *upstream) { u.gamesStatus = http.StatusServiceUnavailable })
			_, err := svc.Analyze(ctx, "alice", model.Options{})

			Convey("Then the exhausted fetch error should surface", func() {
				So(errors.Is(err, fetch.ErrTransient), ShouldBeTrue)
				So(atomic.LoadInt32(&u.gameCalls), ShouldEqual, 2)
			})
		})

		Convey("When the oracle stays unavailable", func() {
			u.set(func(u *upstream) { u.oracleDown = true })
			report, err := svc.Analyze(ctx, "alice", model.Options{MaxOpeningMoves: 3})

			Convey("Then the positions should be dropped without failing", func() {
				So(err, ShouldBeNil)
				So(report.RepeatedPositions, ShouldEqual, 1)
				So(report.Leaks, ShouldBeEmpty)
			})
		})

		Convey("When the username is blank", func() {
			_, err := svc.Analyze(ctx, "   ", model.Options{})

			Convey("Then it should be rejected before any request", func() {
				So(errors.Is(err, service.ErrEmptyUsername), ShouldBeTrue)
				So(atomic.LoadInt32(&u.gameCalls), ShouldEqual, 0)
			})
		})

		Convey("When the caller has already given up", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Analyze(cctx, "alice", model.Options{})

			Convey("Then the cancellation should be returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When options are out of range", func() {
			_, err := svc.Analyze(ctx, "alice", model.Options{MaxGames: 5000, MaxOpeningMoves: 99, CPLossThreshold: -4})

			Convey("Then they should be clamped rather than rejected", func() {
				So(err, ShouldBeNil)
				So(u.gotMax.Load(), ShouldEqual, "1000")
			})
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then analysis should be refused", func() {
			_, err := svc.Analyze(context.Background(), "alice", model.Options{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

// stubSource serves a fixed payload without HTTP.
type stubSource struct{ payload string }

func (s stubSource) FetchGames(context.Context, string, int) (string, error) {
	return s.payload, nil
}

func TestService_GameSourceOverride(t *testing.T) {
	Convey("Given a service with an injected game source", t, func() {
		u := newUpstream()
		defer u.srv.Close()
		lines := strings.Split(strings.TrimSpace(aliceGames), "\n")

		svc := newService(u, service.WithGameSource(stubSource{payload: "[" + strings.Join(lines, ",") + "]"}))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When the payload is a JSON array", func() {
			report, err := svc.Analyze(context.Background(), "alice", model.Options{MaxOpeningMoves: 3})

			Convey("Then the same games should be found", func() {
				So(err, ShouldBeNil)
				So(report.GamesAnalyzed, ShouldEqual, 4)
				So(report.RepeatedPositions, ShouldEqual, 1)
				So(atomic.LoadInt32(&u.gameCalls), ShouldEqual, 0)
			})
		})
	})
}

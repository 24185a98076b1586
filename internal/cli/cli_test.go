package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/moves"
	"github.com/okian/leakscan/internal/domain/types"
	"github.com/okian/leakscan/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const games = `{"id":"g1","moves":"e4 a6 d4","players":{"white":{"user":{"name":"bob"}},"black":{"user":{"name":"alice"}}}}
{"id":"g2","moves":"e4 a6 Nf3","players":{"white":{"user":{"name":"carol"}},"black":{"user":{"name":"alice"}}}}
{"id":"g3","moves":"e4 a6 c4","players":{"white":{"user":{"name":"dave"}},"black":{"user":{"name":"alice"}}}}
`

func fakeLichess() *httptest.Server {
	apply := moves.NewChessApplier()
	afterE4, _ := apply.Apply(model.StartPosition, "e4")
	afterA6, _ := apply.Apply(afterE4, "a6")
	evals := map[string]string{
		string(afterE4): `{"depth":40,"pvs":[{"moves":"c7c5","cp":30}]}`,
		string(afterA6): `{"depth":40,"pvs":[{"moves":"d2d4","cp":100}]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/games/user/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/ghost") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(games))
	})
	mux.HandleFunc("/api/cloud-eval", func(w http.ResponseWriter, r *http.Request) {
		body, ok := evals[r.URL.Query().Get("fen")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func run(args ...string) (string, error) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	defer func() { _ = logger.Init() }()

	Convey("Given a fake Lichess server", t, func() {
		srv := fakeLichess()
		defer srv.Close()
		base := []string{"analyze", "--games-url", srv.URL, "--oracle-url", srv.URL, "--log-level", "error"}

		Convey("When alice is analyzed with JSON output", func() {
			out, err := run(append(base, "alice", "--moves", "3", "--format", "json")...)

			Convey("Then the report should be printed as JSON", func() {
				So(err, ShouldBeNil)
				var report types.Report
				So(json.Unmarshal([]byte(out), &report), ShouldBeNil)
				So(report.Username, ShouldEqual, "alice")
				So(report.GamesAnalyzed, ShouldEqual, 3)
				So(len(report.Leaks), ShouldEqual, 1)
				So(report.Leaks[0].CPLoss, ShouldEqual, 70)
				So(*report.Leaks[0].BestMove, ShouldEqual, "c7c5")
			})
		})

		Convey("When alice is analyzed with text output", func() {
			out, err := run(append(base, "alice", "-m", "3", "-f", "text")...)

			Convey("Then a table should be printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Opening leaks for alice")
				So(out, ShouldContainSubstring, "LOSS")
				So(out, ShouldContainSubstring, "a6 (3)")
				So(out, ShouldContainSubstring, "c7c5")
			})
		})

		Convey("When the output is not a terminal and the format is auto", func() {
			out, err := run(append(base, "alice", "-m", "3")...)

			Convey("Then JSON should be chosen", func() {
				So(err, ShouldBeNil)
				So(strings.TrimSpace(out), ShouldStartWith, "{")
			})
		})

		Convey("When the player does not exist", func() {
			_, err := run(append(base, "ghost")...)

			Convey("Then the command should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "user not found")
			})
		})

		Convey("When the format is unknown", func() {
			_, err := run(append(base, "alice", "-f", "xml")...)

			Convey("Then the command should fail before fetching", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown format")
			})
		})

		Convey("When no username is given", func() {
			_, err := run("analyze")

			Convey("Then the arguments should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestConfigCommand(t *testing.T) {
	defer func() { _ = logger.Init() }()

	Convey("Given the config command", t, func() {
		out, err := run("config", "--log-level", "error")

		Convey("Then the effective configuration should be printed", func() {
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "OracleConcurrency")
			So(out, ShouldContainSubstring, "lichess.org")
		})
	})
}

func TestRenderText(t *testing.T) {
	Convey("Given a report without leaks", t, func() {
		var buf bytes.Buffer
		err := renderText(&buf, model.Report{RunID: "r", Username: "bob", Leaks: []model.Leak{}})

		Convey("Then a no-leak line should be printed", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "No leaks found.")
		})
	})

	Convey("Given a leak without a best move", t, func() {
		var buf bytes.Buffer
		err := renderText(&buf, model.Report{Username: "bob", Leaks: []model.Leak{{Move: "h4", MoveCount: 5, CPLoss: 120}}})

		Convey("Then a dash should stand in for it", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "h4 (5)  -")
		})
	})
}

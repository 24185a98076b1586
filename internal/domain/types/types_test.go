package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/leakscan/internal/domain/model"
	types "github.com/okian/leakscan/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromReport(t *testing.T) {
	Convey("Given a report with one leak", t, func() {
		r := model.Report{
			RunID:             "run-1",
			Username:          "alice",
			GamesAnalyzed:     4,
			RepeatedPositions: 1,
			Leaks: []model.Leak{{
				Before:     "before",
				After:      "after",
				Move:       "a6",
				BestMove:   "c7c5",
				ReachCount: 4,
				MoveCount:  3,
				CPLoss:     70,
				EvalBefore: -30,
				EvalAfter:  -100,
				SideToMove: model.Black,
			}},
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(types.FromReport(r))
			So(err, ShouldBeNil)
			var got map[string]any
			So(json.Unmarshal(raw, &got), ShouldBeNil)

			Convey("Then the fields should use camelCase names", func() {
				So(got["runId"], ShouldEqual, "run-1")
				So(got["gamesAnalyzed"], ShouldEqual, float64(4))
				So(got["repeatedPositions"], ShouldEqual, float64(1))
				leaks := got["leaks"].([]any)
				So(len(leaks), ShouldEqual, 1)
				leak := leaks[0].(map[string]any)
				So(leak["fen"], ShouldEqual, "before")
				So(leak["bestMove"], ShouldEqual, "c7c5")
				So(leak["cpLoss"], ShouldEqual, float64(70))
				So(leak["sideToMove"], ShouldEqual, "black")
			})
		})

		Convey("When the oracle gave no best move", func() {
			r.Leaks[0].BestMove = ""
			raw, err := json.Marshal(types.FromLeak(r.Leaks[0]))
			So(err, ShouldBeNil)

			Convey("Then bestMove should be null", func() {
				So(string(raw), ShouldContainSubstring, `"bestMove":null`)
			})
		})
	})

	Convey("Given a report without leaks", t, func() {
		raw, err := json.Marshal(types.FromReport(model.Report{Username: "bob"}))

		Convey("Then leaks should encode as an empty list", func() {
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"leaks":[]`)
		})
	})
}

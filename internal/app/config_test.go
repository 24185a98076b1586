package service_test

import (
	"context"
	"testing"

	service "github.com/okian/leakscan/internal/app"
	"github.com/okian/leakscan/internal/config"
	"github.com/okian/leakscan/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewFromConfig(t *testing.T) {
	Convey("Given a loaded configuration", t, func() {
		cfg := config.New()
		cfg.MinRepeat = 5
		cfg.OracleConcurrency = 2
		cfg.DefaultMaxGames = 40
		cfg.DefaultCPLossThreshold = 90

		svc := service.NewFromConfig(cfg)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the service should carry the configured settings", func() {
			stats := svc.GetStats()
			So(stats.MinRepeat, ShouldEqual, 5)
			So(stats.OracleWidth, ShouldEqual, 2)
			So(svc.Defaults(), ShouldResemble, model.Options{
				MaxGames:        40,
				MaxOpeningMoves: 12,
				CPLossThreshold: 90,
			})
		})
	})
}

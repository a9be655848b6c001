package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/internal/config"
	"incentivehub/internal/httpapi"
	"incentivehub/internal/logger"
	"incentivehub/internal/server"
	"incentivehub/pkg/db"
	"incentivehub/pkg/gen"
	"incentivehub/pkg/sequence"
	"incentivehub/services/campaign"
	"incentivehub/services/earning"
	"incentivehub/services/importer"
	"incentivehub/services/kit"
	"incentivehub/services/submission"
	"incentivehub/services/user"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		sequence.Module,
		campaign.Module,
		user.Module,
		kit.Module,
		submission.Module,
		earning.Module,
		importer.Module,
		httpapi.Module,
		fx.Provide(server.ProvideHTTPServer),
		fx.Invoke(
			db.Otel,
			db.Metric,
			migrate,
			server.Run,
		),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&campaign.Campaign{},
		&campaign.GoalRequirement{},
		&campaign.GoalCondition{},
		&user.User{},
		&kit.CampaignKit{},
		&submission.CampaignSubmission{},
		&submission.Activity{},
		&earning.Earning{},
		&importer.ValidationJob{},
	); err != nil {
		zap.L().Error("database migration failed", zap.Error(err))
		return err
	}
	return nil
}

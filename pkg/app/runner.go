package app

import (
	"context"
	"fmt"

	"github.com/small-frappuccino/storeops/pkg/discord/commands/core"
	cmdstoreops "github.com/small-frappuccino/storeops/pkg/discord/commands/storeops"
	"github.com/small-frappuccino/storeops/pkg/discord/gateway"
	"github.com/small-frappuccino/storeops/pkg/discord/lifecycle"
	"github.com/small-frappuccino/storeops/pkg/discord/panel"
	"github.com/small-frappuccino/storeops/pkg/log"
	"github.com/small-frappuccino/storeops/pkg/ops"
	"github.com/small-frappuccino/storeops/pkg/storage"
	"github.com/small-frappuccino/storeops/pkg/util"
)

// Run wires the whole bot and blocks until an interrupt arrives.
func Run() error {
	settings, err := LoadSettings()
	if err != nil {
		return err
	}

	if err := log.Setup(settings.LogPath); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer log.Close()
	log.ApplicationLogger().Info("Starting storeops")

	ctx := context.Background()

	var objects storage.ObjectStore
	if settings.UseS3() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  settings.S3Endpoint,
			Region:    settings.S3Region,
			Bucket:    settings.S3Bucket,
			AccessKey: settings.S3AccessKey,
			SecretKey: settings.S3SecretKey,
			PublicURL: settings.S3PublicURL,
		})
		if err != nil {
			return err
		}
		objects = s3Store
		log.StorageLogger().Info("Using S3 object storage", "bucket", settings.S3Bucket)
	} else {
		objects = storage.NewFSStore(settings.DataDir)
		log.StorageLogger().Info("Using filesystem object storage", "dir", settings.DataDir)
	}

	configs := ops.NewConfigStore(objects)
	ledgers := ops.NewLedgerStore(objects)
	exporter := ops.NewExporter(ledgers, objects)

	var audit *storage.AuditStore
	if settings.AuditDBPath != "" {
		audit = storage.NewAuditStore(settings.AuditDBPath)
		if err := audit.Init(); err != nil {
			return err
		}
		defer audit.Close()
	}

	session, err := gateway.NewDiscordSession(settings.DiscordToken)
	if err != nil {
		return err
	}
	defer session.Close()

	gw := gateway.NewSessionGateway(session)
	upserter := panel.NewUpserter(gw, configs)
	controller := lifecycle.NewController(gw, configs, ledgers, exporter, audit)

	router := core.NewRouter(session)
	router.RegisterCommand(cmdstoreops.NewCommand(configs, upserter, exporter, audit))

	lifecycleHandler := cmdstoreops.NewLifecycleHandler(gw, controller)
	router.RegisterComponent(lifecycleHandler, lifecycleHandler.Actions()...)
	settingsHandler := cmdstoreops.NewSettingsHandler(configs, upserter)
	router.RegisterComponent(settingsHandler, settingsHandler.Actions()...)

	if err := router.SetupCommands(); err != nil {
		return fmt.Errorf("setup commands: %w", err)
	}

	log.ApplicationLogger().Info("storeops is running")
	util.WaitForInterrupt()
	log.ApplicationLogger().Info("storeops stopped")
	return nil
}

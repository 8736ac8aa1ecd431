package main

import (
	"context"
	"log"

	"github.com/casevault/casevault/handlers"
	"github.com/casevault/casevault/internal/caching"
	"github.com/casevault/casevault/queues"
	"github.com/casevault/casevault/services"
	"github.com/casevault/casevault/store"
)

type Stores struct {
	cases store.CaseStore
	files store.FileStore
}

type Services struct {
	Sessions     services.UploadSessionService
	Confirmation services.UploadConfirmationService
	Aggregates   services.CaseAggregateService
	Files        services.FileService
	Cases        services.CaseService
	Reaper       *services.ReaperServiceImpl

	StorageEvents *queues.StorageEventsReceiverImpl

	Stores *Stores

	HttpHandler *handlers.HttpHandler
}

func BuildServices(ctx context.Context, app *App) *Services {
	svcCfg := app.Config.ServiceConfig

	caseStore := store.NewDynamoDbCaseStoreImpl(app.DynamoDB, app.Config.DynamoDBConfig.CasesTableName)
	fileStore := store.NewDynamoDbFileStoreImpl(app.DynamoDB, app.Config.DynamoDBConfig.FilesTableName)
	storage := store.NewS3ObjectStorageImpl(app.S3, app.Config.S3Config.EvidenceBucket, app.Logger)

	var cachingSvc caching.CachingService = caching.NewNullCachingService()
	if app.Redis != nil {
		cachingSvc = caching.NewRedisCachingService(app.Redis)
	}

	aggregateSvc := services.NewCaseAggregateServiceImpl(caseStore, fileStore, app.Logger)
	sessionSvc := services.NewUploadSessionServiceImpl(
		caseStore, fileStore, storage,
		svcCfg.SessionExpiryWindow, svcCfg.MaxFileSizeBytes,
		app.Logger,
	)
	confirmationSvc := services.NewUploadConfirmationServiceImpl(
		fileStore, storage, aggregateSvc, cachingSvc, app.Logger,
	)
	fileSvc := services.NewFileServiceImpl(
		fileStore, caseStore, storage, aggregateSvc, cachingSvc,
		svcCfg.DownloadURLTTL, svcCfg.MaxDownloadURLTTL,
		app.Logger,
	)
	caseSvc := services.NewCaseServiceImpl(caseStore, app.Logger)
	reaperSvc := services.NewReaperServiceImpl(ctx, fileStore, storage, svcCfg.ReaperInterval, app.Logger)
	reaperSvc.Start()

	var storageEvents *queues.StorageEventsReceiverImpl
	if svcCfg.StorageEventsQueue != "" {
		storageEvents = queues.NewStorageEventsReceiverImpl(
			ctx, app.Sqs, fileStore, confirmationSvc, svcCfg.StorageEventsQueue, app.Logger,
		)
		storageEvents.Start()
	}

	handler := handlers.NewHttpHandler(sessionSvc, confirmationSvc, fileSvc, caseSvc, reaperSvc, app.Logger)

	return &Services{
		Sessions:     sessionSvc,
		Confirmation: confirmationSvc,
		Aggregates:   aggregateSvc,
		Files:        fileSvc,
		Cases:        caseSvc,
		Reaper:       reaperSvc,

		StorageEvents: storageEvents,

		Stores: &Stores{
			cases: caseStore,
			files: fileStore,
		},

		HttpHandler: handler,
	}
}

func (s *Services) Shutdown(ctx context.Context) error {
	log.Println("shutting down services")

	if s.StorageEvents != nil {
		if err := s.StorageEvents.Shutdown(ctx); err != nil {
			log.Printf("storage events receiver shutdown error: %v", err)
		}
	}

	if s.Reaper != nil {
		if err := s.Reaper.Shutdown(ctx); err != nil {
			log.Printf("reaper shutdown error: %v", err)
		}
	}

	log.Println("services shutdown complete")
	return nil
}

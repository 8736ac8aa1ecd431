package queues

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/casevault/casevault/internal/apperror"
	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
	"github.com/casevault/casevault/services"
	"github.com/casevault/casevault/store"
)

// StorageEventsReceiver drains S3 ObjectCreated notifications and runs the
// confirmation path for sessions whose clients never called confirm. The
// client-facing confirm endpoint stays the primary path; this poller is a
// safety net.
type StorageEventsReceiver interface {
	pollLoop() error
}

type StorageEventsReceiverImpl struct {
	client       *sqs.Client
	fileStore    store.FileStore
	confirmation services.UploadConfirmationService
	queueUrl     string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger logging.Logger
}

func NewStorageEventsReceiverImpl(
	parent context.Context,
	client *sqs.Client,
	fileStore store.FileStore,
	confirmation services.UploadConfirmationService,
	queueUrl string,
	l logging.Logger,
) *StorageEventsReceiverImpl {

	ctx, cancel := context.WithCancel(parent)

	return &StorageEventsReceiverImpl{
		client:       client,
		fileStore:    fileStore,
		confirmation: confirmation,
		queueUrl:     queueUrl,
		ctx:          ctx,
		cancel:       cancel,
		logger:       l,
	}
}

func (r *StorageEventsReceiverImpl) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.pollLoop()
	}()
}

func (r *StorageEventsReceiverImpl) pollLoop() error {
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}

		out, err := r.client.ReceiveMessage(r.ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(r.queueUrl),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20, // long poll
			VisibilityTimeout:   30,
		})
		if err != nil {
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range out.Messages {
			r.handleMessage(r.ctx, msg)
		}
	}
}

func (r *StorageEventsReceiverImpl) deleteMessage(ctx context.Context, msg types.Message) error {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueUrl),
		ReceiptHandle: msg.ReceiptHandle,
	})
	return err
}

func (r *StorageEventsReceiverImpl) handleMessage(ctx context.Context, msg types.Message) {
	if msg.Body == nil {
		r.deleteMessage(ctx, msg)
		return
	}

	var evt models.S3EventNotification
	if err := json.Unmarshal([]byte(*msg.Body), &evt); err != nil {
		// poison message
		r.logger.Warn("dropping unparseable storage event", "error", err)
		r.deleteMessage(ctx, msg)
		return
	}

	retriable := false
	for _, record := range evt.Records {
		if !strings.HasPrefix(record.EventName, "ObjectCreated") {
			continue
		}
		if r.handleObjectCreated(ctx, record) {
			retriable = true
		}
	}

	if retriable {
		return // redelivered after the visibility timeout
	}
	r.deleteMessage(ctx, msg)
}

// handleObjectCreated runs the confirmation path for one event record.
// Returns true when the failure is transient and the message should be
// retried.
func (r *StorageEventsReceiverImpl) handleObjectCreated(ctx context.Context, record models.S3EventRecord) bool {
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		r.logger.Warn("storage event with undecodable key", "raw_key", record.S3.Object.Key, "error", err)
		return false
	}

	file, err := r.fileStore.GetByKey(ctx, key)
	if errors.Is(err, apperror.ErrFileNotFound) {
		// An object without a session; the metadata store has no claim on it.
		r.logger.Warn("storage event for unknown key", "file_key", key)
		return false
	}
	if err != nil {
		r.logger.Error("failed to resolve file for storage event", "file_key", key, "error", err)
		return true
	}

	if file.Status != models.FileStatusPending {
		return false // client already confirmed
	}

	_, err = r.confirmation.ConfirmUpload(ctx, models.ConfirmUploadRequest{
		FileID:         file.FileID,
		FileKey:        key,
		ActualFileSize: record.S3.Object.Size,
	})
	switch {
	case err == nil:
		r.logger.Info("upload confirmed from storage event", "file_id", file.FileID, "file_key", key)
		return false
	case errors.Is(err, apperror.ErrSessionExpired),
		errors.Is(err, apperror.ErrInvalidState),
		errors.Is(err, apperror.ErrFileNotFound),
		apperror.IsValidation(err):
		// Terminal for this event; the reaper or the client owns it now.
		return false
	default:
		r.logger.Error("storage event confirmation failed", "file_id", file.FileID, "file_key", key, "error", err)
		return true
	}
}

func (r *StorageEventsReceiverImpl) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

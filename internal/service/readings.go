package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/meter-reading-service/internal/anomaly"
	"github.com/septivank/meter-reading-service/internal/config"
	"github.com/septivank/meter-reading-service/internal/db"
	"github.com/septivank/meter-reading-service/internal/mq"
	"github.com/septivank/meter-reading-service/internal/repository"
	"github.com/septivank/meter-reading-service/internal/storage"
	"github.com/septivank/meter-reading-service/internal/validator"
	"github.com/septivank/meter-reading-service/internal/vision"
	"github.com/septivank/meter-reading-service/tools/timeparser"
	"go.uber.org/zap"
)

const historyLimit = 10

// Repository is the persistence used by ReadingService
type Repository interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	LockCustomerMeasureTx(ctx context.Context, tx repository.Tx, customerCode, measureType string) error
	ExistsInRangeTx(ctx context.Context, tx repository.Tx, customerCode, measureType string, from, to time.Time) (bool, error)
	InsertReadingTx(ctx context.Context, tx repository.Tx, reading *db.Reading) error
	GetReadingForUpdateTx(ctx context.Context, tx repository.Tx, id uuid.UUID) (*db.Reading, error)
	ConfirmReadingTx(ctx context.Context, tx repository.Tx, id uuid.UUID, value int64) error
	ListReadings(ctx context.Context, customerCode, typeFilter string) ([]db.Reading, error)
	RecentConfirmedValues(ctx context.Context, customerCode, measureType string, limit int) ([]int64, error)
}

// MeterReader extracts a numeric value from a meter image
type MeterReader interface {
	ReadMeter(ctx context.Context, image []byte, mimeType string) (vision.Inference, error)
}

// ImageStore persists uploaded images
type ImageStore interface {
	Save(name, ext string, data []byte) (storage.StoredImage, error)
	Remove(img storage.StoredImage)
}

// EventPublisher publishes reading events after commit
type EventPublisher interface {
	PublishReadingEvent(ctx context.Context, event mq.ReadingEvent, routingKey string) error
}

// NopPublisher drops events; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) PublishReadingEvent(context.Context, mq.ReadingEvent, string) error { return nil }

// UploadResult is a stored reading plus the plausibility verdict
type UploadResult struct {
	Reading       db.Reading
	Suspicious    bool
	AnomalyReason string
}

// UploadMessage is the JSON body of a queued upload request
type UploadMessage struct {
	Image           string `json:"image"`
	CustomerCode    string `json:"customer_code"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureType     string `json:"measure_type"`
}

// ReadingService implements the upload, confirm and list workflows
type ReadingService struct {
	repo      Repository
	reader    MeterReader
	images    ImageStore
	publisher EventPublisher
	detector  *anomaly.Detector
	validator *validator.Validator
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewReadingService creates a new reading service
func NewReadingService(
	repo Repository,
	reader MeterReader,
	images ImageStore,
	publisher EventPublisher,
	detector *anomaly.Detector,
	inputValidator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *ReadingService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &ReadingService{
		repo:      repo,
		reader:    reader,
		images:    images,
		publisher: publisher,
		detector:  detector,
		validator: inputValidator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Upload validates the request, rejects a second reading in the same month,
// stores the image, infers the value and records an unconfirmed reading.
func (s *ReadingService) Upload(ctx context.Context, in validator.UploadData) (*UploadResult, error) {
	up, result := s.validator.ValidateUpload(in, s.now().UTC())
	if !result.IsValid {
		return nil, &InputError{Reason: result.Reason}
	}

	id := uuid.New()
	log := s.logger.With(
		zap.String("measure_uuid", id.String()),
		zap.String("customer_code", up.CustomerCode),
		zap.String("measure_type", up.MeasureType),
	)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.LockCustomerMeasureTx(ctx, tx, up.CustomerCode, up.MeasureType); err != nil {
		return nil, err
	}

	from, to := timeparser.MonthBounds(up.MeasureDatetime, time.UTC)
	exists, err := s.repo.ExistsInRangeTx(ctx, tx, up.CustomerCode, up.MeasureType, from, to)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Info("duplicate reading for month rejected", zap.Time("month", from))
		return nil, ErrDuplicateReading
	}

	img, err := s.images.Save(id.String(), up.Extension, up.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			s.images.Remove(img)
		}
	}()

	inference, err := s.reader.ReadMeter(ctx, up.Image, up.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	reading := &db.Reading{
		ID:              id,
		CustomerCode:    up.CustomerCode,
		MeasureDatetime: up.MeasureDatetime,
		MeasureType:     up.MeasureType,
		MeasureValue:    inference.Value,
		ImageURL:        img.URL,
		HasConfirmed:    false,
	}
	if err := s.repo.InsertReadingTx(ctx, tx, reading); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	out := &UploadResult{Reading: *reading}
	history, err := s.repo.RecentConfirmedValues(ctx, up.CustomerCode, up.MeasureType, historyLimit)
	if err != nil {
		log.Warn("failed to load confirmed history for plausibility check", zap.Error(err))
	} else {
		out.Suspicious, out.AnomalyReason = s.detector.Check(reading.MeasureValue, history)
		if out.Suspicious {
			log.Warn("inferred value looks implausible", zap.String("reason", out.AnomalyReason))
		}
	}

	event := s.event(mq.EventReadingUploaded, reading)
	event.Suspicious = out.Suspicious
	event.AnomalyReason = out.AnomalyReason
	s.publish(ctx, event, s.cfg.RabbitMQ.UploadedKey, log)

	log.Info("reading uploaded", zap.Bool("value_inferred", reading.MeasureValue != nil))
	return out, nil
}

// Confirm overwrites the value of an unconfirmed reading and marks it confirmed
func (s *ReadingService) Confirm(ctx context.Context, in validator.ConfirmData) (*db.Reading, error) {
	c, result := s.validator.ValidateConfirm(in)
	if !result.IsValid {
		return nil, &InputError{Reason: result.Reason}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reading, err := s.repo.GetReadingForUpdateTx(ctx, tx, c.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReadingNotFound
	}
	if err != nil {
		return nil, err
	}
	if reading.HasConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	if err := s.repo.ConfirmReadingTx(ctx, tx, c.ID, c.Value); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	value := c.Value
	reading.MeasureValue = &value
	reading.HasConfirmed = true
	reading.UpdatedAt = s.now().UTC()

	log := s.logger.With(zap.String("measure_uuid", c.ID.String()))
	s.publish(ctx, s.event(mq.EventReadingConfirmed, reading), s.cfg.RabbitMQ.ConfirmedKey, log)
	log.Info("reading confirmed", zap.Int64("value", value))

	return reading, nil
}

// List returns a customer's readings, optionally filtered by a measure type substring
func (s *ReadingService) List(ctx context.Context, customerCode, measureType string) ([]db.Reading, error) {
	customer, err := validator.SanitizeCustomerCode(customerCode)
	if err != nil {
		return nil, &InputError{Reason: err.Error()}
	}
	filter, err := validator.SanitizeMeasureTypeFilter(measureType)
	if err != nil {
		return nil, &InputError{Reason: err.Error()}
	}

	readings, err := s.repo.ListReadings(ctx, customer, filter)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}
	return readings, nil
}

// HandleUploadMessage runs a queued upload request through Upload
func (s *ReadingService) HandleUploadMessage(ctx context.Context, messageID string, body []byte) error {
	var msg UploadMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal upload message: %w", err)
	}

	res, err := s.Upload(ctx, validator.UploadData{
		Image:           msg.Image,
		CustomerCode:    msg.CustomerCode,
		MeasureDatetime: msg.MeasureDatetime,
		MeasureType:     msg.MeasureType,
	})
	if err != nil {
		return fmt.Errorf("queued upload %s: %w", messageID, err)
	}

	s.logger.Debug("queued upload stored",
		zap.String("message_id", messageID),
		zap.String("measure_uuid", res.Reading.ID.String()),
	)
	return nil
}

func (s *ReadingService) event(kind string, r *db.Reading) mq.ReadingEvent {
	return mq.ReadingEvent{
		Event:           kind,
		MeasureUUID:     r.ID.String(),
		CustomerCode:    r.CustomerCode,
		MeasureType:     r.MeasureType,
		MeasureDatetime: r.MeasureDatetime.UTC().Format(time.RFC3339),
		MeasureValue:    r.MeasureValue,
		HasConfirmed:    r.HasConfirmed,
		ImageURL:        r.ImageURL,
		OccurredAt:      s.now().UTC().Format(time.RFC3339),
	}
}

// publish never fails the request: the reading is already committed
func (s *ReadingService) publish(ctx context.Context, event mq.ReadingEvent, routingKey string, log *zap.Logger) {
	if err := s.publisher.PublishReadingEvent(ctx, event, routingKey); err != nil {
		log.Error("failed to publish event",
			zap.Error(err),
			zap.String("event", event.Event),
		)
	}
}

package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/notify"
	"github.com/safetyfirst/backend/internal/storage"
)

const MaxDescriptionLength = 500

type ReportStore interface {
	CreateIncident(ctx context.Context, inc *models.Incident, ev models.IncidentEvent) error
	ReserveDailySlot(ctx context.Context, day time.Time, limit int) (int, error)
	GetLocation(ctx context.Context, id uuid.UUID) (models.PlantLocation, error)
}

// ReportService accepts new incident reports from the floor.
type ReportService struct {
	store         ReportStore
	photos        storage.PhotoStore
	notices       Publisher
	dailyLimit    int
	tz            *time.Location
	maxPhotoBytes int64
}

type ReportOptions struct {
	DailyLimit    int
	Timezone      *time.Location
	MaxPhotoBytes int64
}

func NewReportService(store ReportStore, photos storage.PhotoStore, notices Publisher, opts ReportOptions) *ReportService {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = storage.DefaultMaxBytes
	}
	return &ReportService{
		store:         store,
		photos:        photos,
		notices:       notices,
		dailyLimit:    opts.DailyLimit,
		tz:            opts.Timezone,
		maxPhotoBytes: opts.MaxPhotoBytes,
	}
}

// SubmitInput is a report as entered on the form.
type SubmitInput struct {
	ReporterName *string
	Severity     string
	LocationID   *uuid.UUID
	IncidentDate *time.Time
	Description  *string
	PhotoURL     *string
}

func (in SubmitInput) Validate() error {
	if in.LocationID == nil || *in.LocationID == uuid.Nil {
		return fmt.Errorf("%w: location is required", models.ErrValidation)
	}
	if in.Severity != "" {
		if _, err := models.ParseSeverity(in.Severity); err != nil {
			return err
		}
	}
	if d := models.TrimOrNil(in.Description); d != nil && utf8.RuneCountInString(*d) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", models.ErrValidation, MaxDescriptionLength)
	}
	return nil
}

// Submit validates the report, takes one slot of today's quota and stores
// the incident in the new state. actor is nil for anonymous kiosk
// submissions.
func (s *ReportService) Submit(ctx context.Context, actor *lifecycle.Actor, in SubmitInput) (models.Incident, error) {
	if err := in.Validate(); err != nil {
		return models.Incident{}, err
	}
	severity := models.SeverityUnknown
	if in.Severity != "" {
		severity, _ = models.ParseSeverity(in.Severity)
	}

	loc, err := s.store.GetLocation(ctx, *in.LocationID)
	if err != nil {
		if isKind(err, models.ErrNotFound) {
			return models.Incident{}, fmt.Errorf("%w: unknown location %s", models.ErrValidation, *in.LocationID)
		}
		return models.Incident{}, err
	}
	if !loc.IsActive {
		return models.Incident{}, fmt.Errorf("%w: location %s is inactive", models.ErrValidation, loc.NameHe)
	}

	now := clock.Now(ctx)
	inc := models.NewIncident(in.ReporterName, severity, now)
	inc.LocationID = &loc.ID
	inc.Description = models.TrimOrNil(in.Description)
	inc.PhotoURL = models.TrimOrNil(in.PhotoURL)
	if in.IncidentDate != nil && !in.IncidentDate.IsZero() {
		inc.IncidentDate = in.IncidentDate.UTC()
	}
	if err := inc.Validate(); err != nil {
		return models.Incident{}, err
	}

	count, err := s.store.ReserveDailySlot(ctx, clock.Day(now, s.tz), s.dailyLimit)
	if err != nil {
		if isKind(err, models.ErrDailyLimitExceeded) {
			logger.Warn("Daily report limit reached", map[string]interface{}{
				"limit": s.dailyLimit,
				"day":   clock.Day(now, s.tz).Format("2006-01-02"),
			})
		}
		return models.Incident{}, err
	}

	ev := models.IncidentEvent{
		Type:      models.EventTypeCreated,
		ToStatus:  models.StatusNew,
		CreatedAt: now,
	}
	if actor != nil {
		ev.ActorID = &actor.ID
	}
	if err := s.store.CreateIncident(ctx, &inc, ev); err != nil {
		return models.Incident{}, err
	}
	inc.Location = &loc

	logger.WithIncident(inc.ID, "create").WithFields(map[string]interface{}{
		"severity":     string(inc.Severity),
		"is_anonymous": inc.IsAnonymous,
		"daily_count":  count,
	}).Info("Incident reported")

	s.notices.Publish(notify.NoticeFor(ev, inc))
	return inc, nil
}

// UploadPhoto validates and stores a photo, returning its public URL.
func (s *ReportService) UploadPhoto(ctx context.Context, data []byte) (string, error) {
	photo, err := storage.ValidatePhoto(data, s.maxPhotoBytes)
	if err != nil {
		return "", err
	}
	object := storage.ObjectName(clock.Now(ctx), photo.Ext)
	url, err := s.photos.Put(ctx, object, photo.ContentType, photo.Data)
	if err != nil {
		return "", err
	}
	logger.Info("Incident photo stored", map[string]interface{}{
		"object":       object,
		"content_type": photo.ContentType,
		"bytes":        len(photo.Data),
	})
	return url, nil
}

func (s *ReportService) MaxPhotoBytes() int64 {
	return s.maxPhotoBytes
}

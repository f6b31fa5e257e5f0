package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/clock"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	when := time.Date(2025, 2, 28, 14, 30, 0, 0, time.UTC)
	inc, err := f.reports.Submit(f.ctx, nil, SubmitInput{
		ReporterName: strp("  יוסי כהן "),
		Severity:     "near-miss",
		LocationID:   &f.location.ID,
		IncidentDate: &when,
		Description:  strp("  רצפה רטובה  "),
	})
	require.NoError(t, err)

	assert.False(t, inc.IsAnonymous)
	assert.Equal(t, "יוסי כהן", *inc.ReporterName)
	assert.Equal(t, models.SeverityNearMiss, inc.Severity)
	assert.Equal(t, models.StatusNew, inc.Status)
	assert.Equal(t, "רצפה רטובה", *inc.Description)
	assert.Equal(t, when, inc.IncidentDate)
	assert.Nil(t, inc.PhotoURL)
	require.NotNil(t, inc.Location)
	assert.Equal(t, "מחסן", inc.Location.NameHe)

	stored, err := f.incidents.Get(f.ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, []models.EventType{models.EventTypeCreated}, f.published.types())
}

func TestSubmitDefaults(t *testing.T) {
	f := newFixture(t)

	inc, err := f.reports.Submit(f.ctx, nil, SubmitInput{
		ReporterName: strp("   "),
		LocationID:   &f.location.ID,
	})
	require.NoError(t, err)
	assert.True(t, inc.IsAnonymous)
	assert.Nil(t, inc.ReporterName)
	assert.Equal(t, models.SeverityUnknown, inc.Severity)
	assert.False(t, inc.IncidentDate.IsZero())
}

func TestSubmitWithActorRecordsEventActor(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.officer)

	inc, err := f.reports.Submit(f.ctx, &actor, SubmitInput{LocationID: &f.location.ID})
	require.NoError(t, err)

	events, err := f.incidents.Events(f.ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, f.officer.ID, *events[0].ActorID)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	inactive := models.PlantLocation{NameHe: "מבנה ישן", IsActive: false}
	require.NoError(t, f.store.UpsertLocation(f.ctx, &inactive))
	missing := uuid.New()

	tests := []struct {
		name string
		in   SubmitInput
	}{
		{"no location", SubmitInput{Severity: "minor"}},
		{"unknown location", SubmitInput{LocationID: &missing}},
		{"inactive location", SubmitInput{LocationID: &inactive.ID}},
		{"bad severity", SubmitInput{LocationID: &f.location.ID, Severity: "catastrophic"}},
		{"long description", SubmitInput{LocationID: &f.location.ID, Description: strp(strings.Repeat("א", MaxDescriptionLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reports.Submit(f.ctx, nil, tt.in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	// rejected input does not consume the daily quota
	assert.Equal(t, 0, f.store.DailyCount(clock.Day(clock.Now(f.ctx), time.UTC)))
	assert.Empty(t, f.published.types())
}

func TestSubmitDescriptionAtLimit(t *testing.T) {
	f := newFixture(t)
	_, err := f.reports.Submit(f.ctx, nil, SubmitInput{
		LocationID:  &f.location.ID,
		Description: strp(strings.Repeat("א", MaxDescriptionLength)),
	})
	assert.NoError(t, err)
}

func TestSubmitDailyLimit(t *testing.T) {
	f := newFixture(t)
	f.reports = NewReportService(f.store, f.photos, f.published, ReportOptions{DailyLimit: 3})

	for i := 0; i < 3; i++ {
		f.submit(t, nil)
	}
	_, err := f.reports.Submit(f.ctx, nil, SubmitInput{LocationID: &f.location.ID})
	assert.ErrorIs(t, err, models.ErrDailyLimitExceeded)

	all, err := f.incidents.List(f.ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSubmitDailyLimitUsesPlantTimezone(t *testing.T) {
	f := newFixture(t)
	tz, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	f.reports = NewReportService(f.store, f.photos, f.published, ReportOptions{DailyLimit: 1, Timezone: tz})

	// 21:30 UTC on the 1st is already the 2nd in Jerusalem
	late := time.Date(2025, 3, 1, 21, 30, 0, 0, time.UTC)
	ctx := clock.With(f.ctx, func() time.Time { return late })

	_, err = f.reports.Submit(ctx, nil, SubmitInput{LocationID: &f.location.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.DailyCount(time.Date(2025, 3, 2, 0, 0, 0, 0, tz)))
	assert.Equal(t, 0, f.store.DailyCount(time.Date(2025, 3, 1, 0, 0, 0, 0, tz)))
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	url, err := f.reports.UploadPhoto(f.ctx, png)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://incidents/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Equal(t, 1, f.photos.Len())

	_, err = f.reports.UploadPhoto(f.ctx, []byte("plain text, not an image"))
	assert.ErrorIs(t, err, models.ErrValidation)

	small := NewReportService(f.store, f.photos, f.published, ReportOptions{MaxPhotoBytes: 8})
	_, err = small.UploadPhoto(f.ctx, png)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 1, f.photos.Len())
}

func TestUploadPhotoBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.photos.Err = assert.AnError

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	_, err := f.reports.UploadPhoto(f.ctx, png)
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
}

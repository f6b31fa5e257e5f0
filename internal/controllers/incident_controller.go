package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/lifecycle"
	"github.com/safetyfirst/backend/internal/middleware"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/services"
	"github.com/safetyfirst/backend/internal/storage"
)

type IncidentController struct {
	incidents *services.IncidentService
	reports   *services.ReportService
}

func NewIncidentController(incidents *services.IncidentService, reports *services.ReportService) *IncidentController {
	return &IncidentController{incidents: incidents, reports: reports}
}

// IncidentView is an incident with display labels and, on the detail
// endpoint, the operations the caller may perform.
type IncidentView struct {
	models.Incident
	StatusLabel    string                `json:"status_label"`
	SeverityLabel  string                `json:"severity_label"`
	AllowedActions []lifecycle.Operation `json:"allowed_actions,omitempty"`
}

func viewOf(inc models.Incident) IncidentView {
	return IncidentView{
		Incident:      inc,
		StatusLabel:   inc.Status.Label(),
		SeverityLabel: inc.Severity.Label(),
	}
}

func viewsOf(incs []models.Incident) []IncidentView {
	out := make([]IncidentView, 0, len(incs))
	for _, inc := range incs {
		out = append(out, viewOf(inc))
	}
	return out
}

type SubmitIncidentRequest struct {
	ReporterName *string    `json:"reporterName"`
	Severity     string     `json:"severity"`
	LocationID   *uuid.UUID `json:"locationId"`
	IncidentDate *time.Time `json:"incidentDate"`
	Description  *string    `json:"description"`
	PhotoURL     *string    `json:"photoUrl"`
}

type AssignRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
}

type ResolveRequest struct {
	Notes *string `json:"notes"`
}

type ArchiveRequest struct {
	Reason *string `json:"reason"`
}

// Submit accepts a report from the public form.
func (ic *IncidentController) Submit(c *gin.Context) {
	var req SubmitIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var who *lifecycle.Actor
	if a, ok := middleware.ActorFrom(c); ok {
		who = &a
	}

	inc, err := ic.reports.Submit(c.Request.Context(), who, services.SubmitInput{
		ReporterName: req.ReporterName,
		Severity:     req.Severity,
		LocationID:   req.LocationID,
		IncidentDate: req.IncidentDate,
		Description:  req.Description,
		PhotoURL:     req.PhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// The reporter only learns the reference, not the stored record.
	c.JSON(http.StatusCreated, gin.H{
		"id":      inc.ID,
		"status":  inc.Status,
		"message": "הדיווח נשלח בהצלחה",
	})
}

// UploadPhoto stores the multipart field "photo" and returns its URL.
func (ic *IncidentController) UploadPhoto(c *gin.Context) {
	limit := ic.reports.MaxPhotoBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fh, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, fmt.Errorf("upload: %w", storage.ErrPhotoTooLarge))
			return
		}
		badRequest(c, fmt.Errorf("photo field: %w", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		badRequest(c, err)
		return
	}

	url, err := ic.reports.UploadPhoto(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photoUrl": url})
}

func parseStatuses(raw []string) ([]models.IncidentStatus, error) {
	var out []models.IncidentStatus
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := models.ParseStatus(part)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// List returns active incidents. Query: status (repeatable or comma
// separated), assignedTo, sort=asc|desc.
func (ic *IncidentController) List(c *gin.Context) {
	statuses, err := parseStatuses(c.QueryArray("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	q := services.ListQuery{Statuses: statuses}

	if raw := c.Query("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid assignedTo: %w", err))
			return
		}
		q.AssignedTo = &id
	}
	switch c.DefaultQuery("sort", "desc") {
	case "asc":
		q.Ascending = true
	case "desc":
	default:
		badRequest(c, fmt.Errorf("invalid sort %q", c.Query("sort")))
		return
	}

	incs, err := ic.incidents.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": viewsOf(incs), "total": len(incs)})
}

func (ic *IncidentController) Mine(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	incs, err := ic.incidents.ListMine(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": viewsOf(incs), "total": len(incs)})
}

func (ic *IncidentController) Archived(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	incs, err := ic.incidents.ListArchived(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": viewsOf(incs), "total": len(incs)})
}

func (ic *IncidentController) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inc, err := ic.incidents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	view := viewOf(inc)
	view.AllowedActions = lifecycle.Allowed(inc, a)
	setETag(c, inc)
	c.JSON(http.StatusOK, view)
}

func (ic *IncidentController) Events(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	events, err := ic.incidents.Events(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type transitionFunc func(c *gin.Context, a lifecycle.Actor, id uuid.UUID, version *int) (models.Incident, error)

// transition runs the shared prologue of the lifecycle endpoints and writes
// the updated record.
func (ic *IncidentController) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		version, ok := expectedVersion(c)
		if !ok {
			return
		}
		inc, err := fn(c, a, id, version)
		if err != nil {
			if !c.IsAborted() {
				respondError(c, err)
			}
			return
		}
		view := viewOf(inc)
		view.AllowedActions = lifecycle.Allowed(inc, a)
		setETag(c, inc)
		c.JSON(http.StatusOK, view)
	}
}

// bindOptionalJSON binds the body when one was sent.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return err
	}
	return nil
}

func (ic *IncidentController) Assign() gin.HandlerFunc {
	return ic.transition(func(c *gin.Context, a lifecycle.Actor, id uuid.UUID, version *int) (models.Incident, error) {
		var req AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return models.Incident{}, err
		}
		return ic.incidents.Assign(c.Request.Context(), a, id, req.UserID, version)
	})
}

func (ic *IncidentController) Resolve() gin.HandlerFunc {
	return ic.transition(func(c *gin.Context, a lifecycle.Actor, id uuid.UUID, version *int) (models.Incident, error) {
		var req ResolveRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return models.Incident{}, err
		}
		return ic.incidents.Resolve(c.Request.Context(), a, id, req.Notes, version)
	})
}

func (ic *IncidentController) Reopen() gin.HandlerFunc {
	return ic.transition(func(c *gin.Context, a lifecycle.Actor, id uuid.UUID, version *int) (models.Incident, error) {
		return ic.incidents.Reopen(c.Request.Context(), a, id, version)
	})
}

func (ic *IncidentController) Archive() gin.HandlerFunc {
	return ic.transition(func(c *gin.Context, a lifecycle.Actor, id uuid.UUID, version *int) (models.Incident, error) {
		var req ArchiveRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return models.Incident{}, err
		}
		return ic.incidents.Archive(c.Request.Context(), a, id, req.Reason, version)
	})
}

func (ic *IncidentController) Restore() gin.HandlerFunc {
	return ic.transition(func(c *gin.Context, a lifecycle.Actor, id uuid.UUID, version *int) (models.Incident, error) {
		return ic.incidents.Restore(c.Request.Context(), a, id, version)
	})
}

package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safetyfirst/backend/internal/models"
)

// Notice describes one successful change to an incident.
type Notice struct {
	Type     models.EventType
	Incident models.Incident
	From     models.IncidentStatus
	ActorID  *uuid.UUID
	At       time.Time
}

// NoticeFor builds the notice for a recorded history event.
func NoticeFor(ev models.IncidentEvent, inc models.Incident) Notice {
	return Notice{
		Type:     ev.Type,
		Incident: inc,
		From:     ev.FromStatus,
		ActorID:  ev.ActorID,
		At:       ev.CreatedAt,
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// Text renders the notice in Hebrew for chat channels.
func (n Notice) Text() string {
	inc := n.Incident
	ref := shortID(inc.ID)

	switch n.Type {
	case models.EventTypeCreated:
		where := ""
		if inc.Location != nil {
			where = " ב" + inc.Location.NameHe
		}
		return fmt.Sprintf("דיווח חדש %s%s, חומרה: %s", ref, where, inc.Severity.Label())
	case models.EventTypeAssignment:
		who := "משתמש"
		if inc.AssignedUser != nil {
			who = inc.AssignedUser.FullName
		}
		return fmt.Sprintf("דיווח %s שוייך ל%s", ref, who)
	case models.EventTypeArchive:
		return fmt.Sprintf("דיווח %s הועבר לארכיון", ref)
	case models.EventTypeRestore:
		return fmt.Sprintf("דיווח %s שוחזר מהארכיון", ref)
	default:
		return fmt.Sprintf("דיווח %s: %s ← %s", ref, n.From.Label(), inc.Status.Label())
	}
}

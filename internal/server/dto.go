package server

import (
	"crewboard/internal/domain"
)

type CreateProjectRequest struct {
	ID          string `json:"id" example:"proj-1"`
	Description string `json:"description,omitempty"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Status:      p.Status,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func mapProjects(in []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(in))
	for _, p := range in {
		out = append(out, projectResponse(p))
	}
	return out
}

type CreateItemRequest struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Type        string   `json:"type,omitempty" example:"feature"`
	Description string   `json:"description,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	MissionID   string   `json:"mission_id,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Artifacts   []string `json:"artifacts,omitempty"`
}

type ItemResponse struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"project_id"`
	MissionID      string   `json:"mission_id,omitempty"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       int      `json:"priority"`
	StageID        string   `json:"stage_id"`
	AssignedAgent  string   `json:"assigned_agent,omitempty"`
	RejectionCount int      `json:"rejection_count"`
	Artifacts      []string `json:"artifacts,omitempty"`
	DependsOn      []string `json:"depends_on,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	ArchivedAt     string   `json:"archived_at,omitempty"`
}

func itemResponse(it domain.Item) ItemResponse {
	return ItemResponse{
		ID:             it.ID,
		ProjectID:      it.ProjectID,
		MissionID:      it.MissionID,
		Type:           it.Type,
		Title:          it.Title,
		Description:    it.Description,
		Priority:       it.Priority,
		StageID:        it.StageID,
		AssignedAgent:  it.AssignedAgent,
		RejectionCount: it.RejectionCount,
		Artifacts:      it.Artifacts,
		DependsOn:      it.DependsOn,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
		CompletedAt:    it.CompletedAt,
		ArchivedAt:     it.ArchivedAt,
	}
}

func mapItems(in []domain.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(in))
	for _, it := range in {
		out = append(out, itemResponse(it))
	}
	return out
}

type ClaimResponse struct {
	ItemID    string `json:"item_id"`
	ProjectID string `json:"project_id"`
	Agent     string `json:"agent"`
	ClaimedAt string `json:"claimed_at"`
}

func claimResponse(c domain.Claim) ClaimResponse {
	return ClaimResponse{ItemID: c.ItemID, ProjectID: c.ProjectID, Agent: c.Agent, ClaimedAt: c.ClaimedAt}
}

type CreateMissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type MissionResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	ArchivedAt  string `json:"archived_at,omitempty"`
}

func missionResponse(m domain.Mission) MissionResponse {
	return MissionResponse{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		Description: m.Description,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CompletedAt: m.CompletedAt,
		ArchivedAt:  m.ArchivedAt,
	}
}

func mapMissions(in []domain.Mission) []MissionResponse {
	out := make([]MissionResponse, 0, len(in))
	for _, m := range in {
		out = append(out, missionResponse(m))
	}
	return out
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	AgentID    string `json:"agent_id"`
	Payload    string `json:"payload,omitempty"`
}

func mapEvents(in []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(in))
	for _, e := range in {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			AgentID:    e.AgentID,
			Payload:    e.Payload,
		})
	}
	return out
}

type AppendActivityRequest struct {
	Message string `json:"message"`
	ItemID  string `json:"item_id,omitempty"`
}

type ActivityEntryResponse struct {
	TS      string `json:"ts"`
	Agent   string `json:"agent"`
	Message string `json:"message"`
	ItemID  string `json:"item_id,omitempty"`
}

func domainActivityEntry(agentID string, req AppendActivityRequest) domain.ActivityEntry {
	return domain.ActivityEntry{
		Agent:   agentID,
		Message: req.Message,
		ItemID:  req.ItemID,
	}
}

package domain

// Project is the top-level scope for boards, missions and items.
type Project struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Mission groups items that ship together. Archiving a mission archives its
// items in the same transaction.
type Mission struct {
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

// Item is one unit of work on the board.
type Item struct {
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

// Claim records exclusive ownership of an item by an agent. The claims table
// keys on item_id, so at most one claim can exist per item.
type Claim struct {
	ItemID    string `json:"item_id"`
	ProjectID string `json:"project_id"`
	Agent     string `json:"agent"`
	ClaimedAt string `json:"claimed_at"`
}

// Event is one row of the append-only audit log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	AgentID    string `json:"agent_id"`
	Payload    string `json:"payload,omitempty"`
}

// ActivityEntry is one line of the shared JSONL activity log.
type ActivityEntry struct {
	TS      string `json:"ts"`
	Agent   string `json:"agent"`
	Message string `json:"message"`
	ItemID  string `json:"item_id,omitempty"`
}

// Item types accepted by CreateItem.
const (
	ItemTypeFeature   = "feature"
	ItemTypeBug       = "bug"
	ItemTypeTechnical = "technical"
	ItemTypeDocs      = "docs"
	ItemTypeChore     = "chore"
)

func ValidItemType(t string) bool {
	switch t {
	case ItemTypeFeature, ItemTypeBug, ItemTypeTechnical, ItemTypeDocs, ItemTypeChore:
		return true
	}
	return false
}

// Mission statuses.
const (
	MissionActive    = "active"
	MissionCompleted = "completed"
	MissionArchived  = "archived"
)

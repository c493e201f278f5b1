package domain

import "time"

// Priority classifies the urgency of a workflow or task.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// WorkflowStatus is the coarse lifecycle state of a whole workflow.
type WorkflowStatus string

const (
	WorkflowActive    WorkflowStatus = "Active"
	WorkflowPaused    WorkflowStatus = "Paused"
	WorkflowCompleted WorkflowStatus = "Completed"
	WorkflowCancelled WorkflowStatus = "Cancelled"
)

// Role is a member's role within one workflow.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleMember Role = "Member"
	RoleViewer Role = "Viewer"
)

// InviteStatus tracks the resolution of a workflow invite.
type InviteStatus string

const (
	InvitePending  InviteStatus = "Pending"
	InviteAccepted InviteStatus = "Accepted"
	InviteDeclined InviteStatus = "Declined"
)

// Permissions are the per-member grants governing task creation and assignment.
// An empty AssignableMembers set means the member may assign to anyone.
type Permissions struct {
	CanCreateTasks    bool     `json:"canCreateTasks"`
	CanAssignTasks    bool     `json:"canAssignTasks"`
	AssignableMembers []string `json:"assignableMembers"`
}

// DefaultPermissions are applied to every member joining through an invite.
func DefaultPermissions() Permissions {
	return Permissions{AssignableMembers: []string{}}
}

// UnrestrictedPermissions are held by the workflow creator for the life of the workflow.
func UnrestrictedPermissions() Permissions {
	return Permissions{
		CanCreateTasks:    true,
		CanAssignTasks:    true,
		AssignableMembers: []string{},
	}
}

// MayAssignTo reports whether the grants cover every target in ids.
func (p Permissions) MayAssignTo(ids []string) bool {
	if !p.CanAssignTasks {
		return false
	}
	if len(p.AssignableMembers) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(p.AssignableMembers))
	for _, id := range p.AssignableMembers {
		allowed[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := allowed[id]; !ok {
			return false
		}
	}
	return true
}

// Member is a user's membership record within a workflow, carrying a
// denormalized snapshot of the user taken at join time.
type Member struct {
	UserID       string       `json:"userId"`
	Email        string       `json:"email"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Role         Role         `json:"role"`
	InviteStatus InviteStatus `json:"status"`
	Permissions  Permissions  `json:"permissions"`
	Credits      int          `json:"credits"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

// Workflow groups members and tasks under a single board. The creator is
// always present in Members with role Admin and unrestricted permissions.
type Workflow struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Priority         Priority       `json:"priority"`
	Status           WorkflowStatus `json:"status"`
	CreatedBy        string         `json:"createdBy"`
	Members          []Member       `json:"members"`
	EstimatedMembers int            `json:"estimatedMembers"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// IsCreator reports whether userID created the workflow.
func (w *Workflow) IsCreator(userID string) bool {
	return w != nil && userID != "" && w.CreatedBy == userID
}

// Member returns the membership record for userID, if present.
func (w *Workflow) Member(userID string) (*Member, bool) {
	if w == nil {
		return nil, false
	}
	for i := range w.Members {
		if w.Members[i].UserID == userID {
			return &w.Members[i], true
		}
	}
	return nil, false
}

// HasMember reports whether userID is a current member.
func (w *Workflow) HasMember(userID string) bool {
	_, ok := w.Member(userID)
	return ok
}

// MemberIDs returns the userIds of all current members.
func (w *Workflow) MemberIDs() []string {
	if w == nil {
		return nil
	}
	ids := make([]string, 0, len(w.Members))
	for i := range w.Members {
		ids = append(ids, w.Members[i].UserID)
	}
	return ids
}

// Invite is a pending request for a user to join a workflow. At most one
// pending invite exists per (workflow, user) pair; membership is only created
// when the invitee accepts.
type Invite struct {
	ID               string       `json:"id"`
	WorkflowID       string       `json:"workflowId"`
	WorkflowName     string       `json:"workflowName"`
	InvitedBy        string       `json:"invitedBy"`
	InvitedByEmail   string       `json:"invitedByEmail"`
	InvitedByName    string       `json:"invitedByName"`
	InvitedUser      string       `json:"invitedUser"`
	InvitedUserEmail string       `json:"invitedUserEmail"`
	Status           InviteStatus `json:"status"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// WorkflowStats summarizes task counts for a workflow's dashboard.
type WorkflowStats struct {
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	PendingTasks   int `json:"pendingTasks"`
	OverdueTasks   int `json:"overdueTasks"`
}

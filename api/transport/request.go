package transport

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// WorkflowRequest creates or updates a workflow.
type WorkflowRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Priority         string   `json:"priority"`
	EstimatedMembers int      `json:"estimatedMembers"`
	MemberEmails     []string `json:"memberEmails"`
}

// InviteRequest invites users to a workflow by email.
type InviteRequest struct {
	Email  string   `json:"email"`
	Emails []string `json:"emails"`
}

// InviteRespondRequest accepts or declines a pending invite.
type InviteRespondRequest struct {
	Accept bool `json:"accept"`
}

// PermissionsRequest replaces a member's task permissions.
type PermissionsRequest struct {
	CanCreateTasks    bool     `json:"canCreateTasks"`
	CanAssignTasks    bool     `json:"canAssignTasks"`
	AssignableMembers []string `json:"assignableMembers"`
}

// TaskRequest creates or edits a task.
type TaskRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`
	DueDate         string   `json:"dueDate"`
	AssignedMembers []string `json:"assignedMembers"`
}

// StatusUpdateRequest moves a task through its lifecycle. Message carries
// the completion message when moving into Awaiting Confirmation.
type StatusUpdateRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ConfirmRequest finalizes a completed task.
type ConfirmRequest struct {
	AwardCredits bool   `json:"awardCredits"`
	Feedback     string `json:"feedback"`
}

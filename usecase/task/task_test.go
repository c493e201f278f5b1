package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/usecase/permission"
)

// --- in-memory fakes -------------------------------------------------------

type fakeWorkflowRepo struct {
	workflows map[string]*domain.Workflow
	credits   map[string]int // "workflowID/userID" -> delta sum
}

func newFakeWorkflowRepo(wfs ...*domain.Workflow) *fakeWorkflowRepo {
	r := &fakeWorkflowRepo{
		workflows: make(map[string]*domain.Workflow),
		credits:   make(map[string]int),
	}
	for _, wf := range wfs {
		r.workflows[wf.ID] = wf
	}
	return r
}

func (r *fakeWorkflowRepo) GetByID(_ context.Context, id string) (*domain.Workflow, error) {
	wf, ok := r.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return wf, nil
}

func (r *fakeWorkflowRepo) ListByMember(_ context.Context, userID string) ([]domain.Workflow, error) {
	var out []domain.Workflow
	for _, wf := range r.workflows {
		if wf.HasMember(userID) {
			out = append(out, *wf)
		}
	}
	return out, nil
}

func (r *fakeWorkflowRepo) Create(_ context.Context, wf *domain.Workflow) (*domain.Workflow, error) {
	r.workflows[wf.ID] = wf
	return wf, nil
}

func (r *fakeWorkflowRepo) Update(_ context.Context, wf *domain.Workflow) error {
	r.workflows[wf.ID] = wf
	return nil
}

func (r *fakeWorkflowRepo) Delete(_ context.Context, id string) error {
	delete(r.workflows, id)
	return nil
}

func (r *fakeWorkflowRepo) AddMember(_ context.Context, workflowID string, m domain.Member) error {
	wf, ok := r.workflows[workflowID]
	if !ok {
		return domain.ErrWorkflowNotFound
	}
	wf.Members = append(wf.Members, m)
	return nil
}

func (r *fakeWorkflowRepo) RemoveMember(_ context.Context, workflowID, userID string) error {
	wf, ok := r.workflows[workflowID]
	if !ok {
		return domain.ErrWorkflowNotFound
	}
	for i := range wf.Members {
		if wf.Members[i].UserID == userID {
			wf.Members = append(wf.Members[:i], wf.Members[i+1:]...)
			return nil
		}
	}
	return domain.ErrMemberNotFound
}

func (r *fakeWorkflowRepo) UpdateMemberPermissions(_ context.Context, workflowID, userID string, perms domain.Permissions) error {
	wf, ok := r.workflows[workflowID]
	if !ok {
		return domain.ErrWorkflowNotFound
	}
	m, ok := wf.Member(userID)
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.Permissions = perms
	return nil
}

func (r *fakeWorkflowRepo) IncrementCredits(_ context.Context, workflowID, userID string, delta int) error {
	r.credits[workflowID+"/"+userID] += delta
	return nil
}

type fakeTaskRepo struct {
	tasks map[string]*domain.Task
}

func newFakeTaskRepo(tasks ...*domain.Task) *fakeTaskRepo {
	r := &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
	for _, task := range tasks {
		r.tasks[task.ID] = task
	}
	return r
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) ListActive(_ context.Context, workflowID string) ([]domain.Task, error) {
	var out []domain.Task
	for _, task := range r.tasks {
		if task.WorkflowID == workflowID && !task.IsDeleted {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListCompleted(_ context.Context, workflowID string, _, _ int) ([]domain.Task, error) {
	var out []domain.Task
	for _, task := range r.tasks {
		if task.WorkflowID == workflowID && !task.IsDeleted && task.Status == domain.TaskCompleted {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	copied := *task
	r.tasks[task.ID] = &copied
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *domain.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeTaskRepo) ConfirmCompletion(_ context.Context, taskID string, conf domain.Confirmation) (bool, error) {
	task, ok := r.tasks[taskID]
	if !ok {
		return false, domain.ErrTaskNotFound
	}
	if task.ConfirmedBy != "" || task.IsDeleted {
		return false, nil
	}
	task.Status = domain.TaskCompleted
	task.ConfirmedBy = conf.ConfirmedBy
	at := conf.ConfirmedAt
	task.ConfirmedAt = &at
	task.CreditsAwarded = conf.AwardCredits
	task.FeedbackForCompleter = conf.Feedback
	task.FeedbackFrom = conf.FeedbackFrom
	task.FeedbackAt = conf.FeedbackAt
	return true, nil
}

func (r *fakeTaskRepo) SoftDelete(_ context.Context, taskID, deletedBy string, at time.Time) error {
	task, ok := r.tasks[taskID]
	if !ok || task.IsDeleted {
		return domain.ErrTaskNotFound
	}
	task.IsDeleted = true
	task.DeletedBy = deletedBy
	task.DeletedAt = &at
	return nil
}

func (r *fakeTaskRepo) Stats(_ context.Context, workflowID string, reference time.Time) (domain.WorkflowStats, error) {
	var stats domain.WorkflowStats
	for _, task := range r.tasks {
		if task.WorkflowID != workflowID || task.IsDeleted {
			continue
		}
		stats.TotalTasks++
		switch task.Status {
		case domain.TaskCompleted:
			stats.CompletedTasks++
		case domain.TaskPending:
			stats.PendingTasks++
		}
		if task.Overdue(reference) {
			stats.OverdueTasks++
		}
	}
	return stats, nil
}

func (r *fakeTaskRepo) DeleteByWorkflow(_ context.Context, workflowID string) error {
	for id, task := range r.tasks {
		if task.WorkflowID == workflowID {
			delete(r.tasks, id)
		}
	}
	return nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) Search(_ context.Context, _ string, _ int) ([]domain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.users[u.ID] = u
	return u, nil
}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	events []domain.Event
}

func (b *recordingBroadcaster) Publish(_ string, event domain.Event) {
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

// --- fixtures --------------------------------------------------------------

type fixture struct {
	uc        *UseCase
	workflows *fakeWorkflowRepo
	tasks     *fakeTaskRepo
	events    *recordingBroadcaster
}

func newFixture(t *testing.T, tasks ...*domain.Task) *fixture {
	t.Helper()
	wf := &domain.Workflow{
		ID:        "wf1",
		Name:      "Launch",
		CreatedBy: "admin",
		Members: []domain.Member{
			{UserID: "admin", Role: domain.RoleAdmin, Permissions: domain.UnrestrictedPermissions()},
			{UserID: "maker", Permissions: domain.Permissions{CanCreateTasks: true, CanAssignTasks: true}},
			{UserID: "scoped", Permissions: domain.Permissions{
				CanCreateTasks:    true,
				CanAssignTasks:    true,
				AssignableMembers: []string{"scoped"},
			}},
			{UserID: "worker", Permissions: domain.DefaultPermissions()},
		},
	}
	workflows := newFakeWorkflowRepo(wf)
	taskRepo := newFakeTaskRepo(tasks...)
	users := newFakeUserRepo(
		&domain.User{ID: "admin", Email: "admin@example.com", FirstName: "Ada"},
		&domain.User{ID: "maker", Email: "maker@example.com", FirstName: "Max"},
		&domain.User{ID: "scoped", Email: "scoped@example.com", FirstName: "Sam"},
		&domain.User{ID: "worker", Email: "worker@example.com", FirstName: "Wes"},
	)
	events := &recordingBroadcaster{}
	uc := New(workflows, taskRepo, users, permission.NewEvaluator(), events, nil)
	return &fixture{uc: uc, workflows: workflows, tasks: taskRepo, events: events}
}

func pendingTask(id string, assignees ...string) *domain.Task {
	return &domain.Task{
		ID:              id,
		WorkflowID:      "wf1",
		Title:           "Ship it",
		Description:     "Ship the thing",
		Priority:        domain.PriorityMedium,
		Status:          domain.TaskPending,
		CreatedBy:       "maker",
		AssignedMembers: assignees,
	}
}

// --- tests -----------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	f := newFixture(t)

	created, err := f.uc.Create(context.Background(), CreateInput{
		WorkflowID:      "wf1",
		ActorID:         "maker",
		Title:           "Ship it",
		Description:     "Ship the thing",
		AssignedMembers: []string{"worker"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, created.Status)
	assert.Equal(t, "maker", created.CreatedBy)
	assert.Equal(t, domain.PriorityMedium, created.Priority, "priority defaults to Medium")
	assert.Equal(t, []domain.EventType{domain.EventTaskCreated}, f.events.types())
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, CreateInput{WorkflowID: "wf1", ActorID: "maker", Description: "d", AssignedMembers: []string{"worker"}})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "missing title")

	_, err = f.uc.Create(ctx, CreateInput{WorkflowID: "wf1", ActorID: "maker", Title: "t", Description: "d"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "missing assignees")

	_, err = f.uc.Create(ctx, CreateInput{WorkflowID: "wf1", ActorID: "maker", Title: "t", Description: "d", AssignedMembers: []string{"stranger"}})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "assignee outside workflow")

	_, err = f.uc.Create(ctx, CreateInput{WorkflowID: "wf1", ActorID: "worker", Title: "t", Description: "d", AssignedMembers: []string{"worker"}})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "no create grant")

	_, err = f.uc.Create(ctx, CreateInput{WorkflowID: "wf1", ActorID: "stranger", Title: "t", Description: "d", AssignedMembers: []string{"worker"}})
	assert.ErrorIs(t, err, domain.ErrNotWorkflowMember)

	assert.Empty(t, f.events.types(), "rejected operations emit nothing")
}

func TestCreateTaskAssignmentScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, CreateInput{
		WorkflowID: "wf1", ActorID: "scoped", Title: "t", Description: "d",
		AssignedMembers: []string{"scoped"},
	})
	assert.NoError(t, err, "target inside assignable set")

	_, err = f.uc.Create(ctx, CreateInput{
		WorkflowID: "wf1", ActorID: "scoped", Title: "t", Description: "d",
		AssignedMembers: []string{"scoped", "worker"},
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "target outside assignable set")
}

func TestUpdateStatusHappyPath(t *testing.T) {
	f := newFixture(t, pendingTask("t1", "worker"))
	ctx := context.Background()

	task, err := f.uc.UpdateStatus(ctx, UpdateStatusInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "worker", Status: domain.TaskInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)
	require.Len(t, task.StatusUpdates, 1)
	assert.Equal(t, "worker", task.StatusUpdates[0].UpdatedBy)

	task, err = f.uc.UpdateStatus(ctx, UpdateStatusInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "worker",
		Status: domain.TaskAwaitingConfirmation, Message: "done, please review",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskAwaitingConfirmation, task.Status)
	assert.Equal(t, "done, please review", task.CompletionMessage)
	assert.Equal(t, "worker", task.CompletedBy)
	require.NotNil(t, task.CompletedAt)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t, pendingTask("t1", "worker"))

	_, err := f.uc.UpdateStatus(context.Background(), UpdateStatusInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "worker", Status: domain.TaskAwaitingConfirmation,
	})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
	assert.Empty(t, f.events.types())
}

func TestAssigneeCannotCompleteDirectly(t *testing.T) {
	task := pendingTask("t1", "worker")
	task.Status = domain.TaskInProgress
	f := newFixture(t, task)

	_, err := f.uc.UpdateStatus(context.Background(), UpdateStatusInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "worker", Status: domain.TaskCompleted,
	})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
	assert.Equal(t, permission.RuleDirectCompleteDenied, domain.ErrorDetail(err))
}

func TestCreatorCompletesDirectly(t *testing.T) {
	task := pendingTask("t1", "maker", "worker")
	task.Status = domain.TaskInProgress
	f := newFixture(t, task)

	updated, err := f.uc.UpdateStatus(context.Background(), UpdateStatusInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "maker",
		Status: domain.TaskCompleted, Message: "closing this out",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, updated.Status)
	assert.Equal(t, "maker", updated.CompletedBy)
}

func TestConfirmAwardsCreditExactlyOnce(t *testing.T) {
	task := pendingTask("t1", "worker")
	task.Status = domain.TaskAwaitingConfirmation
	task.CompletedBy = "worker"
	f := newFixture(t, task)
	ctx := context.Background()

	confirmed, err := f.uc.Confirm(ctx, ConfirmInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "admin",
		AwardCredits: true, Feedback: "great work",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, confirmed.Status)
	assert.Equal(t, "admin", confirmed.ConfirmedBy)
	assert.True(t, confirmed.CreditsAwarded)
	assert.Equal(t, "great work", confirmed.FeedbackForCompleter)
	assert.Equal(t, 1, f.workflows.credits["wf1/worker"])
	assert.Equal(t, []domain.EventType{domain.EventTaskCompleted}, f.events.types())

	_, err = f.uc.Confirm(ctx, ConfirmInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "admin", AwardCredits: true,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)
	assert.Equal(t, 1, f.workflows.credits["wf1/worker"], "credit granted at most once")
}

func TestConfirmDeniedForAssignee(t *testing.T) {
	task := pendingTask("t1", "worker")
	task.Status = domain.TaskAwaitingConfirmation
	task.CompletedBy = "worker"
	f := newFixture(t, task)

	_, err := f.uc.Confirm(context.Background(), ConfirmInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "worker",
	})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestDeleteHidesTaskFromReads(t *testing.T) {
	f := newFixture(t, pendingTask("t1", "worker"))
	ctx := context.Background()

	require.NoError(t, f.uc.Delete(ctx, "wf1", "t1", "maker"))
	assert.Equal(t, []domain.EventType{domain.EventTaskDeleted}, f.events.types())

	list, err := f.uc.List(ctx, "wf1", "maker")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Operations on a soft-deleted task behave as not found.
	_, err = f.uc.UpdateStatus(ctx, UpdateStatusInput{
		WorkflowID: "wf1", TaskID: "t1", ActorID: "worker", Status: domain.TaskInProgress,
	})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDeleteCompletionMessageRevertsStatus(t *testing.T) {
	task := pendingTask("t1", "worker")
	task.Status = domain.TaskAwaitingConfirmation
	task.CompletionMessage = "done"
	task.CompletedBy = "worker"
	now := time.Now()
	task.CompletedAt = &now
	f := newFixture(t, task)
	ctx := context.Background()

	_, err := f.uc.DeleteCompletionMessage(ctx, "wf1", "t1", "admin")
	require.Error(t, err, "only the author may withdraw the completion message")

	reverted, err := f.uc.DeleteCompletionMessage(ctx, "wf1", "t1", "worker")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, reverted.Status)
	assert.Empty(t, reverted.CompletionMessage)
	assert.Empty(t, reverted.CompletedBy)
	assert.Nil(t, reverted.CompletedAt)
}

func TestDeleteFeedbackKeepsStatus(t *testing.T) {
	task := pendingTask("t1", "worker")
	task.Status = domain.TaskCompleted
	task.CompletedBy = "worker"
	task.ConfirmedBy = "admin"
	task.FeedbackForCompleter = "nice"
	task.FeedbackFrom = "admin"
	now := time.Now()
	task.FeedbackAt = &now
	f := newFixture(t, task)

	cleared, err := f.uc.DeleteFeedback(context.Background(), "wf1", "t1", "worker")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, cleared.Status, "feedback deletion never touches status")
	assert.Empty(t, cleared.FeedbackForCompleter)
	assert.Empty(t, cleared.FeedbackFrom)
	assert.Nil(t, cleared.FeedbackAt)
}

func TestListEnrichesUserSnapshots(t *testing.T) {
	f := newFixture(t, pendingTask("t1", "worker"))

	list, err := f.uc.List(context.Background(), "wf1", "worker")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Creator)
	assert.Equal(t, "maker", list[0].Creator.UserID)
	require.Len(t, list[0].Assignees, 1)
	assert.Equal(t, "worker", list[0].Assignees[0].UserID)
}

func TestStatsCountsByStatus(t *testing.T) {
	done := pendingTask("t2", "worker")
	done.Status = domain.TaskCompleted
	overdue := pendingTask("t3", "worker")
	overdue.Status = domain.TaskInProgress
	past := time.Now().Add(-48 * time.Hour)
	overdue.DueDate = &past

	f := newFixture(t, pendingTask("t1", "worker"), done, overdue)

	stats, err := f.uc.Stats(context.Background(), "wf1", "admin")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 1, stats.PendingTasks)
	assert.Equal(t, 1, stats.OverdueTasks)
}

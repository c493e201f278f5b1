package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/backend/domain"
)

func workflowFixture() *domain.Workflow {
	return &domain.Workflow{
		ID:        "wf1",
		CreatedBy: "creator",
		Members: []domain.Member{
			{UserID: "creator", Role: domain.RoleAdmin, Permissions: domain.UnrestrictedPermissions()},
			{UserID: "maker", Permissions: domain.Permissions{CanCreateTasks: true, CanAssignTasks: true}},
			{UserID: "scoped", Permissions: domain.Permissions{
				CanCreateTasks:    true,
				CanAssignTasks:    true,
				AssignableMembers: []string{"scoped", "maker"},
			}},
			{UserID: "plain", Permissions: domain.DefaultPermissions()},
		},
	}
}

func member(wf *domain.Workflow, id string) *domain.Member {
	m, ok := wf.Member(id)
	if !ok {
		panic("unknown fixture member " + id)
	}
	return m
}

func assertDenied(t *testing.T, err error, rule string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
	assert.Equal(t, rule, domain.ErrorDetail(err))
}

func TestCanCreateTask(t *testing.T) {
	e := NewEvaluator()
	wf := workflowFixture()

	assert.NoError(t, e.CanCreateTask(wf, member(wf, "creator")))
	assert.NoError(t, e.CanCreateTask(wf, member(wf, "maker")))
	assertDenied(t, e.CanCreateTask(wf, member(wf, "plain")), RuleCanCreateTask)
}

func TestCanAssignTo(t *testing.T) {
	e := NewEvaluator()
	wf := workflowFixture()

	t.Run("creator is unrestricted", func(t *testing.T) {
		assert.NoError(t, e.CanAssignTo(wf, member(wf, "creator"), []string{"plain", "scoped"}))
	})

	t.Run("grant with empty set assigns to anyone", func(t *testing.T) {
		assert.NoError(t, e.CanAssignTo(wf, member(wf, "maker"), []string{"plain"}))
	})

	t.Run("no grant", func(t *testing.T) {
		assertDenied(t, e.CanAssignTo(wf, member(wf, "plain"), []string{"plain"}), RuleCanAssignTo)
	})

	t.Run("scoped set covers all targets", func(t *testing.T) {
		assert.NoError(t, e.CanAssignTo(wf, member(wf, "scoped"), []string{"scoped", "maker"}))
		assertDenied(t, e.CanAssignTo(wf, member(wf, "scoped"), []string{"plain"}), RuleCanAssignTo)
	})
}

func TestCanEditOrDeleteTask(t *testing.T) {
	e := NewEvaluator()
	wf := workflowFixture()
	task := &domain.Task{CreatedBy: "maker"}

	assert.NoError(t, e.CanEditOrDeleteTask(wf, "creator", task))
	assert.NoError(t, e.CanEditOrDeleteTask(wf, "maker", task))
	assertDenied(t, e.CanEditOrDeleteTask(wf, "plain", task), RuleCanEditOrDeleteTask)
}

func TestCanAdvanceStatus(t *testing.T) {
	e := NewEvaluator()
	wf := workflowFixture()
	task := &domain.Task{
		CreatedBy:       "maker",
		AssignedMembers: []string{"plain", "maker", "creator"},
		Status:          domain.TaskInProgress,
	}

	t.Run("non-assignee denied", func(t *testing.T) {
		assertDenied(t, e.CanAdvanceStatus(wf, "scoped", task, domain.TaskAwaitingConfirmation),
			RuleCanAdvanceStatus)
	})

	t.Run("assignee advances normally", func(t *testing.T) {
		assert.NoError(t, e.CanAdvanceStatus(wf, "plain", task, domain.TaskAwaitingConfirmation))
		assert.NoError(t, e.CanAdvanceStatus(wf, "plain", task, domain.TaskCancelled))
	})

	t.Run("direct completion reserved for creators", func(t *testing.T) {
		assertDenied(t, e.CanAdvanceStatus(wf, "plain", task, domain.TaskCompleted),
			RuleDirectCompleteDenied)
		assert.NoError(t, e.CanAdvanceStatus(wf, "creator", task, domain.TaskCompleted))
		assert.NoError(t, e.CanAdvanceStatus(wf, "maker", task, domain.TaskCompleted))
	})
}

func TestCanConfirmCompletion(t *testing.T) {
	e := NewEvaluator()
	wf := workflowFixture()
	task := &domain.Task{CreatedBy: "maker", CompletedBy: "plain"}

	assert.NoError(t, e.CanConfirmCompletion(wf, "creator", task))
	assert.NoError(t, e.CanConfirmCompletion(wf, "maker", task))
	assertDenied(t, e.CanConfirmCompletion(wf, "plain", task), RuleCanConfirmCompletion)
}

func TestMemberManagementRules(t *testing.T) {
	e := NewEvaluator()
	wf := workflowFixture()

	assert.NoError(t, e.CanManageMembers(wf, "creator"))
	assertDenied(t, e.CanManageMembers(wf, "maker"), RuleCanManageMembers)

	assert.NoError(t, e.CanRemoveMember(wf, "creator", "plain"))
	assertDenied(t, e.CanRemoveMember(wf, "maker", "plain"), RuleCanRemoveMember)
	assertDenied(t, e.CanRemoveMember(wf, "creator", "creator"), RuleCreatorNotTargetable)

	assert.NoError(t, e.CanUpdatePermissions(wf, "creator", "plain"))
	assertDenied(t, e.CanUpdatePermissions(wf, "plain", "maker"), RuleCanUpdatePermissions)
	assertDenied(t, e.CanUpdatePermissions(wf, "creator", "creator"), RuleCreatorNotTargetable)
}

func TestMessageDeletionRules(t *testing.T) {
	e := NewEvaluator()
	task := &domain.Task{CompletedBy: "plain"}

	assert.NoError(t, e.CanDeleteCompletionMessage(task, "plain"))
	assertDenied(t, e.CanDeleteCompletionMessage(task, "creator"), RuleCompletionMsgOwner)
	assertDenied(t, e.CanDeleteCompletionMessage(&domain.Task{}, "plain"), RuleCompletionMsgOwner)

	assert.NoError(t, e.CanDeleteFeedback(task, "plain"))
	assertDenied(t, e.CanDeleteFeedback(task, "maker"), RuleFeedbackRecipient)
}

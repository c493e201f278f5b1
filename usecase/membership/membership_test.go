package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/usecase/permission"
)

type fakeWorkflowRepo struct {
	workflows map[string]*domain.Workflow
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

func (r *fakeWorkflowRepo) IncrementCredits(_ context.Context, _, _ string, _ int) error {
	return nil
}

type fakeInviteRepo struct {
	invites map[string]*domain.Invite
}

func (r *fakeInviteRepo) GetByID(_ context.Context, id string) (*domain.Invite, error) {
	inv, ok := r.invites[id]
	if !ok {
		return nil, domain.ErrInviteNotFound
	}
	return inv, nil
}

func (r *fakeInviteRepo) ListPendingForUser(_ context.Context, userID string) ([]domain.Invite, error) {
	var out []domain.Invite
	for _, inv := range r.invites {
		if inv.InvitedUser == userID && inv.Status == domain.InvitePending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) FindPending(_ context.Context, workflowID, userID string) (*domain.Invite, error) {
	for _, inv := range r.invites {
		if inv.WorkflowID == workflowID && inv.InvitedUser == userID && inv.Status == domain.InvitePending {
			return inv, nil
		}
	}
	return nil, domain.ErrInviteNotFound
}

func (r *fakeInviteRepo) Create(_ context.Context, invite *domain.Invite) (*domain.Invite, error) {
	r.invites[invite.ID] = invite
	return invite, nil
}

func (r *fakeInviteRepo) UpdateStatus(_ context.Context, id string, status domain.InviteStatus) error {
	inv, ok := r.invites[id]
	if !ok {
		return domain.ErrInviteNotFound
	}
	inv.Status = status
	return nil
}

func (r *fakeInviteRepo) DeclinePendingForMember(_ context.Context, workflowID, userID string) error {
	for _, inv := range r.invites {
		if inv.WorkflowID == workflowID && inv.InvitedUser == userID && inv.Status == domain.InvitePending {
			inv.Status = domain.InviteDeclined
		}
	}
	return nil
}

func (r *fakeInviteRepo) DeleteByWorkflow(_ context.Context, workflowID string) error {
	for id, inv := range r.invites {
		if inv.WorkflowID == workflowID {
			delete(r.invites, id)
		}
	}
	return nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
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

type fixture struct {
	uc        *UseCase
	workflows *fakeWorkflowRepo
	invites   *fakeInviteRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	wf := &domain.Workflow{
		ID:        "wf1",
		Name:      "Launch",
		CreatedBy: "admin",
		Members: []domain.Member{
			{UserID: "admin", Role: domain.RoleAdmin, Permissions: domain.UnrestrictedPermissions()},
			{UserID: "member", Role: domain.RoleMember, Permissions: domain.DefaultPermissions()},
		},
	}
	workflows := &fakeWorkflowRepo{workflows: map[string]*domain.Workflow{"wf1": wf}}
	invites := &fakeInviteRepo{invites: make(map[string]*domain.Invite)}
	users := &fakeUserRepo{users: map[string]*domain.User{
		"admin":  {ID: "admin", Email: "admin@example.com", FirstName: "Ada", LastName: "Lee"},
		"member": {ID: "member", Email: "member@example.com"},
		"guest":  {ID: "guest", Email: "guest@example.com", FirstName: "Gus"},
	}}
	uc := New(workflows, invites, users, permission.NewEvaluator(), nil)
	return &fixture{uc: uc, workflows: workflows, invites: invites}
}

func TestInviteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invite, err := f.uc.InviteUser(ctx, "wf1", "admin", "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitePending, invite.Status)
	assert.Equal(t, "guest", invite.InvitedUser)
	assert.Equal(t, "Launch", invite.WorkflowName)
	assert.Equal(t, "Ada Lee", invite.InvitedByName)

	_, err = f.uc.InviteUser(ctx, "wf1", "admin", "guest@example.com")
	assert.ErrorIs(t, err, domain.ErrDuplicateInvite)

	_, err = f.uc.InviteUser(ctx, "wf1", "admin", "member@example.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = f.uc.InviteUser(ctx, "wf1", "admin", "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.InviteUser(ctx, "wf1", "member", "guest@example.com")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "only the creator invites")
}

func TestInviteByEmailsSkipsBadAddresses(t *testing.T) {
	f := newFixture(t)

	sent, err := f.uc.InviteByEmails(context.Background(), "wf1", "admin", []string{
		"guest@example.com",   // ok
		"member@example.com",  // already a member
		"missing@example.com", // unknown user
		"guest@example.com",   // now a duplicate
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRespondAcceptCreatesMemberWithDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invite, err := f.uc.InviteUser(ctx, "wf1", "admin", "guest@example.com")
	require.NoError(t, err)

	require.NoError(t, f.uc.Respond(ctx, invite.ID, "guest", true))

	wf := f.workflows.workflows["wf1"]
	m, ok := wf.Member("guest")
	require.True(t, ok, "accepting must create the membership")
	assert.Equal(t, domain.RoleMember, m.Role)
	assert.False(t, m.Permissions.CanCreateTasks, "new members start fully restricted")
	assert.False(t, m.Permissions.CanAssignTasks)
	assert.Equal(t, domain.InviteAccepted, f.invites.invites[invite.ID].Status)

	assert.ErrorIs(t, f.uc.Respond(ctx, invite.ID, "guest", true), domain.ErrInviteResolved)
}

func TestRespondDeclineNeverCreatesMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invite, err := f.uc.InviteUser(ctx, "wf1", "admin", "guest@example.com")
	require.NoError(t, err)

	require.NoError(t, f.uc.Respond(ctx, invite.ID, "guest", false))

	wf := f.workflows.workflows["wf1"]
	assert.False(t, wf.HasMember("guest"))
	assert.Equal(t, domain.InviteDeclined, f.invites.invites[invite.ID].Status)
}

func TestRespondOnlyByInvitee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invite, err := f.uc.InviteUser(ctx, "wf1", "admin", "guest@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, f.uc.Respond(ctx, invite.ID, "member", true), domain.ErrInviteNotFound)
}

func TestRemoveMemberVoidsPendingInvites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The member also has a second pending invite hanging around.
	invite, err := f.uc.InviteUser(ctx, "wf1", "admin", "guest@example.com")
	require.NoError(t, err)
	require.NoError(t, f.uc.Respond(ctx, invite.ID, "guest", true))
	stale := &domain.Invite{
		ID: "stale", WorkflowID: "wf1", InvitedUser: "guest", Status: domain.InvitePending,
	}
	f.invites.invites[stale.ID] = stale

	require.NoError(t, f.uc.RemoveMember(ctx, "wf1", "admin", "guest"))

	assert.False(t, f.workflows.workflows["wf1"].HasMember("guest"))
	assert.Equal(t, domain.InviteDeclined, f.invites.invites["stale"].Status,
		"stale invites must not re-admit a removed member")
}

func TestRemoveMemberRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.uc.RemoveMember(ctx, "wf1", "member", "admin")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "non-creator cannot remove")

	err = f.uc.RemoveMember(ctx, "wf1", "admin", "admin")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "creator cannot be removed")

	assert.ErrorIs(t, f.uc.RemoveMember(ctx, "wf1", "admin", "guest"), domain.ErrMemberNotFound)
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.uc.UpdatePermissions(ctx, "wf1", "admin", "member", domain.Permissions{
		CanCreateTasks:    true,
		CanAssignTasks:    true,
		AssignableMembers: []string{"member"},
	})
	require.NoError(t, err)

	m, _ := f.workflows.workflows["wf1"].Member("member")
	assert.True(t, m.Permissions.CanCreateTasks)
	assert.Equal(t, []string{"member"}, m.Permissions.AssignableMembers)

	err = f.uc.UpdatePermissions(ctx, "wf1", "admin", "admin", domain.Permissions{})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "creator grants are immutable")

	err = f.uc.UpdatePermissions(ctx, "wf1", "member", "member", domain.Permissions{})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "only the creator updates grants")
}

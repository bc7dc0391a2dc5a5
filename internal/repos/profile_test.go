package repos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/repos"
	"github.com/taskhive/taskhive-backend/internal/repos/testutil"
	"github.com/taskhive/taskhive-backend/internal/types"
)

func seedUser(t *testing.T, ur repos.UserRepo) *types.User {
	t.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Password:  "hashed",
		FirstName: "Test",
		LastName:  "User",
	}
	created, err := ur.Create(context.Background(), nil, []*types.User{user})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created[0]
}

func TestProfileRepoGetByUserIDMissing(t *testing.T) {
	gdb := testutil.DB(t)
	pr := repos.NewProfileRepo(gdb, testutil.Logger(t))

	got, err := pr.GetByUserID(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil profile for unknown user, got %+v", got)
	}
}

func TestProfileRepoEnsureForUser(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	ur := repos.NewUserRepo(gdb, log)
	pr := repos.NewProfileRepo(gdb, log)
	ctx := context.Background()

	user := seedUser(t, ur)

	first, err := pr.EnsureForUser(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("EnsureForUser: %v", err)
	}
	if first.ActiveRole != types.RoleCustomer {
		t.Fatalf("default active role = %q, want customer", first.ActiveRole)
	}
	if first.ProfileCompleted || first.BasicProfileCompleted {
		t.Fatalf("fresh profile must start with completion flags unset")
	}
	roles := first.RoleList()
	if len(roles) != 1 || roles[0] != types.RoleCustomer {
		t.Fatalf("fresh profile roles = %v, want [customer]", roles)
	}

	second, err := pr.EnsureForUser(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("EnsureForUser (second): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("EnsureForUser created a second row for the same user")
	}
}

func TestProfileRepoUpdateFields(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	ur := repos.NewUserRepo(gdb, log)
	pr := repos.NewProfileRepo(gdb, log)
	ctx := context.Background()

	user := seedUser(t, ur)
	if _, err := pr.EnsureForUser(ctx, nil, user.ID); err != nil {
		t.Fatalf("EnsureForUser: %v", err)
	}

	err := pr.UpdateFields(ctx, nil, user.ID, map[string]interface{}{
		"basic_profile_completed": true,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := pr.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if !got.BasicProfileCompleted {
		t.Fatalf("basic_profile_completed not persisted")
	}
	if got.ProfileCompleted {
		t.Fatalf("profile_completed flipped by an unrelated update")
	}
}

func TestProfileRepoRoleAcquisitionRoundTrip(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	ur := repos.NewUserRepo(gdb, log)
	pr := repos.NewProfileRepo(gdb, log)
	ctx := context.Background()

	user := seedUser(t, ur)
	profile, err := pr.EnsureForUser(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("EnsureForUser: %v", err)
	}

	if !profile.AddRole(types.RoleProvider) {
		t.Fatalf("AddRole reported no change for a new role")
	}
	if err := pr.Update(ctx, nil, profile); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := pr.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	roles := got.RoleList()
	if len(roles) != 2 || roles[0] != types.RoleCustomer || roles[1] != types.RoleProvider {
		t.Fatalf("roles after acquisition = %v, want [customer provider]", roles)
	}
}

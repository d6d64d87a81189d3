package application_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vn.io.arda/tenant-manager/internal/domain"
)

func TestCreateTenant_CreatesRoleSubgroups(t *testing.T) {
	fake := newFakeDirectory("VIEWER", "EDITOR")
	svc := newTestService(fake)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme Corp")
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if tenant.Name != "tenant_acme" {
		t.Fatalf("derived name = %q, want tenant_acme", tenant.Name)
	}
	if tenant.DisplayName != "Acme Corp" {
		t.Fatalf("display name = %q, want Acme Corp", tenant.DisplayName)
	}
	if got, want := subgroupNames(tenant), []string{"EDITOR", "VIEWER"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("subgroups = %v, want %v", got, want)
	}

	tenants, err := svc.ListTenants(ctx, sysAdmin)
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if len(tenants) != 1 || tenants[0].Name != "tenant_acme" {
		t.Fatalf("ListTenants = %+v, want exactly tenant_acme", tenants)
	}
}

func TestCreateTenant_BlankName(t *testing.T) {
	svc := newTestService(newFakeDirectory())

	_, err := svc.CreateTenant(context.Background(), sysAdmin, "   ", "Blank")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestCreateTenant_Duplicate(t *testing.T) {
	svc := newTestService(newFakeDirectory("VIEWER"))
	ctx := context.Background()

	if _, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme"); err != nil {
		t.Fatalf("first CreateTenant: %v", err)
	}
	_, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme again")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("err = %v, want AlreadyExists", err)
	}
}

// The directory search is fuzzy: looking for "tenant_acme" also returns
// "tenant_acme-legacy". The existence check must compare exact names.
func TestCreateTenant_ExactMatchNotFuzzy(t *testing.T) {
	svc := newTestService(newFakeDirectory("VIEWER"))
	ctx := context.Background()

	if _, err := svc.CreateTenant(ctx, sysAdmin, "acme-legacy", "Acme Legacy"); err != nil {
		t.Fatalf("CreateTenant acme-legacy: %v", err)
	}
	if _, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme"); err != nil {
		t.Fatalf("CreateTenant acme should not collide with acme-legacy: %v", err)
	}
}

func TestCreateTenant_RequiresSystemAdmin(t *testing.T) {
	svc := newTestService(newFakeDirectory())

	caller := domain.Caller{UserID: "u1", Roles: []string{"EDITOR"}}
	_, err := svc.CreateTenant(context.Background(), caller, "acme", "Acme")
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("err = %v, want AccessDenied", err)
	}
}

func TestUpdateTenant_ChangesOnlyDisplayName(t *testing.T) {
	svc := newTestService(newFakeDirectory("VIEWER"))
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme")
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	updated, err := svc.UpdateTenant(ctx, sysAdmin, tenant.ID, "Acme Corporation")
	if err != nil {
		t.Fatalf("UpdateTenant: %v", err)
	}
	if updated.DisplayName != "Acme Corporation" {
		t.Fatalf("display name = %q, want Acme Corporation", updated.DisplayName)
	}
	if updated.Name != "tenant_acme" {
		t.Fatalf("derived name changed to %q; it is immutable", updated.Name)
	}
}

func TestUpdateTenant_PlainGroup_NotATenant(t *testing.T) {
	fake := newFakeDirectory()
	svc := newTestService(fake)
	ctx := context.Background()

	plain, err := fake.CreateGroup(ctx, domain.Group{Name: "engineering"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	_, err = svc.UpdateTenant(ctx, sysAdmin, plain.ID, "New Name")
	if !errors.Is(err, domain.ErrNotATenant) {
		t.Fatalf("err = %v, want NotATenant", err)
	}
}

func TestGetTenant_PlainGroup_NotATenant(t *testing.T) {
	fake := newFakeDirectory()
	svc := newTestService(fake)
	ctx := context.Background()

	plain, err := fake.CreateGroup(ctx, domain.Group{Name: "engineering"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	_, err = svc.GetTenant(ctx, sysAdmin, plain.ID)
	if !errors.Is(err, domain.ErrNotATenant) {
		t.Fatalf("err = %v, want NotATenant", err)
	}
}

func TestDeleteTenant_RequiresSystemAdmin(t *testing.T) {
	fake := newFakeDirectory("VIEWER")
	svc := newTestService(fake)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme")
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	fake.addUser("u1", "alice")
	if _, err := svc.AssignAdmin(ctx, sysAdmin, "u1", tenant.ID); err != nil {
		t.Fatalf("AssignAdmin: %v", err)
	}

	// A tenant admin manages their tenant but cannot delete it.
	err = svc.DeleteTenant(ctx, domain.Caller{UserID: "u1"}, tenant.ID)
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("err = %v, want AccessDenied", err)
	}
	if _, err := svc.GetTenant(ctx, sysAdmin, tenant.ID); err != nil {
		t.Fatalf("tenant must survive the denied delete: %v", err)
	}
}

func TestDeleteTenant_UnknownID_NotFound(t *testing.T) {
	svc := newTestService(newFakeDirectory())

	err := svc.DeleteTenant(context.Background(), sysAdmin, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestListTenants_SkipsNonTenantGroups(t *testing.T) {
	fake := newFakeDirectory("VIEWER")
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := fake.CreateGroup(ctx, domain.Group{Name: "engineering"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme"); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	tenants, err := svc.ListTenants(ctx, sysAdmin)
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if len(tenants) != 1 || tenants[0].Name != "tenant_acme" {
		t.Fatalf("ListTenants = %+v, want only tenant_acme", tenants)
	}
}

// End-to-end role lifecycle: add a role, sync, delete a role, sync.
func TestSyncAllTenants_FollowsRoleSet(t *testing.T) {
	fake := newFakeDirectory("VIEWER", "EDITOR")
	svc := newTestService(fake)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme Corp")
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	fake.addRole("AUDITOR")
	report, err := svc.SyncAllTenants(ctx)
	if err != nil {
		t.Fatalf("SyncAllTenants after add: %v", err)
	}
	if report.SubgroupsAdded != 1 || report.SubgroupsRemoved != 0 {
		t.Fatalf("report = %+v, want 1 added, 0 removed", report)
	}

	got, err := svc.GetTenant(ctx, sysAdmin, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if want := []string{"AUDITOR", "EDITOR", "VIEWER"}; !reflect.DeepEqual(subgroupNames(got), want) {
		t.Fatalf("subgroups = %v, want %v", subgroupNames(got), want)
	}

	fake.removeRole("VIEWER")
	report, err = svc.SyncAllTenants(ctx)
	if err != nil {
		t.Fatalf("SyncAllTenants after delete: %v", err)
	}
	if report.SubgroupsAdded != 0 || report.SubgroupsRemoved != 1 {
		t.Fatalf("report = %+v, want 0 added, 1 removed", report)
	}

	got, err = svc.GetTenant(ctx, sysAdmin, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if want := []string{"AUDITOR", "EDITOR"}; !reflect.DeepEqual(subgroupNames(got), want) {
		t.Fatalf("subgroups = %v, want %v", subgroupNames(got), want)
	}
}

// The directory's group listing returns no subgroups; only a direct
// group fetch does. A sync that diffed against listed tenants would see
// an empty subgroup set and re-create every subgroup on every pass.
func TestSyncAllTenants_RereadsSubgroupsBeforeDiffing(t *testing.T) {
	fake := newFakeDirectory("VIEWER", "EDITOR")
	svc := newTestService(fake)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme")
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	listed, _, err := fake.FindGroups(ctx, "tenant_acme", 0, 10)
	if err != nil {
		t.Fatalf("FindGroups: %v", err)
	}
	if len(listed) != 1 || len(listed[0].SubGroups) != 0 {
		t.Fatalf("listing should omit subgroups, got %+v", listed)
	}

	report, err := svc.SyncAllTenants(ctx)
	if err != nil {
		t.Fatalf("SyncAllTenants: %v", err)
	}
	if report.SubgroupsAdded != 0 || report.SubgroupsRemoved != 0 {
		t.Fatalf("report = %+v, want no changes on a no-op sync", report)
	}

	got, err := svc.GetTenant(ctx, sysAdmin, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if want := []string{"EDITOR", "VIEWER"}; !reflect.DeepEqual(subgroupNames(got), want) {
		t.Fatalf("subgroups = %v, want %v", subgroupNames(got), want)
	}
}

func TestSyncAllTenants_Idempotent(t *testing.T) {
	fake := newFakeDirectory("VIEWER", "EDITOR")
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme"); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	for i := 0; i < 2; i++ {
		report, err := svc.SyncAllTenants(ctx)
		if err != nil {
			t.Fatalf("SyncAllTenants run %d: %v", i+1, err)
		}
		if report.SubgroupsAdded != 0 || report.SubgroupsRemoved != 0 {
			t.Fatalf("run %d report = %+v, want no changes", i+1, report)
		}
	}
}

// A role rename is delete-old-name plus create-new-name for every tenant:
// subgroup identity is the role's name.
func TestSyncAllTenants_RoleRename(t *testing.T) {
	fake := newFakeDirectory("VIEWER", "EDITOR")
	svc := newTestService(fake)
	ctx := context.Background()

	t1, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme")
	if err != nil {
		t.Fatalf("CreateTenant acme: %v", err)
	}
	t2, err := svc.CreateTenant(ctx, sysAdmin, "globex", "Globex")
	if err != nil {
		t.Fatalf("CreateTenant globex: %v", err)
	}

	fake.removeRole("VIEWER")
	fake.addRole("READER")
	if _, err := svc.SyncAllTenants(ctx); err != nil {
		t.Fatalf("SyncAllTenants: %v", err)
	}

	for _, id := range []string{t1.ID, t2.ID} {
		tenant, err := svc.GetTenant(ctx, sysAdmin, id)
		if err != nil {
			t.Fatalf("GetTenant %s: %v", id, err)
		}
		if want := []string{"EDITOR", "READER"}; !reflect.DeepEqual(subgroupNames(tenant), want) {
			t.Fatalf("tenant %s subgroups = %v, want %v", tenant.Name, subgroupNames(tenant), want)
		}
	}
}

// A createTenant that dies mid-provisioning leaves the tenant group in
// place without rollback; the next sync completes the missing subgroups.
func TestSyncAllTenants_RepairsPartialCreate(t *testing.T) {
	fake := newFakeDirectory("VIEWER", "EDITOR")
	svc := newTestService(fake)
	ctx := context.Background()

	fake.createChildErr = &domain.DirectoryError{Status: 500, Message: "boom"}
	if _, err := svc.CreateTenant(ctx, sysAdmin, "acme", "Acme"); err == nil {
		t.Fatal("CreateTenant should have failed")
	}

	tenants, err := svc.ListTenants(ctx, sysAdmin)
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if len(tenants) != 1 {
		t.Fatalf("tenant group should survive the partial failure, got %d tenants", len(tenants))
	}

	if _, err := svc.SyncAllTenants(ctx); err != nil {
		t.Fatalf("SyncAllTenants: %v", err)
	}

	repaired, err := svc.GetTenant(ctx, sysAdmin, tenants[0].ID)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if want := []string{"EDITOR", "VIEWER"}; !reflect.DeepEqual(subgroupNames(repaired), want) {
		t.Fatalf("subgroups = %v, want %v", subgroupNames(repaired), want)
	}
}

func TestTriggerSync_RequiresSystemAdmin(t *testing.T) {
	svc := newTestService(newFakeDirectory())

	caller := domain.Caller{UserID: "u1"}
	_, err := svc.TriggerSync(context.Background(), caller)
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("err = %v, want AccessDenied", err)
	}
}

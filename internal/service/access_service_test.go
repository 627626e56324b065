package service

import (
	"context"
	"errors"
	"testing"

	"restchain/internal/apperr"
	"restchain/internal/model"

	"github.com/google/uuid"
)

type accessFixture struct {
	actors  *fakeActorRepo
	access  *fakeAccessRepo
	targets *fakeTargetRepo
	audits  *fakeAuditRepo
	svc     AccessService
}

func newAccessFixture() *accessFixture {
	f := &accessFixture{
		actors:  newFakeActorRepo(),
		access:  newFakeAccessRepo(),
		targets: newFakeTargetRepo(),
		audits:  &fakeAuditRepo{},
	}
	f.svc = NewAccessService(f.actors, f.access, f.targets, f.audits, fakeTxManager{})
	return f
}

func (f *accessFixture) addGrant(actorID, taskTypeID uuid.UUID, role string, selected *uuid.UUID) uuid.UUID {
	grant := &model.ActorAccessLevel{
		ID:               uuid.New(),
		ActorID:          actorID,
		TaskTypeID:       taskTypeID,
		TaskTargetID:     uuid.New(),
		Role:             role,
		SelectedTargetID: selected,
		State:            model.GrantStateActive,
	}
	_ = f.access.CreateGrant(context.Background(), grant)
	return grant.ID
}

func TestAccessDeniedWithoutGrants(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()

	err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, nil)
	var denied *apperr.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}
	if denied.ActorID != actorID || denied.Role != model.AccessRoleExecute {
		t.Errorf("denial names wrong actor/role: %+v", denied)
	}
}

func TestAccessUnknownActor(t *testing.T) {
	f := newAccessFixture()
	if err := f.svc.Authorize(context.Background(), uuid.New(), uuid.New(), model.AccessRoleRead, nil); err == nil {
		t.Fatal("expected error for unknown actor")
	}
}

func TestSuperuserBypassesResolution(t *testing.T) {
	f := newAccessFixture()
	sysID := f.actors.addActor(true)

	ok, err := f.svc.HasAccess(context.Background(), sysID, uuid.New(), model.AccessRoleDelete, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("superuser should pass every check")
	}
	if err := f.svc.Authorize(context.Background(), sysID, uuid.New(), model.AccessRoleInspect, nil); err != nil {
		t.Errorf("superuser authorize failed: %v", err)
	}
}

func TestUnscopedGrantAuthorizes(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	f.addGrant(actorID, typeID, model.AccessRoleExecute, nil)

	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, nil); err != nil {
		t.Fatalf("unscoped grant should authorize: %v", err)
	}
	// unscoped grants are reusable
	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, nil); err != nil {
		t.Fatalf("unscoped grant should stay valid: %v", err)
	}
	// role does not leak across
	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleInspect, nil); err == nil {
		t.Error("grant for execute must not authorize inspect")
	}
}

func TestDisposableGrantIsConsumedOnce(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	targetID := uuid.New()
	grantID := f.addGrant(actorID, typeID, model.AccessRoleExecute, &targetID)

	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, &targetID); err != nil {
		t.Fatalf("first use should succeed: %v", err)
	}

	g, err := f.access.GetGrant(context.Background(), grantID)
	if err != nil {
		t.Fatal(err)
	}
	if g.State != model.GrantStateConsumed {
		t.Errorf("grant state = %s, want consumed", g.State)
	}
	if f.audits.countAction(model.ActionConsumeGrant) != 1 {
		t.Error("consuming a grant must leave an audit entry")
	}

	err = f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, &targetID)
	var denied *apperr.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("second use should be denied, got %v", err)
	}
}

func TestDisposableGrantScopedToItsTarget(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	targetID := uuid.New()
	f.addGrant(actorID, typeID, model.AccessRoleExecute, &targetID)

	other := uuid.New()
	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, &other); err == nil {
		t.Error("scoped grant must not authorize a different target")
	}
}

func TestHasAccessDoesNotConsume(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	targetID := uuid.New()
	grantID := f.addGrant(actorID, typeID, model.AccessRoleExecute, &targetID)

	for i := 0; i < 3; i++ {
		ok, err := f.svc.HasAccess(context.Background(), actorID, typeID, model.AccessRoleExecute, &targetID)
		if err != nil || !ok {
			t.Fatalf("HasAccess #%d = (%v, %v)", i, ok, err)
		}
	}

	g, _ := f.access.GetGrant(context.Background(), grantID)
	if g.State != model.GrantStateActive {
		t.Errorf("HasAccess must not consume the grant, state = %s", g.State)
	}
}

func TestScopedGrantWinsOverUnscoped(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	targetID := uuid.New()
	scopedID := f.addGrant(actorID, typeID, model.AccessRoleExecute, &targetID)
	unscopedID := f.addGrant(actorID, typeID, model.AccessRoleExecute, nil)

	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, &targetID); err != nil {
		t.Fatal(err)
	}

	scoped, _ := f.access.GetGrant(context.Background(), scopedID)
	unscoped, _ := f.access.GetGrant(context.Background(), unscopedID)
	if scoped.State != model.GrantStateConsumed {
		t.Error("scoped grant should be the one consumed")
	}
	if unscoped.State != model.GrantStateActive {
		t.Error("unscoped grant must be untouched")
	}
}

func TestPositionalGrantThroughGroup(t *testing.T) {
	f := newAccessFixture()
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	positionID := uuid.New()
	groupID := uuid.New()

	f.actors.employees[actorID] = &model.RestaurantEmployee{
		ID:         uuid.New(),
		PositionID: positionID,
	}
	f.access.groupTypes[groupID] = []uuid.UUID{typeID}
	_ = f.access.CreatePositionGrant(context.Background(), &model.RestaurantEmployeePositionAccessLevel{
		PositionID:      positionID,
		TaskTypeGroupID: groupID,
		Role:            model.AccessRoleCreate,
	})

	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleCreate, nil); err != nil {
		t.Fatalf("positional grant should authorize: %v", err)
	}
	// a type outside the group stays denied
	if err := f.svc.Authorize(context.Background(), actorID, uuid.New(), model.AccessRoleCreate, nil); err == nil {
		t.Error("positional grant must not cover types outside its group")
	}
}

func TestGrantCreatesAccessGrantTarget(t *testing.T) {
	f := newAccessFixture()
	issuerID := f.actors.addActor(true)
	actorID := f.actors.addActor(false)
	typeID := uuid.New()

	grant, err := f.svc.Grant(context.Background(), issuerID, GrantAccessDTO{
		ActorID:    actorID.String(),
		TaskTypeID: typeID.String(),
		Role:       model.AccessRoleExecute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if grant.Disposable() {
		t.Error("grant without selected target must not be disposable")
	}

	target, err := f.targets.GetTarget(context.Background(), grant.TaskTargetID)
	if err != nil {
		t.Fatalf("grant issuance must create its own target: %v", err)
	}
	if target.Kind != model.TargetKindAccessGrant {
		t.Errorf("target kind = %s, want access_grant", target.Kind)
	}
	if f.audits.countAction(model.ActionGrantAccess) != 1 {
		t.Error("grant issuance must be audited")
	}
}

func TestGrantRejectsBadInput(t *testing.T) {
	f := newAccessFixture()
	issuerID := f.actors.addActor(true)

	cases := []GrantAccessDTO{
		{ActorID: "not-a-uuid", TaskTypeID: uuid.New().String(), Role: model.AccessRoleRead},
		{ActorID: uuid.New().String(), TaskTypeID: "nope", Role: model.AccessRoleRead},
		{ActorID: uuid.New().String(), TaskTypeID: uuid.New().String(), Role: "owner"},
	}
	for i, dto := range cases {
		if _, err := f.svc.Grant(context.Background(), issuerID, dto); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestRevokeGrant(t *testing.T) {
	f := newAccessFixture()
	issuerID := f.actors.addActor(true)
	actorID := f.actors.addActor(false)
	typeID := uuid.New()
	grantID := f.addGrant(actorID, typeID, model.AccessRoleExecute, nil)

	if err := f.svc.Revoke(context.Background(), issuerID, grantID); err != nil {
		t.Fatal(err)
	}
	g, _ := f.access.GetGrant(context.Background(), grantID)
	if g.State != model.GrantStateRevoked {
		t.Errorf("state = %s, want revoked", g.State)
	}

	// the actor lost the permission
	if err := f.svc.Authorize(context.Background(), actorID, typeID, model.AccessRoleExecute, nil); err == nil {
		t.Error("revoked grant must not authorize")
	}
	// revoking twice is an error
	if err := f.svc.Revoke(context.Background(), issuerID, grantID); err == nil {
		t.Error("expected error revoking a non-active grant")
	}
}

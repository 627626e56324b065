package service

import (
	"context"
	"encoding/json"
	"fmt"

	"restchain/internal/apperr"
	"restchain/internal/model"
	"restchain/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type GrantAccessDTO struct {
	ActorID          string  `json:"actor_id" binding:"required"`
	TaskTypeID       string  `json:"task_type_id" binding:"required"`
	Role             string  `json:"role" binding:"required,oneof=read create edit execute inspect delete"`
	SelectedTargetID *string `json:"selected_target_id"` // set => disposable grant
}

type GrantPositionAccessDTO struct {
	PositionID      string `json:"position_id" binding:"required"`
	TaskTypeGroupID string `json:"task_type_group_id" binding:"required"`
	Role            string `json:"role" binding:"required,oneof=read create edit execute inspect delete"`
}

// --- Interface ---

// AccessService is the access resolver. Resolution order, first match wins:
// superuser bypass, target-scoped disposable grant, unscoped personal grant,
// positional group grant, deny. Authorize additionally consumes a disposable
// grant in the caller's transaction; HasAccess never mutates anything.
type AccessService interface {
	HasAccess(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID *uuid.UUID) (bool, error)
	Authorize(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID *uuid.UUID) error
	Grant(ctx context.Context, issuerID uuid.UUID, req GrantAccessDTO) (*model.ActorAccessLevel, error)
	Revoke(ctx context.Context, issuerID, grantID uuid.UUID) error
	GrantPosition(ctx context.Context, issuerID uuid.UUID, req GrantPositionAccessDTO) (*model.RestaurantEmployeePositionAccessLevel, error)
	ListGrants(ctx context.Context, actorID uuid.UUID) ([]model.ActorAccessLevel, error)
}

type accessService struct {
	actors  repository.ActorRepository
	access  repository.AccessRepository
	targets repository.TargetRepository
	audits  repository.AuditRepository
	txm     repository.TransactionManager
}

func NewAccessService(
	actors repository.ActorRepository,
	access repository.AccessRepository,
	targets repository.TargetRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
) AccessService {
	return &accessService{actors: actors, access: access, targets: targets, audits: audits, txm: txm}
}

// --- Implementation ---

func (s *accessService) HasAccess(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID *uuid.UUID) (bool, error) {
	grant, positional, err := s.resolve(ctx, actorID, taskTypeID, role, targetID)
	if err != nil {
		return false, err
	}
	return grant != nil || positional, nil
}

func (s *accessService) Authorize(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID *uuid.UUID) error {
	grant, positional, err := s.resolve(ctx, actorID, taskTypeID, role, targetID)
	if err != nil {
		return err
	}
	if grant == nil && !positional {
		return s.denied(actorID, taskTypeID, role)
	}

	// A disposable grant authorizes exactly one transition; it is spent in
	// the same transaction as the guarded state change.
	if grant != nil && grant.Disposable() {
		if err := s.access.SetGrantState(ctx, grant.ID, model.GrantStateConsumed); err != nil {
			return fmt.Errorf("failed to consume disposable grant: %w", err)
		}
		details, _ := json.Marshal(map[string]any{
			"grant_id": grant.ID.String(),
			"role":     role,
		})
		entry := &model.AuditLog{
			ActorID:  &actorID,
			Action:   model.ActionConsumeGrant,
			EntityID: grant.ID.String(),
			Details:  string(details),
		}
		if err := s.audits.Log(ctx, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return nil
}

// resolve walks the grant layers. It returns the matching personal grant (if
// any) and whether a positional grant matched instead.
func (s *accessService) resolve(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID *uuid.UUID) (*model.ActorAccessLevel, bool, error) {
	actor, err := s.actors.GetActor(ctx, actorID)
	if err != nil {
		return nil, false, fmt.Errorf("unknown actor: %w", err)
	}
	if actor.Superuser {
		// explicit, auditable bypass for the SYSTEM actor
		return nil, true, nil
	}

	if targetID != nil {
		scoped, err := s.access.FindScopedGrant(ctx, actorID, taskTypeID, role, *targetID)
		if err != nil {
			return nil, false, err
		}
		if scoped != nil {
			return scoped, false, nil
		}
	}

	unscoped, err := s.access.FindUnscopedGrant(ctx, actorID, taskTypeID, role)
	if err != nil {
		return nil, false, err
	}
	if unscoped != nil {
		return unscoped, false, nil
	}

	emp, err := s.actors.GetEmployeeByActorID(ctx, actorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	ok, err := s.access.HasPositionGrant(ctx, emp.PositionID, taskTypeID, role)
	if err != nil {
		return nil, false, err
	}
	return nil, ok, nil
}

func (s *accessService) denied(actorID, taskTypeID uuid.UUID, role string) error {
	return &apperr.AccessDeniedError{ActorID: actorID, TaskType: taskTypeID.String(), Role: role}
}

func (s *accessService) Grant(ctx context.Context, issuerID uuid.UUID, req GrantAccessDTO) (*model.ActorAccessLevel, error) {
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("invalid actor_id: %w", err)
	}
	taskTypeID, err := uuid.Parse(req.TaskTypeID)
	if err != nil {
		return nil, fmt.Errorf("invalid task_type_id: %w", err)
	}
	if !model.ValidAccessRole(req.Role) {
		return nil, fmt.Errorf("invalid access role %q", req.Role)
	}

	var selectedID *uuid.UUID
	if req.SelectedTargetID != nil && *req.SelectedTargetID != "" {
		parsed, parseErr := uuid.Parse(*req.SelectedTargetID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid selected_target_id: %w", parseErr)
		}
		selectedID = &parsed
	}

	if _, err := s.actors.GetActor(ctx, actorID); err != nil {
		return nil, fmt.Errorf("unknown actor: %w", err)
	}

	var grant *model.ActorAccessLevel
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// Every grant issuance is itself a task target of kind access_grant,
		// anchoring the audit trail of who was given what.
		target := &model.TaskTarget{Kind: model.TargetKindAccessGrant}
		if err := s.targets.CreateTarget(txCtx, target); err != nil {
			return fmt.Errorf("failed to create grant target: %w", err)
		}

		grant = &model.ActorAccessLevel{
			ActorID:          actorID,
			TaskTypeID:       taskTypeID,
			TaskTargetID:     target.ID,
			Role:             req.Role,
			SelectedTargetID: selectedID,
			State:            model.GrantStateActive,
		}
		if err := s.access.CreateGrant(txCtx, grant); err != nil {
			return fmt.Errorf("failed to create grant: %w", err)
		}

		details, _ := json.Marshal(map[string]any{
			"actor_id":   actorID.String(),
			"role":       req.Role,
			"disposable": selectedID != nil,
		})
		entry := &model.AuditLog{
			ActorID:  &issuerID,
			Action:   model.ActionGrantAccess,
			EntityID: grant.ID.String(),
			Details:  string(details),
		}
		return s.audits.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *accessService) Revoke(ctx context.Context, issuerID, grantID uuid.UUID) error {
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		grant, err := s.access.GetGrant(txCtx, grantID)
		if err != nil {
			return fmt.Errorf("grant not found: %w", err)
		}
		if grant.State != model.GrantStateActive {
			return fmt.Errorf("grant is already %s", grant.State)
		}
		if err := s.access.SetGrantState(txCtx, grantID, model.GrantStateRevoked); err != nil {
			return fmt.Errorf("failed to revoke grant: %w", err)
		}

		entry := &model.AuditLog{
			ActorID:  &issuerID,
			Action:   model.ActionRevokeAccess,
			EntityID: grantID.String(),
		}
		return s.audits.Log(txCtx, entry)
	})
}

func (s *accessService) GrantPosition(ctx context.Context, issuerID uuid.UUID, req GrantPositionAccessDTO) (*model.RestaurantEmployeePositionAccessLevel, error) {
	positionID, err := uuid.Parse(req.PositionID)
	if err != nil {
		return nil, fmt.Errorf("invalid position_id: %w", err)
	}
	groupID, err := uuid.Parse(req.TaskTypeGroupID)
	if err != nil {
		return nil, fmt.Errorf("invalid task_type_group_id: %w", err)
	}
	if !model.ValidAccessRole(req.Role) {
		return nil, fmt.Errorf("invalid access role %q", req.Role)
	}

	grant := &model.RestaurantEmployeePositionAccessLevel{
		PositionID:      positionID,
		TaskTypeGroupID: groupID,
		Role:            req.Role,
	}
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.access.CreatePositionGrant(txCtx, grant); err != nil {
			return fmt.Errorf("failed to create position grant: %w", err)
		}
		details, _ := json.Marshal(map[string]any{
			"position_id": positionID.String(),
			"group_id":    groupID.String(),
			"role":        req.Role,
		})
		entry := &model.AuditLog{
			ActorID:  &issuerID,
			Action:   model.ActionGrantAccess,
			EntityID: grant.ID.String(),
			Details:  string(details),
		}
		return s.audits.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *accessService) ListGrants(ctx context.Context, actorID uuid.UUID) ([]model.ActorAccessLevel, error) {
	return s.access.ListGrantsByActor(ctx, actorID)
}

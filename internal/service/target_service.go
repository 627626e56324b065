package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restchain/internal/apperr"
	"restchain/internal/model"
	"restchain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// CreateTargetDTO carries the kind tag plus the payload fields for that
// kind. Only the fields relevant to the kind are read.
type CreateTargetDTO struct {
	Kind         string          `json:"kind" binding:"required"`
	RestaurantID string          `json:"restaurant_id"`
	EmployeeID   string          `json:"employee_id"`
	Supplier     string          `json:"supplier"`
	Name         string          `json:"name"`
	Reason       string          `json:"reason"`
	Amount       decimal.Decimal `json:"amount"`
	PeriodStart  *time.Time      `json:"period_start"`
	PeriodEnd    *time.Time      `json:"period_end"`
	Items        []SupplyItemDTO `json:"items"`
}

type SupplyItemDTO struct {
	Name  string          `json:"name" binding:"required"`
	Count int             `json:"count" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

// ResolvedTarget is the (kind, payload) pair a target id resolves to.
type ResolvedTarget struct {
	ID      uuid.UUID `json:"id"`
	Kind    string    `json:"kind"`
	Payload any       `json:"payload"`
}

// --- Interface ---

// TargetService is the task target registry. A target and its variant
// payload are created in one transaction and never mutated afterwards; the
// task and delegation engines only read from here.
type TargetService interface {
	CreateTarget(ctx context.Context, actorID uuid.UUID, req CreateTargetDTO) (*ResolvedTarget, error)
	Resolve(ctx context.Context, targetID uuid.UUID) (*ResolvedTarget, error)
	// VerifyIntegrity probes every variant table and fails unless exactly
	// one payload row exists for the target.
	VerifyIntegrity(ctx context.Context, targetID uuid.UUID) error
}

type targetService struct {
	targets repository.TargetRepository
	audits  repository.AuditRepository
	txm     repository.TransactionManager
}

func NewTargetService(targets repository.TargetRepository, audits repository.AuditRepository, txm repository.TransactionManager) TargetService {
	return &targetService{targets: targets, audits: audits, txm: txm}
}

// --- Implementation ---

func (s *targetService) CreateTarget(ctx context.Context, actorID uuid.UUID, req CreateTargetDTO) (*ResolvedTarget, error) {
	if !model.ValidTargetKind(req.Kind) {
		return nil, fmt.Errorf("unknown target kind %q", req.Kind)
	}
	if req.Kind == model.TargetKindAccessGrant {
		return nil, fmt.Errorf("access_grant targets are created through the access service")
	}

	var resolved *ResolvedTarget
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		target := &model.TaskTarget{Kind: req.Kind}
		if err := s.targets.CreateTarget(txCtx, target); err != nil {
			return fmt.Errorf("failed to create target: %w", err)
		}

		payload, err := s.buildPayload(target.ID, req)
		if err != nil {
			return err
		}
		if err := s.targets.CreatePayload(txCtx, payload); err != nil {
			return fmt.Errorf("failed to create %s payload: %w", req.Kind, err)
		}

		details, _ := json.Marshal(map[string]any{"kind": req.Kind})
		entry := &model.AuditLog{
			ActorID:  &actorID,
			Action:   model.ActionCreateTarget,
			EntityID: target.ID.String(),
			Details:  string(details),
		}
		if err := s.audits.Log(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		resolved = &ResolvedTarget{ID: target.ID, Kind: req.Kind, Payload: payload}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// buildPayload maps the flat DTO onto the variant struct for the kind.
func (s *targetService) buildPayload(targetID uuid.UUID, req CreateTargetDTO) (any, error) {
	restaurantID, err := parseOptionalUUID(req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("invalid restaurant_id: %w", err)
	}

	needsRestaurant := func() (uuid.UUID, error) {
		if restaurantID == nil {
			return uuid.Nil, fmt.Errorf("target kind %q requires restaurant_id", req.Kind)
		}
		return *restaurantID, nil
	}

	switch req.Kind {
	case model.TargetKindSupply:
		rid, err := needsRestaurant()
		if err != nil {
			return nil, err
		}
		supply := &model.Supply{
			TaskTargetID: targetID,
			RestaurantID: rid,
			Supplier:     req.Supplier,
			TotalCost:    req.Amount,
		}
		for _, item := range req.Items {
			supply.Items = append(supply.Items, model.SupplyItem{
				Name:  item.Name,
				Count: item.Count,
				Price: item.Price,
			})
		}
		return supply, nil

	case model.TargetKindSalary:
		rid, err := needsRestaurant()
		if err != nil {
			return nil, err
		}
		if req.PeriodStart == nil || req.PeriodEnd == nil {
			return nil, fmt.Errorf("salary target requires period_start and period_end")
		}
		employeeID, err := parseOptionalUUID(req.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("invalid employee_id: %w", err)
		}
		return &model.Salary{
			TaskTargetID: targetID,
			RestaurantID: rid,
			EmployeeID:   employeeID,
			Amount:       req.Amount,
			PeriodStart:  *req.PeriodStart,
			PeriodEnd:    *req.PeriodEnd,
		}, nil

	case model.TargetKindWriteOff:
		rid, err := needsRestaurant()
		if err != nil {
			return nil, err
		}
		if req.Reason == "" {
			return nil, fmt.Errorf("write_off target requires a reason")
		}
		return &model.WriteOff{
			TaskTargetID: targetID,
			RestaurantID: rid,
			Reason:       req.Reason,
			TotalCost:    req.Amount,
		}, nil

	case model.TargetKindCustomerOrder:
		rid, err := needsRestaurant()
		if err != nil {
			return nil, err
		}
		return &model.CustomerOrder{TaskTargetID: targetID, RestaurantID: rid, Total: req.Amount}, nil

	case model.TargetKindCustomerPayment:
		return &model.CustomerPayment{TaskTargetID: targetID, Value: req.Amount}, nil

	case model.TargetKindSupplyOrder:
		rid, err := needsRestaurant()
		if err != nil {
			return nil, err
		}
		return &model.SupplyOrder{
			TaskTargetID: targetID,
			RestaurantID: rid,
			Supplier:     req.Supplier,
			TotalCost:    req.Amount,
		}, nil

	case model.TargetKindSupplyPayment:
		return &model.SupplyPayment{TaskTargetID: targetID, Value: req.Amount}, nil

	case model.TargetKindDiscountGroup:
		if req.Name == "" {
			return nil, fmt.Errorf("discount_group target requires a name")
		}
		return &model.DiscountGroup{TaskTargetID: targetID, Name: req.Name}, nil

	case model.TargetKindDiscount:
		if req.Name == "" {
			return nil, fmt.Errorf("discount target requires a name")
		}
		return &model.Discount{TaskTargetID: targetID, Name: req.Name, Value: req.Amount}, nil

	default:
		return nil, fmt.Errorf("unknown target kind %q", req.Kind)
	}
}

func (s *targetService) Resolve(ctx context.Context, targetID uuid.UUID) (*ResolvedTarget, error) {
	target, err := s.targets.GetTarget(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("target not found: %w", err)
	}

	payload, err := s.targets.LoadPayload(ctx, target.Kind, targetID)
	if err != nil {
		if repository.IsNotFound(err) {
			// the kind tag points at a variant that does not exist
			return nil, &apperr.TargetIntegrityError{TargetID: targetID, Variants: 0}
		}
		return nil, err
	}

	return &ResolvedTarget{ID: target.ID, Kind: target.Kind, Payload: payload}, nil
}

func (s *targetService) VerifyIntegrity(ctx context.Context, targetID uuid.UUID) error {
	if _, err := s.targets.GetTarget(ctx, targetID); err != nil {
		return fmt.Errorf("target not found: %w", err)
	}
	count, err := s.targets.CountVariants(ctx, targetID)
	if err != nil {
		return err
	}
	if count != 1 {
		return &apperr.TargetIntegrityError{TargetID: targetID, Variants: count}
	}
	return nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

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

type RegisterDelegationDTO struct {
	DefaultActorID     string `json:"default_actor_id" binding:"required"`
	IncomingTaskTypeID string `json:"incoming_task_type_id" binding:"required"`
	OutgoingTaskTypeID string `json:"outgoing_task_type_id" binding:"required"`
	Source             string `json:"source" binding:"required"`
	Filter             string `json:"filter"`

	TaskName              string `json:"task_name" binding:"required"`
	TaskComment           string `json:"task_comment"`
	StartOffsetMinutes    int    `json:"start_offset_minutes"`
	FailOnLateStart       bool   `json:"fail_on_late_start"`
	CompleteOffsetMinutes int    `json:"complete_offset_minutes"`
	FailOnLateComplete    bool   `json:"fail_on_late_complete"`
}

// Attachment is one element of a resolved source collection: the actor who
// will execute the spawned task, the field map the filter predicate sees,
// and a payload builder for the spawned task's target.
type Attachment struct {
	ExecutorActorID uuid.UUID
	Fields          map[string]any
	BuildPayload    func(targetID uuid.UUID) any
}

// Source is a named, typed collection loader. Source names take the place
// of the free-form expressions the delegation rules are configured with —
// nothing here evaluates code.
type Source struct {
	// PayloadKind is the target kind of every payload the loader builds.
	PayloadKind string
	Load        func(ctx context.Context, task *model.Task, target *ResolvedTarget) ([]Attachment, error)
}

// --- Interface ---

// DelegationService spawns follow-up tasks when a task completes. It runs
// inside the completing transition's transaction; a malformed rule is
// surfaced as a warning and skipped, never rolled back onto the parent.
type DelegationService interface {
	Register(ctx context.Context, actorID uuid.UUID, req RegisterDelegationDTO) (*model.DefaultActorTaskDelegation, error)
	ListByOwner(ctx context.Context, defaultActorID uuid.UUID) ([]model.DefaultActorTaskDelegation, error)
	// OnTaskCompleted evaluates all matching rules. Rule-level failures come
	// back as warnings; the error return is reserved for storage failures,
	// which abort the whole transaction (spawns are atomic with the parent
	// transition).
	OnTaskCompleted(ctx context.Context, task *model.Task) (warnings []error, err error)
	// RegisterSource installs a named collection loader.
	RegisterSource(name string, src Source)
}

type delegationService struct {
	rules   repository.DelegationRepository
	tasks   repository.TaskRepository
	targets repository.TargetRepository
	actors  repository.ActorRepository
	audits  repository.AuditRepository
	txm     repository.TransactionManager
	resolve TargetService
	sources map[string]Source
}

func NewDelegationService(
	rules repository.DelegationRepository,
	tasks repository.TaskRepository,
	targets repository.TargetRepository,
	actors repository.ActorRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	resolver TargetService,
) DelegationService {
	s := &delegationService{
		rules:   rules,
		tasks:   tasks,
		targets: targets,
		actors:  actors,
		audits:  audits,
		txm:     txm,
		resolve: resolver,
		sources: make(map[string]Source),
	}
	s.RegisterSource("supply.items", Source{
		PayloadKind: model.TargetKindSupplyPayment,
		Load:        s.loadSupplyItems,
	})
	s.RegisterSource("restaurant.employees", Source{
		PayloadKind: model.TargetKindSalary,
		Load:        s.loadRestaurantEmployees,
	})
	return s
}

// --- Implementation ---

func (s *delegationService) RegisterSource(name string, src Source) {
	s.sources[name] = src
}

func (s *delegationService) Register(ctx context.Context, actorID uuid.UUID, req RegisterDelegationDTO) (*model.DefaultActorTaskDelegation, error) {
	ownerID, err := uuid.Parse(req.DefaultActorID)
	if err != nil {
		return nil, fmt.Errorf("invalid default_actor_id: %w", err)
	}
	incomingID, err := uuid.Parse(req.IncomingTaskTypeID)
	if err != nil {
		return nil, fmt.Errorf("invalid incoming_task_type_id: %w", err)
	}
	outgoingID, err := uuid.Parse(req.OutgoingTaskTypeID)
	if err != nil {
		return nil, fmt.Errorf("invalid outgoing_task_type_id: %w", err)
	}

	src, ok := s.sources[req.Source]
	if !ok {
		return nil, fmt.Errorf("unknown delegation source %q", req.Source)
	}
	if _, err := model.ParsePredicate(req.Filter); err != nil {
		return nil, err
	}
	if _, err := s.actors.GetDefaultActorByID(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("unknown default actor: %w", err)
	}
	if _, err := s.tasks.GetTaskType(ctx, incomingID); err != nil {
		return nil, fmt.Errorf("unknown incoming task type: %w", err)
	}
	if _, err := s.tasks.GetTaskType(ctx, outgoingID); err != nil {
		return nil, fmt.Errorf("unknown outgoing task type: %w", err)
	}

	rule := &model.DefaultActorTaskDelegation{
		DefaultActorID:        ownerID,
		IncomingTaskTypeID:    incomingID,
		OutgoingTaskTypeID:    outgoingID,
		Source:                req.Source,
		Filter:                req.Filter,
		AttachmentKind:        src.PayloadKind,
		TaskName:              req.TaskName,
		TaskComment:           req.TaskComment,
		StartOffsetMinutes:    req.StartOffsetMinutes,
		FailOnLateStart:       req.FailOnLateStart,
		CompleteOffsetMinutes: req.CompleteOffsetMinutes,
		FailOnLateComplete:    req.FailOnLateComplete,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rules.Create(txCtx, rule); err != nil {
			return fmt.Errorf("failed to register delegation: %w", err)
		}
		details, _ := json.Marshal(map[string]any{
			"source":   req.Source,
			"incoming": incomingID.String(),
			"outgoing": outgoingID.String(),
		})
		entry := &model.AuditLog{
			ActorID:  &actorID,
			Action:   model.ActionRegisterDelegation,
			EntityID: ownerID.String(),
			Details:  string(details),
		}
		return s.audits.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *delegationService) ListByOwner(ctx context.Context, defaultActorID uuid.UUID) ([]model.DefaultActorTaskDelegation, error) {
	return s.rules.ListByOwner(ctx, defaultActorID)
}

func (s *delegationService) OnTaskCompleted(ctx context.Context, task *model.Task) ([]error, error) {
	rules, err := s.rules.ListByIncomingType(ctx, task.TypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegation rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	target, err := s.resolve.Resolve(ctx, task.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task target: %w", err)
	}

	stakeholders, err := s.stakeholders(ctx, task, target)
	if err != nil {
		return nil, err
	}

	var warnings []error
	for _, rule := range rules {
		if !stakeholders[rule.DefaultActorID] {
			continue
		}
		if warn, hard := s.applyRule(ctx, &rule, task, target); hard != nil {
			return warnings, hard
		} else if warn != nil {
			warnings = append(warnings, warn)
			s.auditRuleFailure(ctx, &rule, task, warn)
		}
	}
	return warnings, nil
}

// stakeholders collects the default actors reachable from the task: rule
// owners whose actor is a participant, plus the restaurant's default actor
// when the target payload belongs to a restaurant.
func (s *delegationService) stakeholders(ctx context.Context, task *model.Task, target *ResolvedTarget) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)

	for _, actorID := range []uuid.UUID{task.AuthorID, task.ExecutorID, task.InspectorID} {
		da, err := s.actors.GetDefaultActorByActorID(ctx, actorID)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out[da.ID] = true
	}

	if rid, ok := payloadRestaurantID(target.Payload); ok {
		rest, err := s.actors.GetRestaurant(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("failed to load restaurant: %w", err)
		}
		out[rest.DefaultActorID] = true
	}
	return out, nil
}

// applyRule returns (warning, hardError). A warning fails only the rule.
func (s *delegationService) applyRule(ctx context.Context, rule *model.DefaultActorTaskDelegation, task *model.Task, target *ResolvedTarget) (error, error) {
	src, ok := s.sources[rule.Source]
	if !ok {
		return s.ruleError(rule, "unknown source %q", rule.Source), nil
	}

	pred, err := model.ParsePredicate(rule.Filter)
	if err != nil {
		return s.ruleError(rule, "bad filter: %v", err), nil
	}

	attachments, err := src.Load(ctx, task, target)
	if err != nil {
		return s.ruleError(rule, "source failed: %v", err), nil
	}

	owner, err := s.actors.GetDefaultActorByID(ctx, rule.DefaultActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule owner: %w", err)
	}

	now := time.Now().UTC()
	for _, att := range attachments {
		match, err := pred.Eval(att.Fields)
		if err != nil {
			return s.ruleError(rule, "filter failed: %v", err), nil
		}
		if !match {
			continue
		}
		if err := s.spawn(ctx, rule, owner, task, att, now); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// spawn creates one delegated child task: a fresh target of the rule's
// attachment kind, a task built from the rule's template, and a subtask edge
// under the completed parent.
func (s *delegationService) spawn(ctx context.Context, rule *model.DefaultActorTaskDelegation, owner *model.DefaultActor, parent *model.Task, att Attachment, now time.Time) error {
	target := &model.TaskTarget{Kind: rule.AttachmentKind}
	if err := s.targets.CreateTarget(ctx, target); err != nil {
		return fmt.Errorf("failed to create delegated target: %w", err)
	}
	if err := s.targets.CreatePayload(ctx, att.BuildPayload(target.ID)); err != nil {
		return fmt.Errorf("failed to create delegated payload: %w", err)
	}

	child := &model.Task{
		TypeID:             rule.OutgoingTaskTypeID,
		Name:               rule.TaskName,
		Comment:            rule.TaskComment,
		Status:             model.TaskStatusCreated,
		TargetID:           target.ID,
		AuthorID:           owner.ActorID,
		ExecutorID:         att.ExecutorActorID,
		InspectorID:        owner.ActorID,
		Created:            now,
		FailOnLateStart:    rule.FailOnLateStart,
		FailOnLateComplete: rule.FailOnLateComplete,
	}
	if rule.StartOffsetMinutes > 0 {
		at := now.Add(time.Duration(rule.StartOffsetMinutes) * time.Minute)
		child.StartExecution = &at
	}
	if rule.CompleteOffsetMinutes > 0 {
		at := now.Add(time.Duration(rule.CompleteOffsetMinutes) * time.Minute)
		child.CompleteBefore = &at
	}
	if err := s.tasks.Create(ctx, child); err != nil {
		return fmt.Errorf("failed to create delegated task: %w", err)
	}

	edge := &model.SubTask{ParentID: parent.ID, ChildID: child.ID}
	if err := s.tasks.CreateSubTask(ctx, edge); err != nil {
		return fmt.Errorf("failed to link delegated task: %w", err)
	}

	details, _ := json.Marshal(map[string]any{
		"parent_task": parent.ID.String(),
		"child_task":  child.ID.String(),
		"executor":    att.ExecutorActorID.String(),
	})
	entry := &model.AuditLog{
		ActorID:  &owner.ActorID,
		Action:   model.ActionDelegationSpawn,
		EntityID: child.ID.String(),
		Details:  string(details),
	}
	return s.audits.Log(ctx, entry)
}

func (s *delegationService) ruleError(rule *model.DefaultActorTaskDelegation, format string, args ...any) error {
	return &apperr.DelegationRuleError{
		OwnerID:      rule.DefaultActorID,
		IncomingType: rule.IncomingTaskTypeID.String(),
		Reason:       fmt.Sprintf(format, args...),
	}
}

func (s *delegationService) auditRuleFailure(ctx context.Context, rule *model.DefaultActorTaskDelegation, task *model.Task, warn error) {
	details, _ := json.Marshal(map[string]any{
		"task_id": task.ID.String(),
		"source":  rule.Source,
		"reason":  warn.Error(),
	})
	entry := &model.AuditLog{
		Action:   model.ActionDelegationFailure,
		EntityID: rule.DefaultActorID.String(),
		Details:  string(details),
	}
	// best effort; the warning is already surfaced to the caller
	_ = s.audits.Log(ctx, entry)
}

// --- built-in sources ---

// loadSupplyItems yields one attachment per supply line; each spawns a
// supply payment for the line's cost, executed by the restaurant's default
// actor.
func (s *delegationService) loadSupplyItems(ctx context.Context, task *model.Task, target *ResolvedTarget) ([]Attachment, error) {
	supply, ok := target.Payload.(*model.Supply)
	if !ok {
		return nil, fmt.Errorf("source supply.items needs a supply target, got %s", target.Kind)
	}
	rest, err := s.actors.GetRestaurant(ctx, supply.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}
	da, err := s.actors.GetDefaultActorByID(ctx, rest.DefaultActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant default actor: %w", err)
	}

	attachments := make([]Attachment, 0, len(supply.Items))
	for _, item := range supply.Items {
		item := item
		total := item.Price.Mul(decimal.NewFromInt(int64(item.Count)))
		attachments = append(attachments, Attachment{
			ExecutorActorID: da.ActorID,
			Fields: map[string]any{
				"name":  item.Name,
				"count": item.Count,
				"price": item.Price,
				"total": total,
			},
			BuildPayload: func(targetID uuid.UUID) any {
				return &model.SupplyPayment{
					TaskTargetID: targetID,
					SupplyID:     &supply.ID,
					Value:        total,
				}
			},
		})
	}
	return attachments, nil
}

// loadRestaurantEmployees yields one attachment per employee of the
// target's restaurant; each spawns a per-employee salary payload executed by
// the employee's own actor.
func (s *delegationService) loadRestaurantEmployees(ctx context.Context, task *model.Task, target *ResolvedTarget) ([]Attachment, error) {
	rid, ok := payloadRestaurantID(target.Payload)
	if !ok {
		return nil, fmt.Errorf("source restaurant.employees needs a restaurant-scoped target, got %s", target.Kind)
	}

	periodStart, periodEnd := monthBounds(time.Now().UTC())
	if salary, ok := target.Payload.(*model.Salary); ok {
		periodStart, periodEnd = salary.PeriodStart, salary.PeriodEnd
	}

	emps, err := s.actors.ListEmployeesByRestaurant(ctx, rid)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	attachments := make([]Attachment, 0, len(emps))
	for _, emp := range emps {
		emp := emp
		attachments = append(attachments, Attachment{
			ExecutorActorID: emp.User.ActorID,
			Fields: map[string]any{
				"position": emp.Position.Name,
				"salary":   emp.Position.Salary,
				"email":    emp.User.Email,
			},
			BuildPayload: func(targetID uuid.UUID) any {
				return &model.Salary{
					TaskTargetID: targetID,
					RestaurantID: rid,
					EmployeeID:   &emp.ID,
					Amount:       emp.Position.Salary,
					PeriodStart:  periodStart,
					PeriodEnd:    periodEnd,
				}
			},
		})
	}
	return attachments, nil
}

// payloadRestaurantID extracts the owning restaurant from payloads that
// have one.
func payloadRestaurantID(payload any) (uuid.UUID, bool) {
	switch p := payload.(type) {
	case *model.Supply:
		return p.RestaurantID, true
	case *model.Salary:
		return p.RestaurantID, true
	case *model.WriteOff:
		return p.RestaurantID, true
	case *model.CustomerOrder:
		return p.RestaurantID, true
	case *model.SupplyOrder:
		return p.RestaurantID, true
	default:
		return uuid.Nil, false
	}
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

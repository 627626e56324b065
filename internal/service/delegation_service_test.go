package service

import (
	"context"
	"testing"
	"time"

	"restchain/internal/model"
	"restchain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type delegationFixture struct {
	tasks   *fakeTaskRepo
	actors  *fakeActorRepo
	targets *fakeTargetRepo
	audits  *fakeAuditRepo
	rules   *fakeDelegationRepo
	svc     DelegationService
}

func newDelegationFixture() *delegationFixture {
	f := &delegationFixture{
		tasks:   newFakeTaskRepo(),
		actors:  newFakeActorRepo(),
		targets: newFakeTargetRepo(),
		audits:  &fakeAuditRepo{},
		rules:   &fakeDelegationRepo{},
	}
	txm := fakeTxManager{}
	targetSvc := NewTargetService(f.targets, f.audits, txm)
	f.svc = NewDelegationService(f.rules, f.tasks, f.targets, f.actors, f.audits, txm, targetSvc)
	return f
}

// addRestaurant registers a restaurant with its own default actor and
// returns (restaurantID, defaultActorID, defaultActor's actorID).
func (f *delegationFixture) addRestaurant(name string) (uuid.UUID, uuid.UUID, uuid.UUID) {
	actorID := f.actors.addActor(false)
	da := &model.DefaultActor{ID: uuid.New(), ActorID: actorID, Name: name}
	f.actors.defaultActors[da.ID] = da

	rest := &model.Restaurant{ID: uuid.New(), Name: name, DefaultActorID: da.ID}
	f.actors.restaurants[rest.ID] = rest
	return rest.ID, da.ID, actorID
}

// addSupplyTarget stores a supply payload with the given (count, price) lines.
func (f *delegationFixture) addSupplyTarget(restaurantID uuid.UUID, lines ...model.SupplyItem) uuid.UUID {
	target := &model.TaskTarget{Kind: model.TargetKindSupply}
	_ = f.targets.CreateTarget(context.Background(), target)
	_ = f.targets.CreatePayload(context.Background(), &model.Supply{
		ID:           uuid.New(),
		TaskTargetID: target.ID,
		RestaurantID: restaurantID,
		Items:        lines,
	})
	return target.ID
}

func (f *delegationFixture) completedTask(typeID, targetID uuid.UUID) *model.Task {
	actor := f.actors.addActor(false)
	task := &model.Task{
		TypeID:      typeID,
		Name:        "completed parent",
		Status:      model.TaskStatusCompleted,
		TargetID:    targetID,
		AuthorID:    actor,
		ExecutorID:  actor,
		InspectorID: actor,
	}
	_ = f.tasks.Create(context.Background(), task)
	return task
}

func TestDelegationSpawnsPerSupplyItem(t *testing.T) {
	f := newDelegationFixture()
	restID, daID, daActorID := f.addRestaurant("downtown")
	incoming := f.tasks.addTaskType("receive_supply")
	outgoing := f.tasks.addTaskType("pay_supplier")

	f.rules.rules = append(f.rules.rules, model.DefaultActorTaskDelegation{
		DefaultActorID:        daID,
		IncomingTaskTypeID:    incoming,
		OutgoingTaskTypeID:    outgoing,
		Source:                "supply.items",
		AttachmentKind:        model.TargetKindSupplyPayment,
		TaskName:              "pay line item",
		CompleteOffsetMinutes: 60,
	})

	targetID := f.addSupplyTarget(restID,
		model.SupplyItem{Name: "flour", Count: 10, Price: decimal.NewFromInt(3)},
		model.SupplyItem{Name: "oil", Count: 2, Price: decimal.NewFromInt(15)},
		model.SupplyItem{Name: "salt", Count: 1, Price: decimal.NewFromInt(1)},
	)
	parent := f.completedTask(incoming, targetID)

	warnings, err := f.svc.OnTaskCompleted(context.Background(), parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	children, _, _ := f.tasks.List(context.Background(), taskFilterByType(outgoing))
	if len(children) != 3 {
		t.Fatalf("expected 3 spawned tasks, got %d", len(children))
	}
	for _, child := range children {
		if child.Status != model.TaskStatusCreated {
			t.Errorf("spawned task status = %s, want created", child.Status)
		}
		if child.ExecutorID != daActorID {
			t.Error("supply payments must be executed by the restaurant's default actor")
		}
		if child.CompleteBefore == nil {
			t.Error("complete offset must set a deadline")
		}
		// every child carries its own fresh target with a payment payload
		target, err := f.targets.GetTarget(context.Background(), child.TargetID)
		if err != nil {
			t.Fatal(err)
		}
		if target.Kind != model.TargetKindSupplyPayment {
			t.Errorf("child target kind = %s", target.Kind)
		}
		payload, err := f.targets.LoadPayload(context.Background(), target.Kind, target.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := payload.(*model.SupplyPayment); !ok {
			t.Errorf("child payload type = %T", payload)
		}
	}

	edges, _ := f.tasks.ListSubTasks(context.Background(), parent.ID)
	if len(edges) != 3 {
		t.Errorf("expected 3 subtask edges under the parent, got %d", len(edges))
	}
	if got := f.audits.countAction(model.ActionDelegationSpawn); got != 3 {
		t.Errorf("expected 3 spawn audit entries, got %d", got)
	}
}

func TestDelegationFilterNarrowsAttachments(t *testing.T) {
	f := newDelegationFixture()
	restID, daID, _ := f.addRestaurant("uptown")
	incoming := f.tasks.addTaskType("receive_supply")
	outgoing := f.tasks.addTaskType("pay_supplier")

	f.rules.rules = append(f.rules.rules, model.DefaultActorTaskDelegation{
		DefaultActorID:     daID,
		IncomingTaskTypeID: incoming,
		OutgoingTaskTypeID: outgoing,
		Source:             "supply.items",
		Filter:             `{"field":"total","op":"gt","value":20}`,
		AttachmentKind:     model.TargetKindSupplyPayment,
		TaskName:           "pay big line",
	})

	targetID := f.addSupplyTarget(restID,
		model.SupplyItem{Name: "flour", Count: 10, Price: decimal.NewFromInt(3)}, // total 30
		model.SupplyItem{Name: "salt", Count: 1, Price: decimal.NewFromInt(1)},  // total 1
	)
	parent := f.completedTask(incoming, targetID)

	warnings, err := f.svc.OnTaskCompleted(context.Background(), parent)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("OnTaskCompleted = (%v, %v)", warnings, err)
	}

	children, _, _ := f.tasks.List(context.Background(), taskFilterByType(outgoing))
	if len(children) != 1 {
		t.Fatalf("filter should pass exactly one item, got %d", len(children))
	}
	if children[0].Name != "pay big line" {
		t.Errorf("spawned task name = %s", children[0].Name)
	}
}

func TestDelegationSkipsNonStakeholderRules(t *testing.T) {
	f := newDelegationFixture()
	restID, _, _ := f.addRestaurant("downtown")
	incoming := f.tasks.addTaskType("receive_supply")
	outgoing := f.tasks.addTaskType("pay_supplier")

	// a rule owned by an unrelated default actor
	strangerActor := f.actors.addActor(false)
	stranger := &model.DefaultActor{ID: uuid.New(), ActorID: strangerActor, Name: "other-branch"}
	f.actors.defaultActors[stranger.ID] = stranger

	f.rules.rules = append(f.rules.rules, model.DefaultActorTaskDelegation{
		DefaultActorID:     stranger.ID,
		IncomingTaskTypeID: incoming,
		OutgoingTaskTypeID: outgoing,
		Source:             "supply.items",
		AttachmentKind:     model.TargetKindSupplyPayment,
		TaskName:           "should not run",
	})

	targetID := f.addSupplyTarget(restID,
		model.SupplyItem{Name: "flour", Count: 1, Price: decimal.NewFromInt(3)},
	)
	parent := f.completedTask(incoming, targetID)

	warnings, err := f.svc.OnTaskCompleted(context.Background(), parent)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("OnTaskCompleted = (%v, %v)", warnings, err)
	}
	if children, _, _ := f.tasks.List(context.Background(), taskFilterByType(outgoing)); len(children) != 0 {
		t.Error("non-stakeholder rules must not fire")
	}
}

func TestDelegationRuleFailureIsIsolated(t *testing.T) {
	f := newDelegationFixture()
	restID, daID, _ := f.addRestaurant("downtown")
	incoming := f.tasks.addTaskType("receive_supply")
	outgoing := f.tasks.addTaskType("pay_supplier")

	// first rule is broken (unregistered source), second is fine
	f.rules.rules = append(f.rules.rules,
		model.DefaultActorTaskDelegation{
			DefaultActorID:     daID,
			IncomingTaskTypeID: incoming,
			OutgoingTaskTypeID: outgoing,
			Source:             "legacy.script",
			AttachmentKind:     model.TargetKindSupplyPayment,
			TaskName:           "broken",
		},
		model.DefaultActorTaskDelegation{
			DefaultActorID:     daID,
			IncomingTaskTypeID: incoming,
			OutgoingTaskTypeID: outgoing,
			Source:             "supply.items",
			AttachmentKind:     model.TargetKindSupplyPayment,
			TaskName:           "works",
		},
	)

	targetID := f.addSupplyTarget(restID,
		model.SupplyItem{Name: "flour", Count: 1, Price: decimal.NewFromInt(3)},
	)
	parent := f.completedTask(incoming, targetID)

	warnings, err := f.svc.OnTaskCompleted(context.Background(), parent)
	if err != nil {
		t.Fatalf("a broken rule must not abort the completion: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if children, _, _ := f.tasks.List(context.Background(), taskFilterByType(outgoing)); len(children) != 1 {
		t.Error("healthy rules must still fire")
	}
	if f.audits.countAction(model.ActionDelegationFailure) != 1 {
		t.Error("rule failures must be audited")
	}
}

func TestDelegationSpawnsSalariesPerEmployee(t *testing.T) {
	f := newDelegationFixture()
	restID, daID, _ := f.addRestaurant("downtown")
	incoming := f.tasks.addTaskType("run_payroll")
	outgoing := f.tasks.addTaskType("pay_salary")

	position := model.RestaurantEmployeePosition{ID: uuid.New(), Name: "cook", Salary: decimal.NewFromInt(2500)}
	var wantExecutors []uuid.UUID
	for i := 0; i < 2; i++ {
		empActor := f.actors.addActor(false)
		user := &model.User{ID: uuid.New(), ActorID: empActor}
		emp := model.RestaurantEmployee{
			ID:           uuid.New(),
			UserID:       user.ID,
			User:         *user,
			RestaurantID: restID,
			PositionID:   position.ID,
			Position:     position,
		}
		f.actors.employeesByRestaurant[restID] = append(f.actors.employeesByRestaurant[restID], emp)
		wantExecutors = append(wantExecutors, empActor)
	}

	f.rules.rules = append(f.rules.rules, model.DefaultActorTaskDelegation{
		DefaultActorID:     daID,
		IncomingTaskTypeID: incoming,
		OutgoingTaskTypeID: outgoing,
		Source:             "restaurant.employees",
		AttachmentKind:     model.TargetKindSalary,
		TaskName:           "collect salary",
	})

	// the payroll run itself is a whole-restaurant salary target
	periodStart := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	target := &model.TaskTarget{Kind: model.TargetKindSalary}
	_ = f.targets.CreateTarget(context.Background(), target)
	_ = f.targets.CreatePayload(context.Background(), &model.Salary{
		ID:           uuid.New(),
		TaskTargetID: target.ID,
		RestaurantID: restID,
		Amount:       decimal.NewFromInt(5000),
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
	})
	parent := f.completedTask(incoming, target.ID)

	warnings, err := f.svc.OnTaskCompleted(context.Background(), parent)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("OnTaskCompleted = (%v, %v)", warnings, err)
	}

	children, _, _ := f.tasks.List(context.Background(), taskFilterByType(outgoing))
	if len(children) != 2 {
		t.Fatalf("expected one salary task per employee, got %d", len(children))
	}
	seen := map[uuid.UUID]bool{}
	for _, child := range children {
		seen[child.ExecutorID] = true
		payload, err := f.targets.LoadPayload(context.Background(), model.TargetKindSalary, child.TargetID)
		if err != nil {
			t.Fatal(err)
		}
		salary := payload.(*model.Salary)
		if !salary.Amount.Equal(position.Salary) {
			t.Errorf("salary amount = %s, want %s", salary.Amount, position.Salary)
		}
		if !salary.PeriodStart.Equal(periodStart) || !salary.PeriodEnd.Equal(periodEnd) {
			t.Error("spawned salaries must inherit the parent pay period")
		}
	}
	for _, want := range wantExecutors {
		if !seen[want] {
			t.Errorf("employee actor %s got no salary task", want)
		}
	}
}

func TestRegisterValidatesRule(t *testing.T) {
	f := newDelegationFixture()
	_, daID, _ := f.addRestaurant("downtown")
	incoming := f.tasks.addTaskType("receive_supply")
	outgoing := f.tasks.addTaskType("pay_supplier")
	actorID := f.actors.addActor(true)

	base := RegisterDelegationDTO{
		DefaultActorID:     daID.String(),
		IncomingTaskTypeID: incoming.String(),
		OutgoingTaskTypeID: outgoing.String(),
		Source:             "supply.items",
		TaskName:           "pay line item",
	}

	if _, err := f.svc.Register(context.Background(), actorID, base); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	bad := base
	bad.Source = "python.eval"
	if _, err := f.svc.Register(context.Background(), actorID, bad); err == nil {
		t.Error("unknown source must be rejected at registration")
	}

	bad = base
	bad.Filter = "{broken"
	if _, err := f.svc.Register(context.Background(), actorID, bad); err == nil {
		t.Error("malformed filter must be rejected at registration")
	}

	bad = base
	bad.DefaultActorID = uuid.New().String()
	if _, err := f.svc.Register(context.Background(), actorID, bad); err == nil {
		t.Error("unknown owner must be rejected at registration")
	}
}

func taskFilterByType(typeID uuid.UUID) repository.TaskFilter {
	return repository.TaskFilter{TypeID: &typeID}
}

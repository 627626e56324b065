package service

import (
	"context"
	"time"

	"restchain/internal/model"
	"restchain/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the storage semantics the services
// rely on: gorm.ErrRecordNotFound for missing rows, uuid assignment on
// create, and no transactional isolation (the fake tx manager just runs the
// function).

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// --- actors ---

type fakeActorRepo struct {
	actors        map[uuid.UUID]*model.Actor
	users         map[uuid.UUID]*model.User
	defaultActors map[uuid.UUID]*model.DefaultActor
	employees     map[uuid.UUID]*model.RestaurantEmployee // keyed by actor id
	restaurants   map[uuid.UUID]*model.Restaurant

	employeesByRestaurant map[uuid.UUID][]model.RestaurantEmployee
}

func newFakeActorRepo() *fakeActorRepo {
	return &fakeActorRepo{
		actors:                make(map[uuid.UUID]*model.Actor),
		users:                 make(map[uuid.UUID]*model.User),
		defaultActors:         make(map[uuid.UUID]*model.DefaultActor),
		employees:             make(map[uuid.UUID]*model.RestaurantEmployee),
		restaurants:           make(map[uuid.UUID]*model.Restaurant),
		employeesByRestaurant: make(map[uuid.UUID][]model.RestaurantEmployee),
	}
}

func (r *fakeActorRepo) addActor(superuser bool) uuid.UUID {
	a := &model.Actor{ID: uuid.New(), Superuser: superuser, CreatedAt: time.Now()}
	r.actors[a.ID] = a
	return a.ID
}

func (r *fakeActorRepo) CreateActor(_ context.Context, actor *model.Actor) error {
	if actor.ID == uuid.Nil {
		actor.ID = uuid.New()
	}
	r.actors[actor.ID] = actor
	return nil
}

func (r *fakeActorRepo) GetActor(_ context.Context, id uuid.UUID) (*model.Actor, error) {
	a, ok := r.actors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *fakeActorRepo) CreateUser(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeActorRepo) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeActorRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeActorRepo) ListUsers(_ context.Context, _, _ int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeActorRepo) DeleteUser(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeActorRepo) CreateDefaultActor(_ context.Context, da *model.DefaultActor) error {
	if da.ID == uuid.Nil {
		da.ID = uuid.New()
	}
	r.defaultActors[da.ID] = da
	return nil
}

func (r *fakeActorRepo) GetDefaultActorByID(_ context.Context, id uuid.UUID) (*model.DefaultActor, error) {
	da, ok := r.defaultActors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return da, nil
}

func (r *fakeActorRepo) GetDefaultActorByName(_ context.Context, name string) (*model.DefaultActor, error) {
	for _, da := range r.defaultActors {
		if da.Name == name {
			return da, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeActorRepo) GetDefaultActorByActorID(_ context.Context, actorID uuid.UUID) (*model.DefaultActor, error) {
	for _, da := range r.defaultActors {
		if da.ActorID == actorID {
			return da, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeActorRepo) GetEmployeeByActorID(_ context.Context, actorID uuid.UUID) (*model.RestaurantEmployee, error) {
	emp, ok := r.employees[actorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return emp, nil
}

func (r *fakeActorRepo) ListEmployeesByRestaurant(_ context.Context, restaurantID uuid.UUID) ([]model.RestaurantEmployee, error) {
	return r.employeesByRestaurant[restaurantID], nil
}

func (r *fakeActorRepo) GetRestaurant(_ context.Context, id uuid.UUID) (*model.Restaurant, error) {
	rest, ok := r.restaurants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rest, nil
}

// --- tasks ---

type fakeTaskRepo struct {
	tasks     map[uuid.UUID]*model.Task
	edges     []model.SubTask
	taskTypes map[uuid.UUID]*model.TaskType
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks:     make(map[uuid.UUID]*model.Task),
		taskTypes: make(map[uuid.UUID]*model.TaskType),
	}
}

func (r *fakeTaskRepo) addTaskType(name string) uuid.UUID {
	tt := &model.TaskType{ID: uuid.New(), Name: name}
	r.taskTypes[tt.ID] = tt
	return tt.ID
}

func (r *fakeTaskRepo) Create(_ context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTaskRepo) Update(_ context.Context, task *model.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]model.Task, int64, error) {
	var out []model.Task
	for _, task := range r.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.TypeID != nil && task.TypeID != *filter.TypeID {
			continue
		}
		if filter.ExecutorID != nil && task.ExecutorID != *filter.ExecutorID {
			continue
		}
		out = append(out, *task)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTaskRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, task := range r.tasks {
		counts[task.Status]++
	}
	return counts, nil
}

func (r *fakeTaskRepo) CreateSubTask(_ context.Context, edge *model.SubTask) error {
	r.edges = append(r.edges, *edge)
	return nil
}

func (r *fakeTaskRepo) ListSubTasks(_ context.Context, parentID uuid.UUID) ([]model.SubTask, error) {
	var out []model.SubTask
	for _, e := range r.edges {
		if e.ParentID == parentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListParentEdges(_ context.Context, childID uuid.UUID) ([]model.SubTask, error) {
	var out []model.SubTask
	for _, e := range r.edges {
		if e.ChildID == childID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) CountLate(_ context.Context, now time.Time) (int64, int64, error) {
	var lateStart, lateComplete int64
	for _, task := range r.tasks {
		if task.Status == model.TaskStatusCreated && task.StartExecution != nil && !task.StartExecution.After(now) {
			lateStart++
		}
		live := task.Status == model.TaskStatusCreated || task.Status == model.TaskStatusExecutionStarted
		if live && task.CompleteBefore != nil && !task.CompleteBefore.After(now) {
			lateComplete++
		}
	}
	return lateStart, lateComplete, nil
}

func (r *fakeTaskRepo) GetTaskType(_ context.Context, id uuid.UUID) (*model.TaskType, error) {
	tt, ok := r.taskTypes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tt, nil
}

func (r *fakeTaskRepo) GetTaskTypeByName(_ context.Context, name string) (*model.TaskType, error) {
	for _, tt := range r.taskTypes {
		if tt.Name == name {
			return tt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTaskRepo) CreateTaskType(_ context.Context, tt *model.TaskType) error {
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	r.taskTypes[tt.ID] = tt
	return nil
}

func (r *fakeTaskRepo) CreateTaskTypeGroup(_ context.Context, g *model.TaskTypeGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// --- access ---

type fakeAccessRepo struct {
	grants     map[uuid.UUID]*model.ActorAccessLevel
	positional []model.RestaurantEmployeePositionAccessLevel
	// groupTypes maps a task type group to its member task types
	groupTypes map[uuid.UUID][]uuid.UUID
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{
		grants:     make(map[uuid.UUID]*model.ActorAccessLevel),
		groupTypes: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *fakeAccessRepo) CreateGrant(_ context.Context, grant *model.ActorAccessLevel) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	copied := *grant
	r.grants[grant.ID] = &copied
	return nil
}

func (r *fakeAccessRepo) GetGrant(_ context.Context, id uuid.UUID) (*model.ActorAccessLevel, error) {
	g, ok := r.grants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeAccessRepo) FindScopedGrant(_ context.Context, actorID, taskTypeID uuid.UUID, role string, targetID uuid.UUID) (*model.ActorAccessLevel, error) {
	for _, g := range r.grants {
		if g.ActorID == actorID && g.TaskTypeID == taskTypeID && g.Role == role &&
			g.State == model.GrantStateActive &&
			g.SelectedTargetID != nil && *g.SelectedTargetID == targetID {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccessRepo) FindUnscopedGrant(_ context.Context, actorID, taskTypeID uuid.UUID, role string) (*model.ActorAccessLevel, error) {
	for _, g := range r.grants {
		if g.ActorID == actorID && g.TaskTypeID == taskTypeID && g.Role == role &&
			g.State == model.GrantStateActive && g.SelectedTargetID == nil {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccessRepo) SetGrantState(_ context.Context, id uuid.UUID, state string) error {
	g, ok := r.grants[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	g.State = state
	return nil
}

func (r *fakeAccessRepo) ListGrantsByActor(_ context.Context, actorID uuid.UUID) ([]model.ActorAccessLevel, error) {
	var out []model.ActorAccessLevel
	for _, g := range r.grants {
		if g.ActorID == actorID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeAccessRepo) CreatePositionGrant(_ context.Context, grant *model.RestaurantEmployeePositionAccessLevel) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	r.positional = append(r.positional, *grant)
	return nil
}

func (r *fakeAccessRepo) HasPositionGrant(_ context.Context, positionID, taskTypeID uuid.UUID, role string) (bool, error) {
	for _, g := range r.positional {
		if g.PositionID != positionID || g.Role != role {
			continue
		}
		for _, tt := range r.groupTypes[g.TaskTypeGroupID] {
			if tt == taskTypeID {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- targets ---

type fakeTargetRepo struct {
	targets  map[uuid.UUID]*model.TaskTarget
	payloads map[uuid.UUID][]any // targetID -> variant rows
}

func newFakeTargetRepo() *fakeTargetRepo {
	return &fakeTargetRepo{
		targets:  make(map[uuid.UUID]*model.TaskTarget),
		payloads: make(map[uuid.UUID][]any),
	}
}

func (r *fakeTargetRepo) CreateTarget(_ context.Context, target *model.TaskTarget) error {
	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	r.targets[target.ID] = target
	return nil
}

func (r *fakeTargetRepo) GetTarget(_ context.Context, id uuid.UUID) (*model.TaskTarget, error) {
	t, ok := r.targets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *fakeTargetRepo) CreatePayload(_ context.Context, payload any) error {
	id := payloadTargetID(payload)
	r.payloads[id] = append(r.payloads[id], payload)
	return nil
}

func (r *fakeTargetRepo) LoadPayload(_ context.Context, kind string, targetID uuid.UUID) (any, error) {
	rows := r.payloads[targetID]
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return rows[0], nil
}

func (r *fakeTargetRepo) CountVariants(_ context.Context, targetID uuid.UUID) (int, error) {
	return len(r.payloads[targetID]), nil
}

func payloadTargetID(payload any) uuid.UUID {
	switch p := payload.(type) {
	case *model.Supply:
		return p.TaskTargetID
	case *model.Salary:
		return p.TaskTargetID
	case *model.WriteOff:
		return p.TaskTargetID
	case *model.CustomerOrder:
		return p.TaskTargetID
	case *model.CustomerPayment:
		return p.TaskTargetID
	case *model.SupplyOrder:
		return p.TaskTargetID
	case *model.SupplyPayment:
		return p.TaskTargetID
	case *model.ActorAccessLevel:
		return p.TaskTargetID
	case *model.DiscountGroup:
		return p.TaskTargetID
	case *model.Discount:
		return p.TaskTargetID
	default:
		return uuid.Nil
	}
}

// --- delegations ---

type fakeDelegationRepo struct {
	rules []model.DefaultActorTaskDelegation
}

func (r *fakeDelegationRepo) Create(_ context.Context, rule *model.DefaultActorTaskDelegation) error {
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeDelegationRepo) ListByIncomingType(_ context.Context, taskTypeID uuid.UUID) ([]model.DefaultActorTaskDelegation, error) {
	var out []model.DefaultActorTaskDelegation
	for _, rule := range r.rules {
		if rule.IncomingTaskTypeID == taskTypeID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeDelegationRepo) ListByOwner(_ context.Context, defaultActorID uuid.UUID) ([]model.DefaultActorTaskDelegation, error) {
	var out []model.DefaultActorTaskDelegation
	for _, rule := range r.rules {
		if rule.DefaultActorID == defaultActorID {
			out = append(out, rule)
		}
	}
	return out, nil
}

// --- audits ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, f repository.AuditFilter, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range r.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) countAction(action string) int {
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

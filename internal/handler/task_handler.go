package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/repository"
	"restchain/internal/service"
	"restchain/pkg/pagination"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	taskService service.TaskService
}

func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/api/tasks", middleware.RequireActor())
	{
		tasks.POST("", h.CreateTask)
		tasks.GET("", h.ListTasks)
		tasks.GET("/:id", h.GetTask)
		tasks.PATCH("/:id", h.UpdateTask)
		tasks.PUT("/:id/status", h.Transition)
		tasks.POST("/:id/subtasks", h.CreateSubTask)
		tasks.GET("/:id/subtasks", h.ListSubTaskBunches)
	}
}

// CreateTask creates a task in status "created"; the caller becomes its author.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	var req service.CreateTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// ListTasks returns tasks, optionally filtered by status, type and executor
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p := pagination.Parse(c)

	filter := repository.TaskFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}
	if raw := c.Query("type_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid type_id"))
			return
		}
		filter.TypeID = &id
	}
	if raw := c.Query("executor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid executor_id"))
			return
		}
		filter.ExecutorID = &id
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, tasks, total, p.Page, p.Limit))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid task id"))
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), actorID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// UpdateTask edits the mutable fields of a non-terminal task and marks it
// changed.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid task id"))
		return
	}

	var req service.UpdateTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actorID, taskID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// Transition moves a task along its status graph. Completing a task also
// runs the owner's delegation rules before the transaction commits.
func (h *TaskHandler) Transition(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid task id"))
		return
	}

	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	task, err := h.taskService.Transition(c.Request.Context(), taskID, req.Status, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

type createSubTaskDTO struct {
	ChildID  string `json:"child_id" binding:"required"`
	Priority int    `json:"priority"`
}

// CreateSubTask links an existing task under a parent with a bunch priority
func (h *TaskHandler) CreateSubTask(c *gin.Context) {
	actorID, _ := middleware.ActorID(c)
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid task id"))
		return
	}

	var req createSubTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid child_id"))
		return
	}

	if err := h.taskService.CreateSubTask(c.Request.Context(), actorID, parentID, childID, req.Priority); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{
		"parent_id": parentID,
		"child_id":  childID,
		"priority":  req.Priority,
	}))
}

// ListSubTaskBunches returns the children of a task grouped by priority:
// bunches run in order, members of a bunch run in parallel.
func (h *TaskHandler) ListSubTaskBunches(c *gin.Context) {
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid task id"))
		return
	}

	bunches, err := h.taskService.SubTaskBunches(c.Request.Context(), parentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bunches))
}

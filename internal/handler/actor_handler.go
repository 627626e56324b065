package handler

import (
	"net/http"

	"restchain/internal/middleware"
	"restchain/internal/service"
	"restchain/pkg/pagination"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ActorHandler struct {
	actorService service.ActorService
}

func NewActorHandler(actorService service.ActorService) *ActorHandler {
	return &ActorHandler{actorService: actorService}
}

func (h *ActorHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireActor(), h.Me)
	}

	actors := router.Group("/api/actors", middleware.RequireActor())
	{
		actors.GET("/:id", h.GetActor)
		actors.POST("/defaults", h.CreateDefaultActor)
	}

	users := router.Group("/api/users", middleware.RequireActor())
	{
		users.GET("", h.ListUsers)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// Register creates a user together with its backing actor row
func (h *ActorHandler) Register(c *gin.Context) {
	var req service.RegisterUserDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	user, err := h.actorService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login checks credentials and returns a JWT, also set as an HttpOnly cookie
func (h *ActorHandler) Login(c *gin.Context) {
	var req service.LoginDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	token, err := h.actorService.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	middleware.SetTokenCookie(c, token.Token)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, token))
}

func (h *ActorHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "logged out"}))
}

// Me returns the caller's actor record
func (h *ActorHandler) Me(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	actor, err := h.actorService.GetActor(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "actor not found"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, actor))
}

func (h *ActorHandler) GetActor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid actor id"))
		return
	}

	actor, err := h.actorService.GetActor(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "actor not found"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, actor))
}

// CreateDefaultActor registers a named non-human actor (delegation rule owner)
func (h *ActorHandler) CreateDefaultActor(c *gin.Context) {
	var req service.CreateDefaultActorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	da, err := h.actorService.CreateDefaultActor(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, da))
}

func (h *ActorHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)

	users, total, err := h.actorService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, users, total, p.Page, p.Limit))
}

// DeleteUser soft-deletes the user record; the actor row stays
func (h *ActorHandler) DeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid user id"))
		return
	}

	if err := h.actorService.DeleteUser(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id}))
}

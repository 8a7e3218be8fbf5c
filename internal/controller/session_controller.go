package controller

import (
	"session_control_backend/internal/service"
	"session_control_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	service *service.SessionService
}

func NewSessionController(s *service.SessionService) *SessionController {
	return &SessionController{service: s}
}

// CreateSession godoc
// @Summary 创建课堂
// @Description Creates a waiting session with a fresh 8 character join code
// @Tags sessions
// @Accept json
// @Produce json
// @Param body body service.CreateSessionInput true "associations"
// @Success 201 {object} util.Response{data=model.SessionDetails}
// @Failure 400 {object} util.Response
// @Router /api/sessions/create [post]
func (c *SessionController) CreateSession(ctx *gin.Context) {
	var req service.CreateSessionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	details, err := c.service.Create(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, details)
}

// ListSessions godoc
// @Summary 课堂列表
// @Tags sessions
// @Produce json
// @Success 200 {object} util.Response{data=[]model.SessionDetails}
// @Router /api/sessions [get]
func (c *SessionController) ListSessions(ctx *gin.Context) {
	list, err := c.service.List(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetSession godoc
// @Summary 课堂详情
// @Tags sessions
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response{data=model.SessionDetails}
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	details, err := c.service.Details(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, details)
}

// GetStatus godoc
// @Summary 课堂状态
// @Tags sessions
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response{data=service.SessionStatusView}
// @Failure 404 {object} util.Response
// @Router /api/sessions/status/{id} [get]
func (c *SessionController) GetStatus(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	status, err := c.service.Status(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// DeleteSession godoc
// @Summary 删除课堂
// @Description Removes the session with its associations, answers, notes and ratings
// @Tags sessions
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/delete/{id} [delete]
func (c *SessionController) DeleteSession(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	if err := c.service.Delete(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session_id": id})
}

type EnterSessionRequest struct {
	Code        string `json:"code" binding:"required"`
	RequesterID FlexID `json:"requester_id" swaggertype:"string"`
	Type        string `json:"type"`
}

// EnterSession godoc
// @Summary 加入课堂
// @Description type "student" enrolls as a student, any other value as a teacher
// @Tags sessions
// @Accept json
// @Produce json
// @Param body body EnterSessionRequest true "join request"
// @Success 200 {object} util.Response{data=service.EnterResult}
// @Failure 404 {object} util.Response
// @Router /api/sessions/enter [post]
func (c *SessionController) EnterSession(ctx *gin.Context) {
	var req EnterSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.service.Enter(ctx.Request.Context(), req.Code, string(req.RequesterID), req.Type)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

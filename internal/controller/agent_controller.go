package controller

import (
	"session_control_backend/internal/service"
	"session_control_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AgentController struct {
	service *service.AgentService
}

func NewAgentController(s *service.AgentService) *AgentController {
	return &AgentController{service: s}
}

// AgentSummary godoc
// @Summary 课堂智能总结
// @Description Class metrics plus a short generated narrative; the narrative falls back to a placeholder
// @Tags agent
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response{data=service.AgentSummary}
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/agent_summary [get]
func (c *AgentController) AgentSummary(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	summary, err := c.service.Summary(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// GradesHistory godoc
// @Summary 学生成绩历史
// @Tags agent
// @Produce json
// @Param studentId path string true "student id"
// @Success 200 {object} util.Response{data=service.GradesHistory}
// @Router /api/students/{studentId}/grades_history [get]
func (c *AgentController) GradesHistory(ctx *gin.Context) {
	history, err := c.service.GradesHistory(ctx.Request.Context(), ctx.Param("studentId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// ExportReport godoc
// @Summary 导出课堂报告
// @Description Writes the session details as JSON to the configured object storage
// @Tags agent
// @Produce json
// @Param id path int true "session id"
// @Success 201 {object} util.Response{data=service.ExportResult}
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/export [post]
func (c *AgentController) ExportReport(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.service.ExportReport(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

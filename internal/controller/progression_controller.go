package controller

import (
	"errors"
	"io"

	"session_control_backend/internal/service"
	"session_control_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	service *service.ProgressionService
}

func NewProgressionController(s *service.ProgressionService) *ProgressionController {
	return &ProgressionController{service: s}
}

// bindOptionalJSON binds the body when there is one; an empty body is not an error.
func bindOptionalJSON(ctx *gin.Context, obj interface{}) error {
	err := ctx.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type StartSessionRequest struct {
	UseAgent bool `json:"use_agent"`
}

// StartSession godoc
// @Summary 开始课堂
// @Description Resets the cursor, ledger and end flag and moves the session to in-progress
// @Tags progression
// @Accept json
// @Produce json
// @Param id path int true "session id"
// @Param body body StartSessionRequest false "options"
// @Success 200 {object} util.Response{data=service.StartResult}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/start/{id} [post]
func (c *ProgressionController) StartSession(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req StartSessionRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.service.Start(ctx.Request.Context(), id, req.UseAgent)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// EndSession godoc
// @Summary 结束课堂
// @Description Finishes the session and restores a temporarily swapped strategy
// @Tags progression
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/end/{id} [post]
func (c *ProgressionController) EndSession(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if err := c.service.End(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session_id": id, "status": "finished"})
}

// SetEndFlag godoc
// @Summary 下一次完成时结束
// @Tags progression
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/set_end_flag [post]
func (c *ProgressionController) SetEndFlag(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if err := c.service.ScheduleEnd(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session_id": id, "end_on_next_completion": true})
}

type StrategyRequest struct {
	StrategyID FlexID `json:"strategy_id" swaggertype:"string"`
}

type DomainRequest struct {
	DomainID FlexID `json:"domain_id" swaggertype:"string"`
}

// TempSwitchStrategy godoc
// @Summary 临时切换策略
// @Description Replaces the strategy until the session ends, remembering the original
// @Tags progression
// @Accept json
// @Produce json
// @Param id path int true "session id"
// @Param body body StrategyRequest true "strategy"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/temp_switch_strategy [post]
func (c *ProgressionController) TempSwitchStrategy(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req StrategyRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.service.SwapStrategyTemporary(ctx.Request.Context(), id, string(req.StrategyID)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session_id": id, "strategy_id": req.StrategyID})
}

// ChangeStrategy godoc
// @Summary 永久更换策略
// @Description Replaces the strategy, purges verified answers and restarts the session
// @Tags progression
// @Accept json
// @Produce json
// @Param id path int true "session id"
// @Param body body StrategyRequest true "strategy"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/change_strategy [post]
func (c *ProgressionController) ChangeStrategy(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req StrategyRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.service.ChangeStrategy(ctx.Request.Context(), id, string(req.StrategyID)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session_id": id, "strategy_id": req.StrategyID})
}

// ChangeDomain godoc
// @Summary 永久更换领域
// @Description Replaces the domain, purges verified answers and restarts the session
// @Tags progression
// @Accept json
// @Produce json
// @Param id path int true "session id"
// @Param body body DomainRequest true "domain"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/change_domain [post]
func (c *ProgressionController) ChangeDomain(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req DomainRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.service.ChangeDomain(ctx.Request.Context(), id, string(req.DomainID)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session_id": id, "domain_id": req.DomainID})
}

// NextTactic godoc
// @Summary 下一个战术
// @Description Advances the cursor, or ends the session when the end flag is armed
// @Tags progression
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response{data=service.TacticResult}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/tactic/next/{id} [post]
func (c *ProgressionController) NextTactic(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	result, err := c.service.Advance(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// PrevTactic godoc
// @Summary 上一个战术
// @Tags progression
// @Produce json
// @Param id path int true "session id"
// @Success 200 {object} util.Response{data=service.TacticResult}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/tactic/prev/{id} [post]
func (c *ProgressionController) PrevTactic(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	result, err := c.service.Rewind(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type SetTacticRequest struct {
	TacticIndex *int `json:"tactic_index"`
}

// SetTactic godoc
// @Summary 跳转到指定战术
// @Tags progression
// @Accept json
// @Produce json
// @Param id path int true "session id"
// @Param body body SetTacticRequest true "target index"
// @Success 200 {object} util.Response{data=service.TacticResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/tactic/set/{id} [post]
func (c *ProgressionController) SetTactic(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req SetTacticRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.service.SetIndex(ctx.Request.Context(), id, req.TacticIndex)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

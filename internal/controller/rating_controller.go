package controller

import (
	"session_control_backend/internal/service"
	"session_control_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RatingController struct {
	service *service.RatingService
}

func NewRatingController(s *service.RatingService) *RatingController {
	return &RatingController{service: s}
}

type RateRequest struct {
	StudentID FlexID `json:"student_id" swaggertype:"string"`
	Rating    int    `json:"rating"`
}

// RateSession godoc
// @Summary 评价课堂
// @Description Upserts the student's 1-5 rating and returns the recomputed average and count
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path int true "session id"
// @Param body body RateRequest true "rating"
// @Success 200 {object} util.Response{data=service.RatingView}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/rate [post]
func (c *RatingController) RateSession(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req RateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.service.Rate(ctx.Request.Context(), id, string(req.StudentID), req.Rating)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetRating godoc
// @Summary 课堂评分
// @Tags ratings
// @Produce json
// @Param id path int true "session id"
// @Param student_id query string false "include this student's own rating"
// @Success 200 {object} util.Response{data=service.RatingView}
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/rating [get]
func (c *RatingController) GetRating(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	view, err := c.service.Get(ctx.Request.Context(), id, ctx.Query("student_id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

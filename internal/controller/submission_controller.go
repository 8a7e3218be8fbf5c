package controller

import (
	"encoding/json"
	"strconv"

	"session_control_backend/internal/service"
	"session_control_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	service *service.SubmissionService
}

func NewSubmissionController(s *service.SubmissionService) *SubmissionController {
	return &SubmissionController{service: s}
}

type SubmitAnswerRequest struct {
	SessionID   uint            `json:"session_id" binding:"required"`
	StudentID   FlexID          `json:"student_id" swaggertype:"string"`
	StudentName string          `json:"student_name"`
	Answers     json.RawMessage `json:"answers" swaggertype:"object"`
	Score       int             `json:"score"`
}

// SubmitAnswer godoc
// @Summary 提交已验证答案
// @Description The first submission of a student wins; a second one is rejected with 409
// @Tags submissions
// @Accept json
// @Produce json
// @Param body body SubmitAnswerRequest true "answer"
// @Success 201 {object} util.Response{data=model.VerifiedAnswer}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/submit_answer [post]
func (c *SubmissionController) SubmitAnswer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.service.SubmitAnswer(ctx.Request.Context(), service.SubmitAnswerInput{
		SessionID:   req.SessionID,
		StudentID:   string(req.StudentID),
		StudentName: req.StudentName,
		Answers:     req.Answers,
		Score:       req.Score,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, answer)
}

type ExtraNoteRequest struct {
	SessionID uint    `json:"session_id" binding:"required"`
	StudentID FlexID  `json:"student_id" swaggertype:"string"`
	Username  string  `json:"estudante_username"`
	Value     float64 `json:"extra_notes"`
}

// AddExtraNotes godoc
// @Summary 记录额外加分
// @Description Overwrites the note of the same username in the session, or inserts it
// @Tags submissions
// @Accept json
// @Produce json
// @Param body body ExtraNoteRequest true "note"
// @Success 200 {object} util.Response{data=model.ExtraNote}
// @Success 201 {object} util.Response{data=model.ExtraNote}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/add_extra_notes [post]
func (c *SubmissionController) AddExtraNotes(ctx *gin.Context) {
	var req ExtraNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	studentID := 0
	if req.StudentID != "" {
		n, err := strconv.Atoi(string(req.StudentID))
		if err != nil {
			util.BadRequest(ctx, "student_id must be numeric")
			return
		}
		studentID = n
	}

	note, created, err := c.service.AddExtraNote(ctx.Request.Context(), service.ExtraNoteInput{
		SessionID: req.SessionID,
		StudentID: studentID,
		Username:  req.Username,
		Value:     req.Value,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if created {
		util.Created(ctx, note)
		return
	}
	util.Success(ctx, note)
}

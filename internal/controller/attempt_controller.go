package controller

import (
	"assessment_backend/internal/service"
	"assessment_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

func callerID(ctx *gin.Context) *uint {
	if user := util.GetUserFromContext(ctx); user != nil {
		id := user.UserID
		return &id
	}
	return nil
}

// @Summary 直接提交答卷（匿名 / Endless）
// @Description 不经过会话，评分后直接生成不可修改的 Attempt；登录可选
// @Tags 答题记录
// @Accept json
// @Produce json
// @Param body body service.RecordAttemptReq true "完整答案"
// @Success 201 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /attempts [post]
func (c *AttemptController) Record(ctx *gin.Context) {
	var req service.RecordAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Service.Record(ctx.Request.Context(), callerID(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, res)
}

// @Summary 我的答题记录
// @Tags 答题记录
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /attempts [get]
func (c *AttemptController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.Service.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: attempts, Total: len(attempts)})
}

// @Summary 答题记录详情
// @Tags 答题记录
// @Produce json
// @Param id path string true "记录ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	attempt, err := c.Service.Get(ctx.Request.Context(), ctx.Param("id"), callerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"attempt": attempt, "percentage": attempt.Percentage()})
}

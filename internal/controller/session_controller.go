package controller

import (
	"assessment_backend/internal/service"
	"assessment_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Service *service.SessionService
}

func NewSessionController(svc *service.SessionService) *SessionController {
	return &SessionController{Service: svc}
}

// @Summary 开始或恢复答题会话
// @Description 已有进行中的会话时原样返回（resumed=true），否则新建
// @Tags 答题会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.StartSessionReq true "试卷与模式"
// @Success 200 {object} util.Response{data=service.StartSessionResult} "恢复已有会话"
// @Success 201 {object} util.Response{data=service.StartSessionResult} "新建会话"
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /sessions/start [post]
func (c *SessionController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.StartSessionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Service.Start(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if res.Resumed {
		util.Success(ctx, res)
		return
	}
	util.Created(ctx, res)
}

// @Summary 进行中的会话列表
// @Tags 答题会话
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /sessions/active [get]
func (c *SessionController) ListActive(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sessions, err := c.Service.ListActive(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"sessions": sessions})
}

// @Summary 会话详情
// @Tags 答题会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /sessions/{id} [get]
func (c *SessionController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.Service.Get(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"session": session})
}

// @Summary 自动保存（部分更新）
// @Description 只更新传入的字段；baseVersion 落后于服务端版本时仍然写入并返回 stale=true
// @Tags 答题会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param body body service.PatchSessionReq true "答案、当前题号、剩余时间"
// @Success 200 {object} util.Response{data=service.PatchSessionResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /sessions/{id} [patch]
func (c *SessionController) Patch(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.PatchSessionReq
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Service.Patch(ctx.Request.Context(), ctx.Param("id"), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, res)
}

// @Summary 交卷
// @Tags 答题会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param body body service.SubmitSessionReq false "超时秒数"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 404 {object} util.Response
// @Router /sessions/{id}/submit [post]
func (c *SessionController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitSessionReq
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("id"), user.UserID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, res)
}

// @Summary 放弃会话
// @Tags 答题会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /sessions/{id} [delete]
func (c *SessionController) Abandon(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Service.Abandon(ctx.Request.Context(), ctx.Param("id"), user.UserID); err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": ctx.Param("id"), "status": "abandoned"})
}

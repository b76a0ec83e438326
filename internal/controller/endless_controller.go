package controller

import (
	"assessment_backend/internal/service"
	"assessment_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EndlessController struct {
	Service *service.EndlessService
}

func NewEndlessController(svc *service.EndlessService) *EndlessController {
	return &EndlessController{Service: svc}
}

// @Summary 获取一批 Endless 题目
// @Description 从已发布试卷中随机抽题，跳过 exclude 中的题目和服务端记录的近期题目
// @Tags Endless
// @Produce json
// @Param size query int false "题目数量" default(10)
// @Param exclude query string false "逗号分隔的题目 key（testId:index）"
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /endless/batch [get]
func (c *EndlessController) Batch(ctx *gin.Context) {
	size := util.ParseIntDefault(ctx.Query("size"), 0)
	if size < 0 {
		util.BadRequest(ctx, "size must not be negative")
		return
	}
	exclude := util.SplitCSV(ctx.Query("exclude"))

	batch, err := c.Service.Batch(ctx.Request.Context(), callerID(ctx), size, exclude)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"questions": batch})
}

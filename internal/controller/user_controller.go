package controller

import (
	"social_graph_backend/internal/service"
	"social_graph_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// SearchUsers godoc
// @Summary 搜索用户
// @Description 按关键字查询：邮箱精确匹配或昵称子串匹配，均不区分大小写
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Param   search query string false "关键字"
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/users [get]
func (c *UserController) SearchUsers(ctx *gin.Context) {
	keyword := ctx.Query("search")

	users, err := c.UserService.SearchUsers(keyword)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, users)
}

package controller

import (
	"errors"

	"social_graph_backend/internal/model"
	"social_graph_backend/internal/service"
	"social_graph_backend/internal/util"
	"social_graph_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// FriendController 好友申请相关的HTTP边界
type FriendController struct {
	FriendshipService *service.FriendshipService
}

func NewFriendController(friendshipService *service.FriendshipService) *FriendController {
	return &FriendController{
		FriendshipService: friendshipService,
	}
}

// SendFriendRequestRequest 发送好友申请请求
type SendFriendRequestRequest struct {
	ReceiverEmail string `json:"receiver_email" binding:"required,email"`
}

// SendFriendRequest godoc
// @Summary 发送好友申请
// @Description 向指定邮箱的用户发起好友申请，每分钟最多 3 条
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SendFriendRequestRequest true "收件人邮箱"
// @Success 201 {object} util.Response{data=model.FriendRequest} "创建成功"
// @Failure 400 {object} util.Response "参数缺失/重复申请/自己加自己"
// @Failure 404 {object} util.Response "收件人不存在"
// @Failure 429 {object} util.Response "超出限额"
// @Router /api/send_friend_request [post]
func (c *FriendController) SendFriendRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendFriendRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "receiver_email is required")
		return
	}

	created, err := c.FriendshipService.SendFriendRequest(claims.UserID, req.ReceiverEmail)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			monitoring.ObserveFriendRequest("send", "not_found")
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrSelfRequest), errors.Is(err, util.ErrRequestExists):
			monitoring.ObserveFriendRequest("send", "conflict")
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrRateLimited):
			monitoring.ObserveFriendRequest("send", "rate_limited")
			util.TooManyRequests(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	monitoring.ObserveFriendRequest("send", "ok")
	util.Created(ctx, created)
}

// AcceptFriendRequest godoc
// @Summary 接受好友申请
// @Description 收件人接受待处理的好友申请
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "申请ID"
// @Success 200 {object} util.Response{data=model.FriendRequest} "成功"
// @Failure 404 {object} util.Response "申请不存在或无权处理"
// @Failure 409 {object} util.Response "申请已处理"
// @Router /api/accept_friend_request/{id} [post]
func (c *FriendController) AcceptFriendRequest(ctx *gin.Context) {
	c.resolveRequest(ctx, true)
}

// RejectFriendRequest godoc
// @Summary 拒绝好友申请
// @Description 收件人拒绝待处理的好友申请
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "申请ID"
// @Success 200 {object} util.Response{data=model.FriendRequest} "成功"
// @Failure 404 {object} util.Response "申请不存在或无权处理"
// @Failure 409 {object} util.Response "申请已处理"
// @Router /api/reject_friend_request/{id} [post]
func (c *FriendController) RejectFriendRequest(ctx *gin.Context) {
	c.resolveRequest(ctx, false)
}

func (c *FriendController) resolveRequest(ctx *gin.Context, accept bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	operation := "reject"
	if accept {
		operation = "accept"
	}

	var (
		req *model.FriendRequest
		err error
	)
	if accept {
		req, err = c.FriendshipService.AcceptFriendRequest(claims.UserID, ctx.Param("id"))
	} else {
		req, err = c.FriendshipService.RejectFriendRequest(claims.UserID, ctx.Param("id"))
	}

	if err != nil {
		switch {
		case errors.Is(err, util.ErrRequestNotFound):
			monitoring.ObserveFriendRequest(operation, "not_found")
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrRequestResolved):
			monitoring.ObserveFriendRequest(operation, "conflict")
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	monitoring.ObserveFriendRequest(operation, "ok")
	util.Success(ctx, req)
}

// ListFriends godoc
// @Summary 好友列表
// @Description 已接受申请两个方向上的对端用户，去重
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Router /api/list_friends [get]
func (c *FriendController) ListFriends(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	friends, err := c.FriendshipService.ListFriends(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, friends)
}

// ListPendingRequests godoc
// @Summary 待处理申请列表
// @Description 当前用户收到且尚未处理的好友申请，按创建时间升序
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.FriendRequest} "成功"
// @Router /api/list_pending_requests [get]
func (c *FriendController) ListPendingRequests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	pending, err := c.FriendshipService.ListPendingRequests(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, pending)
}

package service

import (
	"errors"
	"sync"
	"time"

	"social_graph_backend/internal/model"
	"social_graph_backend/internal/repository"
	"social_graph_backend/internal/util"

	"gorm.io/gorm"
)

const (
	// 滑动窗口限流：每个发送者 60 秒内最多 3 条申请
	sendWindow        = time.Minute
	maxSendsPerWindow = 3

	sendLockShards = 64
)

// FriendshipService 好友申请状态机。
//
// 状态 {待处理, 已接受, 已拒绝}，初始待处理；只有收件人能通过
// accept/reject 把待处理申请翻转一次，已处理的申请不再变化。
type FriendshipService struct {
	FriendRepo *repository.FriendRequestRepository
	UserRepo   *repository.UserRepository

	// 按发送者分片串行化"计数+插入"临界区，防止并发突破限额
	sendLocks [sendLockShards]sync.Mutex
}

func NewFriendshipService(friendRepo *repository.FriendRequestRepository, userRepo *repository.UserRepository) *FriendshipService {
	return &FriendshipService{
		FriendRepo: friendRepo,
		UserRepo:   userRepo,
	}
}

// SendFriendRequest 向 receiverEmail 对应的用户发起好友申请。
//
// 去重只检查 sender→receiver 方向（与历史行为保持一致），已处理的
// 记录同样阻止重发；并发场景由 (sender_id, receiver_id) 唯一索引兜底。
func (s *FriendshipService) SendFriendRequest(senderID uint, receiverEmail string) (*model.FriendRequest, error) {
	receiver, err := s.UserRepo.FindByEmail(receiverEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	if receiver.ID == senderID {
		return nil, util.ErrSelfRequest
	}

	exists, err := s.FriendRepo.ExistsBetween(senderID, receiver.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrRequestExists
	}

	mu := &s.sendLocks[senderID%sendLockShards]
	mu.Lock()
	defer mu.Unlock()

	req := &model.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiver.ID,
	}

	err = s.FriendRepo.DB.Transaction(func(tx *gorm.DB) error {
		count, err := s.FriendRepo.CountRecentBySender(tx, senderID, time.Now().Add(-sendWindow))
		if err != nil {
			return err
		}
		if count >= maxSendsPerWindow {
			return util.ErrRateLimited
		}
		return s.FriendRepo.Create(tx, req)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrRequestExists
		}
		return nil, err
	}

	return s.FriendRepo.FindByID(req.ID)
}

// AcceptFriendRequest 收件人接受申请
func (s *FriendshipService) AcceptFriendRequest(actorID uint, requestID string) (*model.FriendRequest, error) {
	return s.resolveRequest(actorID, requestID, true)
}

// RejectFriendRequest 收件人拒绝申请
func (s *FriendshipService) RejectFriendRequest(actorID uint, requestID string) (*model.FriendRequest, error) {
	return s.resolveRequest(actorID, requestID, false)
}

func (s *FriendshipService) resolveRequest(actorID uint, requestID string, accept bool) (*model.FriendRequest, error) {
	rows, err := s.FriendRepo.Resolve(requestID, actorID, accept)
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		// 区分"申请已处理"与"申请不存在/无权处理"。
		// 非收件人（包括发送者本人）一律按不存在处理，不泄露记录是否存在。
		if _, err := s.FriendRepo.FindByIDForReceiver(requestID, actorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrRequestNotFound
			}
			return nil, err
		}
		return nil, util.ErrRequestResolved
	}

	req, err := s.FriendRepo.FindByIDForReceiver(requestID, actorID)
	if err != nil {
		return nil, err
	}

	if accept {
		s.FriendRepo.InvalidateFriendCache(req.SenderID, req.ReceiverID)
	}
	return req, nil
}

// ListFriends 已接受申请两个方向上的对端用户，去重
func (s *FriendshipService) ListFriends(userID uint) ([]model.User, error) {
	ids, err := s.FriendRepo.FriendIDsCached(userID)
	if err != nil {
		return nil, err
	}
	return s.UserRepo.FindByIDs(ids)
}

// ListPendingRequests 收件人视角的待处理申请，按创建时间升序
func (s *FriendshipService) ListPendingRequests(userID uint) ([]model.FriendRequest, error) {
	return s.FriendRepo.ListPending(userID)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"social_graph_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const friendCacheTTL = 24 * time.Hour

// FriendRequestRepository 好友申请存储层。
// Redis 仅用于好友 ID 集合缓存，允许为 nil（测试或未部署缓存时直接回源数据库）。
type FriendRequestRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewFriendRequestRepository(db *gorm.DB, rdb *redis.Client) *FriendRequestRepository {
	return &FriendRequestRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

// Create 在给定事务内插入申请记录；tx 为 nil 时直接走连接池
func (r *FriendRequestRepository) Create(tx *gorm.DB, req *model.FriendRequest) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(req).Error
}

// CountRecentBySender 统计发送者在 since 之后创建的申请数，滑动窗口限流用
func (r *FriendRequestRepository) CountRecentBySender(tx *gorm.DB, senderID uint, since time.Time) (int64, error) {
	if tx == nil {
		tx = r.DB
	}
	var count int64
	err := tx.Model(&model.FriendRequest{}).
		Where("sender_id = ? AND created_at >= ?", senderID, since).
		Count(&count).Error
	return count, err
}

// ExistsBetween 检查 sender→receiver 方向是否已有记录（任意状态）。
// 只查这一个方向，反向申请不阻止发送。
func (r *FriendRequestRepository) ExistsBetween(senderID, receiverID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.FriendRequest{}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Count(&count).Error
	return count > 0, err
}

func (r *FriendRequestRepository) FindByID(id string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.Preload("Sender").Preload("Receiver").
		First(&req, "id = ?", id).Error
	return &req, err
}

// FindByIDForReceiver 按 id 查找收件人为指定用户的申请
func (r *FriendRequestRepository) FindByIDForReceiver(id string, receiverID uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.Preload("Sender").Preload("Receiver").
		First(&req, "id = ? AND receiver_id = ?", id, receiverID).Error
	return &req, err
}

// Resolve 单条件更新完成状态翻转：只有 id、收件人匹配且仍处于待处理时才置位。
// 并发 accept/reject 恰好一个成功，另一个影响行数为 0。
func (r *FriendRequestRepository) Resolve(id string, receiverID uint, accept bool) (int64, error) {
	column := "is_accepted"
	if !accept {
		column = "is_rejected"
	}

	result := r.DB.Model(&model.FriendRequest{}).
		Where("id = ? AND receiver_id = ? AND is_accepted = ? AND is_rejected = ?",
			id, receiverID, false, false).
		Update(column, true)

	return result.RowsAffected, result.Error
}

// ListPending 收件人视角的待处理申请，按创建时间升序
func (r *FriendRequestRepository) ListPending(receiverID uint) ([]model.FriendRequest, error) {
	reqs := []model.FriendRequest{}
	err := r.DB.Preload("Sender").
		Where("receiver_id = ? AND is_accepted = ? AND is_rejected = ?", receiverID, false, false).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// FriendIDs 已接受申请两个方向上的对端用户 ID，去重
func (r *FriendRequestRepository) FriendIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Raw(`
		SELECT receiver_id AS id FROM friend_requests
		WHERE sender_id = ? AND is_accepted = ? AND deleted_at IS NULL
		UNION
		SELECT sender_id AS id FROM friend_requests
		WHERE receiver_id = ? AND is_accepted = ? AND deleted_at IS NULL`,
		userID, true, userID, true).Scan(&ids).Error
	return ids, err
}

// FriendIDsCached 好友 ID 列表 (带缓存)
func (r *FriendRequestRepository) FriendIDsCached(userID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.FriendIDs(userID)
	}

	key := friendCacheKey(userID)
	cached, err := r.Redis.SMembers(r.ctx, key).Result()
	if err == nil && len(cached) > 0 {
		var ids []uint
		for _, s := range cached {
			var id uint
			fmt.Sscanf(s, "%d", &id)
			if id > 0 {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	// 缓存失效，回源数据库
	ids, err := r.FriendIDs(userID)
	if err == nil && len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(r.ctx, key, id)
		}
		pipe.Expire(r.ctx, key, friendCacheTTL)
		pipe.Exec(r.ctx)
	} else if err == nil {
		// 防止缓存穿透：存一个哨兵值并设置短过期时间
		r.Redis.SAdd(r.ctx, key, 0)
		r.Redis.Expire(r.ctx, key, 5*time.Minute)
	}
	return ids, err
}

// InvalidateFriendCache 申请被接受后双方的好友集合缓存都要失效
func (r *FriendRequestRepository) InvalidateFriendCache(userIDs ...uint) {
	if r.Redis == nil {
		return
	}
	for _, id := range userIDs {
		r.Redis.Del(r.ctx, friendCacheKey(id))
	}
}

func friendCacheKey(userID uint) string {
	return fmt.Sprintf("graph:friends:%d", userID)
}

package model

import "time"

// FriendRequest 好友申请表
//
// 同一 (sender, receiver) 有序对至多一条记录，已处理的记录保留，
// 既作为审计记录，也继续阻止重复申请。
type FriendRequest struct {
	UUIDBase
	SenderID   uint      `gorm:"not null;uniqueIndex:idx_sender_receiver;index:idx_sender_created,priority:1" json:"senderId"`
	Sender     User      `gorm:"foreignKey:SenderID;references:ID;constraint:false" json:"sender,omitempty"`
	ReceiverID uint      `gorm:"not null;uniqueIndex:idx_sender_receiver;index" json:"receiverId"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;references:ID;constraint:false" json:"receiver,omitempty"`
	IsAccepted bool      `gorm:"not null;default:false" json:"isAccepted"`
	IsRejected bool      `gorm:"not null;default:false" json:"isRejected"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_sender_created,priority:2" json:"createdAt"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

// IsPending 两个标记都未置位时申请处于待处理状态
func (r *FriendRequest) IsPending() bool {
	return !r.IsAccepted && !r.IsRejected
}

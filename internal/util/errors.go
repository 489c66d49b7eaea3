package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrNameTaken          = errors.New("该昵称已被使用")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSelfRequest        = errors.New("cannot send a friend request to yourself")
	ErrRequestExists      = errors.New("friend request already sent")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrRequestResolved    = errors.New("friend request already resolved")
	ErrRateLimited        = errors.New("you can send a maximum of 3 friend requests per minute")
)

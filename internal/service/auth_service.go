package service

import (
	"context"
	"errors"
	"fmt"

	"social_graph_backend/internal/config"
	"social_graph_backend/internal/model"
	"social_graph_backend/internal/repository"
	"social_graph_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService 注册、登录与令牌对的签发/轮换。
// Redis 保存 refresh 令牌的 jti 白名单，允许为 nil（此时只校验签名和类型）。
type AuthService struct {
	UserRepo *repository.UserRepository
	Redis    *redis.Client
	Cfg      *config.Config
	ctx      context.Context
}

func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Redis:    rdb,
		Cfg:      cfg,
		ctx:      context.Background(),
	}
}

func (s *AuthService) Register(user *model.User) error {
	_, err := s.UserRepo.FindByEmail(user.Email)
	if err == nil {
		return util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	_, err = s.UserRepo.FindByName(user.Name)
	if err == nil {
		return util.ErrNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)

	if err := s.UserRepo.Create(user); err != nil {
		// check-then-insert 的并发兜底：唯一键冲突按邮箱已注册处理
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrEmailRegistered
		}
		return err
	}
	return nil
}

func (s *AuthService) Login(email, password string) (*util.TokenPair, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		return nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	_ = s.UserRepo.UpdateLastLogin(user.ID)

	return s.issuePair(user)
}

// Refresh 校验并轮换 refresh 令牌，旧 jti 立即作废
func (s *AuthService) Refresh(refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ParseJWT(refreshToken, s.Cfg.JWT.Secret)
	if err != nil || claims.TokenType != util.TokenTypeRefresh {
		return nil, util.ErrInvalidToken
	}

	if s.Redis != nil {
		key := refreshKey(claims.UserID, claims.ID)
		n, err := s.Redis.Del(s.ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, util.ErrInvalidToken
		}
	}

	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil || user.Disabled {
		return nil, util.ErrInvalidToken
	}

	return s.issuePair(user)
}

// Logout 作废 refresh 令牌；access 令牌到期自然失效
func (s *AuthService) Logout(refreshToken string) error {
	claims, err := util.ParseJWT(refreshToken, s.Cfg.JWT.Secret)
	if err != nil || claims.TokenType != util.TokenTypeRefresh {
		return util.ErrInvalidToken
	}

	if s.Redis != nil {
		return s.Redis.Del(s.ctx, refreshKey(claims.UserID, claims.ID)).Err()
	}
	return nil
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}

func (s *AuthService) issuePair(user *model.User) (*util.TokenPair, error) {
	access, _, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, util.TokenTypeAccess, s.Cfg.JWT.AccessExpire)
	if err != nil {
		return nil, err
	}

	refresh, jti, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, util.TokenTypeRefresh, s.Cfg.JWT.RefreshExpire)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if err := s.Redis.Set(s.ctx, refreshKey(user.ID, jti), 1, s.Cfg.JWT.RefreshExpire).Err(); err != nil {
			return nil, err
		}
	}

	return &util.TokenPair{Refresh: refresh, Access: access}, nil
}

func refreshKey(userID uint, jti string) string {
	return fmt.Sprintf("auth:refresh:%d:%s", userID, jti)
}

package service

import (
	"social_graph_backend/internal/model"
	"social_graph_backend/internal/repository"
)

// UserService 用户目录：资料与关键字查询
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// SearchUsers 关键字为空时返回空列表，不做全表查询
func (s *UserService) SearchUsers(keyword string) ([]model.User, error) {
	return s.UserRepo.Search(keyword)
}

func (s *UserService) GetByID(id uint) (*model.User, error) {
	return s.UserRepo.FindByID(id)
}

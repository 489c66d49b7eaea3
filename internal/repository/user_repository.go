package repository

import (
	"time"

	"social_graph_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByIDs(ids []uint) ([]model.User, error) {
	users := []model.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindByEmail 邮箱精确匹配，不区分大小写
func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByName(name string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("name = ?", name).First(&user).Error
	return &user, err
}

// Search 关键字查询：邮箱不区分大小写精确匹配，或昵称不区分大小写子串匹配
func (r *UserRepository) Search(keyword string) ([]model.User, error) {
	users := []model.User{}
	if keyword == "" {
		return users, nil
	}
	err := r.DB.Select("id", "name", "email", "created_at").
		Where("disabled = ?", false).
		Where("LOWER(email) = LOWER(?) OR LOWER(name) LIKE LOWER(?)", keyword, "%"+keyword+"%").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now()).
		Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).
		Error
}

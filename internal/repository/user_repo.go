package repository

import (
	"context"
	"strings"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFilter lists accounts, optionally restricted to one role.
type UserFilter struct {
	Role  string
	Page  int
	Limit int
}

// UserRepository stores accounts. Usernames are kept lower-case so lookups
// and the unique index agree regardless of how the login form was typed.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Username = NormalizeUsername(user.Username)
	return translateError(GetDB(ctx, r.db).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Take(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Take(&user, "username = ?", NormalizeUsername(username)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List orders by role then display name, which is how the admin screen groups staff.
func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	db := GetDB(ctx, r.db)
	base := db.Model(&model.User{})
	if filter.Role != "" {
		base = base.Where("role = ?", filter.Role)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Session(&gorm.Session{}).Order("role").Order("name")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

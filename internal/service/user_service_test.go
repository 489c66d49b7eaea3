package service

import (
	"testing"

	"social_graph_backend/internal/model"
	"social_graph_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))

	createUser(t, db, "Alice Cooper", "alice@example.com")
	createUser(t, db, "Bob Alison", "bob@example.com")
	createUser(t, db, "Carol", "carol@example.com")
	require.NoError(t, db.Create(&model.User{Name: "Disabled Ali", Email: "off@example.com", Password: "x", Disabled: true}).Error)

	// 邮箱只做精确匹配（不区分大小写），不做子串匹配
	users, err := svc.SearchUsers("ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice Cooper", users[0].Name)

	users, err = svc.SearchUsers("alice@exam")
	require.NoError(t, err)
	assert.Empty(t, users)

	// 昵称做不区分大小写的子串匹配；禁用账号不返回
	users, err = svc.SearchUsers("ali")
	require.NoError(t, err)
	require.Len(t, users, 2)

	// 结果不携带口令散列
	for _, u := range users {
		assert.Empty(t, u.Password)
	}

	// 空关键字返回空列表
	users, err = svc.SearchUsers("")
	require.NoError(t, err)
	assert.Empty(t, users)
}

package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"social_graph_backend/internal/model"
	"social_graph_backend/internal/repository"
	"social_graph_backend/internal/util"
	"social_graph_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// 内存库只允许一个连接，避免连接池各自拿到独立的空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newFriendshipService(t *testing.T) (*FriendshipService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRequestRepository(db, nil)
	return NewFriendshipService(friendRepo, userRepo), db
}

func createUser(t *testing.T, db *gorm.DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: email, Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func requestCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.FriendRequest{}).Count(&count).Error)
	return count
}

func TestSendFriendRequest(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, alice.ID, req.SenderID)
	assert.Equal(t, bob.ID, req.ReceiverID)
	assert.True(t, req.IsPending())
	assert.Equal(t, "alice", req.Sender.Name)
	assert.Equal(t, "bob", req.Receiver.Name)
	assert.EqualValues(t, 1, requestCount(t, db))
}

func TestSendFriendRequestReceiverEmailCaseInsensitive(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "BOB@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, req.ReceiverID)
}

func TestSendFriendRequestUnknownReceiver(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")

	for _, email := range []string{"ghost@example.com", ""} {
		_, err := svc.SendFriendRequest(alice.ID, email)
		assert.ErrorIs(t, err, util.ErrUserNotFound)
	}
	assert.EqualValues(t, 0, requestCount(t, db))
}

func TestSendFriendRequestToSelf(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")

	_, err := svc.SendFriendRequest(alice.ID, "alice@example.com")
	assert.ErrorIs(t, err, util.ErrSelfRequest)
	assert.EqualValues(t, 0, requestCount(t, db))
}

func TestSendFriendRequestDuplicate(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)

	_, err = svc.SendFriendRequest(alice.ID, "bob@example.com")
	assert.ErrorIs(t, err, util.ErrRequestExists)

	// 已处理的申请同样阻止重发
	_, err = svc.AcceptFriendRequest(bob.ID, req.ID)
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(alice.ID, "bob@example.com")
	assert.ErrorIs(t, err, util.ErrRequestExists)

	assert.EqualValues(t, 1, requestCount(t, db))
}

func TestSendFriendRequestReverseDirectionAllowed(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	_, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)

	// 去重只看 sender→receiver 方向，反向申请不被阻止
	_, err = svc.SendFriendRequest(bob.ID, "alice@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, requestCount(t, db))
}

func TestSendFriendRequestRateLimit(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	for i := 0; i < 4; i++ {
		createUser(t, db, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
	}

	for i := 0; i < 3; i++ {
		_, err := svc.SendFriendRequest(alice.ID, fmt.Sprintf("user%d@example.com", i))
		require.NoError(t, err)
	}

	// 60 秒窗口内第 4 条被拒，且不落库
	_, err := svc.SendFriendRequest(alice.ID, "user3@example.com")
	assert.ErrorIs(t, err, util.ErrRateLimited)
	assert.EqualValues(t, 3, requestCount(t, db))

	// 把已有记录挪出窗口后可以继续发送（滑动窗口，不是固定桶）
	aged := time.Now().Add(-61 * time.Second)
	require.NoError(t, db.Model(&model.FriendRequest{}).
		Where("sender_id = ?", alice.ID).
		Update("created_at", aged).Error)

	_, err = svc.SendFriendRequest(alice.ID, "user3@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 4, requestCount(t, db))
}

func TestSendFriendRequestConcurrentRateLimit(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	for i := 0; i < 8; i++ {
		createUser(t, db, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SendFriendRequest(alice.ID, fmt.Sprintf("user%d@example.com", i))
		}(i)
	}
	wg.Wait()

	success, limited := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case assert.ErrorIs(t, err, util.ErrRateLimited):
			limited++
		}
	}
	assert.Equal(t, 3, success)
	assert.Equal(t, 5, limited)
	assert.EqualValues(t, 3, requestCount(t, db))
}

func TestSendFriendRequestConcurrentDuplicate(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	createUser(t, db, "bob", "bob@example.com")

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SendFriendRequest(alice.ID, "bob@example.com")
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, util.ErrRequestExists)
		}
	}
	assert.Equal(t, 1, success)
	assert.EqualValues(t, 1, requestCount(t, db))
}

func TestAcceptFriendRequest(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)

	accepted, err := svc.AcceptFriendRequest(bob.ID, req.ID)
	require.NoError(t, err)
	assert.True(t, accepted.IsAccepted)
	assert.False(t, accepted.IsRejected)

	// 双方好友列表互相包含对方
	aliceFriends, err := svc.ListFriends(alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	assert.Equal(t, bob.ID, aliceFriends[0].ID)

	bobFriends, err := svc.ListFriends(bob.ID)
	require.NoError(t, err)
	require.Len(t, bobFriends, 1)
	assert.Equal(t, alice.ID, bobFriends[0].ID)

	pending, err := svc.ListPendingRequests(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejectFriendRequest(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)

	rejected, err := svc.RejectFriendRequest(bob.ID, req.ID)
	require.NoError(t, err)
	assert.True(t, rejected.IsRejected)
	assert.False(t, rejected.IsAccepted)

	// 被拒绝的申请既不出现在好友列表也不出现在待处理列表
	friends, err := svc.ListFriends(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)

	pending, err := svc.ListPendingRequests(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolveRequestWrongActor(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	createUser(t, db, "bob", "bob@example.com")
	carol := createUser(t, db, "carol", "carol@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)

	// 发送者本人和无关用户都按不存在处理，不泄露记录是否存在
	_, err = svc.AcceptFriendRequest(alice.ID, req.ID)
	assert.ErrorIs(t, err, util.ErrRequestNotFound)

	_, err = svc.RejectFriendRequest(carol.ID, req.ID)
	assert.ErrorIs(t, err, util.ErrRequestNotFound)
}

func TestResolveRequestUnknownID(t *testing.T) {
	svc, db := newFriendshipService(t)
	bob := createUser(t, db, "bob", "bob@example.com")

	_, err := svc.AcceptFriendRequest(bob.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, util.ErrRequestNotFound)

	_, err = svc.RejectFriendRequest(bob.ID, "not-a-uuid")
	assert.ErrorIs(t, err, util.ErrRequestNotFound)
}

func TestResolveRequestAlreadyResolved(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	req, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, req.ID)
	require.NoError(t, err)

	// 已接受的申请不能再次接受，也不能再被拒绝覆盖
	_, err = svc.AcceptFriendRequest(bob.ID, req.ID)
	assert.ErrorIs(t, err, util.ErrRequestResolved)
	_, err = svc.RejectFriendRequest(bob.ID, req.ID)
	assert.ErrorIs(t, err, util.ErrRequestResolved)

	var stored model.FriendRequest
	require.NoError(t, db.First(&stored, "id = ?", req.ID).Error)
	assert.True(t, stored.IsAccepted)
	assert.False(t, stored.IsRejected)
}

func TestListFriendsDeduplicates(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")

	// 两个方向各有一条已接受记录时好友列表仍然只有一个对方
	reqAB, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)
	reqBA, err := svc.SendFriendRequest(bob.ID, "alice@example.com")
	require.NoError(t, err)

	_, err = svc.AcceptFriendRequest(bob.ID, reqAB.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(alice.ID, reqBA.ID)
	require.NoError(t, err)

	friends, err := svc.ListFriends(alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].ID)
}

func TestListPendingRequestsOrder(t *testing.T) {
	svc, db := newFriendshipService(t)
	bob := createUser(t, db, "bob", "bob@example.com")
	alice := createUser(t, db, "alice", "alice@example.com")
	carol := createUser(t, db, "carol", "carol@example.com")

	now := time.Now()
	older := &model.FriendRequest{SenderID: carol.ID, ReceiverID: bob.ID, CreatedAt: now.Add(-2 * time.Minute)}
	newer := &model.FriendRequest{SenderID: alice.ID, ReceiverID: bob.ID, CreatedAt: now.Add(-1 * time.Minute)}
	require.NoError(t, db.Create(newer).Error)
	require.NoError(t, db.Create(older).Error)

	pending, err := svc.ListPendingRequests(bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// 按创建时间升序
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, newer.ID, pending[1].ID)
	assert.Equal(t, "carol", pending[0].Sender.Name)
}

func TestFriendWorkflowScenario(t *testing.T) {
	svc, db := newFriendshipService(t)
	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "bob@example.com")
	for _, name := range []string{"carol", "dave", "erin", "frank"} {
		createUser(t, db, name, name+"@example.com")
	}

	// A→B 成功，重发冲突
	reqAB, err := svc.SendFriendRequest(alice.ID, "bob@example.com")
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(alice.ID, "bob@example.com")
	assert.ErrorIs(t, err, util.ErrRequestExists)

	// 窗口内继续发 C、D，第 4 个（E）触发限流
	_, err = svc.SendFriendRequest(alice.ID, "carol@example.com")
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(alice.ID, "dave@example.com")
	require.NoError(t, err)
	_, err = svc.SendFriendRequest(alice.ID, "erin@example.com")
	assert.ErrorIs(t, err, util.ErrRateLimited)

	// B 接受后互为好友，B 的待处理列表清空
	_, err = svc.AcceptFriendRequest(bob.ID, reqAB.ID)
	require.NoError(t, err)

	aliceFriends, err := svc.ListFriends(alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	assert.Equal(t, bob.ID, aliceFriends[0].ID)

	bobFriends, err := svc.ListFriends(bob.ID)
	require.NoError(t, err)
	require.Len(t, bobFriends, 1)
	assert.Equal(t, alice.ID, bobFriends[0].ID)

	pending, err := svc.ListPendingRequests(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

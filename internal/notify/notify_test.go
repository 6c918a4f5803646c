package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNotifyListMarkRead(t *testing.T) {
	st := openTestStore(t)
	svc := NewService(st.NotificationRepo())
	ctx := context.Background()
	student := ids.New()

	svc.Notify(ctx, student, "🎯 เรียนจบบทเรียนแล้ว!", "ข้อความ", store.NotifySuccess)
	svc.Notify(ctx, student, "🔓 บทเรียนใหม่ปลดล็อกแล้ว!", "ข้อความ", store.NotifyInfo)
	svc.Notify(ctx, ids.New(), "other", "x", store.NotifyInfo)

	all, err := svc.List(ctx, student, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, svc.MarkRead(ctx, student, all[0].ID))
	require.NoError(t, svc.MarkRead(ctx, student, all[0].ID), "marking twice is a no-op")

	unread, err := svc.List(ctx, student, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, all[1].ID, unread[0].ID)
}

func TestMarkRead_OtherStudent(t *testing.T) {
	st := openTestStore(t)
	svc := NewService(st.NotificationRepo())
	ctx := context.Background()
	owner, intruder := ids.New(), ids.New()

	svc.Notify(ctx, owner, "t", "m", store.NotifyInfo)
	list, err := svc.List(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = svc.MarkRead(ctx, intruder, list[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestList_Limit(t *testing.T) {
	st := openTestStore(t)
	svc := NewService(st.NotificationRepo())
	ctx := context.Background()
	student := ids.New()

	for i := range DefaultListLimit + 5 {
		svc.Notify(ctx, student, fmt.Sprintf("n%d", i), "m", store.NotifyInfo)
	}
	list, err := svc.List(ctx, student, false)
	require.NoError(t, err)
	assert.Len(t, list, DefaultListLimit)
}

type failingRepo struct {
	store.NotificationRepo
}

func (failingRepo) CreateNotification(context.Context, *store.Notification) error {
	return errors.New("db down")
}

func TestNotify_FailureIsSwallowed(t *testing.T) {
	svc := NewService(failingRepo{})
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), ids.New(), "t", "m", store.NotifyWarning)
	})
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtynet/internal/models"
)

func sendMessage(t *testing.T, senderID, receiverID int64, body string) int64 {
	t.Helper()
	id, err := CreateMessage(senderID, receiverID, nil, "", body)
	require.NoError(t, err)
	return id
}

// Список переписок: одна строка на неупорядоченную пару собеседников,
// строка - самое свежее сообщение пары, свежие переписки первыми.
// created_at у сообщений в тесте совпадает с точностью до секунды,
// порядок держится на id - ровно это и проверяем.
func TestListConversationsGroupsByPair(t *testing.T) {
	setupTestDB(t)
	alice := createApprovedUser(t, "alice", models.RoleBuyer)
	bob := createApprovedUser(t, "bob", models.RoleSeller)
	carol := createApprovedUser(t, "carol", models.RoleSeller)

	sendMessage(t, alice, bob, "hi bob")
	m2 := sendMessage(t, bob, alice, "hi alice")
	m3 := sendMessage(t, alice, carol, "hi carol")

	// У alice две переписки; свежее сообщение пары определяет и содержимое
	// строки, и её место в списке.
	convs, err := ListConversations(alice, 10, 0)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, m3, convs[0].ID)
	assert.Equal(t, carol, convs[0].OtherUserID)
	assert.Equal(t, "carol", convs[0].OtherUsername)
	assert.Equal(t, m2, convs[1].ID)
	assert.Equal(t, bob, convs[1].OtherUserID)
	assert.Equal(t, "hi alice", convs[1].Body)

	// Для bob та же пара дает одну переписку, собеседник - alice.
	convs, err = ListConversations(bob, 10, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, alice, convs[0].OtherUserID)

	// Пагинация по сгруппированному списку.
	convs, err = ListConversations(alice, 1, 1)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, bob, convs[0].OtherUserID)

	convs, err = ListConversations(alice, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

// Окно пагинации отсчитывается от новых сообщений, но внутри страницы
// порядок хронологический.
func TestGetConversationMessages(t *testing.T) {
	setupTestDB(t)
	alice := createApprovedUser(t, "alice", models.RoleBuyer)
	bob := createApprovedUser(t, "bob", models.RoleSeller)
	carol := createApprovedUser(t, "carol", models.RoleSeller)

	m1 := sendMessage(t, alice, bob, "one")
	m2 := sendMessage(t, bob, alice, "two")
	m3 := sendMessage(t, alice, bob, "three")
	sendMessage(t, alice, carol, "noise") // чужая переписка не подмешивается

	messages, err := GetConversationMessages(alice, bob, 50, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, []int64{m1, m2, m3}, []int64{messages[0].ID, messages[1].ID, messages[2].ID})
	assert.Equal(t, "alice", messages[0].SenderUsername)

	// Первая страница - два самых свежих, старые первыми внутри страницы.
	messages, err = GetConversationMessages(alice, bob, 2, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, []int64{m2, m3}, []int64{messages[0].ID, messages[1].ID})

	// Вторая страница - остаток истории.
	messages, err = GetConversationMessages(alice, bob, 2, 2)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, m1, messages[0].ID)
}

func TestMarkConversationRead(t *testing.T) {
	setupTestDB(t)
	alice := createApprovedUser(t, "alice", models.RoleBuyer)
	bob := createApprovedUser(t, "bob", models.RoleSeller)

	sendMessage(t, bob, alice, "one")
	sendMessage(t, bob, alice, "two")
	sendMessage(t, alice, bob, "reply")

	count, err := GetUnreadCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, MarkConversationRead(alice, bob))

	count, err = GetUnreadCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Исходящее сообщение alice осталось непрочитанным у bob.
	count, err = GetUnreadCount(bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Повторный вызов безвреден.
	require.NoError(t, MarkConversationRead(alice, bob))
}

// Пометить прочитанным можно только свое входящее. "Чужое" и
// "несуществующее" дают одинаковый ErrNotFound.
func TestMarkMessageReadGuard(t *testing.T) {
	setupTestDB(t)
	alice := createApprovedUser(t, "alice", models.RoleBuyer)
	bob := createApprovedUser(t, "bob", models.RoleSeller)

	msgID := sendMessage(t, alice, bob, "hello")

	// Отправитель не может пометить собственное сообщение.
	assert.ErrorIs(t, MarkMessageRead(msgID, alice), ErrNotFound)
	// Несуществующее сообщение неотличимо от чужого.
	assert.ErrorIs(t, MarkMessageRead(99999, bob), ErrNotFound)

	require.NoError(t, MarkMessageRead(msgID, bob))

	msg, err := GetMessageByID(msgID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.True(t, msg.IsRead)
}

func TestDeleteMessage(t *testing.T) {
	setupTestDB(t)
	alice := createApprovedUser(t, "alice", models.RoleBuyer)
	bob := createApprovedUser(t, "bob", models.RoleSeller)

	msgID := sendMessage(t, alice, bob, "bye")
	require.NoError(t, DeleteMessage(msgID))

	msg, err := GetMessageByID(msgID)
	require.NoError(t, err)
	assert.Nil(t, msg)

	assert.ErrorIs(t, DeleteMessage(msgID), ErrNotFound)
}

// Удаление объявления обнуляет ссылку из сообщений, сама переписка остается.
func TestMessagePostReferenceSetNull(t *testing.T) {
	setupTestDB(t)
	alice := createApprovedUser(t, "alice", models.RoleBuyer)
	bob := createApprovedUser(t, "bob", models.RoleSeller)
	postID := createActivePost(t, bob, "For sale")

	msgID, err := CreateMessage(alice, bob, &postID, "Question", "Is it available?")
	require.NoError(t, err)

	require.NoError(t, DeletePost(postID))

	msg, err := GetMessageByID(msgID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.False(t, msg.PostID.Valid)
	assert.Equal(t, "Is it available?", msg.Body)
	assert.Equal(t, "Question", msg.Subject.String)
}

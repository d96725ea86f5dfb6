package userlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatter/internal/model"
)

func names(users []model.UserPublic) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestCreatedPrepends(t *testing.T) {
	l := New()
	l.SetUsers([]model.UserPublic{{Username: "alice"}, {Username: "bob"}})

	l.Apply(model.UserPublic{Username: "carol"}, model.UpdateCreated)
	assert.Equal(t, []string{"carol", "alice", "bob"}, names(l.Users()))
}

func TestCreatedExistingKeepsPosition(t *testing.T) {
	l := New()
	l.SetUsers([]model.UserPublic{{Username: "alice"}, {Username: "bob"}})

	// Повторное created для уже известного пользователя не двигает его и не дублирует.
	l.Apply(model.UserPublic{Username: "bob", IsOnline: true}, model.UpdateCreated)
	users := l.Users()
	require.Equal(t, []string{"alice", "bob"}, names(users))
	assert.True(t, users[1].IsOnline)
}

func TestDeletedRemovesAllMatches(t *testing.T) {
	l := New()
	l.SetUsers([]model.UserPublic{{Username: "alice"}, {Username: "bob"}, {Username: "alice"}})

	l.Apply(model.UserPublic{Username: "alice"}, model.UpdateDeleted)
	assert.Equal(t, []string{"bob"}, names(l.Users()))
}

func TestDeletedUnknownIsNoop(t *testing.T) {
	l := New()
	l.SetUsers([]model.UserPublic{{Username: "alice"}})

	l.Apply(model.UserPublic{Username: "ghost"}, model.UpdateDeleted)
	assert.Equal(t, []string{"alice"}, names(l.Users()))
}

func TestUpdatedMergesInPlace(t *testing.T) {
	l := New()
	l.SetUsers([]model.UserPublic{{Username: "alice"}, {Username: "bob"}})

	l.Apply(model.UserPublic{Username: "alice", IsOnline: true}, model.UpdateUpdated)
	users := l.Users()
	require.Equal(t, []string{"alice", "bob"}, names(users))
	assert.True(t, users[0].IsOnline)

	// updated для неизвестного не вставляет.
	l.Apply(model.UserPublic{Username: "ghost"}, model.UpdateUpdated)
	assert.Equal(t, 2, l.Len())
}

func TestFilterCaseInsensitive(t *testing.T) {
	l := New()
	l.SetUsers([]model.UserPublic{
		{Username: "Alice"},
		{Username: "bob"},
		{Username: "malice"},
	})

	l.SetFilter("ALI")
	assert.Equal(t, []string{"Alice", "malice"}, names(l.Users()))

	l.SetFilter("")
	assert.Equal(t, 3, len(l.Users()))
	// Фильтр не трогает сам список.
	assert.Equal(t, 3, l.Len())
}

func TestFilterAppliesToEvents(t *testing.T) {
	l := New()
	l.SetFilter("bo")
	l.SetUsers([]model.UserPublic{{Username: "alice"}})

	l.Apply(model.UserPublic{Username: "bob"}, model.UpdateCreated)
	assert.Equal(t, []string{"bob"}, names(l.Users()))
	assert.Equal(t, 2, l.Len())
}

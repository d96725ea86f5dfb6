// Package userlist keeps a client-side list of users in sync with server
// events. The list preserves insertion order: new users are prepended,
// updated users keep their position.
package userlist

import (
	"strings"
	"sync"

	"github.com/chatter/internal/model"
)

// List — локальная копия списка пользователей с фильтром по имени.
type List struct {
	mu     sync.RWMutex
	users  []model.UserPublic
	filter string
}

func New() *List {
	return &List{}
}

// SetUsers replaces the whole list (initial fetch).
func (l *List) SetUsers(users []model.UserPublic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = make([]model.UserPublic, len(users))
	copy(l.users, users)
}

// Apply reconciles a single userUpdate event into the list:
//   - created: prepend if the username is not present yet; if it is,
//     merge the payload into the existing entry, keeping its position;
//   - deleted: drop every entry with a matching username;
//   - updated: same merge as created, but never inserts.
func (l *List) Apply(user model.UserPublic, typ model.UpdateType) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch typ {
	case model.UpdateDeleted:
		kept := l.users[:0]
		for _, u := range l.users {
			if u.Username != user.Username {
				kept = append(kept, u)
			}
		}
		l.users = kept
	case model.UpdateCreated:
		if i := l.index(user.Username); i >= 0 {
			l.users[i] = user
			return
		}
		l.users = append([]model.UserPublic{user}, l.users...)
	case model.UpdateUpdated:
		if i := l.index(user.Username); i >= 0 {
			l.users[i] = user
		}
	}
}

// SetFilter задаёт подстроку для фильтрации (регистронезависимо).
func (l *List) SetFilter(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = strings.ToLower(q)
}

// Users returns the current view: entries whose username contains the
// filter substring, case-insensitively. Empty filter returns everything.
func (l *List) Users() []model.UserPublic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.UserPublic, 0, len(l.users))
	for _, u := range l.users {
		if l.filter == "" || strings.Contains(strings.ToLower(u.Username), l.filter) {
			out = append(out, u)
		}
	}
	return out
}

// Len возвращает размер списка без учёта фильтра.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.users)
}

// index must be called under l.mu.
func (l *List) index(username string) int {
	for i := range l.users {
		if l.users[i].Username == username {
			return i
		}
	}
	return -1
}

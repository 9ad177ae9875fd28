package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
)

// InMemoryStorage keeps everything in process memory. Data is lost on exit.
type InMemoryStorage struct {
	mu           sync.RWMutex
	users        []auth.User
	sessions     []auth.Session
	transactions []ledger.Transaction
	limits       []budget.CategoryLimit
	lastID       int64
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{}
}

func (inMem *InMemoryStorage) GetStorageType() string {
	return "inmemory"
}

func notFoundErr(message string) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: message,
	}
}

// --- USERS --- //

func (inMem *InMemoryStorage) SaveUser(ctx context.Context, user auth.User) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, existing := range inMem.users {
		if existing.Username == user.Username {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: fmt.Sprintf("This '%s' username already taken.", user.Username),
			}
		}
	}
	user.JoinDate = user.JoinDate.Truncate(time.Second)
	inMem.users = append(inMem.users, user)
	return nil
}

func (inMem *InMemoryStorage) GetUser(ctx context.Context, username string) (auth.User, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, user := range inMem.users {
		if user.Username == username {
			return user, nil
		}
	}
	return auth.User{}, notFoundErr(fmt.Sprintf("User '%s' does not exist.", username))
}

func (inMem *InMemoryStorage) ListUsers(ctx context.Context) ([]auth.User, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	users := append([]auth.User(nil), inMem.users...)
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (inMem *InMemoryStorage) UpdatePassword(ctx context.Context, username string, passwordHashed string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i := range inMem.users {
		if inMem.users[i].Username == username {
			inMem.users[i].PasswordHashed = passwordHashed
			return nil
		}
	}
	return notFoundErr(fmt.Sprintf("User '%s' does not exist.", username))
}

func (inMem *InMemoryStorage) DeleteUser(ctx context.Context, username string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	idx := -1
	for i, user := range inMem.users {
		if user.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFoundErr(fmt.Sprintf("User '%s' does not exist.", username))
	}

	inMem.sessions = filter(inMem.sessions, func(s auth.Session) bool { return s.Username != username })
	inMem.transactions = filter(inMem.transactions, func(t ledger.Transaction) bool { return t.Owner != username })
	inMem.limits = filter(inMem.limits, func(l budget.CategoryLimit) bool { return l.Owner != username })
	inMem.users = append(inMem.users[:idx], inMem.users[idx+1:]...)
	return nil
}

func filter[T any](items []T, keep func(T) bool) []T {
	var kept []T
	for _, item := range items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

// --- SESSIONS --- //

func (inMem *InMemoryStorage) SaveSession(ctx context.Context, session auth.Session) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	session.CreatedAt = session.CreatedAt.Truncate(time.Second)
	session.ExpireAt = session.ExpireAt.Truncate(time.Second)
	inMem.sessions = append(inMem.sessions, session)
	return nil
}

func (inMem *InMemoryStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, session := range inMem.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return auth.Session{}, appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Session does not exist, please login.",
	}
}

func (inMem *InMemoryStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i := range inMem.sessions {
		if inMem.sessions[i].Token == token {
			inMem.sessions[i].ExpireAt = expireAt.Truncate(time.Second)
			return nil
		}
	}
	return notFoundErr("Session does not exist, please login.")
}

func (inMem *InMemoryStorage) DeleteSession(ctx context.Context, token string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.sessions = filter(inMem.sessions, func(s auth.Session) bool { return s.Token != token })
	return nil
}

// --- TRANSACTIONS --- //

func (inMem *InMemoryStorage) SaveTransaction(ctx context.Context, t ledger.Transaction) (int64, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.lastID++
	t.ID = inMem.lastID
	inMem.transactions = append(inMem.transactions, t)
	return t.ID, nil
}

func (inMem *InMemoryStorage) GetTransactionById(ctx context.Context, username string, id int64) (ledger.Transaction, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	for _, t := range inMem.transactions {
		if t.ID == id && t.Owner == username {
			return t, nil
		}
	}
	return ledger.Transaction{}, notFoundErr("The transaction does not exist.")
}

func (inMem *InMemoryStorage) GetTransactions(ctx context.Context, username string, f budget.TransactionFilter) ([]ledger.Transaction, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	var result []ledger.Transaction
	for _, t := range inMem.transactions {
		if t.Owner != username {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Period != nil && !f.Period.Contains(t.Date) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (inMem *InMemoryStorage) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i := range inMem.transactions {
		if inMem.transactions[i].ID == t.ID && inMem.transactions[i].Owner == t.Owner {
			inMem.transactions[i] = t
			return nil
		}
	}
	return notFoundErr("The transaction does not exist.")
}

func (inMem *InMemoryStorage) DeleteTransaction(ctx context.Context, username string, id int64) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	before := len(inMem.transactions)
	inMem.transactions = filter(inMem.transactions, func(t ledger.Transaction) bool {
		return t.ID != id || t.Owner != username
	})
	if len(inMem.transactions) == before {
		return notFoundErr("The transaction does not exist.")
	}
	return nil
}

// --- CATEGORY LIMITS --- //

func (inMem *InMemoryStorage) SaveCategoryLimit(ctx context.Context, limit budget.CategoryLimit) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i := range inMem.limits {
		if inMem.limits[i].Owner == limit.Owner && inMem.limits[i].Category == limit.Category {
			inMem.limits[i] = limit
			return nil
		}
	}
	inMem.limits = append(inMem.limits, limit)
	return nil
}

func (inMem *InMemoryStorage) GetCategoryLimits(ctx context.Context, username string) ([]budget.CategoryLimit, error) {
	inMem.mu.RLock()
	defer inMem.mu.RUnlock()

	limits := filter(inMem.limits, func(l budget.CategoryLimit) bool { return l.Owner == username })
	sort.Slice(limits, func(i, j int) bool { return limits[i].Category < limits[j].Category })
	return limits, nil
}

func (inMem *InMemoryStorage) DeleteCategoryLimit(ctx context.Context, username string, category ledger.Category) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	before := len(inMem.limits)
	inMem.limits = filter(inMem.limits, func(l budget.CategoryLimit) bool {
		return l.Owner != username || l.Category != category
	})
	if len(inMem.limits) == before {
		return notFoundErr(fmt.Sprintf("No limit is set for '%s'.", category))
	}
	return nil
}

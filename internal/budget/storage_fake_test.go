package budget

import (
	"context"
	"sort"
	"sync"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
)

// fakeStorage is a map-backed Storage for service tests.
type fakeStorage struct {
	mu       sync.Mutex
	users    map[string]auth.User
	sessions map[string]auth.Session
	txns     map[int64]ledger.Transaction
	limits   map[string]map[ledger.Category]CategoryLimit
	nextID   int64
	failWith error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:    make(map[string]auth.User),
		sessions: make(map[string]auth.Session),
		txns:     make(map[int64]ledger.Transaction),
		limits:   make(map[string]map[ledger.Category]CategoryLimit),
	}
}

func notFound(msg string) error {
	return appErrors.ErrorResponse{Code: appErrors.ErrNotFound, Message: msg}
}

func (f *fakeStorage) SaveUser(ctx context.Context, user auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[user.Username]; ok {
		return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "user exists"}
	}
	f.users[user.Username] = user
	return nil
}

func (f *fakeStorage) GetUser(ctx context.Context, username string) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return auth.User{}, f.failWith
	}
	user, ok := f.users[username]
	if !ok {
		return auth.User{}, notFound("user not found")
	}
	return user, nil
}

func (f *fakeStorage) ListUsers(ctx context.Context) ([]auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]auth.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (f *fakeStorage) UpdatePassword(ctx context.Context, username string, passwordHashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	if !ok {
		return notFound("user not found")
	}
	user.PasswordHashed = passwordHashed
	f.users[username] = user
	return nil
}

func (f *fakeStorage) DeleteUser(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; !ok {
		return notFound("user not found")
	}
	for token, s := range f.sessions {
		if s.Username == username {
			delete(f.sessions, token)
		}
	}
	for id, t := range f.txns {
		if t.Owner == username {
			delete(f.txns, id)
		}
	}
	delete(f.limits, username)
	delete(f.users, username)
	return nil
}

func (f *fakeStorage) SaveSession(ctx context.Context, session auth.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.Token] = session
	return nil
}

func (f *fakeStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return auth.Session{}, appErrors.ErrorResponse{Code: appErrors.ErrAuth, Message: "session not found"}
	}
	return s, nil
}

func (f *fakeStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return notFound("session not found")
	}
	s.ExpireAt = expireAt
	f.sessions[token] = s
	return nil
}

func (f *fakeStorage) DeleteSession(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeStorage) SaveTransaction(ctx context.Context, t ledger.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.nextID++
	t.ID = f.nextID
	f.txns[t.ID] = t
	return t.ID, nil
}

func (f *fakeStorage) GetTransactionById(ctx context.Context, username string, id int64) (ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok || t.Owner != username {
		return ledger.Transaction{}, notFound("transaction not found")
	}
	return t, nil
}

func (f *fakeStorage) GetTransactions(ctx context.Context, username string, filter TransactionFilter) ([]ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var txns []ledger.Transaction
	for _, t := range f.txns {
		if t.Owner != username {
			continue
		}
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Period != nil && !filter.Period.Contains(t.Date) {
			continue
		}
		txns = append(txns, t)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	return txns, nil
}

func (f *fakeStorage) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.txns[t.ID]
	if !ok || old.Owner != t.Owner {
		return notFound("transaction not found")
	}
	f.txns[t.ID] = t
	return nil
}

func (f *fakeStorage) DeleteTransaction(ctx context.Context, username string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok || t.Owner != username {
		return notFound("transaction not found")
	}
	delete(f.txns, id)
	return nil
}

func (f *fakeStorage) SaveCategoryLimit(ctx context.Context, limit CategoryLimit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limits[limit.Owner] == nil {
		f.limits[limit.Owner] = make(map[ledger.Category]CategoryLimit)
	}
	f.limits[limit.Owner][limit.Category] = limit
	return nil
}

func (f *fakeStorage) GetCategoryLimits(ctx context.Context, username string) ([]CategoryLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var limits []CategoryLimit
	for _, l := range f.limits[username] {
		limits = append(limits, l)
	}
	sort.Slice(limits, func(i, j int) bool { return limits[i].Category < limits[j].Category })
	return limits, nil
}

func (f *fakeStorage) DeleteCategoryLimit(ctx context.Context, username string, category ledger.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.limits[username][category]; !ok {
		return notFound("limit not found")
	}
	delete(f.limits[username], category)
	return nil
}

func (f *fakeStorage) GetStorageType() string {
	return "fake"
}

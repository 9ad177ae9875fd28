package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
	"github.com/fatali-fataliyev/finance_tracker/logging"
)

// dialect holds the statements and error checks that differ between engines.
type dialect struct {
	name        string
	upsertLimit string
	isDuplicate func(err error) bool
}

// SQLStorage implements budget.Storage on a database/sql handle. Every
// operation acquires its own connection and releases it before returning.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

func (s *SQLStorage) GetStorageType() string {
	return s.dialect.name
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func internalErr(message string) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrInternal,
		Message: message,
	}
}

// withConn runs fn on a dedicated connection. Failing to obtain one is
// reported as STORAGE UNAVAILABLE.
func (s *SQLStorage) withConn(ctx context.Context, op string, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		traceID := contextutil.TraceIDFromContext(ctx)
		logging.Logger.Errorf("[TraceID=%s] | failed to acquire connection in Storage.%s() | Error: %v", traceID, op, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrUnavailable,
			Message: "Storage is unavailable, try again later.",
		}
	}
	defer conn.Close()
	return fn(conn)
}

// --- USERS --- //

func (s *SQLStorage) SaveUser(ctx context.Context, user auth.User) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "SaveUser", func(conn *sql.Conn) error {
		query := "INSERT INTO users (username, hashed_password, join_date, is_admin) VALUES (?, ?, ?, ?);"
		_, err := conn.ExecContext(ctx, query, user.Username, user.PasswordHashed, user.JoinDate.Unix(), user.IsAdmin)
		if err != nil {
			if s.dialect.isDuplicate(err) {
				return appErrors.ErrorResponse{
					Code:    appErrors.ErrConflict,
					Message: fmt.Sprintf("This '%s' username already taken.", user.Username),
				}
			}
			logging.Logger.Errorf("[TraceID=%s] | failed to save user in Storage.SaveUser() | Error: %v", traceID, err)
			return internalErr("Registration failed, try again later.")
		}
		return nil
	})
}

func (s *SQLStorage) GetUser(ctx context.Context, username string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	var row dbUser

	err := s.withConn(ctx, "GetUser", func(conn *sql.Conn) error {
		query := "SELECT username, hashed_password, join_date, is_admin FROM users WHERE username = ?;"
		err := conn.QueryRowContext(ctx, query, username).Scan(&row.Username, &row.HashedPassword, &row.JoinDate, &row.IsAdmin)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrorResponse{
					Code:    appErrors.ErrNotFound,
					Message: fmt.Sprintf("User '%s' does not exist.", username),
				}
			}
			logging.Logger.Errorf("[TraceID=%s] | failed to get user in Storage.GetUser() | Error: %v", traceID, err)
			return internalErr("Failed to get user, try again later.")
		}
		return nil
	})
	if err != nil {
		return auth.User{}, err
	}
	return row.toUser(), nil
}

func (s *SQLStorage) ListUsers(ctx context.Context) ([]auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	var users []auth.User

	err := s.withConn(ctx, "ListUsers", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT username, hashed_password, join_date, is_admin FROM users ORDER BY username;")
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to list users in Storage.ListUsers() | Error: %v", traceID, err)
			return internalErr("Failed to get users, try again later.")
		}
		defer rows.Close()

		for rows.Next() {
			var row dbUser
			if err := rows.Scan(&row.Username, &row.HashedPassword, &row.JoinDate, &row.IsAdmin); err != nil {
				logging.Logger.Errorf("[TraceID=%s] | failed to scan user row in Storage.ListUsers() | Error: %v", traceID, err)
				return internalErr("Failed to get users, try again later.")
			}
			users = append(users, row.toUser())
		}
		if err := rows.Err(); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to iterate user rows in Storage.ListUsers() | Error: %v", traceID, err)
			return internalErr("Failed to get users, try again later.")
		}
		return nil
	})
	return users, err
}

func (s *SQLStorage) UpdatePassword(ctx context.Context, username string, passwordHashed string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "UpdatePassword", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, "UPDATE users SET hashed_password = ? WHERE username = ?;", passwordHashed, username)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to update password in Storage.UpdatePassword() | Error: %v", traceID, err)
			return internalErr("Failed to update password, try again later.")
		}
		return requireAffected(traceID, "UpdatePassword", res, fmt.Sprintf("User '%s' does not exist.", username))
	})
}

// DeleteUser removes the user's sessions, transactions and limits, then the
// user, in one SQL transaction.
func (s *SQLStorage) DeleteUser(ctx context.Context, username string) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	failed := internalErr("Failed to delete account, try later.")

	return s.withConn(ctx, "DeleteUser", func(conn *sql.Conn) error {
		txn, err := conn.BeginTx(ctx, nil)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to start SQL transaction in Storage.DeleteUser() | Error: %v", traceID, err)
			return failed
		}
		defer txn.Rollback()

		for _, table := range []string{"sessions", "transactions", "category_limits"} {
			if _, err := txn.ExecContext(ctx, "DELETE FROM "+table+" WHERE username = ?;", username); err != nil {
				logging.Logger.Errorf("[TraceID=%s] | failed to delete user %s in Storage.DeleteUser() | Error: %v", traceID, table, err)
				return failed
			}
		}

		res, err := txn.ExecContext(ctx, "DELETE FROM users WHERE username = ?;", username)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to delete user in Storage.DeleteUser() | Error: %v", traceID, err)
			return failed
		}
		if err := requireAffected(traceID, "DeleteUser", res, fmt.Sprintf("User '%s' does not exist.", username)); err != nil {
			return err
		}

		if err := txn.Commit(); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to commit SQL transaction in Storage.DeleteUser() | Error: %v", traceID, err)
			return failed
		}
		return nil
	})
}

// --- SESSIONS --- //

func (s *SQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "SaveSession", func(conn *sql.Conn) error {
		query := "INSERT INTO sessions (id, token, created_at, expire_at, username) VALUES (?, ?, ?, ?, ?);"
		_, err := conn.ExecContext(ctx, query, session.ID, session.Token, session.CreatedAt.Unix(), session.ExpireAt.Unix(), session.Username)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to save session in Storage.SaveSession() | Error: %v", traceID, err)
			return internalErr("Failed to create session, try again later.")
		}
		return nil
	})
}

func (s *SQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	var row dbSession

	err := s.withConn(ctx, "GetSessionByToken", func(conn *sql.Conn) error {
		query := "SELECT id, token, created_at, expire_at, username FROM sessions WHERE token = ?;"
		err := conn.QueryRowContext(ctx, query, token).Scan(&row.ID, &row.Token, &row.CreatedAt, &row.ExpireAt, &row.Username)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrorResponse{
					Code:    appErrors.ErrAuth,
					Message: "Session does not exist, please login.",
				}
			}
			logging.Logger.Errorf("[TraceID=%s] | failed to get session in Storage.GetSessionByToken() | Error: %v", traceID, err)
			return internalErr("Failed to check session, please try again later.")
		}
		return nil
	})
	if err != nil {
		return auth.Session{}, err
	}
	return row.toSession(), nil
}

func (s *SQLStorage) UpdateSession(ctx context.Context, token string, expireAt time.Time) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "UpdateSession", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, "UPDATE sessions SET expire_at = ? WHERE token = ?;", expireAt.Unix(), token)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to update session in Storage.UpdateSession() | Error: %v", traceID, err)
			return internalErr("Failed to check session, please try again later.")
		}
		return requireAffected(traceID, "UpdateSession", res, "Session does not exist, please login.")
	})
}

func (s *SQLStorage) DeleteSession(ctx context.Context, token string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "DeleteSession", func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?;", token); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to delete session in Storage.DeleteSession() | Error: %v", traceID, err)
			return internalErr("Failed to logout, try again later.")
		}
		return nil
	})
}

// --- TRANSACTIONS --- //

const transactionColumns = "id, username, date, kind, category, amount_cents, description, recurring"

func (s *SQLStorage) SaveTransaction(ctx context.Context, t ledger.Transaction) (int64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	var id int64

	err := s.withConn(ctx, "SaveTransaction", func(conn *sql.Conn) error {
		query := "INSERT INTO transactions (username, date, kind, category, amount_cents, description, recurring) VALUES (?, ?, ?, ?, ?, ?, ?);"
		res, err := conn.ExecContext(ctx, query, t.Owner, t.Date.String(), string(t.Kind), string(t.Category), t.Amount.Cents(), t.Description, t.Recurring)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to save transaction in Storage.SaveTransaction() | Error: %v", traceID, err)
			return internalErr("Failed to save transaction, try again later.")
		}
		id, err = res.LastInsertId()
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to read transaction id in Storage.SaveTransaction() | Error: %v", traceID, err)
			return internalErr("Failed to save transaction, try again later.")
		}
		return nil
	})
	return id, err
}

func (s *SQLStorage) GetTransactionById(ctx context.Context, username string, id int64) (ledger.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	var txn ledger.Transaction

	err := s.withConn(ctx, "GetTransactionById", func(conn *sql.Conn) error {
		query := "SELECT " + transactionColumns + " FROM transactions WHERE username = ? AND id = ?;"
		var row dbTransaction
		err := conn.QueryRowContext(ctx, query, username, id).Scan(
			&row.ID, &row.Username, &row.Date, &row.Kind, &row.Category, &row.AmountCents, &row.Description, &row.Recurring,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrorResponse{
					Code:    appErrors.ErrNotFound,
					Message: "The transaction does not exist.",
				}
			}
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetTransactionById() | Error: %v", traceID, err)
			return internalErr("Failed to get transaction, try again later.")
		}
		var ok bool
		if txn, ok = row.toTransaction(); !ok {
			logging.Logger.Warnf("[TraceID=%s] | transaction %d has malformed date '%s'", traceID, row.ID, row.Date)
		}
		return nil
	})
	return txn, err
}

func (s *SQLStorage) GetTransactions(ctx context.Context, username string, filter budget.TransactionFilter) ([]ledger.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT " + transactionColumns + " FROM transactions WHERE username = ?"
	args := []interface{}{username}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	if filter.Period != nil {
		query += " AND SUBSTR(date, 1, 7) = ?"
		args = append(args, filter.Period.String())
	}
	query += " ORDER BY id;"

	var txns []ledger.Transaction
	err := s.withConn(ctx, "GetTransactions", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to get transactions in Storage.GetTransactions() | Error: %v", traceID, err)
			return internalErr("Failed to get transactions, try again later.")
		}
		txns, err = processTransactionRows(traceID, rows)
		return err
	})
	return txns, err
}

func processTransactionRows(traceID string, rows *sql.Rows) ([]ledger.Transaction, error) {
	defer rows.Close()

	var txns []ledger.Transaction
	var malformed []string
	for rows.Next() {
		var row dbTransaction
		err := rows.Scan(&row.ID, &row.Username, &row.Date, &row.Kind, &row.Category, &row.AmountCents, &row.Description, &row.Recurring)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.processTransactionRows() | Error: %v", traceID, err)
			return nil, internalErr("Failed to process transactions, try again later.")
		}
		txn, ok := row.toTransaction()
		if !ok {
			malformed = append(malformed, fmt.Sprint(row.ID))
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.processTransactionRows() | Error: %v", traceID, err)
		return nil, internalErr("Failed to process transactions, try again later.")
	}

	if len(malformed) > 0 {
		logging.Logger.Warnf("[TraceID=%s] | transactions with malformed dates: %s", traceID, strings.Join(malformed, ", "))
	}
	return txns, nil
}

func (s *SQLStorage) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "UpdateTransaction", func(conn *sql.Conn) error {
		query := "UPDATE transactions SET date = ?, kind = ?, category = ?, amount_cents = ?, description = ?, recurring = ? WHERE username = ? AND id = ?;"
		res, err := conn.ExecContext(ctx, query, t.Date.String(), string(t.Kind), string(t.Category), t.Amount.Cents(), t.Description, t.Recurring, t.Owner, t.ID)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to update transaction in Storage.UpdateTransaction() | Error: %v", traceID, err)
			return internalErr("Failed to update transaction, try again later.")
		}
		return requireAffected(traceID, "UpdateTransaction", res, "The transaction does not exist.")
	})
}

func (s *SQLStorage) DeleteTransaction(ctx context.Context, username string, id int64) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "DeleteTransaction", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, "DELETE FROM transactions WHERE username = ? AND id = ?;", username, id)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to delete transaction in Storage.DeleteTransaction() | Error: %v", traceID, err)
			return internalErr("Failed to delete transaction, try again later.")
		}
		return requireAffected(traceID, "DeleteTransaction", res, "The transaction does not exist.")
	})
}

// --- CATEGORY LIMITS --- //

func (s *SQLStorage) SaveCategoryLimit(ctx context.Context, limit budget.CategoryLimit) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "SaveCategoryLimit", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, s.dialect.upsertLimit, limit.Owner, string(limit.Category), limit.Amount.Cents())
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to save category limit in Storage.SaveCategoryLimit() | Error: %v", traceID, err)
			return internalErr("Failed to save the limit, try again later.")
		}
		return nil
	})
}

func (s *SQLStorage) GetCategoryLimits(ctx context.Context, username string) ([]budget.CategoryLimit, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	var limits []budget.CategoryLimit

	err := s.withConn(ctx, "GetCategoryLimits", func(conn *sql.Conn) error {
		query := "SELECT username, category, amount_cents FROM category_limits WHERE username = ? ORDER BY category;"
		rows, err := conn.QueryContext(ctx, query, username)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to get category limits in Storage.GetCategoryLimits() | Error: %v", traceID, err)
			return internalErr("Failed to get limits, try again later.")
		}
		defer rows.Close()

		for rows.Next() {
			var row dbCategoryLimit
			if err := rows.Scan(&row.Username, &row.Category, &row.AmountCents); err != nil {
				logging.Logger.Errorf("[TraceID=%s] | failed to scan limit row in Storage.GetCategoryLimits() | Error: %v", traceID, err)
				return internalErr("Failed to get limits, try again later.")
			}
			limits = append(limits, row.toLimit())
		}
		if err := rows.Err(); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to iterate limit rows in Storage.GetCategoryLimits() | Error: %v", traceID, err)
			return internalErr("Failed to get limits, try again later.")
		}
		return nil
	})
	return limits, err
}

func (s *SQLStorage) DeleteCategoryLimit(ctx context.Context, username string, category ledger.Category) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	return s.withConn(ctx, "DeleteCategoryLimit", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, "DELETE FROM category_limits WHERE username = ? AND category = ?;", username, string(category))
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to delete category limit in Storage.DeleteCategoryLimit() | Error: %v", traceID, err)
			return internalErr("Failed to delete the limit, try again later.")
		}
		return requireAffected(traceID, "DeleteCategoryLimit", res, fmt.Sprintf("No limit is set for '%s'.", category))
	})
}

// requireAffected turns a statement that touched no rows into NOT FOUND.
func requireAffected(traceID string, op string, res sql.Result, notFoundMsg string) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.%s() | Error: %v", traceID, op, err)
		return internalErr("Something went wrong, try again later.")
	}
	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: notFoundMsg,
		}
	}
	return nil
}

package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jihoon-dev/moneybook/internal/core/domain"
)

// MemoryStore keeps everything in maps behind one mutex. It backs unit tests
// and local development; the mutex gives the same per-account serialization
// the Postgres store gets from row locks.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]domain.User
	usersByEmail map[string]uuid.UUID
	accounts     map[uuid.UUID]domain.Account
	accountOrder []uuid.UUID
	transactions map[uuid.UUID]domain.Transaction
	txOrder      []uuid.UUID
	idem         map[idemKey]idemResponse
}

// idemKey scopes cached responses to one caller.
type idemKey struct {
	userID uuid.UUID
	key    string
}

type idemResponse struct {
	status int
	body   []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uuid.UUID]domain.User),
		usersByEmail: make(map[string]uuid.UUID),
		accounts:     make(map[uuid.UUID]domain.Account),
		transactions: make(map[uuid.UUID]domain.Transaction),
		idem:         make(map[idemKey]idemResponse),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return nil, domain.ErrEmailTaken
	}

	u.ID = uuid.New()
	u.Email = email
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	cp := u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Nickname != nil {
		u.Nickname = *patch.Nickname
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.PhoneNumber != nil {
		u.PhoneNumber = *patch.PhoneNumber
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	cp := u
	return &cp, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	delete(s.usersByEmail, u.Email)

	// Cascade: the user's accounts go, and each account's ledger rows with
	// them.
	gone := make(map[uuid.UUID]bool)
	keptAccounts := s.accountOrder[:0]
	for _, aid := range s.accountOrder {
		if acc, ok := s.accounts[aid]; ok && acc.UserID == id {
			gone[aid] = true
			delete(s.accounts, aid)
			continue
		}
		keptAccounts = append(keptAccounts, aid)
	}
	s.accountOrder = keptAccounts

	keptTx := s.txOrder[:0]
	for _, tid := range s.txOrder {
		if tx, ok := s.transactions[tid]; ok && gone[tx.AccountID] {
			delete(s.transactions, tid)
			continue
		}
		keptTx = append(keptTx, tid)
	}
	s.txOrder = keptTx
	return nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, owner uuid.UUID, number, bankCode string, accountType domain.AccountType) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Balance always starts at zero, whatever the client sent.
	acc := domain.Account{
		ID:            uuid.New(),
		UserID:        owner,
		AccountNumber: number,
		BankCode:      bankCode,
		AccountType:   accountType,
		Balance:       decimal.Zero.Round(2),
		CreatedAt:     time.Now().UTC(),
	}
	s.accounts[acc.ID] = acc
	s.accountOrder = append(s.accountOrder, acc.ID)
	cp := acc
	return &cp, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id, owner uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok || acc.UserID != owner {
		// Ownership mismatch looks exactly like absence on the read path.
		return nil, domain.ErrNotFound
	}
	cp := acc
	return &cp, nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context, owner uuid.UUID) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Account, 0)
	for _, id := range s.accountOrder {
		if acc, ok := s.accounts[id]; ok && acc.UserID == owner {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id, owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok || acc.UserID != owner {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	for i, oid := range s.accountOrder {
		if oid == id {
			s.accountOrder = append(s.accountOrder[:i], s.accountOrder[i+1:]...)
			break
		}
	}
	// Cascade: drop the account's ledger rows.
	kept := s.txOrder[:0]
	for _, tid := range s.txOrder {
		if tx, ok := s.transactions[tid]; ok && tx.AccountID == id {
			delete(s.transactions, tid)
			continue
		}
		kept = append(kept, tid)
	}
	s.txOrder = kept
	return nil
}

func (s *MemoryStore) CommitTransaction(ctx context.Context, accountID, owner uuid.UUID, dir domain.Direction, cat domain.Category, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok || acc.UserID != owner {
		return nil, domain.ErrAccountDenied
	}

	newBalance, err := domain.Apply(acc.Balance, dir, amount)
	if err != nil {
		// Nothing has been written yet, so rejection leaves no trace.
		return nil, err
	}

	now := time.Now().UTC()
	tx := domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Direction:    dir,
		Category:     cat,
		Amount:       amount,
		BalanceAfter: newBalance,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Ledger row and balance update land inside the same critical section.
	s.transactions[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	acc.Balance = newBalance
	s.accounts[accountID] = acc

	cp := tx
	return &cp, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, owner uuid.UUID) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// txOrder is creation order, so walking it backwards yields newest first
	// across all of the owner's accounts.
	out := make([]domain.Transaction, 0)
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx, ok := s.transactions[s.txOrder[i]]
		if !ok {
			continue
		}
		if acc, ok := s.accounts[tx.AccountID]; ok && acc.UserID == owner {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id, owner uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOwnedTx(id, owner)
}

func (s *MemoryStore) getOwnedTx(id, owner uuid.UUID) (*domain.Transaction, error) {
	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	acc, ok := s.accounts[tx.AccountID]
	if !ok || acc.UserID != owner {
		return nil, domain.ErrNotFound
	}
	cp := tx
	return &cp, nil
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, id, owner uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.getOwnedTx(id, owner)
	if err != nil {
		return nil, err
	}
	if patch.Category != nil {
		cur.Category = *patch.Category
	}
	if patch.Description != nil {
		cur.Description = *patch.Description
	}
	cur.UpdatedAt = time.Now().UTC()
	s.transactions[id] = *cur
	cp := *cur
	return &cp, nil
}

func (s *MemoryStore) LookupResponse(ctx context.Context, userID uuid.UUID, key string) (int, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.idem[idemKey{userID, key}]
	if !ok {
		return 0, nil, false, nil
	}
	return r.status, r.body, true, nil
}

func (s *MemoryStore) SaveResponse(ctx context.Context, userID uuid.UUID, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := idemKey{userID, key}
	// First writer wins, matching the database's conflict behavior.
	if _, exists := s.idem[k]; !exists {
		s.idem[k] = idemResponse{status: status, body: body}
	}
	return nil
}

func (s *MemoryStore) DeleteTransaction(ctx context.Context, id, owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getOwnedTx(id, owner); err != nil {
		return err
	}
	delete(s.transactions, id)
	for i, tid := range s.txOrder {
		if tid == id {
			s.txOrder = append(s.txOrder[:i], s.txOrder[i+1:]...)
			break
		}
	}
	return nil
}

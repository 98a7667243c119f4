// Package memory provides an in-process implementation of storage.Store.
// It is used by tests and by `DB_DRIVER=memory` for local experiments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type edgeKey struct {
	groupID string
	pair    storage.Pair
}

// Store keeps everything in maps guarded by one RWMutex. Transactions hold the
// write lock for their whole duration, so writers are serialized and readers
// never observe a partially applied transaction.
type Store struct {
	mu          sync.RWMutex
	groups      map[string]*models.Group
	groupOrder  []string
	edges       map[edgeKey]models.Balance
	expenses    map[string][]*models.Expense
	settlements map[string][]*models.Settlement
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		groups:      make(map[string]*models.Group),
		edges:       make(map[edgeKey]models.Balance),
		expenses:    make(map[string][]*models.Expense),
		settlements: make(map[string][]*models.Settlement),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// CreateGroup stores a copy of group.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[group.ID]; exists {
		return fmt.Errorf("group already exists: %s", group.ID)
	}
	s.groups[group.ID] = copyGroup(group)
	s.groupOrder = append(s.groupOrder, group.ID)
	return nil
}

// GetGroup returns a copy of the group.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	return copyGroup(g), nil
}

// ListGroups returns the groups newest first.
func (s *Store) ListGroups(ctx context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*models.Group, 0, len(s.groupOrder))
	for i := len(s.groupOrder) - 1; i >= 0; i-- {
		groups = append(groups, copyGroup(s.groups[s.groupOrder[i]]))
	}
	return groups, nil
}

// AddGroupMembers appends members that are not yet in the group.
func (s *Store) AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	for _, m := range members {
		if !g.HasMember(m.ID) {
			g.Members = append(g.Members, m)
		}
	}
	return nil
}

// DeleteGroup removes the group and everything recorded in it.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	delete(s.groups, groupID)
	for i, id := range s.groupOrder {
		if id == groupID {
			s.groupOrder = append(s.groupOrder[:i], s.groupOrder[i+1:]...)
			break
		}
	}
	for k := range s.edges {
		if k.groupID == groupID {
			delete(s.edges, k)
		}
	}
	delete(s.expenses, groupID)
	delete(s.settlements, groupID)
	return nil
}

// ListEdges returns the group's edges ordered by pair.
func (s *Store) ListEdges(ctx context.Context, groupID string) ([]models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]string)
	if g, ok := s.groups[groupID]; ok {
		for _, m := range g.Members {
			names[m.ID] = m.DisplayName
		}
	}

	var keys []edgeKey
	for k := range s.edges {
		if k.groupID == groupID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].pair.Key(groupID) < keys[j].pair.Key(groupID)
	})

	edges := make([]models.Balance, 0, len(keys))
	for _, k := range keys {
		b := s.edges[k]
		b.DebtorName = names[b.DebtorID]
		b.CreditorName = names[b.CreditorID]
		edges = append(edges, b)
	}
	return edges, nil
}

// ListExpensesByGroup returns the group's expenses newest first.
func (s *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.expenses[groupID]
	out := make([]*models.Expense, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		e := *stored[i]
		e.Splits = append([]models.ExpenseSplit(nil), stored[i].Splits...)
		out = append(out, &e)
	}
	return out, nil
}

// GetExpense returns a copy of one expense.
func (s *Store) GetExpense(ctx context.Context, groupID, expenseID string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.expenses[groupID] {
		if stored.ID == expenseID {
			e := *stored
			e.Splits = append([]models.ExpenseSplit(nil), stored.Splits...)
			return &e, nil
		}
	}
	return nil, fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
}

// ListSettlementsByGroup returns the group's settlement records newest first.
func (s *Store) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.settlements[groupID]
	out := make([]*models.Settlement, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		st := *stored[i]
		out = append(out, &st)
	}
	return out, nil
}

// InTx stages writes in a tx and applies them only when fn succeeds.
func (s *Store) InTx(ctx context.Context, groupID string, pairs []storage.Pair, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}

	tx := &memTx{
		store:           s,
		groupID:         groupID,
		pending:         make(map[storage.Pair]*models.Balance),
		deletedExpenses: make(map[string]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for pair, b := range tx.pending {
		k := edgeKey{groupID: groupID, pair: pair}
		if b == nil {
			delete(s.edges, k)
			continue
		}
		s.edges[k] = *b
	}
	if len(tx.deletedExpenses) > 0 {
		kept := s.expenses[groupID][:0]
		for _, e := range s.expenses[groupID] {
			if !tx.deletedExpenses[e.ID] {
				kept = append(kept, e)
			}
		}
		s.expenses[groupID] = kept
	}
	s.expenses[groupID] = append(s.expenses[groupID], tx.expenses...)
	s.settlements[groupID] = append(s.settlements[groupID], tx.settlements...)

	if len(tx.removedMembers) > 0 {
		g := s.groups[groupID]
		members := g.Members[:0]
		for _, m := range g.Members {
			if !contains(tx.removedMembers, m.ID) {
				members = append(members, m)
			}
		}
		g.Members = members
	}
	return nil
}

// memTx buffers writes; a nil entry in pending marks a deleted edge.
type memTx struct {
	store           *Store
	groupID         string
	pending         map[storage.Pair]*models.Balance
	expenses        []*models.Expense
	settlements     []*models.Settlement
	deletedExpenses map[string]bool
	removedMembers  []string
}

func (t *memTx) LoadEdge(ctx context.Context, a, b string) (*models.Balance, error) {
	pair := storage.NewPair(a, b)
	if staged, ok := t.pending[pair]; ok {
		if staged == nil {
			return nil, nil
		}
		cp := *staged
		return &cp, nil
	}
	if stored, ok := t.store.edges[edgeKey{groupID: t.groupID, pair: pair}]; ok {
		return &stored, nil
	}
	return nil, nil
}

func (t *memTx) UpsertEdge(ctx context.Context, debtor, creditor string, amount decimal.Decimal) error {
	if debtor == creditor {
		return fmt.Errorf("refusing self edge for %s", debtor)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("refusing non-positive edge amount %s", amount)
	}
	t.pending[storage.NewPair(debtor, creditor)] = &models.Balance{
		GroupID:    t.groupID,
		DebtorID:   debtor,
		CreditorID: creditor,
		Amount:     amount,
		UpdatedAt:  time.Now().Unix(),
	}
	return nil
}

func (t *memTx) DeleteEdge(ctx context.Context, a, b string) error {
	t.pending[storage.NewPair(a, b)] = nil
	return nil
}

func (t *memTx) AppendSettlementRecord(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	settlement.GroupID = t.groupID
	cp := *settlement
	t.settlements = append(t.settlements, &cp)
	return nil
}

func (t *memTx) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.GroupID = t.groupID
	cp := *expense
	cp.Splits = append([]models.ExpenseSplit(nil), expense.Splits...)
	t.expenses = append(t.expenses, &cp)
	return nil
}

func (t *memTx) DeleteExpense(ctx context.Context, expenseID string) error {
	for i, e := range t.expenses {
		if e.ID == expenseID {
			t.expenses = append(t.expenses[:i], t.expenses[i+1:]...)
			return nil
		}
	}
	if !t.deletedExpenses[expenseID] {
		for _, e := range t.store.expenses[t.groupID] {
			if e.ID == expenseID {
				t.deletedExpenses[expenseID] = true
				return nil
			}
		}
	}
	return fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
}

func (t *memTx) RemoveMember(ctx context.Context, memberID string) error {
	g := t.store.groups[t.groupID]
	if !g.HasMember(memberID) || contains(t.removedMembers, memberID) {
		return fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}

	for k := range t.store.edges {
		if k.groupID != t.groupID || (k.pair.Lo != memberID && k.pair.Hi != memberID) {
			continue
		}
		if staged, ok := t.pending[k.pair]; !ok || staged != nil {
			return fmt.Errorf("member %s: %w", memberID, models.ErrOutstandingBalance)
		}
	}
	for pair, staged := range t.pending {
		if staged != nil && (pair.Lo == memberID || pair.Hi == memberID) {
			return fmt.Errorf("member %s: %w", memberID, models.ErrOutstandingBalance)
		}
	}

	t.removedMembers = append(t.removedMembers, memberID)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.Members = append([]models.Member(nil), g.Members...)
	return &cp
}

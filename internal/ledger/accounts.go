package ledger

import (
	"context"
	"strings"

	"zakatledger/internal/core"
	"zakatledger/internal/log"
)

type NewAccount struct {
	Channel   core.Channel
	Name      string
	SortOrder int
}

func (s *Store) CreateAccount(ctx context.Context, in NewAccount) (*core.Account, error) {
	const op = "ledger.CreateAccount"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return nil, err
	}
	acc := core.Account{
		ID:        s.newID(),
		Channel:   in.Channel,
		Name:      strings.TrimSpace(in.Name),
		Active:    true,
		SortOrder: in.SortOrder,
		CreatedAt: s.now().UTC(),
	}
	if err := acc.Validate(); err != nil {
		return nil, core.Validation(op, err)
	}
	if err := s.repo.InsertAccount(ctx, acc); err != nil {
		return nil, classify(op, err)
	}
	return &acc, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	acc, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, classify("ledger.GetAccount", err)
	}
	return &acc, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, classify("ledger.ListAccounts", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account that has never carried an entry.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	const op = "ledger.DeleteAccount"

	if _, err := core.RequireActor(ctx, op); err != nil {
		return err
	}
	unlock, err := s.lockAccounts(ctx, id)
	if err != nil {
		return core.Persistence(op, err)
	}
	defer unlock()

	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return classify(op, err)
	}
	s.invalidate(ctx, id)
	s.log.InfoContext(ctx, "Account deleted", log.FieldAccountID, id)
	return nil
}

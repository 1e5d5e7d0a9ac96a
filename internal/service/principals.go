package service

import (
	"context"

	"farmlink/internal/authz"
	"farmlink/internal/models"
	"farmlink/internal/repository"
)

// PrincipalLookup resolves the current principal of an account. Unknown and
// inactive accounts resolve to authz.Anonymous.
type PrincipalLookup func(ctx context.Context, accountID uint) (authz.Principal, error)

// PrincipalsFrom builds a PrincipalLookup that re-reads the account on every
// call, so role changes apply to the next request.
func PrincipalsFrom(repo repository.AccountRepository) PrincipalLookup {
	return func(ctx context.Context, accountID uint) (authz.Principal, error) {
		if accountID == 0 {
			return authz.Anonymous, nil
		}
		account, err := repo.GetByID(ctx, accountID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return authz.Anonymous, nil
			}
			return authz.Anonymous, err
		}
		if !account.IsActive {
			return authz.Anonymous, nil
		}
		return authz.ForAccount(account), nil
	}
}

func (l PrincipalLookup) resolve(ctx context.Context, accountID uint) (authz.Principal, error) {
	if l == nil {
		return authz.Principal{AccountID: accountID, Authenticated: accountID != 0}, nil
	}
	return l(ctx, accountID)
}

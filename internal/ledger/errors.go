package ledger

import "errors"

var (
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
	ErrInsufficientShopBalance      = errors.New("insufficient shop balance")
	ErrRedemptionCapExceeded        = errors.New("redemption cap exceeded")
	ErrRedemptionInProgress         = errors.New("redemption already in progress")
	ErrSessionExpired               = errors.New("redemption session expired")
	ErrSessionNotFound              = errors.New("redemption session not found")
	ErrCustomerNotFound             = errors.New("customer not found")
	ErrShopNotFound                 = errors.New("shop not found")
	ErrSelfRewardForbidden          = errors.New("self reward forbidden")
	ErrPromoCodeInvalid             = errors.New("promo code invalid")
	ErrTransactionNotFound          = errors.New("transaction not found")
	// ErrSettlementConflict: the reported outcome contradicts the
	// transaction's terminal state, e.g. a confirmation arriving after
	// the failure reversal already freed the amount.
	ErrSettlementConflict = errors.New("settlement conflicts with terminal state")
	// ErrRoleConflict: a wallet address holds exactly one role; a shop
	// address can never acquire a customer ledger and vice versa.
	ErrRoleConflict = errors.New("address already registered with another role")
)

package wallet

import (
	"fmt"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

var (
	// ErrInsufficientFunds is matched by every InsufficientFundsError.
	ErrInsufficientFunds = ierrors.New("insufficient funds")

	// ErrSigning is matched by every SigningError.
	ErrSigning = ierrors.New("cannot sign input")

	// ErrDustAmount is returned if the amount left after fees is not above the dust threshold.
	ErrDustAmount = ierrors.New("cannot send less than dust amount")
)

// InsufficientFundsError is returned if the selected outputs do not cover the requested amount.
type InsufficientFundsError struct {
	Required  model.Amount
	Available model.Amount
	Shortfall model.Amount
}

func newInsufficientFundsError(required model.Amount, available model.Amount) *InsufficientFundsError {
	return &InsufficientFundsError{
		Required:  required,
		Available: available,
		Shortfall: required - available,
	}
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s, shortfall %s", e.Required, e.Available, e.Shortfall)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// SigningError is returned if the wallet does not control the private key of an input.
type SigningError struct {
	Address  string
	OutPoint model.OutPoint
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("cannot sign input %s: private key of %s is not known", e.OutPoint, e.Address)
}

func (e *SigningError) Is(target error) bool {
	return target == ErrSigning
}

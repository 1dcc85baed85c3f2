package model

import (
	"slices"
	"strings"

	"github.com/iotaledger/hive.go/stringify"
)

// ChangeLabelSuffix marks the label of an address that only receives change.
const ChangeLabelSuffix = "._change"

// Address is a ledger address. It is wallet-controlled when its private key is known.
type Address struct {
	address    string
	labels     []string
	privateKey []byte
}

// NewAddress creates a watch-only address.
func NewAddress(address string, labels ...string) *Address {
	return &Address{
		address: address,
		labels:  slices.Clone(labels),
	}
}

// NewWalletAddress creates an address together with its raw private key.
func NewWalletAddress(address string, privateKey []byte, labels ...string) *Address {
	return &Address{
		address:    address,
		labels:     slices.Clone(labels),
		privateKey: slices.Clone(privateKey),
	}
}

func (a *Address) String() string {
	return a.address
}

// Labels returns a copy of the labels.
func (a *Address) Labels() []string {
	return slices.Clone(a.labels)
}

// Label returns the first label, or the empty string.
func (a *Address) Label() string {
	if len(a.labels) == 0 {
		return ""
	}

	return a.labels[0]
}

// PrivateKey returns a copy of the raw private key, or nil for watch-only addresses.
func (a *Address) PrivateKey() []byte {
	return slices.Clone(a.privateKey)
}

// IsWalletControlled returns true if the private key of the address is known.
func (a *Address) IsWalletControlled() bool {
	return len(a.privateKey) > 0
}

// IsChangeAddress returns true if the address only receives change.
func (a *Address) IsChangeAddress() bool {
	return len(a.labels) == 1 && strings.HasSuffix(a.labels[0], ChangeLabelSuffix)
}

// WithLabels returns a copy of the address carrying the given labels.
func (a *Address) WithLabels(labels ...string) *Address {
	return &Address{
		address:    a.address,
		labels:     slices.Clone(labels),
		privateKey: a.privateKey,
	}
}

// WithPrivateKey returns a copy of the address carrying the given private key.
func (a *Address) WithPrivateKey(privateKey []byte) *Address {
	return &Address{
		address:    a.address,
		labels:     a.labels,
		privateKey: slices.Clone(privateKey),
	}
}

// Equal compares the raw address strings.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}

	return a.address == other.address
}

func (a *Address) Describe() string {
	return stringify.Struct("Address",
		stringify.NewStructField("Address", a.address),
		stringify.NewStructField("Labels", strings.Join(a.labels, ",")),
		stringify.NewStructField("WalletControlled", a.IsWalletControlled()),
	)
}

// ChangeLabel returns the label used for change addresses of the given label.
func ChangeLabel(label string) string {
	return label + ChangeLabelSuffix
}

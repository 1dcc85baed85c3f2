package content

import (
	"time"

	"go.uber.org/atomic"

	"github.com/iotaledger/hive.go/stringify"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

// State tracks how far a handle got in the retrieval pipeline.
type State uint8

const (
	// StateUnresolved is a content id discovered on the ledger without any object store access.
	StateUnresolved State = iota
	// StatePending is a handle whose fetch was scheduled but has not completed.
	StatePending
	// StateResolved is a handle whose content is available locally.
	StateResolved
	// StateExpired is a handle the object store does not know.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// FHandle describes one piece of content. It is immutable: every With* method returns a copy.
// The scheduled flag is shared by all copies derived from the same handle.
type FHandle struct {
	owner       *model.Address
	cid         string
	path        string
	localPath   string
	txID        string
	secretToken string
	state       State
	attempts    int
	elapsed     time.Duration
	scheduled   *atomic.Bool
}

// NewFHandle creates an unresolved handle for a content id.
func NewFHandle(cid string) *FHandle {
	return &FHandle{
		cid:       cid,
		scheduled: atomic.NewBool(false),
	}
}

// NewLocalFHandle creates a handle for a plain file of owner.
func NewLocalFHandle(owner *model.Address, path string, localPath string) *FHandle {
	return &FHandle{
		owner:     owner,
		path:      path,
		localPath: localPath,
		state:     StateResolved,
		scheduled: atomic.NewBool(false),
	}
}

func (f *FHandle) Owner() *model.Address {
	return f.owner
}

func (f *FHandle) CID() string {
	return f.cid
}

// Path is the path of the content relative to the plain directory of its owner.
func (f *FHandle) Path() string {
	return f.path
}

// LocalPath is the on-disk location of the plain or encrypted content.
func (f *FHandle) LocalPath() string {
	return f.localPath
}

func (f *FHandle) TxID() string {
	return f.txID
}

func (f *FHandle) SecretToken() string {
	return f.secretToken
}

func (f *FHandle) State() State {
	return f.state
}

func (f *FHandle) Attempts() int {
	return f.attempts
}

func (f *FHandle) Elapsed() time.Duration {
	return f.elapsed
}

func (f *FHandle) IsAvailable() bool {
	return f.state == StateResolved
}

func (f *FHandle) IsExpired() bool {
	return f.state == StateExpired
}

// IsMissing returns true while the content is neither available nor expired.
func (f *FHandle) IsMissing() bool {
	return !f.IsAvailable() && !f.IsExpired()
}

func (f *FHandle) IsEncrypted() bool {
	return f.secretToken != ""
}

// IsScheduled returns true once a background fetch was scheduled for the handle.
func (f *FHandle) IsScheduled() bool {
	return f.scheduled.Load()
}

// schedule sets the scheduled flag and returns true if it was not set before.
func (f *FHandle) schedule() bool {
	return f.scheduled.CompareAndSwap(false, true)
}

func (f *FHandle) unschedule() {
	f.scheduled.Store(false)
}

func (f *FHandle) WithOwner(owner *model.Address) *FHandle {
	c := f.clone()
	c.owner = owner

	return c
}

func (f *FHandle) WithCID(cid string) *FHandle {
	c := f.clone()
	c.cid = cid

	return c
}

func (f *FHandle) WithPath(path string) *FHandle {
	c := f.clone()
	c.path = path

	return c
}

func (f *FHandle) WithLocalPath(localPath string) *FHandle {
	c := f.clone()
	c.localPath = localPath

	return c
}

func (f *FHandle) WithTxID(txID string) *FHandle {
	c := f.clone()
	c.txID = txID

	return c
}

func (f *FHandle) WithSecretToken(secretToken string) *FHandle {
	c := f.clone()
	c.secretToken = secretToken

	return c
}

func (f *FHandle) WithState(state State) *FHandle {
	c := f.clone()
	c.state = state

	return c
}

// WithAttempt counts one more fetch attempt that took elapsed.
func (f *FHandle) WithAttempt(elapsed time.Duration) *FHandle {
	c := f.clone()
	c.attempts++
	c.elapsed += elapsed

	return c
}

func (f *FHandle) clone() *FHandle {
	c := *f

	return &c
}

func (f *FHandle) String() string {
	owner := ""
	if f.owner != nil {
		owner = f.owner.String()
	}

	return stringify.Struct("FHandle",
		stringify.NewStructField("Owner", owner),
		stringify.NewStructField("CID", f.cid),
		stringify.NewStructField("Path", f.path),
		stringify.NewStructField("TxID", f.txID),
		stringify.NewStructField("State", f.state.String()),
		stringify.NewStructField("Encrypted", f.IsEncrypted()),
		stringify.NewStructField("Attempts", f.attempts),
		stringify.NewStructField("Elapsed", f.elapsed.String()),
	)
}

// Package kubo connects the content manager to a Kubo (go-ipfs) node over its HTTP RPC API.
package kubo

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
)

// DefaultAPIAddress is the default address of the Kubo RPC API.
const DefaultAPIAddress = "127.0.0.1:5001"

// Store is an objectstore.Store backed by a Kubo node.
type Store struct {
	shell *shell.Shell

	optsRequestTimeout time.Duration
	optsPin            bool
}

var _ objectstore.Store = &Store{}

// New creates a store talking to the Kubo RPC API at apiAddress.
func New(apiAddress string, opts ...options.Option[Store]) *Store {
	return options.Apply(&Store{
		optsPin: true,
	}, opts, func(s *Store) {
		s.shell = shell.NewShellWithClient(apiAddress, &http.Client{
			Timeout: s.optsRequestTimeout,
		})
	})
}

func (s *Store) Add(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	contentID, err := s.shell.Add(r, shell.Pin(s.optsPin))
	if err != nil {
		return "", ierrors.Wrap(err, "failed to add content")
	}

	return contentID, nil
}

func (s *Store) Get(ctx context.Context, contentID string) (io.ReadCloser, error) {
	if err := objectstore.ValidateCID(contentID); err != nil {
		return nil, err
	}

	response, err := s.shell.Request("cat", contentID).Send(ctx)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to cat %s", contentID)
	}

	if response.Error != nil {
		_ = response.Close()

		if isNotFound(response.Error) {
			return nil, ierrors.Join(objectstore.ErrNotFound, response.Error)
		}

		return nil, ierrors.Wrapf(response.Error, "failed to cat %s", contentID)
	}

	return response.Output, nil
}

func (s *Store) Version(_ context.Context) (string, error) {
	version, _, err := s.shell.Version()
	if err != nil {
		return "", ierrors.Wrap(err, "failed to get version")
	}

	return version, nil
}

func (s *Store) IsUp(_ context.Context) bool {
	return s.shell.IsUp()
}

func isNotFound(err *shell.Error) bool {
	message := strings.ToLower(err.Message)

	return strings.Contains(message, "not found") || strings.Contains(message, "could not find")
}

// WithRequestTimeout limits the duration of every request to the node. Zero means no limit.
func WithRequestTimeout(timeout time.Duration) options.Option[Store] {
	return func(s *Store) {
		s.optsRequestTimeout = timeout
	}
}

// WithPin sets whether added content is pinned.
func WithPin(pin bool) options.Option[Store] {
	return func(s *Store) {
		s.optsPin = pin
	}
}

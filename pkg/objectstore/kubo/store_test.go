package kubo_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/ledger-ipfs/pkg/objectstore"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore/kubo"
)

const (
	storedCID  = "QmT78zSuBmuS4z925WZfrqQ1qHaJ56DQaTfyMUF7F8ff5o"
	missingCID = "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"
)

type kuboError struct {
	Message string
	Code    int
	Type    string
}

// newFakeNode serves the subset of the Kubo RPC API used by the store.
func newFakeNode(t *testing.T, objects map[string][]byte) *httptest.Server {
	t.Helper()

	e := echo.New()

	e.POST("/api/v0/add", func(c echo.Context) error {
		reader, err := c.Request().MultipartReader()
		if err != nil {
			return c.JSON(http.StatusBadRequest, kuboError{Message: err.Error(), Type: "error"})
		}

		part, err := reader.NextPart()
		if err != nil {
			return c.JSON(http.StatusBadRequest, kuboError{Message: err.Error(), Type: "error"})
		}

		content, err := io.ReadAll(part)
		if err != nil {
			return c.JSON(http.StatusBadRequest, kuboError{Message: err.Error(), Type: "error"})
		}

		objects[storedCID] = content

		return c.JSON(http.StatusOK, map[string]string{"Name": storedCID, "Hash": storedCID, "Size": "11"})
	})

	e.POST("/api/v0/cat", func(c echo.Context) error {
		content, exists := objects[c.QueryParam("arg")]
		if !exists {
			return c.JSON(http.StatusInternalServerError, kuboError{Message: "block was not found locally (offline): ipld: could not find " + c.QueryParam("arg"), Type: "error"})
		}

		return c.Blob(http.StatusOK, "text/plain", content)
	})

	e.POST("/api/v0/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"Version": "0.27.0", "Commit": "59bcea8"})
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return server
}

func TestStore_AddGet(t *testing.T) {
	ctx := context.Background()
	server := newFakeNode(t, make(map[string][]byte))
	store := kubo.New(server.URL)

	contentID, err := store.Add(ctx, bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	require.Equal(t, storedCID, contentID)

	reader, err := store.Get(ctx, contentID)
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), content)
	require.NoError(t, reader.Close())
}

func TestStore_GetNotFound(t *testing.T) {
	server := newFakeNode(t, make(map[string][]byte))
	store := kubo.New(server.URL)

	_, err := store.Get(context.Background(), missingCID)
	require.ErrorIs(t, err, objectstore.ErrNotFound)

	_, err = store.Get(context.Background(), "garbage")
	require.ErrorIs(t, err, objectstore.ErrInvalidCID)
}

func TestStore_Version(t *testing.T) {
	server := newFakeNode(t, make(map[string][]byte))
	store := kubo.New(server.URL)

	version, err := store.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0.27.0", version)
}

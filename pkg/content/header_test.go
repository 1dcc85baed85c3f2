package content_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/ledger-ipfs/pkg/content"
)

func TestHeader_WriteRead(t *testing.T) {
	header := &content.Header{
		Path:  "a/b.txt",
		Owner: "mkHS9ne12qx9pS9VojpwU5xtRd4T7X7ZUt",
		Token: "dG9rZW4=",
	}

	var buf bytes.Buffer
	require.NoError(t, content.WriteContent(&buf, header, []byte("ciphertext")))

	require.True(t, strings.HasPrefix(buf.String(), "DAT-Version: 1.0\nPath: a/b.txt\nOwner: mkHS9ne12qx9pS9VojpwU5xtRd4T7X7ZUt\nToken: dG9rZW4=\nDAT_HEADER_END\n"))

	readHeader, ciphertext, err := content.ReadContent(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, header, readHeader)
	require.Equal(t, []byte("ciphertext"), ciphertext)

	onlyHeader, err := content.ReadHeader(bufio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	require.Equal(t, header, onlyHeader)
}

func TestHeader_VersionMismatch(t *testing.T) {
	_, _, err := content.ReadContent(strings.NewReader("DAT-Version: 2.0\nPath: a\nDAT_HEADER_END\n"))
	require.ErrorIs(t, err, content.ErrHeaderVersionMismatch)

	_, _, err = content.ReadContent(strings.NewReader("plain text\n"))
	require.ErrorIs(t, err, content.ErrHeaderVersionMismatch)
}

func TestHeader_Truncated(t *testing.T) {
	_, _, err := content.ReadContent(strings.NewReader("DAT-Version: 1.0\nPath: a\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, content.ErrHeaderVersionMismatch)
}

func TestValidatePath(t *testing.T) {
	for _, valid := range []string{"a", "a/b.txt", "a/./b", "with space.txt"} {
		require.NoError(t, content.ValidatePath(valid), valid)
	}

	for _, invalid := range []string{"", "   ", "/etc/passwd", "..", "../x", "a/../../x"} {
		require.ErrorIs(t, content.ValidatePath(invalid), content.ErrInvalidPath, invalid)
	}
}

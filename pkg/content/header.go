package content

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/iotaledger/hive.go/ierrors"
)

const (
	headerPrefix  = "DAT"
	headerVersion = "1.0"

	versionLine   = headerPrefix + "-Version: " + headerVersion
	headerEndLine = headerPrefix + "_HEADER_END"

	pathField  = "Path: "
	ownerField = "Owner: "
	tokenField = "Token: "
)

// Header precedes the base64 encoded ciphertext of a content file.
type Header struct {
	Path  string
	Owner string
	Token string
}

// WriteContent writes the header followed by the base64 encoded ciphertext.
func WriteContent(w io.Writer, header *Header, ciphertext []byte) error {
	if _, err := fmt.Fprintf(w, "%s\n%s%s\n%s%s\n%s%s\n%s\n", versionLine, pathField, header.Path, ownerField, header.Owner, tokenField, header.Token, headerEndLine); err != nil {
		return ierrors.Wrap(err, "failed to write header")
	}

	if _, err := io.WriteString(w, base64.StdEncoding.EncodeToString(ciphertext)); err != nil {
		return ierrors.Wrap(err, "failed to write ciphertext")
	}

	return nil
}

// ReadHeader reads the header lines up to and including the end marker.
func ReadHeader(r *bufio.Reader) (*Header, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read version")
	}

	if line != versionLine {
		return nil, ierrors.Wrapf(ErrHeaderVersionMismatch, "unexpected first line %q", line)
	}

	header := &Header{}
	for {
		if line, err = readLine(r); err != nil {
			return nil, ierrors.Wrap(err, "header end not found")
		}

		switch {
		case strings.HasPrefix(line, pathField):
			header.Path = strings.TrimPrefix(line, pathField)
		case strings.HasPrefix(line, ownerField):
			header.Owner = strings.TrimPrefix(line, ownerField)
		case strings.HasPrefix(line, tokenField):
			header.Token = strings.TrimPrefix(line, tokenField)
		case line == headerEndLine:
			return header, nil
		}
	}
}

// ReadContent reads a content file and returns its header and the decoded ciphertext.
func ReadContent(r io.Reader) (*Header, []byte, error) {
	reader := bufio.NewReader(r)

	header, err := ReadHeader(reader)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, ierrors.Wrap(err, "failed to read ciphertext")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, nil, ierrors.Wrap(err, "failed to decode ciphertext")
	}

	return header, ciphertext, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

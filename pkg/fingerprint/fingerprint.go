// Package fingerprint hashes import files so unchanged exports can be skipped
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// Fingerprinted is the content of a file read alongside its hash
type Fingerprinted struct {
	Hash  string
	Size  int64
	Bytes []byte
}

// Reader returns a reader over the file content
func (f *Fingerprinted) Reader() io.Reader {
	return bytes.NewReader(f.Bytes)
}

// Generate returns the hex SHA256 of data
func Generate(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Read consumes r and returns its content and hash, so the content can be parsed after the hash
// is compared.
func Read(r io.Reader) (*Fingerprinted, error) {
	h := sha256.New()
	var buf bytes.Buffer

	n, err := io.Copy(io.MultiWriter(h, &buf), r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	return &Fingerprinted{
		Hash:  hex.EncodeToString(h.Sum(nil)),
		Size:  n,
		Bytes: buf.Bytes(),
	}, nil
}

// Records returns an order independent hash of parsed records.
// Two exports holding the same sales in a different row order share it.
func Records(records []models.CustomerRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		b, _ := json.Marshal(r)
		lines = append(lines, string(b))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

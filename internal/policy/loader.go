package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davidahmann/fleetpolicy/internal/crypto"
)

type LoadedDocument struct {
	Document *Document
	Hash     string
	Bytes    []byte
}

// LoadDocument parses a policy document and computes its hash from raw bytes.
func LoadDocument(path string) (LoadedDocument, error) {
	// #nosec G304 -- path comes from the operator-selected policy directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadedDocument{}, err
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return LoadedDocument{}, fmt.Errorf("%s: %w", path, err)
	}

	return LoadedDocument{
		Document: doc,
		Hash:     crypto.DigestWithPrefix(data),
		Bytes:    data,
	}, nil
}

// WriteDocument serializes doc and replaces path with a temp file rename, so
// readers see either the old bytes or the new bytes. It returns the new hash.
func WriteDocument(path string, doc *Document) (string, error) {
	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	// #nosec G302 -- policy documents are meant to be shared.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return crypto.DigestWithPrefix(data), nil
}

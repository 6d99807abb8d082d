package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// HashPrefix identifies the digest algorithm in stored hashes. Hashes
// live in NFT metadata on the public ledger while document content stays
// off-chain; the prefix keeps the format self-describing.
const HashPrefix = "sha256:"

// ComputeDocumentHash hashes raw document bytes.
func ComputeDocumentHash(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("cannot hash empty content")
	}
	digest := sha256.Sum256(content)
	return HashPrefix + hex.EncodeToString(digest[:]), nil
}

// ComputeFileHash hashes a document on disk, streaming so large scans do
// not need to fit in memory.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyHash checks content against an expected hash. Used for tamper
// detection when documents come back from storage.
func VerifyHash(content []byte, expected string) (bool, error) {
	if !strings.HasPrefix(expected, HashPrefix) {
		return false, fmt.Errorf("invalid hash format, expected %q prefix: %s", HashPrefix, expected)
	}
	actual, err := ComputeDocumentHash(content)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// ComputeBundleHash combines the three document hashes into one
// fingerprint for bundle-level deduplication. Hashes are sorted before
// joining, so the result is independent of argument order.
func ComputeBundleHash(invoiceHash, poHash, podHash string) (string, error) {
	hashes := []string{invoiceHash, poHash, podHash}
	for _, h := range hashes {
		if !strings.HasPrefix(h, HashPrefix) {
			return "", fmt.Errorf("invalid hash format: %s", h)
		}
	}
	sort.Strings(hashes)
	digest := sha256.Sum256([]byte(strings.Join(hashes, "|")))
	return HashPrefix + hex.EncodeToString(digest[:]), nil
}

package archive

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"
)

// FileShasum calculates the SHA-1 digest of a file, streaming it through the
// hasher so arbitrarily large archives never load fully into memory.
func FileShasum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// VerifyFile reports whether the file's SHA-1 digest equals expectedShasum.
// A read error is an I/O failure, not an integrity mismatch.
func VerifyFile(filePath, expectedShasum string) (bool, error) {
	actual, err := FileShasum(filePath)
	if err != nil {
		return false, err
	}

	return actual == expectedShasum, nil
}

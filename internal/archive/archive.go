package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// payloadPrefix is the single top-level directory wrapping every package
// archive, matching the registry tarball convention.
const payloadPrefix = "package"

// Info describes a created archive. Shasum, FileCount and UnpackedSize are
// the values a registry publishes in a version's dist descriptor.
type Info struct {
	Path         string
	Shasum       string
	SizeBytes    int64
	FileCount    int
	UnpackedSize int64
}

// Pack creates a tar.gz archive from file patterns, wrapping all entries in
// a single "package/" top-level directory. Matches whose first path
// component is named in excludeDirs are skipped.
func Pack(patterns []string, outputPath string, excludeDirs ...string) (*Info, error) {
	excluded := make(map[string]bool, len(excludeDirs))
	for _, dir := range excludeDirs {
		excluded[dir] = true
	}

	// Collect all files matching the patterns
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to match pattern %s: %w", pattern, err)
		}

		for _, match := range matches {
			// Skip directories
			if info, err := os.Stat(match); err != nil || info.IsDir() {
				continue
			}

			// Clean path and avoid duplicates
			cleanPath := filepath.Clean(match)
			if excluded[firstComponent(cleanPath)] {
				continue
			}
			if !seen[cleanPath] {
				files = append(files, cleanPath)
				seen[cleanPath] = true
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched the specified patterns")
	}

	// Create output file
	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	// Hash the compressed stream as it is written
	hasher := sha1.New()
	multiWriter := io.MultiWriter(outFile, hasher)

	gzWriter := gzip.NewWriter(multiWriter)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	var unpackedSize int64

	for _, filePath := range files {
		if err := addFileToArchive(tarWriter, filePath); err != nil {
			return nil, fmt.Errorf("failed to add file %s: %w", filePath, err)
		}

		if info, err := os.Stat(filePath); err == nil {
			unpackedSize += info.Size()
		}
	}

	// Close writers to flush data before reading the hash
	tarWriter.Close()
	gzWriter.Close()
	outFile.Close()

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	return &Info{
		Path:         outputPath,
		Shasum:       fmt.Sprintf("%x", hasher.Sum(nil)),
		SizeBytes:    info.Size(),
		FileCount:    len(files),
		UnpackedSize: unpackedSize,
	}, nil
}

// addFileToArchive adds a single file to the tar archive under the payload prefix
func addFileToArchive(tarWriter *tar.Writer, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}

	// Use forward slashes in archive
	header.Name = payloadPrefix + "/" + filepath.ToSlash(filePath)

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}

// Unpack extracts a tar.gz archive to a destination directory, stripping the
// single leading path component that wraps the package payload.
func Unpack(archivePath string, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		if err := extractEntry(tarReader, header, destDir); err != nil {
			return fmt.Errorf("failed to extract file %s: %w", header.Name, err)
		}
	}

	return nil
}

// extractEntry extracts a single entry from the tar archive
func extractEntry(tarReader *tar.Reader, header *tar.Header, destDir string) error {
	// Clean the file path to prevent directory traversal
	cleanName := filepath.Clean(header.Name)
	if strings.Contains(cleanName, "..") {
		return fmt.Errorf("invalid file path: %s", header.Name)
	}

	stripped, ok := stripLeadingComponent(cleanName)
	if !ok {
		// Entry for the wrapping directory itself
		return nil
	}

	destPath := filepath.Join(destDir, stripped)

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(destPath, 0o755)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		return os.Symlink(header.Linkname, destPath)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode).Perm())
		if err != nil {
			return err
		}
		defer outFile.Close()

		_, err = io.Copy(outFile, tarReader)
		return err
	default:
		// Skip character/block devices and other special entries
		return nil
	}
}

// firstComponent returns the first path component of a cleaned path.
func firstComponent(path string) string {
	path = filepath.ToSlash(path)
	if idx := strings.Index(path, "/"); idx != -1 {
		return path[:idx]
	}
	return path
}

// stripLeadingComponent removes the first path component from an
// already-cleaned slash-separated name. ok is false when the name has no
// remainder (the wrapping directory entry itself).
func stripLeadingComponent(name string) (string, bool) {
	name = filepath.ToSlash(name)
	idx := strings.Index(name, "/")
	if idx == -1 {
		return "", false
	}

	rest := name[idx+1:]
	if rest == "" {
		return "", false
	}

	return rest, true
}

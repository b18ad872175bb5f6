package archive

import (
	"io/fs"
	"path/filepath"
)

// CensusResult aggregates the regular files found in a directory subtree.
type CensusResult struct {
	FileCount int
	TotalSize int64
}

// Add folds another census into this one. The aggregation is associative: a
// directory's census equals the sum of its children's censuses.
func (c *CensusResult) Add(other CensusResult) {
	c.FileCount += other.FileCount
	c.TotalSize += other.TotalSize
}

// Census walks dir recursively, counting regular files and summing their
// byte sizes. Symlinks and special files are not counted.
func Census(dir string) (CensusResult, error) {
	var result CensusResult

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		result.FileCount++
		result.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return CensusResult{}, err
	}

	return result, nil
}

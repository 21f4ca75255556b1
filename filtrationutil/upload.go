/*
Copyright © 2024 the FiltrationStudy authors.
This file is part of FiltrationStudy.

FiltrationStudy is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FiltrationStudy is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FiltrationStudy.  If not, see <http://www.gnu.org/licenses/>.
*/

package filtrationutil

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/bpearlman97/FiltrationStudy/cloud"
)

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// the uploadOutput method is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil || path == "" {
		return path
	}
	if !cloud.IsBlob(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = ioutil.TempDir("", "filtration")
		if u.err != nil {
			return ""
		}
	}
	local := filepath.Join(u.dir, fmt.Sprintf("%d_%s", len(u.files), filepath.Base(path)))
	u.files = append(u.files, [2]string{local, path})
	return local
}

// uploadOutput copies the local files that stand in for blob storage
// outputs to their final locations. Files that were never created are
// skipped.
func (u *uploader) uploadOutput(ctx context.Context, logf func(format string, args ...interface{})) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		data, err := ioutil.ReadFile(files[0])
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return fmt.Errorf("filtrationutil: opening file '%s' for upload: %v", files[0], err)
		}
		if err := cloud.WriteBlob(ctx, files[1], data, logf); err != nil {
			return fmt.Errorf("filtrationutil: uploading file '%s' to '%s': %v", files[0], files[1], err)
		}
	}
	return nil
}

// cleanup removes the temporary directory holding files to be uploaded.
func (u *uploader) cleanup() {
	if u.dir != "" {
		os.RemoveAll(u.dir)
	}
}

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

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is in blob storage. If it is,
// it downloads the file and returns the path to the downloaded file.
// Otherwise the path is returned unchanged. The returned function
// removes any downloaded file and must be called once the file is no
// longer needed.
func maybeDownload(ctx context.Context, path string) (string, func(), error) {
	nop := func() {}
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nop, nil
	}
	if !cloud.IsBlob(path) {
		return path, nop, nil
	}
	data, err := cloud.ReadBlob(ctx, path)
	if err != nil {
		return path, nop, err
	}
	dir, err := ioutil.TempDir("", "filtration")
	if err != nil {
		return path, nop, fmt.Errorf("filtrationutil: creating temporary download directory: %v", err)
	}
	cleanup := func() { os.RemoveAll(dir) }
	local := filepath.Join(dir, filepath.Base(path))
	if err := ioutil.WriteFile(local, data, 0644); err != nil {
		cleanup()
		return path, nop, fmt.Errorf("filtrationutil: writing downloaded file: %v", err)
	}
	return local, cleanup, nil
}

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
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/bpearlman97/FiltrationStudy"
	"github.com/bpearlman97/FiltrationStudy/cloud"
	"github.com/spf13/cobra"
)

// CalibrateFile fits the clean bed filter coefficient to the observations
// in the given TOML file, which may be stored locally or in blob storage.
// The attachment efficiency is estimated using the other parameters in p.
func CalibrateFile(ctx context.Context, p *filtration.Parameters, obsFile string) (*filtration.Calibration, error) {
	path, cleanup, err := maybeDownload(ctx, obsFile)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filtration: opening observation file: %v", err)
	}
	defer f.Close()
	obs, err := filtration.ReadObservations(f)
	if err != nil {
		return nil, err
	}
	return filtration.CalibrateParameters(p, obs)
}

// writeCalibration writes c in TOML format to fileName, or to the output
// of cmd if fileName is blank.
func writeCalibration(ctx context.Context, cmd *cobra.Command, c *filtration.Calibration, fileName string) error {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Errorf("filtration: encoding calibration: %v", err)
	}
	switch {
	case fileName == "":
		_, err := cmd.OutOrStdout().Write(b.Bytes())
		return err
	case cloud.IsBlob(fileName):
		return cloud.WriteBlob(ctx, fileName, b.Bytes(), nil)
	default:
		return ioutil.WriteFile(fileName, b.Bytes(), 0644)
	}
}

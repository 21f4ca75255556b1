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

// Package hash creates keys that identify simulation scenarios.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer writes values deterministically, including maps and NaNs,
// which gob cannot be relied on for.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a hash key for the specified objects, which are
// typically a scenario's parameters and run options.
func Hash(objects ...interface{}) string {
	h := fnv.New128a()
	for _, o := range objects {
		if err := gob.NewEncoder(h).Encode(o); err != nil {
			// e.g., NaN values or unexported types.
			h.Reset()
			return spewHash(h, objects)
		}
	}
	return sum(h)
}

func spewHash(h hash.Hash, objects []interface{}) string {
	for _, o := range objects {
		printer.Fprintf(h, "%#v", o)
	}
	return sum(h)
}

func sum(h hash.Hash) string {
	return fmt.Sprintf("%x", h.Sum(nil))
}

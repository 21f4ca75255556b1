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

package cloud

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitURL(t *testing.T) {
	tests := []struct {
		addr, bucket, key string
		err               bool
	}{
		{addr: "gs://mybucket/runs/profile.csv", bucket: "gs://mybucket", key: "runs/profile.csv"},
		{addr: "s3://b/x.xlsx", bucket: "s3://b", key: "x.xlsx"},
		{addr: "mem://test/a/b", bucket: "mem://test", key: "a/b"},
		{addr: "file:///tmp/out/x.csv", bucket: "file:///", key: "tmp/out/x.csv"},
		{addr: "file://out/x.csv", bucket: "file://out", key: "x.csv"},
		{addr: "mem://test", err: true},
		{addr: "/tmp/x.csv", err: true},
	}
	for _, test := range tests {
		t.Run(test.addr, func(t *testing.T) {
			bucket, key, err := SplitURL(test.addr)
			if (err != nil) != test.err {
				t.Fatalf("error: %v", err)
			}
			if bucket != test.bucket || key != test.key {
				t.Errorf("have (%q, %q), want (%q, %q)", bucket, key, test.bucket, test.key)
			}
		})
	}
}

func TestBlobMem(t *testing.T) {
	ctx := context.Background()
	const addr = "mem://blobtest/run1/summary.toml"
	if err := WriteBlob(ctx, addr, []byte("run_time_hours = 48.0\n"), t.Logf); err != nil {
		t.Fatal(err)
	}
	b, err := ReadBlob(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "run_time_hours = 48.0\n" {
		t.Errorf("have %q", b)
	}
	// The shared in-memory bucket stays usable after each operation.
	if err := WriteBlob(ctx, addr, []byte("run_time_hours = 24.0\n"), t.Logf); err != nil {
		t.Fatal(err)
	}
	if b, err = ReadBlob(ctx, addr); err != nil || string(b) != "run_time_hours = 24.0\n" {
		t.Errorf("have %q, %v", b, err)
	}
	if _, err := ReadBlob(ctx, "mem://blobtest/run1/missing.toml"); err == nil {
		t.Errorf("missing blob should fail")
	}
}

func TestCloseBucket(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenBucket(ctx, "mem://closetest")
	if err != nil {
		t.Fatal(err)
	}
	if err := closeBucket(mem); err != nil {
		t.Fatal(err)
	}
	if err := WriteBlob(ctx, "mem://closetest/x", []byte("x"), nil); err != nil {
		t.Errorf("in-memory bucket should stay open: %v", err)
	}

	file, err := OpenBucket(ctx, "file://"+filepath.ToSlash(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if err := closeBucket(file); err != nil {
		t.Fatal(err)
	}
	if _, err := file.Attributes(ctx, "x"); err == nil {
		t.Errorf("file bucket should be closed")
	}

	if err := CheckBucket(ctx, "mem://closetest"); err != nil {
		t.Error(err)
	}
	if err := CheckBucket(ctx, "ftp://x"); err == nil {
		t.Error("invalid provider should fail")
	}
}

func TestBlobFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	addr := "file://" + filepath.ToSlash(dir) + "/out/profile.csv"
	if err := WriteBlob(ctx, addr, []byte("Depth,C\n"), nil); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "profile.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "Depth,C\n" {
		t.Errorf("have %q", b)
	}
}

func TestOpenBucketInvalid(t *testing.T) {
	if _, err := OpenBucket(context.Background(), "ftp://x"); err == nil {
		t.Errorf("invalid provider should fail")
	}
	if IsBlob("results/profile.csv") {
		t.Errorf("local path is not a blob")
	}
}

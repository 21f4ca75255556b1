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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"gocloud.dev/blob"
)

// IsBlob returns whether the given path represents a blob
// (i.e., if it starts with 'gs://', 's3://', 'mem://', or 'file://').
func IsBlob(path string) bool {
	for _, p := range []string{"gs://", "s3://", "mem://", "file://"} {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// SplitURL splits a blob address in the format 'provider://bucket/key'
// into a bucket name that can be passed to OpenBucket and the key of
// the blob within the bucket.
func SplitURL(addr string) (bucketName, key string, err error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", "", fmt.Errorf("cloud: parsing blob address '%s': %v", addr, err)
	}
	if !IsBlob(addr) {
		return "", "", fmt.Errorf("cloud: '%s' is not a blob address", addr)
	}
	bucketName = u.Scheme + "://" + u.Host
	if u.Scheme == "file" && u.Host == "" {
		bucketName += "/"
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("cloud: blob address '%s' has no key", addr)
	}
	return bucketName, key, nil
}

// ReadBlob reads the blob at the given address.
func ReadBlob(ctx context.Context, addr string) ([]byte, error) {
	bucketName, key, err := SplitURL(addr)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	defer closeBucket(bucket)
	return readBlob(ctx, bucket, key)
}

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return b.Bytes(), nil
}

// WriteBlob writes data to the given address, retrying with exponential
// backoff if the write fails. Retry messages are sent to logf if it is
// not nil.
func WriteBlob(ctx context.Context, addr string, data []byte, logf func(format string, args ...interface{})) error {
	bucketName, key, err := SplitURL(addr)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	defer closeBucket(bucket)
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	return backoff.RetryNotify(
		func() error {
			return writeBlob(ctx, bucket, key, data)
		},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			if logf != nil {
				logf("%v: retrying in %v", err, d)
			}
		},
	)
}

// writeBlob writes the given data to the given bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	b := bytes.NewBuffer(data)
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, b); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

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

// Package cloud provides access to the blob storage locations that
// simulation inputs can be read from and outputs written to.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for a directory in
// the local filesystem, "mem" for in-memory storage that lasts for the
// life of the process (e.g., for testing), "gs" for Google Cloud Storage,
// and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	url, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	switch url.Scheme {
	case "file":
		dir := url.Host + url.Path
		if dir == "" {
			dir = "."
		}
		return fileblob.OpenBucket(dir, nil)
	case "mem":
		return memBucket(url.Host), nil
	case "gs":
		return gsBucket(ctx, url.Hostname())
	case "s3":
		return s3Bucket(ctx, url.Hostname())
	default:
		return nil, fmt.Errorf("cloud.OpenBucket: invalid provider %s", url.Scheme)
	}
}

var (
	memBuckets   = make(map[string]*blob.Bucket)
	memBucketsMu sync.Mutex
)

// memBucket returns the in-memory bucket with the given name, creating
// it if necessary.
func memBucket(name string) *blob.Bucket {
	memBucketsMu.Lock()
	defer memBucketsMu.Unlock()
	b, ok := memBuckets[name]
	if !ok {
		b = memblob.OpenBucket(nil)
		memBuckets[name] = b
	}
	return b
}

// isMemBucket returns whether b is one of the shared in-memory buckets.
func isMemBucket(b *blob.Bucket) bool {
	memBucketsMu.Lock()
	defer memBucketsMu.Unlock()
	for _, m := range memBuckets {
		if m == b {
			return true
		}
	}
	return false
}

// closeBucket closes b unless it is a shared in-memory bucket, which
// must stay open for the life of the process.
func closeBucket(b *blob.Bucket) error {
	if isMemBucket(b) {
		return nil
	}
	return b.Close()
}

// CheckBucket makes sure the bucket specified by bucketName can be
// opened. See OpenBucket for the format of bucketName.
func CheckBucket(ctx context.Context, bucketName string) error {
	b, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	return closeBucket(b)
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, fmt.Errorf("cloud: creating s3 session: %v", err)
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

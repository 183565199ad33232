// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/staranto/buildmemo/internal/store"
)

// mtimeMeta carries the entry's local modification time on the object so a
// pull can restore it. S3's LastModified is the upload time instead.
const mtimeMeta = "buildmemo-mtime"

// S3API is the part of *s3.Client a Syncer needs.
type S3API interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Action is what a sync did with one entry.
type Action string

const (
	Pushed  Action = "pushed"
	Pulled  Action = "pulled"
	Skipped Action = "skipped"
	Planned Action = "planned"
)

// Result reports one entry of a sync.
type Result struct {
	Key     string    `json:"key"`
	Object  string    `json:"object"`
	Action  Action    `json:"action"`
	ModTime time.Time `json:"modTime"`
}

// Syncer moves entries between a DirStore and s3://Bucket/Prefix/<key>.json.
type Syncer struct {
	Client S3API
	Bucket string
	Prefix string
	// DryRun reports what would be copied without copying it.
	DryRun bool
}

func (s *Syncer) objectKey(key string) string {
	return path.Join(strings.Trim(s.Prefix, "/"), key+".json")
}

// Push uploads every local entry.
func (s *Syncer) Push(ctx context.Context, st *store.DirStore) ([]Result, error) {
	if s.Bucket == "" {
		return nil, errors.New("no bucket configured")
	}

	infos, err := st.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(infos))
	for _, info := range infos {
		r := Result{Key: info.Key, Object: s.objectKey(info.Key), Action: Planned, ModTime: info.ModTime}
		if s.DryRun {
			results = append(results, r)
			continue
		}

		data, err := st.Get(ctx, info.Key)
		if err != nil {
			return results, err
		}

		_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      awsv2.String(s.Bucket),
			Key:         awsv2.String(r.Object),
			Body:        bytes.NewReader(data),
			ContentType: awsv2.String("application/json"),
			Metadata: map[string]string{
				mtimeMeta: info.ModTime.UTC().Format(time.RFC3339Nano),
			},
		})
		if err != nil {
			return results, fmt.Errorf("failed to put s3://%s/%s: %w", s.Bucket, r.Object, err)
		}
		log.Debugf("pushed %s to s3://%s/%s", info.Key, s.Bucket, r.Object)

		r.Action = Pushed
		results = append(results, r)
	}

	return results, nil
}

// Pull downloads every entry under the prefix. A local entry at least as new
// as the remote one is left alone.
func (s *Syncer) Pull(ctx context.Context, st *store.DirStore) ([]Result, error) {
	if s.Bucket == "" {
		return nil, errors.New("no bucket configured")
	}

	prefix := strings.Trim(s.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	local, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	localMod := make(map[string]time.Time, len(local))
	for _, i := range local {
		localMod[i.Key] = i.ModTime
	}

	var results []Result
	pager := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: awsv2.String(s.Bucket),
		Prefix: awsv2.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return results, fmt.Errorf("failed to list s3://%s/%s: %w", s.Bucket, prefix, err)
		}

		for _, obj := range page.Contents {
			objKey := awsv2.ToString(obj.Key)
			rel := strings.TrimPrefix(objKey, prefix)
			if strings.Contains(rel, "/") || !strings.HasSuffix(rel, ".json") {
				continue
			}
			key := strings.TrimSuffix(rel, ".json")
			if err := store.ValidateKey(key); err != nil {
				log.WithError(err).Warnf("skipping %s", objKey)
				continue
			}

			r, err := s.pullOne(ctx, st, key, objKey, awsv2.ToTime(obj.LastModified), localMod)
			if err != nil {
				return results, err
			}
			results = append(results, r)
		}
	}

	return results, nil
}

func (s *Syncer) pullOne(
	ctx context.Context,
	st *store.DirStore,
	key, objKey string,
	lastModified time.Time,
	localMod map[string]time.Time,
) (Result, error) {
	r := Result{Key: key, Object: objKey, Action: Planned, ModTime: lastModified}
	mod, haveLocal := localMod[key]

	// Dry runs stat the object only when a local entry could make it a skip.
	if s.DryRun {
		if !haveLocal {
			return r, nil
		}
		head, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: awsv2.String(s.Bucket),
			Key:    awsv2.String(objKey),
		})
		if err != nil {
			return r, fmt.Errorf("failed to stat s3://%s/%s: %w", s.Bucket, objKey, err)
		}
		r.ModTime = remoteModTime(head.Metadata, r.ModTime)
		if !mod.Before(r.ModTime) {
			r.Action = Skipped
		}
		return r, nil
	}

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awsv2.String(s.Bucket),
		Key:    awsv2.String(objKey),
	})
	if err != nil {
		return r, fmt.Errorf("failed to get s3://%s/%s: %w", s.Bucket, objKey, err)
	}
	defer out.Body.Close()

	r.ModTime = remoteModTime(out.Metadata, r.ModTime)
	if haveLocal && !mod.Before(r.ModTime) {
		r.Action = Skipped
		return r, nil
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return r, fmt.Errorf("failed to read s3://%s/%s: %w", s.Bucket, objKey, err)
	}
	if err := st.Put(ctx, key, data); err != nil {
		return r, err
	}
	if !r.ModTime.IsZero() {
		if err := st.Touch(ctx, key, r.ModTime); err != nil {
			return r, err
		}
	}
	log.Debugf("pulled %s from s3://%s/%s", key, s.Bucket, objKey)

	r.Action = Pulled
	return r, nil
}

// remoteModTime is the entry mtime recorded at push, or fallback when the
// object carries none.
func remoteModTime(meta map[string]string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, meta[mtimeMeta]); err == nil {
		return t
	}
	return fallback
}

// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/aws"
	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/output"
	"github.com/staranto/buildmemo/internal/snapshot"
	"github.com/staranto/buildmemo/internal/store"
)

// newS3Client is swapped out by tests.
var newS3Client = func(ctx context.Context, opts ...aws.Option) (snapshot.S3API, error) {
	return aws.NewS3Client(ctx, opts...)
}

var syncColumns = []output.Column{
	{Key: "key", Title: "KEY"},
	{Key: "object", Title: "OBJECT"},
	{Key: "action", Title: "ACTION"},
	{Key: "modified", Title: "MODIFIED", Format: func(v interface{}) string {
		t, _ := v.(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format(time.DateTime)
	}},
}

// NewSyncer builds a snapshot.Syncer from the S3 flags of cmd.
func NewSyncer(ctx context.Context, cmd *cli.Command) (*snapshot.Syncer, error) {
	bucket := cmd.String("bucket")
	if bucket == "" {
		return nil, errors.New("no bucket: set --bucket, BUILDMEMO_S3_BUCKET or s3.bucket in the config file")
	}

	client, err := newS3Client(ctx,
		aws.WithProfile(cmd.String("profile")),
		aws.WithRegion(cmd.String("region")),
		aws.WithEndpoint(cmd.String("endpoint")),
		aws.WithMaxAttempts(cmd.Int("retries")),
	)
	if err != nil {
		return nil, err
	}

	return &snapshot.Syncer{
		Client: client,
		Bucket: bucket,
		Prefix: cmd.String("prefix"),
		DryRun: cmd.Bool("dry-run"),
	}, nil
}

func syncRows(results []snapshot.Result) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		rows = append(rows, map[string]interface{}{
			"key":      r.Key,
			"object":   r.Object,
			"action":   string(r.Action),
			"modified": r.ModTime,
		})
	}
	return rows
}

func syncAction(op func(*snapshot.Syncer, context.Context, *store.DirStore) ([]snapshot.Result, error)) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		syncer, err := NewSyncer(ctx, cmd)
		if err != nil {
			return err
		}
		results, err := op(syncer, ctx, OpenStore(cmd))
		if err != nil {
			return err
		}
		return output.Spit(Writer(cmd), syncRows(results), syncColumns, OutputOptions(cmd))
	}
}

// PushCommandAction uploads every entry to the snapshot bucket.
var PushCommandAction = syncAction((*snapshot.Syncer).Push)

// PullCommandAction downloads the snapshot into the store.
var PullCommandAction = syncAction((*snapshot.Syncer).Pull)

// PushCommandBuilder constructs the cli.Command definition for the "push"
// command.
func PushCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "push",
		Usage:     "upload the store to S3",
		UsageText: `buildmemo push [--bucket B] [--prefix P] [--retries N] [--dry-run]`,
		Flags:     NewS3Flags("push", meta.Config.Source),
		Output:    true,
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 0, 0, 0)
		},
		Action: PushCommandAction,
		Meta:   meta,
	}).Build()
}

// PullCommandBuilder constructs the cli.Command definition for the "pull"
// command.
func PullCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "pull",
		Usage:     "download the store from S3",
		UsageText: `buildmemo pull [--bucket B] [--prefix P] [--retries N] [--dry-run]`,
		Flags:     NewS3Flags("pull", meta.Config.Source),
		Output:    true,
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 0, 0, 0)
		},
		Action: PullCommandAction,
		Meta:   meta,
	}).Build()
}

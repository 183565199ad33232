// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/memo"
	"github.com/staranto/buildmemo/internal/meta"
	"github.com/staranto/buildmemo/internal/store"
)

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// HTTPProducer GETs url and decodes the JSON body. Any non-2xx status is an
// error, so nothing is cached for it.
func HTTPProducer(client *http.Client, url string, header http.Header) memo.Producer[any] {
	return func(ctx context.Context) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
		}
		req.Header = header.Clone()
		if req.Header == nil {
			req.Header = http.Header{}
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}

		log.Debugf("GET %s", url)
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, fmt.Errorf("GET %s: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
		}

		var v any
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return nil, fmt.Errorf("GET %s: response is not JSON: %w", url, err)
		}
		return v, nil
	}
}

// parseHeaders turns NAME=VALUE pairs into a header. Validation has already
// rejected malformed pairs.
func parseHeaders(pairs []string) http.Header {
	h := http.Header{}
	for _, p := range pairs {
		name, value, _ := strings.Cut(p, "=")
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h
}

// FetchCommandAction memoizes an HTTP GET under KEY and prints the value.
// A fresh entry is printed without any request being made.
func FetchCommandAction(ctx context.Context, cmd *cli.Command) error {
	key, url := cmd.Args().Get(0), cmd.Args().Get(1)

	cache := memo.New(OpenStore(cmd),
		memo.WithEnabled(store.Enabled()),
		memo.WithLogger(log.WithField("cmd", "fetch")),
	)
	client := &http.Client{Timeout: cmd.Duration("http-timeout")}

	header := parseHeaders(cmd.StringSlice("header"))
	if token := cmd.String("token"); token != "" && header.Get("Authorization") == "" {
		header.Set("Authorization", "Bearer "+token)
	}

	fetch := memo.Wrap(cache, key,
		HTTPProducer(client, url, header),
		memo.WithTimeout(cmd.Duration("timeout")),
		memo.WithSingleFlight(),
	)

	v, err := fetch(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	_, err = fmt.Fprintln(Writer(cmd), string(out))
	return err
}

// FetchCommandBuilder constructs the cli.Command definition for the "fetch"
// command.
func FetchCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "fetch",
		Usage:     "fetch a JSON URL through the cache",
		UsageText: `buildmemo fetch KEY URL [--timeout D] [--header NAME=VALUE]...`,
		Flags: []cli.Flag{
			NewTimeoutFlag("fetch", meta.Config),
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "request header as NAME=VALUE (repeatable)",
				Validator: func(values []string) error {
					for _, v := range values {
						if err := FlagValidators(v, HeaderValidator); err != nil {
							return err
						}
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token sent as the Authorization header",
				Sources: cli.NewValueSourceChain(cli.EnvVar("BUILDMEMO_TOKEN")),
			},
			&cli.DurationFlag{
				Name:  "http-timeout",
				Usage: "HTTP client timeout",
				Value: 30 * time.Second, //nolint:mnd
			},
		},
		Args: func(c *cli.Command) error {
			return ArgsValidator(c, 2, 2, 1)
		},
		Action: FetchCommandAction,
		Meta:   meta,
	}).Build()
}

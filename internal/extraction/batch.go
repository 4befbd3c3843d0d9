// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extraction

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matthewgall/meterlens/internal/logging"
)

// Batch defaults
const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = time.Second
)

// BatchOptions controls ExtractBatch. Zero values select the defaults; a
// negative Delay disables the pause between batches.
type BatchOptions struct {
	BatchSize int
	Delay     time.Duration
	Logger    *logging.Logger
}

// Extraction pairs a successful result with its photo
type Extraction struct {
	PhotoID string
	Result  *Result
}

// Failure records why a photo could not be extracted
type Failure struct {
	PhotoID string
	Err     error
}

// BatchResult holds per-photo outcomes in request order
type BatchResult struct {
	Results  []Extraction
	Failures []Failure
}

// ExtractBatch runs the requests BatchSize at a time, pausing Delay between
// batches. A failing photo never affects the others. Cancelling ctx marks
// every photo not yet started as failed.
func ExtractBatch(ctx context.Context, extractor Extractor, requests []Request, opts BatchOptions) BatchResult {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	delay := opts.Delay
	if delay == 0 {
		delay = DefaultBatchDelay
	}
	logger := logging.OrDiscard(opts.Logger)

	type outcome struct {
		result *Result
		err    error
	}
	outcomes := make([]outcome, len(requests))

	for start := 0; start < len(requests); start += size {
		end := min(start+size, len(requests))

		if err := ctx.Err(); err != nil {
			for i := start; i < len(requests); i++ {
				outcomes[i].err = err
			}
			break
		}

		var g errgroup.Group
		g.SetLimit(size)
		for i := start; i < end; i++ {
			g.Go(func() error {
				res, err := extractor.Extract(ctx, requests[i])
				outcomes[i] = outcome{result: res, err: err}
				return nil
			})
		}
		_ = g.Wait()

		logger.Debug("Extraction batch finished", "from", start+1, "to", end, "total", len(requests))

		if end < len(requests) && delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}

	var out BatchResult
	for i, req := range requests {
		o := outcomes[i]
		if o.err == nil && o.result == nil {
			o.err = &ParseError{Reason: "no result"}
		}
		var values int
		if o.result != nil {
			values = len(o.result.Values)
		}
		logger.LogExtraction(req.PhotoID, values, o.err)
		if o.err != nil {
			out.Failures = append(out.Failures, Failure{PhotoID: req.PhotoID, Err: o.err})
			continue
		}
		out.Results = append(out.Results, Extraction{PhotoID: req.PhotoID, Result: o.result})
	}
	return out
}

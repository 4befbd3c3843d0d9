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

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewgall/meterlens/internal/extraction"
	"github.com/matthewgall/meterlens/internal/models"
	"github.com/matthewgall/meterlens/internal/pipeline"
	"github.com/matthewgall/meterlens/internal/seasonal"
)

var (
	ingestDocType  string
	ingestUploaded string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <photo>...",
	Short: "Extract readings from photos and rebuild consumption records",
	Long: `Sends each photo to the vision provider, stores the extracted values with
their inferred periods, then recomputes the household's consumption records.
Photos that fail are recorded as failed and do not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocType, "type", "", "document type hint (e.g. paper-bill, weekly-chart)")
	ingestCmd.Flags().StringVar(&ingestUploaded, "uploaded", "", "upload date YYYY-MM-DD used for period inference (default: today)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	uploadedAt := time.Now()
	if ingestUploaded != "" {
		t, err := parseDay("uploaded", ingestUploaded)
		if err != nil {
			return err
		}
		uploadedAt = t
	}
	docHint := models.DocUnknown
	if ingestDocType != "" {
		docHint = models.ParseDocumentType(ingestDocType)
		if docHint == models.DocUnknown {
			return fmt.Errorf("unknown document type %q", ingestDocType)
		}
	}

	client, err := extraction.NewVisionClient(extraction.Config{
		Endpoint: cfg.Vision.Endpoint,
		APIKey:   cfg.Vision.APIKey,
		Model:    cfg.Vision.Model,
		Timeout:  cfg.Vision.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating vision client: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	region := seasonal.RegionForPostcode(cfg.Postcode)
	photos := make(map[string]models.Photo, len(args))
	requests := make([]extraction.Request, 0, len(args))
	for _, path := range args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", path, err)
		}
		photo := models.Photo{
			ID:           models.NewID(),
			UserID:       cfg.UserID,
			UploadedAt:   uploadedAt,
			Path:         abs,
			DocumentType: docHint,
			Status:       models.PhotoPending,
		}
		if err := s.SavePhoto(photo); err != nil {
			return err
		}
		photos[photo.ID] = photo
		requests = append(requests, extraction.Request{
			PhotoID:    photo.ID,
			Path:       abs,
			UploadedAt: uploadedAt,
			Postcode:   cfg.Postcode,
			Region:     region,
		})
	}

	logger.LogStage(fmt.Sprintf("Extracting %d photos", len(requests)))
	batch := extraction.ExtractBatch(ctx, client, requests, extraction.BatchOptions{
		BatchSize: cfg.Vision.BatchSize,
		Delay:     cfg.Vision.BatchDelay,
		Logger:    logger,
	})

	rows := make([][]string, 0, len(requests))
	for _, ex := range batch.Results {
		photo := photos[ex.PhotoID]
		values := pipeline.ValuesFromExtraction(photo, ex.Result, photo.UploadedAt)
		if err := s.SaveValues(values); err != nil {
			return err
		}
		doc := ex.Result.DocumentType
		if doc == models.DocUnknown && docHint != models.DocUnknown {
			doc = docHint
		}
		if err := s.UpdatePhotoStatus(photo.ID, models.PhotoCompleted, doc, ex.Result.Confidence, ""); err != nil {
			return err
		}
		for _, w := range ex.Result.Warnings {
			logger.Warn("Extraction warning", "photo", filepath.Base(photo.Path), "warning", w)
		}
		rows = append(rows, []string{filepath.Base(photo.Path), string(doc), fmt.Sprintf("%d", len(values)), fmt.Sprintf("%.0f%%", ex.Result.Confidence)})
	}
	for _, f := range batch.Failures {
		photo := photos[f.PhotoID]
		if err := s.UpdatePhotoStatus(photo.ID, models.PhotoFailed, photo.DocumentType, 0, f.Err.Error()); err != nil {
			return err
		}
		rows = append(rows, []string{filepath.Base(photo.Path), "failed", "0", f.Err.Error()})
	}

	fmt.Println(renderTable("Photos",
		[]string{"Photo", "Document", "Values", "Confidence"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))

	set, err := rebuildRecords(s, cfg.UserID)
	if err != nil {
		return err
	}
	printConfirmations(set.Confirmations)

	if len(batch.Failures) > 0 {
		logger.UserMessage("%d of %d photos could not be read", len(batch.Failures), len(requests))
	}
	return nil
}

func printConfirmations(pending []pipeline.Confirmation) {
	if len(pending) == 0 {
		return
	}
	rows := make([][]string, 0, len(pending))
	for _, c := range pending {
		logger.LogConfirmationNeeded(pipeline.PeriodLabel(c.Start, c.Granularity), c.Reconciliation.Reasoning)
		rows = append(rows, []string{
			pipeline.PeriodLabel(c.Start, c.Granularity),
			fmt.Sprintf("%.2f", c.Reconciliation.RecommendedValue),
			fmt.Sprintf("%.0f%%", c.Reconciliation.Confidence),
			c.Reconciliation.Reasoning,
		})
	}
	fmt.Println(renderTable("Readings to confirm",
		[]string{"Period", "kWh", "Confidence", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
}

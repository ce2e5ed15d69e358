package queue

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/plantmine/triplextract/internal/pipeline"
	"github.com/plantmine/triplextract/pkg/export"
	"github.com/plantmine/triplextract/pkg/logger"
)

// MineJobMsg requests a mining run over one PubTator file.
type MineJobMsg struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
	InputPath     string `json:"input_path"`
}

// ExportJobMsg requests a triple export for one species.
type ExportJobMsg struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
	TaxID         int    `json:"tax_id"`
	OutputPath    string `json:"output_path"`
}

func ProcessMineMessage(ctx context.Context, miner *pipeline.Miner, msg string) error {
	data := new(MineJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	logger.Info("[Queue] Starting mining run", "correlation_id", data.CorrelationID, "input", data.InputPath)

	file, err := os.Open(data.InputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(data.InputPath, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	stats, err := miner.Run(ctx, reader)
	if err != nil {
		return err
	}

	for _, count := range stats.TopSpecies(5) {
		logger.Info("[Queue] Species coverage", "correlation_id", data.CorrelationID, "species", count.SpeciesID, "documents", count.Documents)
	}
	logger.Info("[Queue] Mining run finished", "correlation_id", data.CorrelationID, "documents", stats.DocumentsStored, "trait_mentions", stats.TraitMentions)

	return nil
}

func ProcessExportMessage(ctx context.Context, exporter *export.Exporter, msg string) error {
	data := new(ExportJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	logger.Info("[Queue] Starting export", "correlation_id", data.CorrelationID, "tax_id", data.TaxID, "output", data.OutputPath)

	triples, err := exporter.Triples(ctx, data.TaxID)
	if err != nil {
		return err
	}
	if len(triples) == 0 {
		logger.Warn("[Queue] No associations found for species", "correlation_id", data.CorrelationID, "tax_id", data.TaxID)
		return nil
	}

	file, err := os.Create(data.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := exporter.WriteTSV(file, triples); err != nil {
		return err
	}

	logger.Info("[Queue] Export finished", "correlation_id", data.CorrelationID, "tax_id", data.TaxID, "triples", len(triples))
	return nil
}

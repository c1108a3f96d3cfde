// Package feed reads the approval-status export and surfaces disapproved
// creatives as recovery candidates.
package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"adrescue/internal/config"
	"adrescue/internal/logging"
	"adrescue/internal/services"
)

// Candidate is one disapproved creative row.
type Candidate struct {
	AdGroupName string
	AccountID   string
	Status      string
	Row         int
}

// Source lists disapproved creatives awaiting recovery.
type Source interface {
	Disapproved(ctx context.Context) ([]Candidate, error)
}

// Column layout of the approval-status sheet export. Data starts after the
// configured header rows.
const (
	colAdGroupName   = 0  // A
	colAccountID     = 25 // Z
	colCampaignState = 26 // AA
	colStatus        = 27 // AB
	minColumns       = 28
)

// CSVSource reads candidates from a CSV export of the approval-status sheet.
type CSVSource struct {
	path             string
	headerRows       int
	disapprovedValue string
	logger           *slog.Logger
}

// NewCSVSource constructs a source for the configured export file.
func NewCSVSource(cfg *config.Config, logger *slog.Logger) *CSVSource {
	return &CSVSource{
		path:             cfg.Feed.ExportPath,
		headerRows:       cfg.Feed.HeaderRows,
		disapprovedValue: cfg.Feed.DisapprovedValue,
		logger:           logging.NewComponentLogger(logger, "feed"),
	}
}

// Disapproved returns disapproved rows in sheet order. Rows belonging to
// removed or paused campaigns and demand-gen ad groups are skipped.
func (s *CSVSource) Disapproved(ctx context.Context) ([]Candidate, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "feed", "open", s.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var candidates []Candidate
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, "feed", "read", fmt.Sprintf("row %d", row+1), err)
		}
		row++
		if row <= s.headerRows || len(record) < minColumns {
			continue
		}

		name := strings.TrimSpace(record[colAdGroupName])
		if name == "" {
			continue
		}

		state := strings.ToLower(strings.TrimSpace(record[colCampaignState]))
		if state == "removed" || state == "paused" {
			s.logger.Debug("skipping inactive campaign", logging.String("ad_group", name), logging.String("state", state))
			continue
		}
		if strings.Contains(name, "DG") {
			s.logger.Debug("skipping demand-gen ad group", logging.String("ad_group", name))
			continue
		}

		status := strings.TrimSpace(record[colStatus])
		if status != s.disapprovedValue {
			continue
		}

		candidates = append(candidates, Candidate{
			AdGroupName: name,
			AccountID:   strings.ReplaceAll(strings.TrimSpace(record[colAccountID]), "-", ""),
			Status:      status,
			Row:         row,
		})
	}

	s.logger.Info("disapproved creatives detected", logging.Int("count", len(candidates)))
	return candidates, nil
}

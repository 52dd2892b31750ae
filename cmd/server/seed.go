package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	zaplogrus "github.com/irfndi/neuratrade-eval/internal/logging/zaplogrus"
	"github.com/irfndi/neuratrade-eval/internal/models"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func seedAction(cCtx *cli.Context) error {
	path := cCtx.String("file")
	events, err := loadEvents(path)
	if err != nil {
		return err
	}

	d, err := bootstrapCLI(cCtx)
	if err != nil {
		return err
	}
	defer d.close()

	n, err := d.repo.SaveEvents(cCtx.Context, events)
	if err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	d.logger.WithFields(zaplogrus.Fields{"file": path, "events": n}).Info("Seeded recommendation events")
	fmt.Fprintf(cCtx.App.Writer, "Seeded %d events from %s\n", n, path)
	return nil
}

// loadEvents decodes a JSON or YAML list of recommendation events. The
// format follows the file extension; unknown extensions are tried as JSON
// first.
func loadEvents(path string) ([]models.RecommendationEvent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	var events []models.RecommendationEvent
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &events)
	case ".json":
		err = decodeJSONEvents(raw, &events)
	default:
		if err = decodeJSONEvents(raw, &events); err != nil {
			events = nil
			err = yaml.Unmarshal(raw, &events)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode events file %s: %w", path, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("events file %s contains no events", path)
	}

	for i := range events {
		action, err := models.ParseAction(string(events[i].Action))
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events[i].Action = action
	}
	return events, nil
}

func decodeJSONEvents(raw []byte, events *[]models.RecommendationEvent) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(events)
}

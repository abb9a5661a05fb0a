package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"tagbench/internal/config"
	"tagbench/internal/logging"
	"tagbench/internal/services"
)

const defaultFetchTimeout = 60 * time.Second

// LoadOptions tunes how a dataset location is read.
type LoadOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Load reads labeled records from an http(s) URL or a local CSV file. The
// header must contain title, description, and tag columns; other columns are
// ignored.
func Load(ctx context.Context, location string, opts LoadOptions) ([]Record, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, services.Wrap(services.ErrConfiguration, "dataset", "load", "empty dataset location", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "dataset")

	var (
		body io.ReadCloser
		err  error
	)
	if config.IsRemote(location) {
		body, err = fetch(ctx, location, opts)
	} else {
		body, err = os.Open(location)
		if err != nil {
			marker := services.ErrConfiguration
			if errors.Is(err, os.ErrNotExist) {
				marker = services.ErrNotFound
			}
			err = services.Wrap(marker, "dataset", "open", location, err)
		}
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	records, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	logger.Debug("dataset loaded",
		logging.String("location", location),
		logging.Int("records", len(records)),
	)
	return records, nil
}

func fetch(ctx context.Context, url string, opts LoadOptions) (io.ReadCloser, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "dataset", "build request", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "dataset", "fetch", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "dataset", "fetch", fmt.Sprintf("%s returned status %d", url, resp.StatusCode), nil)
	}
	return resp.Body, nil
}

// Parse decodes CSV records from r.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrValidation, "dataset", "parse", "missing header row", nil)
		}
		return nil, services.Wrap(services.ErrValidation, "dataset", "parse", "read header", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "dataset", "parse", fmt.Sprintf("row %d", line), err)
		}
		rec := Record{
			Title:       field(row, cols.title),
			Description: field(row, cols.description),
			Tag:         strings.TrimSpace(field(row, cols.tag)),
		}
		if rec.Tag == "" {
			return nil, services.Wrap(services.ErrValidation, "dataset", "parse", fmt.Sprintf("row %d has an empty tag", line), nil)
		}
		records = append(records, rec)
	}
	return records, nil
}

type columns struct {
	title, description, tag int
}

func columnIndex(header []string) (columns, error) {
	cols := columns{title: -1, description: -1, tag: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "title":
			cols.title = i
		case "description":
			cols.description = i
		case "tag":
			cols.tag = i
		}
	}
	var missing []string
	if cols.title < 0 {
		missing = append(missing, "title")
	}
	if cols.description < 0 {
		missing = append(missing, "description")
	}
	if cols.tag < 0 {
		missing = append(missing, "tag")
	}
	if len(missing) > 0 {
		return cols, services.Wrap(services.ErrValidation, "dataset", "parse header", "missing columns: "+strings.Join(missing, ", "), nil)
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// WriteCSV writes records with the title, description, tag header.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"title", "description", "tag"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := writer.Write([]string{r.Title, r.Description, r.Tag}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

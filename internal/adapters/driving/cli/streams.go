package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// streamPaths returns args, or every existing domain stream in dir.
func streamPaths(args []string, dir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if streamPath == nil {
		return nil, errors.New("no stream files given")
	}
	var paths []string
	for _, d := range domain.AllDomains() {
		p := streamPath(dir, d)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no record streams found in %s", dir)
	}
	return paths, nil
}

// readStreams loads and concatenates records from paths.
func readStreams(ctx context.Context, paths []string) ([]domain.TrainingRecord, error) {
	if recordReader == nil {
		return nil, errors.New("record reader not configured")
	}
	var all []domain.TrainingRecord
	for _, p := range paths {
		records, err := recordReader.Read(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		all = append(all, records...)
	}
	return all, nil
}

// outputDir resolves the output directory from flag or settings.
func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			return s.OutputDir
		}
	}
	return domain.DefaultSettings().OutputDir
}

package asset

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/shared/utils"
)

// FileLoader reads form documents from a catalogued directory.
type FileLoader struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewFileLoader creates a loader over the catalog. The catalog is rescanned
// on a lookup miss, so files added after startup are picked up.
func NewFileLoader(catalog *Catalog, logger *zap.Logger) *FileLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLoader{catalog: catalog, logger: logger.Named("file_loader")}
}

// Load reads and decodes the document for the asset
func (l *FileLoader) Load(ctx context.Context, assetName string) (*Document, error) {
	if err := utils.ValidateAssetName(assetName); err != nil {
		return nil, err
	}

	entry, ok := l.catalog.Lookup(assetName)
	if !ok {
		if err := l.catalog.Scan(ctx); err != nil {
			return nil, err
		}
		if entry, ok = l.catalog.Lookup(assetName); !ok {
			return nil, fmt.Errorf("%w: asset %q under %s", form.ErrNotFound, assetName, l.catalog.Root())
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %q: %w", assetName, err)
	}

	doc, err := Decode(data, entry.Format, entry.Compression)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", assetName, err)
	}
	doc.normalize(assetName, entry.Path)

	l.logger.Debug("asset loaded", zap.String("asset", assetName), zap.String("path", entry.Path))
	return doc, nil
}

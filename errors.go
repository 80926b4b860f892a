package geopartition

import (
	"errors"
	"fmt"

	"github.com/cholmes/geopartition/admin"
	"github.com/cholmes/geopartition/geom"
	"github.com/cholmes/geopartition/partition"
	"github.com/cholmes/geopartition/partition/kdtree"
	"github.com/cholmes/geopartition/table"
	"github.com/cholmes/geopartition/write"
)

var (
	// ErrValidation marks bad options: nothing was executed.
	ErrValidation = errors.New("validation error")

	// ErrInput marks a problem with the source data (empty dataset,
	// invalid geometry, bad column value).
	ErrInput = errors.New("input error")

	// ErrResource marks an environmental failure (dataset download,
	// cache corruption) that survived internal retries.
	ErrResource = errors.New("resource error")

	// ErrOutputConflict marks an existing output path; surfaced before
	// any file is written.
	ErrOutputConflict = errors.New("output conflict")

	// ErrAnalysisAborted marks a run stopped by analysis warnings without
	// force. No files were written.
	ErrAnalysisAborted = errors.New("analysis warnings blocked execution")
)

// translateError folds package-level errors into the public taxonomy. The
// original error stays reachable through errors.Unwrap / errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Validation: bad options, unknown datasets or levels.
	var invalidCount *kdtree.ErrInvalidPartitionCount
	if errors.As(err, &invalidCount) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	var unknownDataset *admin.ErrUnknownDataset
	if errors.As(err, &unknownDataset) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	var unknownLevel *admin.ErrUnknownLevel
	if errors.As(err, &unknownLevel) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	// Input: source data problems.
	if errors.Is(err, partition.ErrEmptyInput) {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	var insufficient *kdtree.ErrInsufficientRows
	if errors.As(err, &insufficient) {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	var unknownColumn *partition.ErrUnknownPartitionColumn
	if errors.As(err, &unknownColumn) {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	var badGeometry *geom.ErrInvalidGeometry
	if errors.As(err, &badGeometry) {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	var badValue *table.ErrBadValue
	if errors.As(err, &badValue) {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	var rowErr *partition.RowError
	if errors.As(err, &rowErr) {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}

	// Resource: downloads and cache state.
	var unavailable *admin.DatasetUnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}

	var conflict *write.ErrOutputConflict
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %w", ErrOutputConflict, err)
	}

	return err
}

package record

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRow             = errors.New("malformed row")
	ErrIncompleteRow            = errors.New("incomplete row")
	ErrMissingReference         = errors.New("missing reference")
	ErrUnsupportedAssetCategory = errors.New("unsupported asset category")
)

// MalformedRowError reports a row with a wrong field count or an unparseable value.
type MalformedRowError struct {
	Location Location
	Field    string
	Value    string
	Err      error
}

func (e *MalformedRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: malformed row: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("%s: malformed row: field %q value %q: %v", e.Location, e.Field, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() error        { return e.Err }
func (e *MalformedRowError) Is(target error) bool { return target == ErrMalformedRow }

// IncompleteRowError reports a data row shorter than the active schema.
type IncompleteRowError struct {
	Location Location
	Section  string
	Got      int
	Want     int
}

func (e *IncompleteRowError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s: incomplete row in section %q: %d fields, schema has %d", e.Location, e.Section, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: incomplete row: %d fields, schema has %d", e.Location, e.Got, e.Want)
}

func (e *IncompleteRowError) Is(target error) bool { return target == ErrIncompleteRow }

// MissingReferenceError reports a markup transaction with no derivable identity.
type MissingReferenceError struct {
	Location Location
	Date     string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s: transaction dated %s has no reference", e.Location, e.Date)
}

func (e *MissingReferenceError) Is(target error) bool { return target == ErrMissingReference }

// UnsupportedAssetCategoryError reports a trade whose asset category has no generator.
type UnsupportedAssetCategoryError struct {
	Location Location
	Category string
}

func (e *UnsupportedAssetCategoryError) Error() string {
	return fmt.Sprintf("%s: unsupported asset category %q", e.Location, e.Category)
}

func (e *UnsupportedAssetCategoryError) Is(target error) bool {
	return target == ErrUnsupportedAssetCategory
}

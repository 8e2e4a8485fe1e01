package detectors

import (
	"github.com/nvr-ai/go-sahi/models"
)

// LoadLabels reads a label file with one category name per line.
//
// Arguments:
//   - path: The label file path.
//
// Returns:
//   - []string: The names in class-id order.
//   - error: An error if the file cannot be read or holds no names.
func LoadLabels(path string) ([]string, error) {
	set, err := models.LoadOutputClassSet(path, models.ModelFamilyCustom)
	if err != nil {
		return nil, err
	}
	return set.Names(), nil
}

// resolveLabels returns the configured labels, or the YOLO classes when none are set.
func resolveLabels(labels []string) []string {
	if len(labels) == 0 {
		return models.YOLOClasses.Names()
	}
	return append([]string(nil), labels...)
}

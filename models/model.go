// Package models - Model families and their label conventions.
package models

// ModelFamily identifies the naming convention / dataset a model was trained on.
type ModelFamily string

const (
	// ModelFamilyCOCO is the 80 COCO classes + background.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the 80 COCO classes, no background class.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyCustom is a label set read from a label file.
	ModelFamilyCustom ModelFamily = "custom"
)

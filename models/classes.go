package models

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its ordered list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Style ModelFamily
	// Classes ordered by the index the model emits.
	Classes []OutputClass
}

// Len returns the number of classes in the set.
func (s OutputClassSet) Len() int {
	return len(s.Classes)
}

// Names returns the class names ordered by index.
//
// Returns:
//   - []string: A fresh slice the caller may modify.
func (s OutputClassSet) Names() []string {
	return lo.Map(s.Classes, func(c OutputClass, _ int) string {
		return c.Name
	})
}

// Name returns the class name for an index.
//
// Arguments:
//   - idx: The zero-based class index emitted by the model.
//
// Returns:
//   - string: The class name.
//   - bool: False when idx is outside the set.
func (s OutputClassSet) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", false
	}
	return s.Classes[idx].Name, true
}

// Index returns the class index for a name.
func (s OutputClassSet) Index(name string) (int, bool) {
	c, ok := lo.Find(s.Classes, func(c OutputClass) bool {
		return c.Name == name
	})
	if !ok {
		return -1, false
	}
	return c.Index, true
}

// NewOutputClassSet builds a set from names ordered by index.
func NewOutputClassSet(style ModelFamily, names []string) OutputClassSet {
	return OutputClassSet{
		Style: style,
		Classes: lo.Map(names, func(name string, i int) OutputClass {
			return OutputClass{Index: i, Name: name}
		}),
	}
}

// LoadOutputClassSet reads a label file with one class name per line.
//
// Surrounding whitespace (including Windows carriage returns) is trimmed and
// blank lines are skipped.
//
// Arguments:
//   - path: The label file.
//   - style: The model family the labels belong to.
//
// Returns:
//   - OutputClassSet: The labels in file order.
//   - error: An error if the file cannot be read or holds no labels.
func LoadOutputClassSet(path string, style ModelFamily) (OutputClassSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return OutputClassSet{}, errors.Wrapf(err, "could not open label file %q", path)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return OutputClassSet{}, errors.Wrapf(err, "could not read label file %q", path)
	}
	if len(names) == 0 {
		return OutputClassSet{}, errors.Errorf("label file %q holds no labels", path)
	}

	return NewOutputClassSet(style, names), nil
}

// yoloNames are the 80 COCO classes in the order YOLO heads emit them.
var yoloNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich",
	"orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list.
var YOLOClasses = NewOutputClassSet(ModelFamilyYOLO, yoloNames)

// COCOClasses is the 80 COCO classes plus "__background__" at index 0.
var COCOClasses = NewOutputClassSet(ModelFamilyCOCO, append([]string{"__background__"}, yoloNames...))

package common

import "fmt"

// Category identifies the class a detection belongs to.
type Category struct {
	// ID is the category id in the caller's taxonomy.
	ID int `json:"id" yaml:"id"`
	// Name is the human-readable label.
	Name string `json:"name" yaml:"name"`
}

func (c Category) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.ID)
}

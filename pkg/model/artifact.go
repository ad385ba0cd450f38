package model

import "fmt"

// Artifact identifies one registered wheel file. Artifacts are immutable:
// once registered they are never mutated or deleted.
type Artifact struct {
	Name      string  `json:"name"`
	Version   Version `json:"version"`
	CompatTag string  `json:"compat_tag"`
	File      string  `json:"file"` // base filename inside the repository directory
}

// Key returns the (name, version, tag) identity used for duplicate detection.
func (a Artifact) Key() string {
	return fmt.Sprintf("%s-%s-%s", a.Name, a.Version, a.CompatTag)
}

func (a Artifact) String() string {
	return fmt.Sprintf("%s==%s (%s)", a.Name, a.Version, a.CompatTag)
}

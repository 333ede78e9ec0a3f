package model

import (
	"strings"
	"time"
)

// MergePlan is the top-level YAML structure produced by plan -o yaml. It
// captures the state of a feature/upstream pair at one point in time: the
// divergence point and the upstream commits not yet integrated.
type MergePlan struct {
	Feature  string   `yaml:"feature"`
	Upstream string   `yaml:"upstream"`
	Base     string   `yaml:"base"`
	Commits  []Commit `yaml:"commits"`
}

// Commit is the serializable representation of a pending upstream commit.
type Commit struct {
	SHA     string    `yaml:"sha"`
	Date    time.Time `yaml:"date"`
	Author  string    `yaml:"author"`
	Message string    `yaml:"message"`
}

// Summary returns the first line of the commit message.
func (c Commit) Summary() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return strings.TrimSpace(c.Message[:i])
	}
	return strings.TrimSpace(c.Message)
}

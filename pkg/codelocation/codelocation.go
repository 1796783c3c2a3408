package codelocation

import (
	"fmt"
	"path"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
)

// CodeLocation is one unit of dependency data: the graph one handler
// extracted from one directory.
type CodeLocation struct {
	SourcePath string // directory relative to the scan root
	Creator    string // rule that produced the graph
	Project    detect.NameVersion
	Graph      *dag.DAG
}

// Name is the stable name sinks publish the code location under.
func (c CodeLocation) Name() string {
	src := path.Clean(c.SourcePath)
	if src == "." {
		src = ""
	}
	version := c.Project.Version
	if version == "" {
		version = "default"
	}
	name := fmt.Sprintf("%s/%s", c.Project.Name, version)
	if src != "" {
		name += " " + src
	}
	return name + " " + c.Creator
}

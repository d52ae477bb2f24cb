package tool

import (
	"math/rand"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"hedwig/internal/domain"
)

var (
	artifactIDMu      sync.Mutex
	artifactIDEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newArtifactID() string {
	artifactIDMu.Lock()
	defer artifactIDMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), artifactIDEntropy).String()
}

// fileArtifact describes a file written by a tool.
func fileArtifact(path, tool string, size int) domain.Artifact {
	return domain.Artifact{
		ID:   newArtifactID(),
		Type: domain.ArtifactTypeForPath(path),
		Name: filepath.Base(path),
		Path: path,
		Metadata: map[string]string{
			"tool": tool,
			"size": strconv.Itoa(size),
		},
	}
}

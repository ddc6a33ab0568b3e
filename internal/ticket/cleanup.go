package ticket

import (
	"go.uber.org/zap"

	"github.com/tixgate/tixgate/internal/storage"
)

// fileCleanup collects artifact references superseded by a state change and
// removes them after the primary mutation commits. Individual failures are
// logged and ignored; an orphaned file is unreferenced and harmless, an
// aborted transition is not.
type fileCleanup struct {
	files storage.FileStore
	log   *zap.Logger
	refs  []string
	seen  map[string]struct{}
}

func newCleanup(files storage.FileStore, log *zap.Logger) *fileCleanup {
	return &fileCleanup{files: files, log: log, seen: make(map[string]struct{})}
}

func (c *fileCleanup) add(ref string) {
	if ref == "" {
		return
	}
	if _, dup := c.seen[ref]; dup {
		return
	}
	c.seen[ref] = struct{}{}
	c.refs = append(c.refs, ref)
}

func (c *fileCleanup) run() {
	for _, ref := range c.refs {
		if err := c.files.Delete(ref); err != nil {
			c.log.Warn("failed to delete stored file", zap.String("ref", ref), zap.Error(err))
		}
	}
}

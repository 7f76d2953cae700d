// internal/browser/locks.go
package browser

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Chromium drops singleton artifacts in the profile directory to enforce one
// process per profile. After an unclean shutdown they survive and block the
// next launch, so they are reconciled away before every persistent launch.
var staleLockArtifacts = []string{
	"SingletonLock",
	"SingletonSocket",
	"SingletonCookie",
}

// ReconcileProfileLocks removes stale singleton artifacts directly under the
// profile directory. Missing artifacts are not errors; removal failures are
// logged and never block the launch attempt.
func ReconcileProfileLocks(profileDir string, logger *zap.Logger) {
	for _, name := range staleLockArtifacts {
		path := filepath.Join(profileDir, name)

		// The artifacts are usually symlinks, so stat the link itself.
		if _, err := os.Lstat(path); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("Could not stat profile lock artifact.",
					zap.String("path", path), zap.Error(err))
			}
			continue
		}

		if err := os.Remove(path); err != nil {
			logger.Warn("Could not remove stale profile lock artifact.",
				zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Debug("Removed stale profile lock artifact.", zap.String("path", path))
	}
}

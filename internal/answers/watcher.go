// Package answers delivers human answers to the engine through a
// drop directory. Writing <jobID>_<questionID>.txt into the directory
// answers the matching pending question; the file's content is the
// answer text. The watcher is a second transport next to the HTTP
// surface, usable from shell scripts and editors.
package answers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Submitter accepts answers for pending questions. Satisfied by the
// engine.
type Submitter interface {
	SubmitAnswer(jobID, questionID, answer string) error
}

// Watcher monitors a drop directory for answer files.
type Watcher struct {
	dir       string
	submitter Submitter
	watcher   *fsnotify.Watcher
	logger    *zap.Logger
	done      chan struct{}
}

// Dir returns the answers drop directory under the data directory.
func Dir(dataDir string) string {
	return filepath.Join(dataDir, "answers")
}

// NewWatcher creates a watcher over dir, creating the directory if
// needed. Call Start to begin watching.
func NewWatcher(dir string, submitter Submitter, logger *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create answers directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:       dir,
		submitter: submitter,
		watcher:   fw,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Start drains answer files already present, then watches for new
// ones until Close.
func (w *Watcher) Start() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read answers directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.deliver(filepath.Join(w.dir, entry.Name()))
		}
	}

	go w.watch()
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.deliver(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("answers watcher error", zap.Error(err))
		}
	}
}

// deliver parses one answer file, submits it, and removes the file.
// Files that don't parse or don't match a pending question are left
// for the operator to inspect.
func (w *Watcher) deliver(path string) {
	jobID, questionID, ok := parseFilename(filepath.Base(path))
	if !ok {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Create events can fire before the writer finishes; the
		// following Write event retries.
		return
	}
	answer := strings.TrimSpace(string(data))
	if answer == "" {
		return
	}

	if err := w.submitter.SubmitAnswer(jobID, questionID, answer); err != nil {
		w.logger.Warn("answer file not delivered",
			zap.String("file", filepath.Base(path)),
			zap.Error(err))
		return
	}

	w.logger.Info("answer delivered from drop file",
		zap.String("job_id", jobID),
		zap.String("question_id", questionID))
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to remove answer file",
			zap.String("file", path),
			zap.Error(err))
	}
}

// parseFilename splits <jobID>_<questionID>.txt. Job and question ids
// are UUIDs, which never contain underscores.
func parseFilename(name string) (jobID, questionID string, ok bool) {
	if !strings.HasSuffix(name, ".txt") {
		return "", "", false
	}
	name = strings.TrimSuffix(name, ".txt")
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// WriteAnswer drops an answer file into dir for a watcher to pick up.
// Used by the CLI answer command's --file mode and by tests.
func WriteAnswer(dir, jobID, questionID, answer string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create answers directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", jobID, questionID))
	if err := os.WriteFile(path, []byte(answer), 0644); err != nil {
		return "", fmt.Errorf("write answer file: %w", err)
	}
	return path, nil
}

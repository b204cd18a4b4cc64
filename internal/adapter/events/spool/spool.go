package spool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/campuscore/internal/domain"
)

const (
	journalPrefix = "journal-"
	filePerm      = 0644
)

// Spool is a file-backed journal of lifecycle events that could not be
// delivered to the broker. Events are appended as JSON lines to size-bounded
// journal files; a later drain replays them in write order.
type Spool struct {
	dir            string
	maxJournalSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu      sync.Mutex
	current *os.File
	size    int64
}

// New opens the spool directory, resuming the newest journal if one exists.
func New(dir string, maxJournalSize, maxTotalSize int64, logger *slog.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create spool directory %s: %w", dir, err)
	}

	s := &Spool{
		dir:            dir,
		maxJournalSize: maxJournalSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "event_spool"),
	}

	if err := s.openLatestJournal(); err != nil {
		return nil, err
	}

	return s, nil
}

// Append records an undelivered event. It fails when the spool has reached its
// disk budget; dropping the event is then the caller's decision.
func (s *Spool) Append(ctx context.Context, event domain.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}
	data = append(data, '\n')

	if s.current == nil {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	total, err := s.totalSize()
	if err != nil {
		return fmt.Errorf("check spool disk usage: %w", err)
	}
	if total+int64(len(data)) > s.maxTotalSize {
		return fmt.Errorf("event spool is full (%d of %d bytes)", total, s.maxTotalSize)
	}

	n, err := s.current.Write(data)
	if err != nil {
		return fmt.Errorf("append to journal: %w", err)
	}
	s.size += int64(n)

	if s.size >= s.maxJournalSize {
		if err := s.rotate(); err != nil {
			s.logger.Error("journal rotation failed", "error", err)
		}
	}

	return nil
}

// Replay feeds every spooled event to the handler in write order. A handler
// error stops the replay so undelivered events stay spooled.
func (s *Spool) Replay(ctx context.Context, handler func(event domain.LifecycleEvent) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
	}

	journals, err := s.sortedJournals()
	if err != nil {
		return err
	}

	for _, path := range journals {
		if err := s.replayJournal(ctx, path, handler); err != nil {
			return err
		}
	}

	return nil
}

func (s *Spool) replayJournal(ctx context.Context, path string, handler func(event domain.LifecycleEvent) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var event domain.LifecycleEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			s.logger.Warn("skipping unreadable spool entry", "error", err)
			continue
		}
		if err := handler(event); err != nil {
			return fmt.Errorf("replay handler: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan journal %s: %w", path, err)
	}

	return nil
}

// Truncate discards all journals and starts a fresh one. Called after a
// successful drain.
func (s *Spool) Truncate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
	}

	journals, err := s.sortedJournals()
	if err != nil {
		return err
	}
	for _, path := range journals {
		if err := os.Remove(path); err != nil {
			s.logger.Error("failed to remove journal", "path", path, "error", err)
		}
	}

	return s.openLatestJournal()
}

// Empty reports whether any events are currently spooled.
func (s *Spool) Empty() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, err := s.totalSize()
	if err != nil {
		return false, err
	}
	return total == 0, nil
}

// Close flushes and closes the active journal.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current.Close()
	}
	return nil
}

func (s *Spool) rotate() error {
	if s.current != nil {
		if err := s.current.Sync(); err != nil {
			s.logger.Error("journal sync failed before rotation", "error", err)
		}
		if err := s.current.Close(); err != nil {
			s.logger.Error("journal close failed before rotation", "error", err)
		}
		s.current = nil
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s%d.log", journalPrefix, time.Now().UnixNano()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("create journal %s: %w", path, err)
	}

	s.current = f
	s.size = 0
	return nil
}

func (s *Spool) openLatestJournal() error {
	journals, err := s.sortedJournals()
	if err != nil {
		return err
	}
	if len(journals) == 0 {
		return s.rotate()
	}

	latest := journals[len(journals)-1]
	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("stat journal %s: %w", latest, err)
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", latest, err)
	}

	s.current = f
	s.size = stat.Size()

	if s.size >= s.maxJournalSize {
		return s.rotate()
	}
	return nil
}

func (s *Spool) sortedJournals() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read spool directory: %w", err)
	}

	var journals []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), journalPrefix) {
			journals = append(journals, filepath.Join(s.dir, entry.Name()))
		}
	}
	sort.Strings(journals)
	return journals, nil
}

func (s *Spool) totalSize() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), journalPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

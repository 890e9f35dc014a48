package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/tidwall/jsonc"
)

// fileKeyPrefix prefixes the repository id in the JSON object keys
const fileKeyPrefix = "id_"

// fileEntry is one value of the registry JSON object
type fileEntry struct {
	RepoID int64 `json:"repo_id"`
	ChatID int64 `json:"chat_id"`
}

// FileStore keeps mappings in a JSON document of the form
//
//	{"id_<repo_id>": {"repo_id": <repo_id>, "chat_id": <chat_id>}}
//
// The whole document is read on every lookup and rewritten on every change,
// so hand edits are picked up without a restart. Comments and trailing
// commas are tolerated when reading.
type FileStore struct {
	path string
	mu   sync.Mutex
	log  *logger.Logger
}

// OpenFile opens the registry document at path. A missing file is an empty
// registry.
func OpenFile(path string, log *logger.Logger) (*FileStore, error) {
	s := &FileStore{path: path, log: log}

	// Surface parse errors at startup rather than on the first delivery
	if _, err := s.load(); err != nil {
		return nil, err
	}

	log.Infof("Registry opened (file: %s)", path)
	return s, nil
}

// Get implements Registry
func (s *FileStore) Get(_ context.Context, repoID int64) (fn.Option[int64], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return fn.None[int64](), err
	}

	if entry, ok := entries[fileKey(repoID)]; ok {
		return fn.Some(entry.ChatID), nil
	}

	// Hand-written documents may use other keys
	for _, entry := range entries {
		if entry.RepoID == repoID {
			return fn.Some(entry.ChatID), nil
		}
	}
	return fn.None[int64](), nil
}

// Put implements Registry
func (s *FileStore) Put(_ context.Context, repoID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	entries[fileKey(repoID)] = fileEntry{RepoID: repoID, ChatID: chatID}
	if err := s.save(entries); err != nil {
		return err
	}

	s.log.Debugf("Registered repo %d -> chat %d", repoID, chatID)
	return nil
}

// List implements Registry
func (s *FileStore) List(_ context.Context) ([]models.RepoChatMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}

	mappings := make([]models.RepoChatMapping, 0, len(entries))
	for key, entry := range entries {
		repoID := entry.RepoID
		if repoID == 0 {
			// Older documents only carry the id in the key
			repoID, err = parseFileKey(key)
			if err != nil {
				s.log.Warnf("Skipping registry entry %q: %v", key, err)
				continue
			}
		}
		mappings = append(mappings, models.RepoChatMapping{RepoID: repoID, ChatID: entry.ChatID})
	}

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].RepoID < mappings[j].RepoID
	})
	return mappings, nil
}

// Close implements Registry
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (map[string]fileEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]fileEntry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", s.path, err)
	}

	entries := make(map[string]fileEntry)
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &entries); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", s.path, err)
	}
	return entries, nil
}

// save writes to a temporary file and renames it over the document
func (s *FileStore) save(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create registry directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

func fileKey(repoID int64) string {
	return fileKeyPrefix + strconv.FormatInt(repoID, 10)
}

func parseFileKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, fileKeyPrefix)
	if !ok {
		return 0, fmt.Errorf("key does not start with %q", fileKeyPrefix)
	}
	return strconv.ParseInt(raw, 10, 64)
}

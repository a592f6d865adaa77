// Package memory stores the conversation of a job as a single JSON document
// of the form {"messages": [...]}. Records are only ever appended; the whole
// document is cleared at the job boundary.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wasilibs/go-re2"

	"github.com/aatumaykin/morningbrew/internal/llm"
)

// NoImage is returned by LastImageURL when the last message has no image link.
const NoImage = "ooops. something went wrong"

// SharedScope is the scope used when every job shares one conversation.
const SharedScope = "shared"

var imageURLPattern = re2.MustCompile(`(?i)(https?://.*\.(?:png|jpg|jpeg|gif|webp))`)

// Record is a message as persisted: the semantic message plus storage metadata.
type Record struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	llm.Message
}

type document struct {
	Messages []Record `json:"messages"`
}

// Store is one conversation document on disk.
type Store struct {
	scope string
	file  string
	mu    sync.Mutex // защищает файл документа
	now   func() time.Time
}

// Scope returns the scope the store was opened for.
func (s *Store) Scope() string {
	return s.scope
}

// Append persists msgs at the end of the log, stamping each with an id and a
// creation time.
func (s *Store) Append(ctx context.Context, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	createdAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, msg := range msgs {
		doc.Messages = append(doc.Messages, Record{
			ID:        uuid.NewString(),
			CreatedAt: createdAt,
			Message:   msg,
		})
	}

	return s.save(doc)
}

// ReadAll returns every stored message in append order, metadata stripped.
func (s *Store) ReadAll(ctx context.Context) ([]llm.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(doc.Messages))
	for _, r := range doc.Messages {
		messages = append(messages, r.Message)
	}
	return messages, nil
}

// Records returns the stored records including metadata.
func (s *Store) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Messages, nil
}

// Clear empties the log.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(&document{Messages: []Record{}})
}

// LastImageURL looks for an image link in the content of the most recent
// message. It is a convenience for display; the loop's own record of the
// image tool result is what completes a job.
func (s *Store) LastImageURL(ctx context.Context) string {
	messages, err := s.ReadAll(ctx)
	if err != nil || len(messages) == 0 {
		return NoImage
	}

	if match := imageURLPattern.FindString(messages[len(messages)-1].Content); match != "" {
		return match
	}
	return NoImage
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.file)
	if errors.Is(err, os.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &document{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse memory file %s: %w", s.file, err)
	}
	return &doc, nil
}

// save пишет документ целиком через временный файл и rename
func (s *Store) save(doc *document) error {
	if doc.Messages == nil {
		doc.Messages = []Record{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.file), filepath.Base(s.file)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp memory file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close memory file: %w", err)
	}
	if err := os.Rename(tmpName, s.file); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace memory file: %w", err)
	}

	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"coursechat/internal/chunker"
	"coursechat/internal/index"
	"coursechat/internal/pkg/pdfextract"
	"coursechat/internal/repository"
)

var ErrUnsupportedDocument = errors.New("unsupported document type")

// IngestService turns transcript documents into indexed chunks plus a durable
// course record.
type IngestService struct {
	chunker    *chunker.Chunker
	index      *index.Index
	courseRepo *repository.CourseRepository
}

type IngestResult struct {
	CourseTitle string `json:"course_title"`
	ChunkCount  int    `json:"chunk_count"`
	Skipped     bool   `json:"skipped"`
}

type FolderResult struct {
	CoursesAdded int `json:"courses_added"`
	ChunksAdded  int `json:"chunks_added"`
	FilesSkipped int `json:"files_skipped"`
}

func NewIngestService(ch *chunker.Chunker, ix *index.Index, courseRepo *repository.CourseRepository) *IngestService {
	return &IngestService{chunker: ch, index: ix, courseRepo: courseRepo}
}

// IngestDocument parses, chunks and indexes one transcript. A course already
// present in the index is skipped, not re-embedded.
func (s *IngestService) IngestDocument(ctx context.Context, content, fallbackTitle string) (*IngestResult, error) {
	course, chunks, err := s.chunker.ParseDocument(content, fallbackTitle)
	if err != nil {
		return nil, err
	}

	added, err := s.index.AddCourse(ctx, course, chunks)
	if err != nil {
		return nil, err
	}
	if !added {
		return &IngestResult{CourseTitle: course.Title, Skipped: true}, nil
	}

	course.ChunkCount = len(chunks)
	if s.courseRepo != nil {
		if err := s.courseRepo.Upsert(course); err != nil {
			// The index already holds the course; losing the audit row is
			// logged, not fatal.
			log.Printf("persist course %q failed: %v", course.Title, err)
		}
	}
	return &IngestResult{CourseTitle: course.Title, ChunkCount: len(chunks)}, nil
}

// IngestReader ingests a transcript from an uploaded file, dispatching on the
// filename extension. Plain text and PDF are supported.
func (s *IngestService) IngestReader(ctx context.Context, r io.Reader, filename string) (*IngestResult, error) {
	var content string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := pdfextract.ExtractText(r)
		if err != nil {
			return nil, err
		}
		content = text
	case ".txt", ".md":
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read document failed: %w", err)
		}
		content = string(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, filename)
	}
	return s.IngestDocument(ctx, content, trimExt(filename))
}

// IngestFolder loads every supported transcript in dir. A file that fails to
// parse is logged and skipped so one bad document never blocks startup.
func (s *IngestService) IngestFolder(ctx context.Context, dir string) (*FolderResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read docs dir failed: %w", err)
	}

	result := &FolderResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" && ext != ".pdf" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		file, err := os.Open(path)
		if err != nil {
			log.Printf("open %s failed: %v", path, err)
			result.FilesSkipped++
			continue
		}
		ingested, err := s.IngestReader(ctx, file, entry.Name())
		file.Close()
		if err != nil {
			log.Printf("ingest %s failed: %v", path, err)
			result.FilesSkipped++
			continue
		}
		if ingested.Skipped {
			continue
		}
		result.CoursesAdded++
		result.ChunksAdded += ingested.ChunkCount
	}
	return result, nil
}

func trimExt(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
)

// stubSampleRate is the sample rate the stub synthesiser produces.
const stubSampleRate = 24000

// stubSource is an in-memory BookSource.
type stubSource struct {
	info     driven.BookInfo
	chapters []driven.SourceChapter
	err      error
}

func (s *stubSource) Info() driven.BookInfo { return s.info }

func (s *stubSource) Chapters(_ context.Context) ([]driven.SourceChapter, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.chapters, nil
}

func (s *stubSource) Close() error { return nil }

// stubSynth synthesises deterministic audio: ten samples per input
// byte, so segment durations track text length. Failures can be
// injected per (chapter-independent) call index or for every call on
// a chunk whose text contains failOn.
type stubSynth struct {
	mu        sync.Mutex
	calls     []string
	failOn    string // fail persistently when the chunk text contains this
	failFirst int    // fail this many leading calls, then succeed
	rate      int
}

func newStubSynth() *stubSynth { return &stubSynth{rate: stubSampleRate} }

func (s *stubSynth) Synthesize(_ context.Context, text string, _ domain.Voice) (domain.AudioSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)

	if s.failOn != "" && contains(text, s.failOn) {
		return domain.AudioSegment{}, fmt.Errorf("model rejected input")
	}
	if s.failFirst > 0 {
		s.failFirst--
		return domain.AudioSegment{}, fmt.Errorf("transient failure")
	}
	return domain.AudioSegment{
		Samples:    make([]float32, len(text)*10),
		SampleRate: s.rate,
	}, nil
}

func (s *stubSynth) Close() error { return nil }

func (s *stubSynth) callTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// stubEncoder records the encode request and can be told to fail.
type stubEncoder struct {
	mu      sync.Mutex
	called  bool
	request driven.EncodeRequest
	fail    bool
}

func (e *stubEncoder) Encode(_ context.Context, req driven.EncodeRequest) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.called = true
	e.request = req
	if e.fail {
		return "", &domain.PackagingError{Err: fmt.Errorf("encoder exited with code 1")}
	}
	return req.OutputPath, nil
}

// memRunStore is an in-memory RunStore.
type memRunStore struct {
	mu       sync.Mutex
	runs     map[string]domain.Run             // by ID
	byOutput map[string]string                 // output path -> ID
	statuses map[string][]domain.ChapterStatus // by run ID
}

func newMemRunStore() *memRunStore {
	return &memRunStore{
		runs:     make(map[string]domain.Run),
		byOutput: make(map[string]string),
		statuses: make(map[string][]domain.ChapterStatus),
	}
}

func (m *memRunStore) FindRun(_ context.Context, outputPath string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOutput[outputPath]
	if !ok {
		return nil, domain.ErrNotFound
	}
	run := m.runs[id]
	return &run, nil
}

func (m *memRunStore) CreateRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	m.byOutput[run.OutputPath] = run.ID
	return nil
}

func (m *memRunStore) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		delete(m.byOutput, run.OutputPath)
	}
	delete(m.runs, runID)
	delete(m.statuses, runID)
	return nil
}

func (m *memRunStore) MarkChapterDone(_ context.Context, runID string, status domain.ChapterStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[runID] = append(m.statuses[runID], status)
	return nil
}

func (m *memRunStore) ChapterStatuses(_ context.Context, runID string) ([]domain.ChapterStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChapterStatus(nil), m.statuses[runID]...), nil
}

func (m *memRunStore) CompleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	now := run.CreatedAt
	run.CompletedAt = &now
	m.runs[runID] = run
	return nil
}

func (m *memRunStore) Close() error { return nil }

// memSegmentStore is an in-memory SegmentStore.
type memSegmentStore struct {
	mu       sync.Mutex
	segments map[int]domain.AudioSegment
}

func newMemSegmentStore() *memSegmentStore {
	return &memSegmentStore{segments: make(map[int]domain.AudioSegment)}
}

func (m *memSegmentStore) Save(_ context.Context, chapter int, seg domain.AudioSegment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments[chapter] = seg
	return fmt.Sprintf("chapter_%04d.wav", chapter), nil
}

func (m *memSegmentStore) Load(_ context.Context, chapter int) (domain.AudioSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.segments[chapter]
	if !ok {
		return domain.AudioSegment{}, domain.ErrNotFound
	}
	return seg, nil
}

func (m *memSegmentStore) Exists(chapter int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.segments[chapter]; ok {
		return fmt.Sprintf("chapter_%04d.wav", chapter), true
	}
	return "", false
}

func (m *memSegmentStore) Dir() string { return "mem" }

func (m *memSegmentStore) RemoveAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = make(map[int]domain.AudioSegment)
	return nil
}

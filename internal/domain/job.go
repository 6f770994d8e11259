package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a quiz generation job
type JobStatus string

// Possible job status values
const (
	JobStatusPending      JobStatus = "pending"
	JobStatusParsingFiles JobStatus = "parsing_files"
	JobStatusGenerating   JobStatus = "generating"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
)

// Event messages appended to the job log
const (
	completedEventMessage = "Quiz generation completed successfully"
	parsedEventFormat     = "File %s parsed successfully"
)

// Common validation and transition errors for QuizGenerationJob
var (
	ErrEmptyJobID        = errors.New("job ID cannot be empty")
	ErrEmptyJobUserID    = errors.New("job user ID cannot be empty")
	ErrEmptyJobQuizID    = errors.New("job quiz ID cannot be empty")
	ErrEmptyJobFiles     = errors.New("job must reference at least one file")
	ErrEmptyFileID       = errors.New("file identifier cannot be empty")
	ErrDuplicateJobFile  = errors.New("file identifier appears more than once in job")
	ErrInvalidJobStatus  = errors.New("invalid job status")
	ErrJobTerminal       = errors.New("job is in a terminal state")
	ErrJobNotReady       = errors.New("job still has unparsed files")
	ErrUnknownJobFile    = errors.New("file identifier is not part of job")
	ErrEmptyFailedReason = errors.New("failure reason cannot be empty")
)

// JobFile tracks whether a single input file has been parsed.
type JobFile struct {
	Identifier string `json:"identifier"`
	Parsed     bool   `json:"parsed"`
}

// JobEvent is a single entry of the append-only job log.
type JobEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error"`
	Message   string    `json:"message"`
}

// JobProgress summarizes parsing progress for readers outside the pipeline.
type JobProgress struct {
	ParsedFiles int       `json:"parsed_files"`
	TotalFiles  int       `json:"total_files"`
	Status      JobStatus `json:"status"`
}

// String renders progress in the "parsed/total" form used by the quiz API.
func (p JobProgress) String() string {
	return fmt.Sprintf("%d/%d", p.ParsedFiles, p.TotalFiles)
}

// QuizGenerationJob tracks a single quiz creation request from file parsing
// through generation. Transition methods never mutate the receiver; they
// return an updated copy so handlers can persist the full state at once.
type QuizGenerationJob struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	QuizID    uuid.UUID  `json:"quiz_id"`
	Status    JobStatus  `json:"status"`
	Files     []JobFile  `json:"files"`
	Events    []JobEvent `json:"events"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewQuizGenerationJob creates a pending job with one unparsed entry per file.
// Repeated identifiers are collapsed, keeping the first occurrence.
func NewQuizGenerationJob(userID, quizID uuid.UUID, fileIdentifiers []string) (*QuizGenerationJob, error) {
	now := time.Now().UTC()
	job := &QuizGenerationJob{
		ID:        uuid.New(),
		UserID:    userID,
		QuizID:    quizID,
		Status:    JobStatusPending,
		Files:     make([]JobFile, 0, len(fileIdentifiers)),
		Events:    []JobEvent{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	seen := make(map[string]struct{}, len(fileIdentifiers))
	for _, id := range fileIdentifiers {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		job.Files = append(job.Files, JobFile{Identifier: id})
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the job has valid data.
func (j QuizGenerationJob) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if j.UserID == uuid.Nil {
		return ErrEmptyJobUserID
	}
	if j.QuizID == uuid.Nil {
		return ErrEmptyJobQuizID
	}
	if len(j.Files) == 0 {
		return ErrEmptyJobFiles
	}
	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	seen := make(map[string]struct{}, len(j.Files))
	for _, f := range j.Files {
		if f.Identifier == "" {
			return ErrEmptyFileID
		}
		if _, ok := seen[f.Identifier]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateJobFile, f.Identifier)
		}
		seen[f.Identifier] = struct{}{}
	}

	return nil
}

// IsTerminal reports whether no further mutation is allowed.
func (j QuizGenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// IsReadyForGeneration reports whether every file has been parsed.
func (j QuizGenerationJob) IsReadyForGeneration() bool {
	for _, f := range j.Files {
		if !f.Parsed {
			return false
		}
	}
	return true
}

// HasFile reports whether the identifier belongs to this job.
func (j QuizGenerationJob) HasFile(identifier string) bool {
	return j.fileIndex(identifier) >= 0
}

// IsFileParsed reports whether the identifier belongs to this job and is parsed.
func (j QuizGenerationJob) IsFileParsed(identifier string) bool {
	i := j.fileIndex(identifier)
	return i >= 0 && j.Files[i].Parsed
}

// FileIdentifiers returns the job's file identifiers in submission order.
func (j QuizGenerationJob) FileIdentifiers() []string {
	ids := make([]string, len(j.Files))
	for i, f := range j.Files {
		ids[i] = f.Identifier
	}
	return ids
}

// Progress returns the parsed/total counters and current status.
func (j QuizGenerationJob) Progress() JobProgress {
	parsed := 0
	for _, f := range j.Files {
		if f.Parsed {
			parsed++
		}
	}
	return JobProgress{ParsedFiles: parsed, TotalFiles: len(j.Files), Status: j.Status}
}

// StartParsing moves the job into the parsing_files state.
func (j QuizGenerationJob) StartParsing() (QuizGenerationJob, error) {
	if j.IsTerminal() {
		return j, ErrJobTerminal
	}
	next := j.clone()
	next.Status = JobStatusParsingFiles
	next.touch()
	return next, nil
}

// MarkFileAsParsed flags the file as parsed and records an event. Marking an
// already parsed file leaves Files unchanged.
func (j QuizGenerationJob) MarkFileAsParsed(identifier string) (QuizGenerationJob, error) {
	if j.IsTerminal() {
		return j, ErrJobTerminal
	}
	i := j.fileIndex(identifier)
	if i < 0 {
		return j, fmt.Errorf("%w: %s", ErrUnknownJobFile, identifier)
	}

	next := j.clone()
	next.Files[i].Parsed = true
	next.appendEvent(false, fmt.Sprintf(parsedEventFormat, identifier))
	return next, nil
}

// StartGenerating moves a fully parsed job into the generating state.
func (j QuizGenerationJob) StartGenerating() (QuizGenerationJob, error) {
	if j.IsTerminal() {
		return j, ErrJobTerminal
	}
	if !j.IsReadyForGeneration() {
		return j, ErrJobNotReady
	}
	next := j.clone()
	next.Status = JobStatusGenerating
	next.touch()
	return next, nil
}

// Complete marks the job as successfully finished.
func (j QuizGenerationJob) Complete() (QuizGenerationJob, error) {
	if j.IsTerminal() {
		return j, ErrJobTerminal
	}
	if !j.IsReadyForGeneration() {
		return j, ErrJobNotReady
	}
	next := j.clone()
	next.Status = JobStatusCompleted
	next.appendEvent(false, completedEventMessage)
	return next, nil
}

// Fail marks the job as failed and records the reason as an error event.
func (j QuizGenerationJob) Fail(reason string) (QuizGenerationJob, error) {
	if j.IsTerminal() {
		return j, ErrJobTerminal
	}
	if reason == "" {
		return j, ErrEmptyFailedReason
	}
	next := j.clone()
	next.Status = JobStatusFailed
	next.appendEvent(true, reason)
	return next, nil
}

func (j QuizGenerationJob) fileIndex(identifier string) int {
	for i, f := range j.Files {
		if f.Identifier == identifier {
			return i
		}
	}
	return -1
}

// clone copies the slices so transitions never alias the previous value.
func (j QuizGenerationJob) clone() QuizGenerationJob {
	next := j
	next.Files = append([]JobFile(nil), j.Files...)
	next.Events = append([]JobEvent(nil), j.Events...)
	return next
}

func (j *QuizGenerationJob) appendEvent(isError bool, message string) {
	now := time.Now().UTC()
	j.Events = append(j.Events, JobEvent{Timestamp: now, Error: isError, Message: message})
	j.UpdatedAt = now
}

func (j *QuizGenerationJob) touch() {
	j.UpdatedAt = time.Now().UTC()
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusParsingFiles, JobStatusGenerating,
		JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

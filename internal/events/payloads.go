package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
)

// ParseRequest asks a parsing worker to extract the content of one file.
type ParseRequest struct {
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
	FileName   string `json:"fileName"`
	Checksum   string `json:"checksum"`
}

// FileParsed reports the extracted content of one file. Every field other
// than the routing fields is kept verbatim in FileContent.
type FileParsed struct {
	Checksum    string          `json:"checksum"`
	FileName    string          `json:"fileName"`
	ObjectKey   string          `json:"objectKey"`
	FileContent json.RawMessage `json:"-"`
}

// routing fields stripped from FileContent
var fileParsedRoutingFields = []string{"checksum", "fileName", "objectKey"}

// UnmarshalJSON decodes the routing fields and captures the rest as content.
func (f *FileParsed) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	type routing FileParsed
	var r routing
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	for _, name := range fileParsedRoutingFields {
		delete(fields, name)
	}
	content, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	*f = FileParsed(r)
	f.FileContent = content
	return nil
}

// MarshalJSON flattens the content fields next to the routing fields.
func (f FileParsed) MarshalJSON() ([]byte, error) {
	fields := map[string]interface{}{}
	if len(f.FileContent) > 0 {
		if err := json.Unmarshal(f.FileContent, &fields); err != nil {
			return nil, fmt.Errorf("file content must be a JSON object: %w", err)
		}
	}
	fields["checksum"] = f.Checksum
	fields["fileName"] = f.FileName
	fields["objectKey"] = f.ObjectKey
	return json.Marshal(fields)
}

// Validate checks the routing fields needed to update jobs and the cache.
func (f FileParsed) Validate() error {
	if f.Checksum == "" {
		return errors.New("checksum is required")
	}
	if f.ObjectKey == "" {
		return errors.New("objectKey is required")
	}
	return nil
}

// GenerationRequest asks the generation worker to build a quiz.
type GenerationRequest struct {
	Identifier       uuid.UUID         `json:"identifier"`
	QuestionsNumbers int               `json:"questionsNumbers"`
	FilesContents    []json.RawMessage `json:"filesContents"`
}

// Validate checks the request can be attempted at all.
func (r GenerationRequest) Validate() error {
	if r.Identifier == uuid.Nil {
		return errors.New("identifier is required")
	}
	if r.QuestionsNumbers < domain.MinQuestionsNumbers || r.QuestionsNumbers > domain.MaxQuestionsNumbers {
		return fmt.Errorf("questionsNumbers must be between %d and %d",
			domain.MinQuestionsNumbers, domain.MaxQuestionsNumbers)
	}
	if len(r.FilesContents) == 0 {
		return errors.New("filesContents cannot be empty")
	}
	return nil
}

// GenerationCompleted reports the outcome of a generation request.
// Title and Questions are only set on success; Error only on failure.
type GenerationCompleted struct {
	Identifier uuid.UUID         `json:"identifier"`
	Success    bool              `json:"success"`
	Title      string            `json:"title,omitempty"`
	Questions  []domain.Question `json:"questions,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// NewGenerationSucceeded builds the success payload for a quiz.
func NewGenerationSucceeded(identifier uuid.UUID, title string, questions []domain.Question) GenerationCompleted {
	return GenerationCompleted{Identifier: identifier, Success: true, Title: title, Questions: questions}
}

// NewGenerationFailed builds the failure payload.
func NewGenerationFailed(identifier uuid.UUID, reason string) GenerationCompleted {
	return GenerationCompleted{Identifier: identifier, Success: false, Error: reason}
}

// Validate checks the payload matches one of the two shapes.
func (c GenerationCompleted) Validate() error {
	if c.Identifier == uuid.Nil {
		return errors.New("identifier is required")
	}
	if c.Success && len(c.Questions) == 0 {
		return errors.New("successful completion must carry questions")
	}
	if !c.Success && c.Error == "" {
		return errors.New("failed completion must carry an error")
	}
	return nil
}

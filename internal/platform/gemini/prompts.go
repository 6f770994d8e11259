package gemini

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/quizgen/internal/config"
	"github.com/phrazzld/quizgen/internal/generation"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

type quizPromptData struct {
	QuestionsNumbers int
	Documents        []string
}

type safetyPromptData struct {
	Quiz string
}

// loadTemplate parses the override at path, or the embedded default when
// path is empty.
func loadTemplate(name, path string) (*template.Template, error) {
	var (
		content []byte
		err     error
	)
	if path != "" {
		content, err = os.ReadFile(path)
	} else {
		content, err = promptFS.ReadFile("prompts/" + name + ".tmpl")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s prompt template: %v", generation.ErrInvalidConfig, name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s prompt template: %v", generation.ErrInvalidConfig, name, err)
	}
	return tmpl, nil
}

type prompts struct {
	quiz   *template.Template
	safety *template.Template
}

func loadPrompts(cfg config.LLMConfig) (prompts, error) {
	quiz, err := loadTemplate("quiz", cfg.QuizPromptPath)
	if err != nil {
		return prompts{}, err
	}
	safety, err := loadTemplate("safety", cfg.SafetyPromptPath)
	if err != nil {
		return prompts{}, err
	}
	return prompts{quiz: quiz, safety: safety}, nil
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to execute %s prompt template: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

// documents renders each parsed file as indented JSON for the prompt.
func documents(contents []json.RawMessage) ([]string, error) {
	docs := make([]string, 0, len(contents))
	for i, c := range contents {
		var v interface{}
		if err := json.Unmarshal(c, &v); err != nil {
			return nil, fmt.Errorf("file content %d is not valid JSON: %w", i, err)
		}
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		docs = append(docs, string(pretty))
	}
	return docs, nil
}

// Package curriculum loads a classroom's lessons, tests and games from a
// YAML document.
package curriculum

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/khianthai/khian/internal/store"
)

// Document is one classroom's curriculum.
type Document struct {
	Classroom string       `yaml:"classroom" validate:"required"`
	Lessons   []LessonSpec `yaml:"lessons" validate:"required,min=1,unique=Order,dive"`
}

// LessonSpec describes a lesson and what hangs off it.
type LessonSpec struct {
	Title   string `yaml:"title" validate:"required"`
	Chapter string `yaml:"chapter"`
	Order   int    `yaml:"order" validate:"min=1"`
	// Content is stored verbatim. Structured YAML is converted to JSON.
	Content  any        `yaml:"content"`
	Inactive bool       `yaml:"inactive"`
	PreTest  *TestSpec  `yaml:"preTest" validate:"omitempty"`
	PostTest *TestSpec  `yaml:"postTest" validate:"omitempty"`
	Games    []GameSpec `yaml:"games" validate:"dive"`
}

// TestSpec describes a pre- or post-test.
type TestSpec struct {
	Title        string         `yaml:"title"`
	PassingScore int            `yaml:"passingScore" validate:"min=0,max=100"`
	Questions    []QuestionSpec `yaml:"questions" validate:"dive"`
}

// QuestionSpec describes a multiple-choice question. Answer is an option
// index, or a list of indices for multi-select questions.
type QuestionSpec struct {
	Text        string     `yaml:"text" validate:"required"`
	Options     []string   `yaml:"options" validate:"min=2,dive,required"`
	Answer      AnswerSpec `yaml:"answer"`
	Explanation string     `yaml:"explanation"`
	ImageURL    string     `yaml:"imageUrl"`
}

// GameSpec describes a practice game.
type GameSpec struct {
	Title    string         `yaml:"title" validate:"required"`
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// AnswerSpec is the YAML form of store.Answer.
type AnswerSpec struct {
	store.Answer
}

var errAnswerForm = errors.New("answer must be an option index or a list of indices")

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *AnswerSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var i int
		if err := n.Decode(&i); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, errAnswerForm)
		}
		a.Answer = store.SingleAnswer(i)
	case yaml.SequenceNode:
		var list []int
		if err := n.Decode(&list); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, errAnswerForm)
		}
		a.Answer = store.MultiAnswer(list...)
	default:
		return fmt.Errorf("line %d: %w", n.Line, errAnswerForm)
	}
	return nil
}

// Parse decodes a document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse curriculum: empty document")
		}
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	return &doc, nil
}

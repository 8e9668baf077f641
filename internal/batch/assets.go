package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/NWeiss87/auricle/internal/analysis"
	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/internal/idiolect"
	"github.com/NWeiss87/auricle/internal/labelvet"
)

// Assets are the shared inputs every model runner draws on: the candidate
// label list, the question catalogue, and the idiolect lexicon. Any of them
// may be absent; runners that need a missing asset simply work with an
// empty one.
type Assets struct {
	Labels    []string
	Questions []analysis.Question
	Lexicon   *idiolect.Lexicon
}

// LoadAssets reads the asset files named in cfg.Paths. Unset paths are
// skipped; a set path that cannot be read is an error, since the operator
// asked for it.
func LoadAssets(cfg *config.Config) (Assets, error) {
	var a Assets

	if path := cfg.Paths.LabelsFile; path != "" {
		labels, err := labelvet.LoadLabels(path)
		if err != nil {
			return Assets{}, fmt.Errorf("batch: %w", err)
		}
		a.Labels = labels
	}

	if path := cfg.Paths.QuestionsFile; path != "" {
		questions, err := LoadQuestions(path)
		if err != nil {
			return Assets{}, err
		}
		a.Questions = questions
	}

	if path := cfg.Paths.IdiolectFile; path != "" {
		lex, err := idiolect.Load(path, cfg.Contractions)
		if err != nil {
			return Assets{}, fmt.Errorf("batch: %w", err)
		}
		a.Lexicon = lex
	}

	return a, nil
}

// LoadQuestions reads the question catalogue CSV. The header row names the
// columns; "tag" and "question" are required, in any order. Rows with an
// empty question are skipped.
func LoadQuestions(path string) ([]analysis.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: open questions file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("batch: read questions header: %w", err)
	}

	tagCol, questionCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "tag":
			tagCol = i
		case "question":
			questionCol = i
		}
	}
	if tagCol < 0 || questionCol < 0 {
		return nil, fmt.Errorf("batch: questions file %q needs tag and question columns", filepath.Base(path))
	}

	var questions []analysis.Question
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("batch: read questions file: %w", err)
		}
		q := analysis.Question{
			Tag:      strings.TrimSpace(rec[tagCol]),
			Question: strings.TrimSpace(rec[questionCol]),
		}
		if q.Question == "" {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

package presenter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"

	"product-scraper/models"
	"product-scraper/pipeline"
)

var (
	// ErrNoRun is returned when reports are requested before any analysis ran.
	ErrNoRun = errors.New("no analysis has been run yet")
	// ErrUnknownReport is returned for report names the current run does not have.
	ErrUnknownReport = errors.New("unknown report")
)

// minSuggestionScore is the Jaro-Winkler similarity below which no
// "did you mean" hint is offered.
const minSuggestionScore = 0.7

// Session holds the most recent analysis run. Selecting a new target replaces
// the previous run as a whole, so reports from two runs are never mixed.
type Session struct {
	mu  sync.RWMutex
	run *pipeline.Run
}

func NewSession() *Session {
	return &Session{}
}

// Replace makes run the current one.
func (s *Session) Replace(run *pipeline.Run) {
	s.mu.Lock()
	s.run = run
	s.mu.Unlock()
}

// Current returns the current run, if any.
func (s *Session) Current() (*pipeline.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run, s.run != nil
}

// Reports lists the report names of the current run in display order.
func (s *Session) Reports() ([]string, error) {
	run, ok := s.Current()
	if !ok {
		return nil, ErrNoRun
	}
	return run.Results.Keys(), nil
}

// Report looks up a report of the current run. Names match exactly first,
// then case-insensitively.
func (s *Session) Report(name string) (models.Report, error) {
	run, ok := s.Current()
	if !ok {
		return models.Report{}, ErrNoRun
	}
	if rep, ok := run.Results.Get(name); ok {
		return rep, nil
	}

	keys := run.Results.Keys()
	for _, k := range keys {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			rep, _ := run.Results.Get(k)
			return rep, nil
		}
	}

	if hint := suggest(name, keys); hint != "" {
		return models.Report{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownReport, name, hint)
	}
	return models.Report{}, fmt.Errorf("%w %q", ErrUnknownReport, name)
}

// suggest returns the candidate most similar to name, or "" when nothing is
// close enough.
func suggest(name string, candidates []string) string {
	needle := strings.ToLower(name)
	best, bestScore := "", 0.0
	for _, c := range candidates {
		score := matchr.JaroWinkler(needle, strings.ToLower(c), false)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < minSuggestionScore {
		return ""
	}
	return best
}

// Package gematria searches a folder of plain-text sefarim for verses
// or phrases whose letter values sum to a target number. It shares the
// pipeline's Hebrew normalization: vowel and cantillation marks are
// stripped before letters are valued, so pointed and unpointed editions
// of the same text match identically.
package gematria

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sifria-labs/sifria-cli/internal/hebrew"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

const (
	// DefaultMaxPhraseWords bounds the sliding phrase window.
	DefaultMaxPhraseWords = 8

	// DefaultMaxResults caps a single search.
	DefaultMaxResults = 500

	// contextWords is the number of surrounding words reported on each
	// side of a matched phrase.
	contextWords = 3

	// maxCacheEntries bounds the result cache.
	maxCacheEntries = 100
)

// Options configures a search.
type Options struct {
	// Method selects the letter-value scheme. Empty means regular.
	Method Method

	// UseKolel adds the phrase's word count to its value.
	UseKolel bool

	// WholeVerseOnly matches only full lines instead of sliding
	// phrase windows.
	WholeVerseOnly bool

	// MaxPhraseWords bounds the phrase window. Zero means
	// DefaultMaxPhraseWords.
	MaxPhraseWords int

	// MaxResults caps the result list. Zero means DefaultMaxResults.
	MaxResults int
}

// Result is one matched verse or phrase.
type Result struct {
	// File is the path of the text file containing the match.
	File string `json:"file"`

	// Line is the 1-based line number.
	Line int `json:"line"`

	// Text is the matched phrase.
	Text string `json:"text"`

	// Path is the heading path above the match ("ספר, פרשה, פרק").
	Path string `json:"path"`

	// VerseNumber is the leading parenthesised verse label, if any.
	VerseNumber string `json:"verseNumber"`

	// ContextBefore and ContextAfter are the surrounding words.
	ContextBefore string `json:"contextBefore"`
	ContextAfter  string `json:"contextAfter"`
}

// Calculate returns the gematria value of the text under the given
// method. Characters without a letter value contribute nothing; an
// unknown method falls back to regular.
func Calculate(text string, method Method, useKolel bool) int {
	values, ok := letterValues[method]
	if !ok {
		values = letterValues[MethodRegular]
	}

	stripped := hebrew.StripMarks(text)

	sum := 0
	for _, r := range stripped {
		sum += values[r]
	}

	if useKolel {
		sum += len(strings.Fields(stripped))
	}
	return sum
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	namedEntityPattern = regexp.MustCompile(`&[a-zA-Z]+;`)
	decEntityPattern  = regexp.MustCompile(`&#\d+;`)
	hexEntityPattern  = regexp.MustCompile(`&#x[0-9a-fA-F]+;`)
	spacePattern      = regexp.MustCompile(`\s+`)

	headingPattern     = regexp.MustCompile(`(?i)<h([1-6])[^>]*>(.*?)</h([1-6])>`)
	headingOpenPattern = regexp.MustCompile(`(?i)<h[1-6][^>]*>`)
	versePattern       = regexp.MustCompile(`^\(([^)]+)\)`)
	versePrefixPattern = regexp.MustCompile(`^\([^)]+\)\s*`)
	curlyPattern       = regexp.MustCompile(`\{[^}]*\}`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&thinsp;", " ",
	"&ensp;", " ",
	"&emsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// cleanHTML strips tags and entities and collapses whitespace. Sefarim
// exported from Otzaria carry heading and formatting markup inline.
func cleanHTML(text string) string {
	cleaned := tagPattern.ReplaceAllString(text, "")
	cleaned = entityReplacer.Replace(cleaned)
	cleaned = namedEntityPattern.ReplaceAllString(cleaned, "")
	cleaned = decEntityPattern.ReplaceAllString(cleaned, "")
	cleaned = hexEntityPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
}

// headingPath scans backwards from the given line for the nearest
// heading of each level and joins them in level order. The scan stops
// early once the three top levels are known.
func headingPath(lines []string, index int) string {
	byLevel := map[int]string{}

	for i := index; i >= 0; i-- {
		if byLevel[1] != "" && byLevel[2] != "" && byLevel[3] != "" {
			break
		}
		for _, match := range headingPattern.FindAllStringSubmatch(lines[i], -1) {
			if match[1] != match[3] {
				continue
			}
			level, _ := strconv.Atoi(match[1])
			text := cleanHTML(match[2])
			if byLevel[level] == "" && text != "" {
				byLevel[level] = text
			}
		}
	}

	parts := make([]string, 0, len(byLevel))
	for level := 1; level <= 6; level++ {
		if byLevel[level] != "" {
			parts = append(parts, byLevel[level])
		}
	}
	return strings.Join(parts, ", ")
}

// Engine runs cached gematria searches.
type Engine struct {
	mu    sync.Mutex
	cache map[string][]Result
	order []string
}

// NewEngine creates an engine with an empty result cache.
func NewEngine() *Engine {
	return &Engine{cache: make(map[string][]Result)}
}

// Search walks every .txt file under root and returns the phrases
// whose value equals target. Results for identical parameters are
// served from the cache; vary the root and call ClearCache between
// corpora.
func (e *Engine) Search(ctx context.Context, root string, target int, opts Options) ([]Result, error) {
	key := cacheKey(target, opts)

	e.mu.Lock()
	cached, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		logger.Debug("returning cached results for %s", key)
		return cached, nil
	}

	results, err := searchFiles(ctx, root, target, opts)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if len(e.order) >= maxCacheEntries {
		delete(e.cache, e.order[0])
		e.order = e.order[1:]
	}
	e.cache[key] = results
	e.order = append(e.order, key)
	e.mu.Unlock()

	return results, nil
}

// ClearCache drops all cached results.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string][]Result)
	e.order = nil
}

func cacheKey(target int, opts Options) string {
	method := opts.Method
	if method == "" {
		method = MethodRegular
	}
	maxWords := opts.MaxPhraseWords
	if maxWords <= 0 {
		maxWords = DefaultMaxPhraseWords
	}
	return fmt.Sprintf("%d-%s-%t-%t-%d", target, method, opts.UseKolel, opts.WholeVerseOnly, maxWords)
}

// searchFiles is the uncached search.
func searchFiles(ctx context.Context, root string, target int, opts Options) ([]Result, error) {
	maxWords := opts.MaxPhraseWords
	if maxWords <= 0 {
		maxWords = DefaultMaxPhraseWords
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	files, err := listTextFiles(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	logger.Info("searching %d text files for value %d", len(files), target)

	results := make([]Result, 0)
	for _, path := range files {
		if len(results) >= maxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("reading %s: %v", path, err)
			continue
		}

		results = searchLines(path, strings.Split(string(content), "\n"), target, opts, maxWords, maxResults, results)
	}

	return results, nil
}

func searchLines(path string, lines []string, target int, opts Options, maxWords, maxResults int, results []Result) []Result {
	for i, line := range lines {
		if len(results) >= maxResults {
			break
		}

		// Heading lines title the text, they are not part of it.
		if headingOpenPattern.MatchString(line) {
			continue
		}

		verseNumber := ""
		if match := versePattern.FindStringSubmatch(line); match != nil {
			verseNumber = match[1]
		}
		cleanLine := versePrefixPattern.ReplaceAllString(line, "")
		cleanLine = curlyPattern.ReplaceAllString(cleanLine, "")

		words := strings.Fields(cleanHTML(cleanLine))
		if len(words) == 0 {
			continue
		}

		if opts.WholeVerseOnly {
			phrase := strings.Join(words, " ")
			if Calculate(phrase, opts.Method, opts.UseKolel) == target {
				results = append(results, Result{
					File:        path,
					Line:        i + 1,
					Text:        phrase,
					Path:        headingPath(lines, i),
					VerseNumber: verseNumber,
				})
			}
			continue
		}

		for start := 0; start < len(words) && len(results) < maxResults; start++ {
			for offset := 0; offset < maxWords && start+offset < len(words); offset++ {
				phrase := strings.Join(words[start:start+offset+1], " ")
				value := Calculate(phrase, opts.Method, opts.UseKolel)
				if value > target {
					// Longer phrases only grow the value.
					break
				}
				if value != target {
					continue
				}

				contextStart := max(0, start-contextWords)
				contextEnd := min(len(words), start+offset+1+contextWords)
				results = append(results, Result{
					File:          path,
					Line:          i + 1,
					Text:          phrase,
					Path:          headingPath(lines, i),
					VerseNumber:   verseNumber,
					ContextBefore: strings.Join(words[contextStart:start], " "),
					ContextAfter:  strings.Join(words[start+offset+1:contextEnd], " "),
				})
				if len(results) >= maxResults {
					break
				}
			}
		}
	}
	return results
}

// listTextFiles walks root recursively for .txt files, in lexical
// order. Unreadable subtrees are skipped with a warning.
func listTextFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".txt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

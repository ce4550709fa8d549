package input

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/akarper/keydist/pkg/score"
)

const commentPrefix = "#"

// ParseError describes a malformed line in one of the input files.
// Any parse error aborts the whole run.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

// ReadOptions loads candidate addresses from a file, one address per line.
// Blank lines and lines starting with # are skipped.
func ReadOptions(path string) ([]score.Option, error) {
	var list []score.Option
	err := readLines(path, func(_ int, line string) error {
		list = append(list, score.Option{Address: line})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("options file %s has no addresses, nothing to rank", path)
	}
	return list, nil
}

// ReadKeypoints loads weighted locations from a file. Each line holds a
// positive float weight followed by a single space and the address.
func ReadKeypoints(path string) ([]score.Keypoint, error) {
	var list []score.Keypoint
	err := readLines(path, func(n int, line string) error {
		raw, address, found := strings.Cut(line, " ")
		if !found || strings.TrimSpace(address) == "" {
			return &ParseError{Path: path, Line: n, Reason: "expected '<weight> <address>'"}
		}
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &ParseError{Path: path, Line: n, Reason: fmt.Sprintf("invalid weight %q", raw)}
		}
		k := score.Keypoint{Address: strings.TrimSpace(address), Weight: weight}
		if err := k.Validate(); err != nil {
			return &ParseError{Path: path, Line: n, Reason: err.Error()}
		}
		list = append(list, k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("keypoints file %s has no entries, nothing to score against", path)
	}
	return list, nil
}

func readLines(path string, fn func(n int, line string) error) error {
	expanded, err := expandHome(path)
	if err != nil {
		return err
	}

	f, err := os.Open(expanded)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot expand ~ without a home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

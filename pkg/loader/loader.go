// Package loader reads already-analyzed thread collections from disk.
package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kraitsura/tdv/pkg/model"
)

// LoadThreadsFromFile reads a thread collection saved from the analyzer,
// either as one JSON array or as JSONL with one record per line.
func LoadThreadsFromFile(path string) ([]model.ThreadRecord, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no thread data found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open thread file: %w", err)
	}
	defer file.Close()

	return LoadThreads(file)
}

// LoadThreads decodes a thread collection from r. The format is picked from
// the first non-space byte.
func LoadThreads(r io.Reader) ([]model.ThreadRecord, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []model.ThreadRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading thread data: %w", err)
	}

	if first == '[' {
		var threads []model.ThreadRecord
		if err := json.NewDecoder(br).Decode(&threads); err != nil {
			return nil, fmt.Errorf("invalid thread array: %w", err)
		}
		if threads == nil {
			threads = []model.ThreadRecord{}
		}
		return threads, nil
	}
	return loadJSONL(br)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		return b, br.UnreadByte()
	}
}

func loadJSONL(r io.Reader) ([]model.ThreadRecord, error) {
	threads := []model.ThreadRecord{}
	scanner := bufio.NewScanner(r)
	// Stack traces make for long lines
	const maxCapacity = 1024 * 1024 * 10 // 10MB
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var thread model.ThreadRecord
		if err := json.Unmarshal(line, &thread); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		threads = append(threads, thread)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading thread file: %w", err)
	}
	return threads, nil
}

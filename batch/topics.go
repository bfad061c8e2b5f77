package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"text2shorts/types"
)

const musicTokenPrefix = "music="

// ParseTopicList reads a topic-list document. Blank lines and lines starting
// with # are ignored. The first token of a line is the topic id; the rest are
// stage indices, except for an optional music=<path> token.
func ParseTopicList(r io.Reader) ([]types.Topic, error) {
	var topics []types.Topic
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		topic := types.Topic{ID: fields[0]}
		for _, tok := range fields[1:] {
			if strings.HasPrefix(tok, musicTokenPrefix) {
				topic.MusicFile = strings.TrimPrefix(tok, musicTokenPrefix)
				continue
			}
			idx, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid index %q for topic %s", lineNo, tok, topic.ID)
			}
			topic.Indices = append(topic.Indices, idx)
		}
		topics = append(topics, topic)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}

// LoadTopicList reads and parses the topic list at path.
func LoadTopicList(path string) ([]types.Topic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open topic list: %w", err)
	}
	defer f.Close()

	topics, err := ParseTopicList(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return topics, nil
}

// ListName is the topic-list file name without extension.
func ListName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TopicDir is the output directory of one topic of a list.
func TopicDir(outputsDir, listName, topicID string) string {
	return filepath.Join(outputsDir, listName+"_"+topicID)
}

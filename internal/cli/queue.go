package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"mergeq.dev/mergeq/internal/merger"
)

// queueFile is the on-disk shape of a change queue.
type queueFile struct {
	Items []merger.ChangeItem `yaml:"items"`
}

// LoadQueue reads an ordered change queue from a YAML file.
func LoadQueue(path string) ([]merger.ChangeItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var qf queueFile
	if err := dec.Decode(&qf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("queue file %s is empty", path)
		}
		return nil, fmt.Errorf("failed to parse queue file %s: %w", path, err)
	}

	for i, item := range qf.Items {
		if item.Project == "" {
			return nil, fmt.Errorf("queue item %d has no project", i)
		}
		if item.Branch == "" || item.Ref == "" || item.Refspec == "" {
			return nil, fmt.Errorf("queue item %d for project %s is missing branch, ref or refspec", i, item.Project)
		}
	}
	return qf.Items, nil
}

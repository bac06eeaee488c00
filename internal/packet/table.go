package packet

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TableVersion is the current packet table file format.
const TableVersion = 1

// ErrInvalidTable is wrapped by every table validation failure.
var ErrInvalidTable = errors.New("invalid packet table")

type tableFile struct {
	Version int   `yaml:"version"`
	Packets Table `yaml:"packets"`
}

// LoadTable reads a YAML packet table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read packet table: %w", err)
	}
	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseTable decodes and validates a YAML packet table.
func ParseTable(data []byte) (Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if file.Version != TableVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalidTable, file.Version, TableVersion)
	}
	if err := file.Packets.Validate(); err != nil {
		return nil, err
	}
	return file.Packets, nil
}

// MarshalTable encodes table in the format ParseTable reads.
func MarshalTable(table Table) ([]byte, error) {
	data, err := yaml.Marshal(tableFile{Version: TableVersion, Packets: table})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal packet table: %w", err)
	}
	return data, nil
}

// Validate checks that every descriptor can match some frame.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no packets defined", ErrInvalidTable)
	}

	var errs []error
	for i, d := range t {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("%w: packet %d: name is required", ErrInvalidTable, i))
		}
		if d.Length <= 0 {
			errs = append(errs, fmt.Errorf("%w: packet %d (%s): length must be positive, got %d", ErrInvalidTable, i, d.Name, d.Length))
			continue
		}
		for _, id := range d.Identifiers {
			if id.Offset < 0 || id.Offset >= d.Length {
				errs = append(errs, fmt.Errorf("%w: packet %d (%s): offset %d outside %d-byte frame", ErrInvalidTable, i, d.Name, id.Offset, d.Length))
			}
		}
	}
	return errors.Join(errs...)
}

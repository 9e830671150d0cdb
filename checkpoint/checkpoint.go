// Package checkpoint reads and writes model weights in a simple binary
// format: a little-endian uint32 header length, a JSON header naming every
// tensor and its shape, then the raw float64 tensor data in header order.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/world-in-progress/mimir/nn"
)

const formatVersion = 1

// maxHeaderLen bounds the header allocation when reading files we did not
// write ourselves.
const maxHeaderLen = 1 << 20

type (
	tensorEntry struct {
		Name  string `json:"name"`
		Shape []int  `json:"shape"`
	}

	header struct {
		Version int           `json:"version"`
		Model   string        `json:"model"`
		Entries []tensorEntry `json:"entries"`
	}
)

// Save writes the named parameters of a model to path.
func Save(m nn.Model, modelName, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %v", err)
	}
	defer f.Close()

	params := m.NamedParameters()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	h := header{Version: formatVersion, Model: modelName}
	for _, name := range names {
		h.Entries = append(h.Entries, tensorEntry{Name: name, Shape: params[name].Shape()})
	}

	headerJSON, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint header: %v", err)
	}

	if err := binary.Write(f, binary.LittleEndian, uint32(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header length: %v", err)
	}
	if _, err := f.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}

	for _, name := range names {
		if err := binary.Write(f, binary.LittleEndian, params[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %v", name, err)
		}
	}
	return nil
}

// Load restores the named parameters of a model from path. The checkpoint
// must cover exactly the model's parameters with matching shapes.
func Load(m nn.Model, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint file: %v", err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return fmt.Errorf("failed to read header length: %v", err)
	}
	if headerLen == 0 || headerLen > maxHeaderLen {
		return fmt.Errorf("implausible header length %d", headerLen)
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return fmt.Errorf("failed to read header: %v", err)
	}

	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return fmt.Errorf("failed to unmarshal header: %v", err)
	}
	if h.Version != formatVersion {
		return fmt.Errorf("unsupported checkpoint version %d", h.Version)
	}

	params := m.NamedParameters()
	seen := make(map[string]bool, len(h.Entries))
	for _, e := range h.Entries {
		if seen[e.Name] {
			return fmt.Errorf("checkpoint tensor %s listed twice", e.Name)
		}
		t, ok := params[e.Name]
		if !ok {
			return fmt.Errorf("checkpoint tensor %s has no target parameter", e.Name)
		}
		if !shapeEqual(t.Shape(), e.Shape) {
			return fmt.Errorf("checkpoint tensor %s shape %v does not match parameter shape %v", e.Name, e.Shape, t.Shape())
		}
		if err := binary.Read(f, binary.LittleEndian, t.Data()); err != nil {
			return fmt.Errorf("failed to read tensor %s: %v", e.Name, err)
		}
		seen[e.Name] = true
	}

	for name := range params {
		if !seen[name] {
			return fmt.Errorf("parameter %s missing from checkpoint", name)
		}
	}
	return nil
}

// ModelName reads only the header of a checkpoint and reports which model
// produced it.
func ModelName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open checkpoint file: %v", err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return "", fmt.Errorf("failed to read header length: %v", err)
	}
	if headerLen == 0 || headerLen > maxHeaderLen {
		return "", fmt.Errorf("implausible header length %d", headerLen)
	}
	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return "", fmt.Errorf("failed to read header: %v", err)
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return "", fmt.Errorf("failed to unmarshal header: %v", err)
	}
	return h.Model, nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

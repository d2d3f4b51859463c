package messages

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/google/go-jsonnet"
)

//go:embed jsonnet/*
var messages embed.FS

// MessageProvider renders user-facing text from the embedded jsonnet
// library. A jsonnet VM keeps top-level arguments as state, so renders are
// serialized.
type MessageProvider struct {
	mu sync.Mutex
	vm *jsonnet.VM
}

func NewMessageProvider() (*MessageProvider, error) {
	m := &MessageProvider{
		vm: jsonnet.MakeVM(),
	}

	imports := make(map[string]jsonnet.Contents)
	err := fs.WalkDir(messages, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := messages.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		imports[strings.TrimPrefix(path, "jsonnet/")] = jsonnet.MakeContentsRaw(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}

	m.vm.Importer(&jsonnet.MemoryImporter{
		Data: imports,
	})

	_, _, err = m.vm.ImportData("anonymous", "index.jsonnet")
	if err != nil {
		return nil, fmt.Errorf("importing index: %w", err)
	}

	return m, nil
}

// ExecuteMessage evaluates the named message with data and returns the
// resulting JSON document.
func (m *MessageProvider) ExecuteMessage(messageName string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshaling data: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.vm.TLAVar("message_key", messageName)
	m.vm.TLACode("data", string(jsonData))
	defer m.vm.TLAReset()

	jsonOut, err := m.vm.EvaluateAnonymousSnippet("anonymous", "function(message_key, data) (import 'index.jsonnet')[message_key](data)")
	if err != nil {
		return "", fmt.Errorf("evaluating jsonnet: %w", err)
	}

	return jsonOut, nil
}

type textOutput struct {
	Text string `json:"text"`
}

// ExecuteText renders a plain text message.
func (m *MessageProvider) ExecuteText(messageName string, data any) (string, error) {
	jsonOut, err := m.ExecuteMessage(messageName, data)
	if err != nil {
		return "", err
	}

	var output textOutput
	if err := json.Unmarshal([]byte(jsonOut), &output); err != nil {
		return "", fmt.Errorf("unmarshaling output: %w", err)
	}
	return output.Text, nil
}

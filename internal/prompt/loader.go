package prompt

import (
	"fmt"
	"strings"

	"github.com/excuse-lab/excuse-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the system instruction for a mode
func (l *Loader) GetSystemPrompt(mode Mode) (string, error) {
	var raw []byte
	switch mode {
	case ModePlayful:
		raw = embedded.PlayfulSystemPromptTxt
	case ModeStandard:
		raw = embedded.StandardSystemPromptTxt
	default:
		return "", fmt.Errorf("unknown prompt mode: %q", mode)
	}

	// The files keep one rule per line for readability; the model gets a single paragraph.
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, ""), nil
}

package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
)

// Formatter interface for pretty output
type Formatter interface {
	PrintNodeStart(nodeID string, nodeType string)
	PrintNodeOutput(nodeID string, outputs map[string]any)
	PrintNodeError(nodeID string, err error)
}

// ConsoleFormatter prints colorized per-node progress to stdout.
type ConsoleFormatter struct{}

func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

func (f *ConsoleFormatter) PrintNodeStart(nodeID string, nodeType string) {
	color.Cyan("▶ %s (%s)", nodeID, nodeType)
}

func (f *ConsoleFormatter) PrintNodeOutput(nodeID string, outputs map[string]any) {
	color.Green("✓ %s", nodeID)
	if len(outputs) == 0 {
		return
	}
	if data, err := json.MarshalIndent(outputs, "  ", "  "); err == nil {
		fmt.Printf("  %s\n", data)
	}
}

func (f *ConsoleFormatter) PrintNodeError(nodeID string, err error) {
	color.Red("✗ %s: %v", nodeID, err)
}

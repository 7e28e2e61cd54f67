package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ShellOptions)(nil)

// ShellOptions configures the interactive terminal.
type ShellOptions struct {
	// Interactive starts the prompt. When false only the status server runs.
	Interactive bool   `json:"interactive" mapstructure:"interactive"`
	Prompt      string `json:"prompt" mapstructure:"prompt"`
	HistorySize int    `json:"history-size" mapstructure:"history-size"`

	// AutoConnect connects to the configured broker on startup.
	AutoConnect bool `json:"auto-connect" mapstructure:"auto-connect"`
}

func NewShellOptions() *ShellOptions {
	return &ShellOptions{
		Interactive: true,
		Prompt:      "mqtt> ",
		HistorySize: 20,
	}
}

func (o *ShellOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}
	if o.HistorySize <= 0 {
		errors = append(errors, fmt.Errorf("shell.history-size must be positive, got %d", o.HistorySize))
	}
	return errors
}

func (o *ShellOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Interactive, "shell.interactive", o.Interactive, "Run the interactive prompt.")
	fs.StringVar(&o.Prompt, "shell.prompt", o.Prompt, "Prompt shown by the interactive shell.")
	fs.IntVar(&o.HistorySize, "shell.history-size", o.HistorySize, "Number of received messages kept for display.")
	fs.BoolVar(&o.AutoConnect, "shell.auto-connect", o.AutoConnect, "Connect to the broker on startup.")
}

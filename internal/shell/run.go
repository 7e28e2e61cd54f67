package shell

import (
	"context"
	"errors"
	"io"

	"github.com/chzyer/readline"
)

// Run reads commands from the terminal until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	s.mu.Lock()
	s.out = rl.Stdout()
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.Observe(ctx)
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	s.mu.Lock()
	s.printf("MQTT client shell. Type 'help' for commands.\n\n")
	s.mu.Unlock()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !s.Execute(line) {
			return nil
		}
	}
}

// Package shell provides the interactive terminal front end for a
// connection supervisor.
package shell

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/mqtt"
)

// Supervisor is what the shell needs from the connection supervisor.
type Supervisor interface {
	Connect(brokerURL string, opts mqtt.ConnectOptions) error
	Disconnect()
	Subscribe(topic string) error
	Publish(topic string, payload []byte) error
	Status() supervisor.Status
	Watch() (<-chan supervisor.Notification, func())
}

// Config holds the initial form values of the shell.
type Config struct {
	BrokerURL      string
	ConnectOptions mqtt.ConnectOptions
	HistorySize    int
	Prompt         string
}

// Shell keeps the presentation state: form values, message history,
// subscription list and connect attempt counter.
type Shell struct {
	sup    Supervisor
	log    log.Logger
	prompt string

	mu       sync.Mutex
	out      io.Writer
	url      string
	opts     mqtt.ConnectOptions
	history  *History
	subs     Subscriptions
	attempts int
	shown    supervisor.State
}

// New returns a Shell writing to out.
func New(sup Supervisor, cfg Config, out io.Writer, logger log.Logger) *Shell {
	if logger == nil {
		logger = log.Std()
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "mqtt> "
	}
	return &Shell{
		sup:     sup,
		log:     logger.WithName("shell"),
		prompt:  prompt,
		out:     out,
		url:     cfg.BrokerURL,
		opts:    cfg.ConnectOptions,
		history: NewHistory(cfg.HistorySize),
		shown:   supervisor.StateDisconnected,
	}
}

// Reload replaces the form values used by the next connect. An attempt
// already in progress keeps the values it started with.
func (s *Shell) Reload(brokerURL string, opts mqtt.ConnectOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = brokerURL
	s.opts = opts
	s.log.Info("Connection settings reloaded", "url", brokerURL, "clientID", opts.ClientID)
}

// Indicator returns the status text shown next to the connection light.
func Indicator(st supervisor.State) string {
	switch st {
	case supervisor.StateConnected:
		return "Connected"
	case supervisor.StateConnecting:
		return "Connecting..."
	case supervisor.StateReconnecting:
		return "Reconnecting..."
	default:
		return "Disconnected"
	}
}

// Detail returns the one-line description of st for brokerURL, or "".
func Detail(st supervisor.State, brokerURL string) string {
	switch st {
	case supervisor.StateConnected:
		return "Connected to " + brokerURL
	case supervisor.StateConnecting:
		return "Connecting to " + brokerURL + "..."
	case supervisor.StateReconnecting:
		return "Reconnecting to " + brokerURL + "..."
	default:
		return ""
	}
}

// Execute runs one command line and reports whether the shell should keep going.
func (s *Shell) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "connect", "c":
		s.cmdConnect(args)

	case "disconnect", "d":
		s.cmdDisconnect()

	case "toggle", "t":
		if s.sup.Status().IsConnected() {
			s.cmdDisconnect()
		} else {
			s.cmdConnect(nil)
		}

	case "sub", "subscribe":
		s.cmdSubscribe(args)

	case "pub", "publish":
		s.cmdPublish(strings.TrimSpace(input[len(parts[0]):]), args)

	case "subs", "subscriptions":
		s.cmdSubscriptions()

	case "history", "h":
		s.cmdHistory(args)

	case "clear":
		s.history.Clear()
		s.printf("Message history cleared\n")

	case "status", "s":
		s.cmdStatus()

	case "url":
		s.cmdSetURL(args)

	case "clientid", "id":
		s.cmdSetClientID(args)

	case "quit", "exit", "q":
		s.printf("Exiting...\n")
		return false

	default:
		s.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) cmdConnect(args []string) {
	st := s.sup.Status()
	if st.IsConnecting() || st.IsReconnecting() {
		s.printf("%s\n", Detail(st.State, st.URL))
		return
	}
	if len(args) > 0 {
		if st.IsConnected() {
			s.printf("Disconnect before changing the broker URL\n")
			return
		}
		s.url = args[0]
	}

	if err := s.sup.Connect(s.url, s.opts); err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.attempts++
	s.printf("Connecting to %s...\n", s.url)
}

func (s *Shell) cmdDisconnect() {
	s.sup.Disconnect()
	s.subs.Clear()
	s.printf("Disconnected\n")
}

func (s *Shell) cmdSubscribe(args []string) {
	if len(args) != 1 {
		s.printf("Usage: sub <topic>\n")
		return
	}
	t := args[0]
	if s.subs.Contains(t) {
		s.printf("Already subscribed to %s\n", t)
		return
	}
	if err := s.sup.Subscribe(t); err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.subs.Add(t)
	s.printf("Subscribed to %s\n", t)
}

// cmdPublish takes the raw argument text so the message keeps its spacing.
func (s *Shell) cmdPublish(raw string, args []string) {
	if len(args) < 2 {
		s.printf("Usage: pub <topic> <message>\n")
		return
	}
	t := args[0]
	rest := strings.TrimSpace(strings.TrimPrefix(raw, t))

	if err := s.sup.Publish(t, []byte(rest)); err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.printf("Published to %s\n", t)
}

func (s *Shell) cmdSubscriptions() {
	if !s.sup.Status().IsConnected() {
		s.printf("Connect to the broker to manage subscriptions\n")
		return
	}
	if s.subs.Len() == 0 {
		s.printf("No active subscriptions\n")
		return
	}
	table := uitable.New()
	table.AddRow("#", "TOPIC")
	for i, t := range s.subs.List() {
		table.AddRow(i+1, t)
	}
	s.printf("%s\n", table)
}

func (s *Shell) cmdHistory(args []string) {
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	msgs := s.history.Filter(filter)
	if len(msgs) == 0 {
		s.printf("No messages received yet\n")
		return
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("TIME", "TOPIC", "PAYLOAD")
	for _, m := range msgs {
		table.AddRow(m.ReceivedAt.Format(time.TimeOnly), m.Topic, string(m.Payload))
	}
	s.printf("%s\n", table)
}

func (s *Shell) cmdStatus() {
	st := s.sup.Status()

	table := uitable.New()
	table.AddRow("Status:", Indicator(st.State))
	if d := Detail(st.State, st.URL); d != "" {
		table.AddRow("", d)
	}
	table.AddRow("Broker URL:", s.url)
	table.AddRow("Client ID:", s.opts.ClientID)
	table.AddRow("Connect attempts:", s.attempts)
	table.AddRow("Subscriptions:", s.subs.Len())
	table.AddRow("Messages kept:", s.history.Len())
	if st.LastError != nil {
		table.AddRow("Last error:", st.LastError.Error())
	}
	if st.LastMessage != nil {
		table.AddRow("Last message:", fmt.Sprintf("%s: %s", st.LastMessage.Topic, st.LastMessage.Payload))
	}
	s.printf("%s\n", table)
}

// The form inputs are locked while a connection is up or being set up.
func (s *Shell) formLocked() bool {
	st := s.sup.Status()
	return st.IsConnected() || st.IsConnecting()
}

func (s *Shell) cmdSetURL(args []string) {
	if len(args) != 1 {
		s.printf("Broker URL: %s\n", s.url)
		return
	}
	if s.formLocked() {
		s.printf("Disconnect before changing the broker URL\n")
		return
	}
	s.url = args[0]
	s.printf("Broker URL set to %s\n", s.url)
}

func (s *Shell) cmdSetClientID(args []string) {
	if len(args) != 1 {
		s.printf("Client ID: %s\n", s.opts.ClientID)
		return
	}
	if s.formLocked() {
		s.printf("Disconnect before changing the client ID\n")
		return
	}
	s.opts.ClientID = args[0]
	s.printf("Client ID set to %s\n", s.opts.ClientID)
}

// Observe prints supervisor notifications and records inbound messages
// until ctx is done or the supervisor stops sending.
func (s *Shell) Observe(ctx context.Context) {
	ch, cancel := s.sup.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			s.handle(n)
		}
	}
}

func (s *Shell) handle(n supervisor.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n.Kind {
	case supervisor.NotifyMessage:
		if n.Message == nil {
			return
		}
		s.history.Add(*n.Message)
		s.printf("[%s] %s: %s\n", n.Message.ReceivedAt.Format(time.TimeOnly), n.Message.Topic, n.Message.Payload)
	case supervisor.NotifyError:
		if n.Err != nil {
			s.printf("Error: %s\n", n.Err.Error())
		}
	case supervisor.NotifyStatus:
		if n.Status.State == s.shown {
			return
		}
		s.shown = n.Status.State
		line := Indicator(n.Status.State)
		if d := Detail(n.Status.State, n.Status.URL); d != "" {
			line = d
		}
		s.printf("* %s\n", line)
	}
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) printHelp() {
	s.printf(`
MQTT Client Commands:
  Connection:
    connect [url]        - Connect to the broker (optionally to a new URL)
    disconnect           - Disconnect and clear subscriptions
    toggle               - Connect when disconnected, disconnect otherwise
    url [url]            - Show or set the broker URL
    clientid [id]        - Show or set the client ID
    status               - Show connection status

  Messaging:
    sub <topic>          - Subscribe to a topic filter
    subs                 - List active subscriptions
    pub <topic> <msg>    - Publish a message
    history [filter]     - Show received messages (last %d), optionally filtered
    clear                - Clear the message history

    help                 - Show this help
    quit                 - Exit
`, s.history.size)
}

// Command a2ui-chat drives streaming exchanges against an A2UI backend and
// prints the assistant text as it streams, followed by the component tree
// and data model the exchange produced. It exists to exercise the client end
// to end against a live backend; it is not a renderer.
//
// Usage:
//
//	a2ui-chat [-config config.yaml] "message" ["message" ...]
//
// Config file (all fields optional except endpoint):
//
//	endpoint: http://localhost:8000/api/chat/stream
//	session_id: ""
//	strict: false
//	rate:
//	  rps: 1
//	  burst: 2
//	redis_addr: ""          # enables Pulse fan-out when set
//
// The endpoint can also be set via A2UI_ENDPOINT, which overrides the file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	fanout "github.com/jarz-ai/a2ui-go/features/fanout/pulse"
	clientspulse "github.com/jarz-ai/a2ui-go/features/fanout/pulse/clients/pulse"
	"github.com/jarz-ai/a2ui-go/protocol"
	"github.com/jarz-ai/a2ui-go/session"
	"github.com/jarz-ai/a2ui-go/state"
	"github.com/jarz-ai/a2ui-go/telemetry"
)

type config struct {
	Endpoint  string `yaml:"endpoint"`
	SessionID string `yaml:"session_id"`
	Strict    bool   `yaml:"strict"`
	Rate      struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate"`
	RedisAddr string `yaml:"redis_addr"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "a2ui-chat:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	messages := flag.Args()
	if len(messages) == 0 {
		return fmt.Errorf("no messages given")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	log := telemetry.NewClueLogger()

	opts := []session.Option{
		session.WithLogger(log),
		session.WithMetrics(telemetry.NewClueMetrics()),
	}
	if cfg.SessionID != "" {
		opts = append(opts, session.WithSessionID(cfg.SessionID))
	}
	if cfg.Strict {
		validator, err := protocol.NewValidator()
		if err != nil {
			return fmt.Errorf("compile validator: %w", err)
		}
		opts = append(opts, session.WithValidator(validator))
	}
	if cfg.Rate.RPS > 0 {
		burst := cfg.Rate.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, session.WithDoer(
			session.RateLimit(rate.Limit(cfg.Rate.RPS), burst)(http.DefaultClient)))
	}

	done := make(chan struct{}, 1)
	var terminal session.Phase
	var terminalErr error
	hooks := session.Hooks{
		OnFinish: func(phase session.Phase, err error) {
			terminal, terminalErr = phase, err
			done <- struct{}{}
		},
		OnText: func(delta, _ string) { fmt.Print(delta) },
		OnTool: func(tool string, running bool) {
			if running {
				fmt.Fprintf(os.Stderr, "\n[tool %s ...]\n", tool)
			}
		},
		OnContextSwitch: func(req protocol.ContextSwitchPayload) {
			fmt.Fprintf(os.Stderr, "\n[context switch: district=%q postcode=%q]\n", req.District, req.Postcode)
		},
		OnError: func(msg string) {
			fmt.Fprintf(os.Stderr, "\n[backend error: %s]\n", msg)
		},
	}

	if cfg.RedisAddr != "" {
		sink, err := buildFanout(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close(ctx) }()
		fan := sink.Hooks(ctx, orDefault(cfg.SessionID, "local"), uuid.NewString(), log)
		hooks = composeHooks(hooks, fan)
	}

	ctrl, err := session.New(cfg.Endpoint, append(opts, session.WithHooks(hooks))...)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		fmt.Printf("> %s\n", msg)
		if err := ctrl.Send(ctx, msg); err != nil {
			return err
		}
		<-done
		fmt.Println()
		switch terminal {
		case session.PhaseFailed:
			return fmt.Errorf("exchange failed: %w", terminalErr)
		case session.PhaseAborted:
			return nil
		}
	}

	dump(ctrl.Snapshot())
	if id := ctrl.SessionID(); id != "" {
		fmt.Printf("session: %s\n", id)
	}
	return nil
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("A2UI_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if cfg.Endpoint == "" {
		return cfg, fmt.Errorf("endpoint is required (config file or A2UI_ENDPOINT)")
	}
	return cfg, nil
}

func buildFanout(addr string) (*fanout.Sink, error) {
	client, err := clientspulse.New(clientspulse.Options{
		Redis: redis.NewClient(&redis.Options{Addr: addr}),
	})
	if err != nil {
		return nil, fmt.Errorf("build pulse client: %w", err)
	}
	sink, err := fanout.NewSink(fanout.Options{Client: client})
	if err != nil {
		return nil, fmt.Errorf("build fanout sink: %w", err)
	}
	return sink, nil
}

// composeHooks fans each callback out to both hook sets.
func composeHooks(a, b session.Hooks) session.Hooks {
	return session.Hooks{
		OnSnapshot: func(s state.Snapshot) {
			if a.OnSnapshot != nil {
				a.OnSnapshot(s)
			}
			if b.OnSnapshot != nil {
				b.OnSnapshot(s)
			}
		},
		OnMessage: func(m protocol.Message, raw json.RawMessage) {
			if a.OnMessage != nil {
				a.OnMessage(m, raw)
			}
			if b.OnMessage != nil {
				b.OnMessage(m, raw)
			}
		},
		OnText: func(delta, full string) {
			if a.OnText != nil {
				a.OnText(delta, full)
			}
			if b.OnText != nil {
				b.OnText(delta, full)
			}
		},
		OnTool: func(tool string, running bool) {
			if a.OnTool != nil {
				a.OnTool(tool, running)
			}
			if b.OnTool != nil {
				b.OnTool(tool, running)
			}
		},
		OnStatus: func(s protocol.StatusPayload) {
			if a.OnStatus != nil {
				a.OnStatus(s)
			}
			if b.OnStatus != nil {
				b.OnStatus(s)
			}
		},
		OnContextSwitch: func(r protocol.ContextSwitchPayload) {
			if a.OnContextSwitch != nil {
				a.OnContextSwitch(r)
			}
			if b.OnContextSwitch != nil {
				b.OnContextSwitch(r)
			}
		},
		OnError: func(msg string) {
			if a.OnError != nil {
				a.OnError(msg)
			}
			if b.OnError != nil {
				b.OnError(msg)
			}
		},
		OnFinish: func(p session.Phase, err error) {
			if a.OnFinish != nil {
				a.OnFinish(p, err)
			}
			if b.OnFinish != nil {
				b.OnFinish(p, err)
			}
		},
	}
}

// dump prints the component tree from the root and the data model.
func dump(snap state.Snapshot) {
	if !snap.Ready {
		fmt.Println("surface: not ready")
		return
	}
	fmt.Println("surface:")
	printComponent(snap, snap.RootID, 1)
	if len(snap.DataModel) > 0 {
		fmt.Println("data model:")
		out, err := yaml.Marshal(snap.DataModel)
		if err == nil {
			fmt.Print(indent(string(out), "  "))
		}
	}
}

func printComponent(snap state.Snapshot, id string, depth int) {
	pad := strings.Repeat("  ", depth)
	c, ok := snap.Component(id)
	if !ok {
		fmt.Printf("%s%s (missing)\n", pad, id)
		return
	}
	fmt.Printf("%s%s %s%s\n", pad, c.Component.Type, id, describe(c.Component.Props, snap.DataModel))
	for _, child := range childIDs(c.Component.Props) {
		printComponent(snap, child, depth+1)
	}
}

func childIDs(props protocol.Props) []string {
	switch p := props.(type) {
	case protocol.ColumnProps:
		return p.Children.ExplicitList
	case protocol.RowProps:
		return p.Children.ExplicitList
	}
	return nil
}

func describe(props protocol.Props, model map[string]any) string {
	switch p := props.(type) {
	case protocol.TextProps:
		if v, ok := state.Resolve(p.Text, model); ok {
			return fmt.Sprintf(" %q", fmt.Sprint(v))
		}
	case protocol.UnknownProps:
		keys := make([]string, 0, len(p.Bag))
		for k := range p.Bag {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf(" {%s}", strings.Join(keys, ", "))
	}
	return ""
}

func indent(s, pad string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

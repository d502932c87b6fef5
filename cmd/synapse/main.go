// Package main provides the synapse command: a thin front end that sends
// input through the brain pipeline, either once or as a chat loop.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/entrhq/synapse/pkg/brain"
	"github.com/entrhq/synapse/pkg/config"
	"github.com/entrhq/synapse/pkg/document"
	"github.com/entrhq/synapse/pkg/logging"
	"github.com/entrhq/synapse/pkg/persona"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile   string
	Provider     string
	Model        string
	BaseURL      string
	APIKey       string
	Memory       string
	Persona      string
	Index        string
	Input        string
	Timeout      time.Duration
	Signals      bool
	ClearMemory  bool
	ListPersonas bool
	ShowVersion  bool
}

func main() {
	cli := parseFlags(os.Args[1:])

	if cli.ShowVersion {
		fmt.Printf("Synapse v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cli, os.Stdin, os.Stdout); err != nil {
		cancel()
		log.Printf("synapse: %v", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags(args []string) *CLIConfig {
	cli := &CLIConfig{}
	fs := flag.NewFlagSet("synapse", flag.ExitOnError)

	fs.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (default ~/.config/synapse/config.yaml)")
	fs.StringVar(&cli.Provider, "provider", "", "Reasoning provider: openai, gemini or ollama")
	fs.StringVar(&cli.Model, "model", "", "Model name")
	fs.StringVar(&cli.BaseURL, "base-url", "", "Provider base URL")
	fs.StringVar(&cli.APIKey, "api-key", "", "Provider API key")
	fs.StringVar(&cli.Memory, "memory", "", "Long-term memory path")
	fs.StringVar(&cli.Persona, "persona", "", "Curated persona id, or a biography file (.txt, .md, .pdf)")
	fs.StringVar(&cli.Index, "index", "", "Document to load into the semantic index")
	fs.StringVar(&cli.Input, "input", "", "Process one input and exit")
	fs.DurationVar(&cli.Timeout, "timeout", 0, "Per-run timeout (overrides config)")
	fs.BoolVar(&cli.Signals, "signals", false, "Show every stage's output")
	fs.BoolVar(&cli.ClearMemory, "clear-memory", false, "Erase long-term memory before starting")
	fs.BoolVar(&cli.ListPersonas, "list-personas", false, "List curated personas and exit")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Synapse - multi-stage reasoning pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: synapse [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  synapse -provider ollama -model llama3.2\n")
		fmt.Fprintf(os.Stderr, "  synapse -persona einstein -input \"What is time?\" -signals\n")
	}

	_ = fs.Parse(args)
	return cli
}

func run(ctx context.Context, cli *CLIConfig, in io.Reader, out io.Writer) error {
	if cli.ListPersonas {
		renderPersonas(out, persona.Builtin())
		return nil
	}

	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	cfg.Resolve(config.Flags{
		Provider: cli.Provider,
		Model:    cli.Model,
		BaseURL:  cli.BaseURL,
		APIKey:   cli.APIKey,
		Memory:   cli.Memory,
		Timeout:  cli.Timeout,
	}, os.Getenv)

	logger := newLogger(cfg)
	defer logger.Close()

	b, err := brain.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if cli.ClearMemory {
		if err := b.ClearLongTerm(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, tipsStyle.Render("Long-term memory cleared."))
		if cli.Input == "" && cli.Persona == "" && cli.Index == "" {
			return nil
		}
	}

	if cli.Persona != "" {
		p, err := activatePersona(ctx, b, cli.Persona)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tipsStyle.Render(fmt.Sprintf("Persona active: %s %s", p.Emoji, p.DisplayName())))
	}

	if cli.Index != "" {
		n, err := b.LoadIndex(ctx, cli.Index)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tipsStyle.Render(fmt.Sprintf("Indexed %d chunks from %s", n, filepath.Base(cli.Index))))
	}

	if cli.Input != "" {
		res, err := b.Run(ctx, cli.Input)
		if err != nil {
			return err
		}
		renderResult(out, res, cli.Signals)
		return nil
	}

	return chat(ctx, b, in, out, cli.Signals)
}

func newLogger(cfg *config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	logger, err := logging.New("synapse", logging.WithDir(cfg.Logging.Dir), logging.WithLevel(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return logger
}

// activatePersona treats arg as a biography file when it names a supported
// document, and as a curated persona id otherwise.
func activatePersona(ctx context.Context, b *brain.Brain, arg string) (*persona.Profile, error) {
	ext := strings.ToLower(filepath.Ext(arg))
	for _, supported := range document.SupportedExtensions {
		if ext == supported {
			return b.LoadPersonaDocument(ctx, arg)
		}
	}
	return b.SelectPersona(ctx, arg)
}

// chat reads one input per line until EOF, /exit or cancellation.
func chat(ctx context.Context, b *brain.Brain, in io.Reader, out io.Writer, signals bool) error {
	fmt.Fprintln(out, headerStyle.Render("Synapse")+" "+tipsStyle.Render(fmt.Sprintf("(%s) /clear resets the conversation, /exit quits", b.Model())))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, userStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			b.ClearWorkingMemory()
			fmt.Fprintln(out, tipsStyle.Render("Conversation cleared."))
			continue
		}

		res, err := b.Run(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			renderError(out, err)
			continue
		}
		renderResult(out, res, signals)
	}
}

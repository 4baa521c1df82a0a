package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/service/chat"
	"github.com/sandevgo/recall/pkg/log"
)

const defaultUserID = "cli-local"

type ReadLine struct {
	cfg  *config.AppConfig
	chat *chat.Service
	rl   *readline.Instance
}

func NewReadLine(svc *chat.Service, cfg *config.AppConfig) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:  cfg,
		chat: svc,
		rl:   rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("Chat started. Type 'exit' to quit, '/language <code>' to set your language.")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if lang, ok := strings.CutPrefix(line, "/language "); ok {
			lang = strings.TrimSpace(lang)
			if err := r.chat.SetPreferredLanguage(ctx, defaultUserID, lang); err != nil {
				fmt.Fprintf(r.rl.Stdout(), "Error: %v\n", err)
				continue
			}
			fmt.Fprintf(r.rl.Stdout(), "Preferred language set to %s.\n", lang)
			continue
		}

		reply, err := r.chat.ProcessMessage(ctx, defaultUserID, line, "")
		if err != nil {
			logger.Error().Err(err).Msg("message processing failed")
		}

		if reply.IsRepetition {
			fmt.Fprintf(r.rl.Stdout(), "[repeat] %s\n", reply.Response)
			continue
		}
		fmt.Fprintf(r.rl.Stdout(), "%s\n", reply.Response)
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

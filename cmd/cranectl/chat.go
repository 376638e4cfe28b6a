package main

import (
	"bufio"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	crane "github.com/wagiedev/crane-service-go"
)

type chatFlags struct {
	system      string
	temperature float64
	maxTokens   int
}

func newChatCmd(a *app) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat <model> [prompt]",
		Short: "Chat with a model",
		Long: "Load <model> (an id, a checkpoint directory name or a path) and send prompt. " +
			"Without a prompt, read one message per line from stdin until EOF.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			modelPath, err := a.scanner.Resolve(args[0])
			if err != nil {
				return err
			}

			return crane.WithService(ctx, func(svc crane.Service) error {
				if err := svc.Initialize(ctx, modelPath); err != nil {
					return err
				}

				session := newChatSession(svc, flags, cmd.Flags().Changed("temperature"))

				if len(args) == 2 {
					reply, err := session.send(ctx, args[1])
					if err != nil {
						return err
					}

					fmt.Fprintln(a.out, reply)

					return nil
				}

				return a.repl(ctx, session)
			}, a.options...)
		},
	}

	cmd.Flags().StringVar(&flags.system, "system", "", "System instruction prepended to the conversation")
	cmd.Flags().Float64Var(&flags.temperature, "temperature", 0.7, "Sampling temperature (0-2)")
	cmd.Flags().IntVar(&flags.maxTokens, "max-tokens", 0, "Maximum tokens to generate (0 uses the worker default)")

	return cmd
}

// chatSession keeps the conversation history across turns.
type chatSession struct {
	svc         crane.Service
	history     []crane.ChatMessage
	temperature *float64
	maxTokens   *int
}

func newChatSession(svc crane.Service, flags chatFlags, setTemperature bool) *chatSession {
	s := &chatSession{svc: svc}

	if flags.system != "" {
		s.history = append(s.history, crane.ChatMessage{Role: crane.RoleSystem, Content: flags.system})
	}

	if setTemperature {
		s.temperature = &flags.temperature
	}

	if flags.maxTokens > 0 {
		s.maxTokens = &flags.maxTokens
	}

	return s
}

// send appends prompt to the history and returns the assistant's reply.
// A failed turn leaves the history unchanged.
func (s *chatSession) send(ctx context.Context, prompt string) (string, error) {
	messages := append(slices.Clone(s.history), crane.ChatMessage{Role: crane.RoleUser, Content: prompt})

	resp, err := s.svc.Chat(ctx, &crane.ChatRequest{
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", err
	}

	s.history = append(messages, resp.Message)

	return resp.Message.Content, nil
}

func (a *app) repl(ctx context.Context, session *chatSession) error {
	scanner := bufio.NewScanner(a.in)

	for {
		fmt.Fprint(a.errOut, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(a.errOut)

			return scanner.Err()
		}

		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}

		reply, err := session.send(ctx, prompt)
		if err != nil {
			return err
		}

		fmt.Fprintln(a.out, reply)
	}
}

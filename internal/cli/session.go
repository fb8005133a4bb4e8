package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/presentation/tui"
	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/aretw0/cracklens/pkg/session"
)

// Asker handles natural-language requests.
type Asker interface {
	Ask(ctx context.Context, text string) (cracklens.Answer, error)
}

// Chat answers requests read line by line from in until EOF, "exit" or "quit",
// or until ctx is done. Every exchange is appended to transcript when it is set.
func Chat(ctx context.Context, eng Asker, transcript *session.Transcript, in io.Reader, out io.Writer, render tui.Renderer, logger *slog.Logger) error {
	if render == nil {
		render = tui.Plain
	}
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(out)
			return err
		case line = <-lines:
		}

		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply := Handle(ctx, eng, transcript, text, logger)
		rendered, err := render(reply)
		if err != nil {
			rendered = reply
		}
		fmt.Fprintln(out, strings.TrimRight(rendered, "\n"))
	}
}

// Handle answers one request and records it in transcript. It returns the reply,
// which is an error message when the request could not be planned.
func Handle(ctx context.Context, eng Asker, transcript *session.Transcript, text string, logger *slog.Logger) string {
	record := func(err error) {
		if err != nil {
			logger.Warn("Failed to write transcript", "err", err)
		}
	}
	if transcript != nil {
		record(transcript.LogUser(text))
	}

	ans, err := eng.Ask(ctx, text)
	if err != nil {
		logger.Error("Request failed", "err", err)
		reply := fmt.Sprintf("Sorry, I could not handle that: %v", err)
		if transcript != nil {
			record(transcript.LogAgent(reply))
		}
		return reply
	}

	if transcript != nil {
		record(transcript.LogTurn(session.Turn{
			Intent:    intentSummary(ans.Intents),
			UserInput: text,
			Steps:     ans.Intents,
			ToolPlan:  ans.Steps,
			Result:    ans.Results,
			Message:   ans.Reply,
		}))
		record(transcript.LogAgent(ans.Reply))
	}
	return ans.Reply
}

func intentSummary(intents []plan.Intent) string {
	actions := make([]string, 0, len(intents))
	for _, in := range intents {
		actions = append(actions, in.Action)
	}
	return strings.Join(actions, "+")
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/cli"
	"github.com/aretw0/cracklens/internal/config"
	"github.com/aretw0/cracklens/internal/presentation/tui"
	"github.com/aretw0/cracklens/pkg/session"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [request...]",
	Short: "Ask in natural language, once or interactively",
	Long: `Plans a natural-language request over the images in the input directory,
runs it and replies. Without arguments an interactive session starts; type
'exit' or 'quit' to leave.

Every session gets a directory under the sessions directory holding the chat
transcript and a memory summary written on exit.

Examples:
  cracklens ask "segment and quantify image 2"
  cracklens ask`,
	RunE: func(cmd *cobra.Command, args []string) error {
		isolated, _ := cmd.Flags().GetBool("isolated")
		out := cmd.OutOrStdout()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		opts := optionsFrom(cmd)
		logger := cli.CreateLogger(opts.Debug)
		cfg, err := cli.LoadConfig(opts)
		if err != nil {
			return err
		}

		mgr := session.NewManager(cfg.SessionsDir, session.WithLogger(logger))
		sess, err := mgr.Start()
		if err != nil {
			return err
		}

		a, err := loadApp(sigCtx, cmd, func(c *config.Config) {
			if isolated {
				c.Memory.Backend = config.BackendFile
				c.Memory.Path = sess.MemoryLogPath()
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()
		defer func() {
			if err := mgr.Close(sess, a.engine.Memory()); err != nil {
				logger.Warn("Failed to write session summary", "err", err)
			}
		}()

		render := tui.NewRenderer()
		if len(args) > 0 {
			reply := cli.Handle(sigCtx, a.engine, sess.Transcript, strings.Join(args, " "), logger)
			rendered, err := render(reply)
			if err != nil {
				rendered = reply
			}
			fmt.Fprintln(out, strings.TrimRight(rendered, "\n"))
			return nil
		}

		tui.PrintBanner(out, cracklens.Version)
		cli.PrintSystemMessage(out, "Session '%s' active.", sess.ID)
		if err := cli.Chat(sigCtx, a.engine, sess.Transcript, os.Stdin, out, render, logger); err != nil {
			return err
		}
		cli.PrintSystemMessage(out, "Session saved to '%s'.", sess.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("isolated", false, "Keep memory in the session directory instead of the shared store")
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"healthbot/healthbot/controllers"
	"healthbot/healthbot/render"
	"healthbot/healthbot/utils/color"
	"healthbot/healthbot/utils/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const chatHelp = `Commands:
  /new              start a new conversation
  /sessions         list conversations
  /open <n|id>      continue a conversation
  /delete [n|id]    delete a conversation (default: the open one)
  /docs             list uploaded documents
  /upload <path>    upload a PDF
  /rmdoc <n|id>     delete a document
  /whoami           show the signed-in account
  /help             show this help
  /quit             leave (also: exit, quit)`

func newChatCmd(a *app) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the health assistant",
		Long: `Without arguments chat opens an interactive session. With a message it sends
that message, prints the reply and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			chat := controllers.NewChatController(a.client, a.store, a.ui)
			printer := &threadPrinter{out: out, chat: chat}
			a.ui.show(controllers.PanelThread, printer.refresh)

			if err := chat.Enter(ctx); err != nil {
				return a.result(err)
			}
			if session != "" {
				id, err := pick(session, sessionIDs(chat))
				if err != nil {
					return err
				}
				if err := chat.SelectSession(ctx, id); err != nil {
					return a.result(err)
				}
			}

			if len(args) > 0 {
				return a.result(chat.SendMessage(ctx, strings.Join(args, " ")))
			}
			return a.result(runChat(ctx, a, chat, printer))
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "continue a conversation (number from `sessions` or id)")
	return cmd
}

// runChat reads lines until the user quits, stdin closes, ctx is cancelled
// or a controller signs the user out.
func runChat(ctx context.Context, a *app, chat *controllers.ChatController, printer *threadPrinter) error {
	out := printer.out
	id := chat.Identity()
	fmt.Fprintf(out, "\n🩺 Connected as %s\n", render.IdentityText(id))
	fmt.Fprintln(out, color.ColorMuted("Type a message, /help for commands, or exit to quit."))
	fmt.Fprintln(out)

	logging.AppLogger.Info("chat started", zap.String("email", id.Email))

	for ctx.Err() == nil && !a.ui.signedOut() {
		line, err := a.in.Line(color.ColorPrompt("you> "))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if !strings.HasPrefix(line, "/") {
			err = chat.SendMessage(ctx, line)
		} else {
			var quit bool
			quit, err = chatCommand(ctx, a, chat, printer, line)
			if quit {
				break
			}
		}
		if err != nil && !a.ui.errorShown() && !a.ui.signedOut() {
			fmt.Fprintln(out, color.ColorError(err.Error()))
		}
		a.ui.resetErrors()
	}
	fmt.Fprintln(out, "👋 Goodbye!")
	return nil
}

func chatCommand(ctx context.Context, a *app, chat *controllers.ChatController, printer *threadPrinter, line string) (quit bool, err error) {
	out := printer.out
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/new":
		printer.reset()
		chat.NewChat()
	case "/sessions":
		if err := chat.LoadSessions(ctx); err != nil {
			return false, err
		}
		v := chat.View()
		fmt.Fprintln(out, render.SessionsText(v.Sessions, v.ActiveSession))
	case "/open":
		id, err := pick(arg, sessionIDs(chat))
		if err != nil {
			return false, err
		}
		printer.reset()
		return false, chat.SelectSession(ctx, id)
	case "/delete":
		id := chat.View().ActiveSession
		if arg != "" {
			if id, err = pick(arg, sessionIDs(chat)); err != nil {
				return false, err
			}
		}
		if id == "" {
			return false, errors.New("no conversation is open")
		}
		return false, chat.DeleteSession(ctx, id)
	case "/docs":
		if err := chat.LoadDocuments(ctx); err != nil {
			return false, err
		}
		v := chat.View()
		fmt.Fprintln(out, render.DocumentsText(v.Documents, v.Uploading))
	case "/upload":
		if arg == "" {
			return false, errors.New("usage: /upload <path>")
		}
		return false, uploadFile(ctx, chat, arg)
	case "/rmdoc":
		id, err := pick(arg, documentIDs(chat))
		if err != nil {
			return false, err
		}
		return false, chat.DeleteDocument(ctx, id)
	case "/whoami":
		fmt.Fprintln(out, render.IdentityText(chat.Identity()))
	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}

func uploadFile(ctx context.Context, chat *controllers.ChatController, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return chat.UploadDocument(ctx, path, data)
}

// threadPrinter appends new bubbles to the terminal as the thread grows.
type threadPrinter struct {
	out  io.Writer
	chat *controllers.ChatController

	mu      sync.Mutex
	shown   int
	waiting bool
}

// reset makes the next refresh print the whole thread.
func (p *threadPrinter) reset() {
	p.mu.Lock()
	p.shown = 0
	p.waiting = false
	p.mu.Unlock()
}

func (p *threadPrinter) refresh() {
	thread := p.chat.View().Thread
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(thread) < p.shown {
		p.shown = 0
	}
	if len(thread) == 0 {
		fmt.Fprintln(p.out, render.ThreadText(nil))
		return
	}
	for _, e := range thread[p.shown:] {
		if e.Pending {
			if !p.waiting {
				fmt.Fprintln(p.out, render.MessageText(e))
				p.waiting = true
			}
			continue
		}
		fmt.Fprintln(p.out, render.MessageText(e))
		fmt.Fprintln(p.out)
		p.shown++
		p.waiting = false
	}
}

// pick resolves a 1-based list number to an id; anything else is taken as
// an id.
func pick(ref string, ids []string) (string, error) {
	if ref == "" {
		return "", errors.New("missing conversation or document reference")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(ids) {
			return "", fmt.Errorf("no entry %d, the list has %d", n, len(ids))
		}
		return ids[n-1], nil
	}
	return ref, nil
}

func sessionIDs(chat *controllers.ChatController) []string {
	var ids []string
	for _, s := range chat.View().Sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

func documentIDs(chat *controllers.ChatController) []string {
	var ids []string
	for _, d := range chat.View().Documents {
		ids = append(ids, d.ID)
	}
	return ids
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jose-cardos0/ONLYNEX/internal/app"
	chatmodel "github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	var userID, userName string

	cmd := &cobra.Command{
		Use:   "chat <modelID>",
		Short: "Chat with a model in the terminal",
		Long: `Open a chat session with a model and type messages.

Commands inside the chat:
  /action <clipID>   play a button clip
  /ended             signal that the current clip finished
  /save <messageID>  save the card carried by a message
  /snapshot          print the session state
  /quit              leave the chat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(ctx, a, args[0], chat.User{ID: userID, DisplayName: userName}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli@onlynex.local", "user identity used for the collection ledger")
	cmd.Flags().StringVar(&userName, "name", "", "display name the model calls you by")
	return cmd
}

func runChat(ctx context.Context, a *app.App, modelID string, user chat.User, in io.Reader, out io.Writer) error {
	session, err := a.Chat.Open(ctx, modelID, user)
	if err != nil {
		return err
	}

	w := &syncWriter{w: out}
	model := session.Model()
	fmt.Fprintf(w, "💬 Chat with %s (session %s). Type /quit to leave.\n", model.Name, session.ID())

	events, cancel := session.Subscribe(64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			printEvent(w, model.Name, ev)
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if err := runLine(ctx, session, w, line); err != nil {
			fmt.Fprintf(w, "⚠️  %v\n", err)
		}
	}

	a.Chat.Close(session.ID())
	<-printed
	cancel()
	return scanner.Err()
}

func runLine(ctx context.Context, session *chat.Session, w io.Writer, line string) error {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/action":
		_, err := session.TriggerAction(arg)
		return err
	case "/ended":
		_, err := session.PlaybackEnded()
		return err
	case "/save":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("usage: /save <messageID>")
		}
		msg, err := session.SaveCard(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "⭐ card %s saved to your collection\n", msg.Card.ID)
		return nil
	case "/snapshot":
		snap := session.Snapshot()
		fmt.Fprintf(w, "messages=%d typing=%v playback=%s claimed=%v\n", len(snap.Messages), snap.Typing, snap.Playback.Mode, snap.ClaimedCardIDs)
		return nil
	default:
		if strings.HasPrefix(command, "/") {
			return fmt.Errorf("unknown command %s", command)
		}
		_, err := session.Submit(line)
		return err
	}
}

func printEvent(w io.Writer, modelName string, ev chat.Event) {
	switch ev.Type {
	case chat.EventMessage:
		msg := ev.Message
		switch {
		case msg.IsCard():
			fmt.Fprintf(w, "🎁 #%d [%s card %s] %s\n", msg.ID, msg.Card.MediaType, msg.Card.ID, msg.Text)
		case msg.Sender == chatmodel.SenderPeer:
			fmt.Fprintf(w, "#%d %s: %s\n", msg.ID, modelName, msg.Text)
		}
	case chat.EventTyping:
		if ev.Typing != nil && *ev.Typing {
			fmt.Fprintf(w, "… %s is typing\n", modelName)
		}
	case chat.EventPlayback:
		if ev.Playback.Mode == chatmodel.PlaybackOneShot {
			fmt.Fprintf(w, "▶ playing %s\n", ev.Playback.ActiveClipID)
		} else {
			fmt.Fprintf(w, "⟳ %s\n", ev.Playback.Mode)
		}
	case chat.EventCardSaved:
		fmt.Fprintf(w, "⭐ %s is in your collection\n", ev.CardID)
	case chat.EventClosed:
		fmt.Fprintln(w, "👋 session closed")
	}
}

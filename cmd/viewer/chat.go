package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"officepulse/client"
	"officepulse/domain"
	"officepulse/domain/event"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCmd(config *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the community chat, print history and live messages, send stdin lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return chat(ctx, config, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&config.ServerURL, "server", config.ServerURL, "websocket base url")
	cmd.Flags().StringVar(&config.Token, "token", config.Token, "JWT when the server enforces authentication")
	cmd.Flags().StringVar(&config.UserID, "user-id", config.UserID, "user id, random when empty")
	cmd.Flags().StringVar(&config.UserName, "name", config.UserName, "display name")
	cmd.Flags().StringVar(&config.UserEmail, "email", config.UserEmail, "e-mail, used for the avatar initials")
	return cmd
}

func chat(ctx context.Context, config *Config, in io.Reader, out io.Writer) error {
	userID := config.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	c, err := client.Dial(ctx, config.ServerURL, domain.Community, config.Token)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Emit(event.JoinCommunityEvent, map[string]string{
		"userId": userID, "userName": config.UserName, "userEmail": config.UserEmail,
	}); err != nil {
		return fmt.Errorf("join community: %w", err)
	}

	p := printer{out: out, colours: config.Colours}
	go send(ctx, c, in, p)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-c.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("connection lost: %w", c.Err())
			}
			if err := p.event(e); err != nil {
				p.notice(event.WarningType, fmt.Sprintf("unreadable %s event: %v", e.Type, err))
			}
		}
	}
}

// send posts one message per non-blank stdin line.
func send(ctx context.Context, c *client.Client, in io.Reader, p printer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.Emit(event.SendMessageEvent, map[string]string{"text": line}); err != nil {
			p.notice(event.ErrorType, err.Error())
			return
		}
	}
}

func (p printer) event(e client.Event) error {
	switch e.Type {
	case event.MessageHistoryType:
		var h event.MessageHistory
		if err := e.Decode(&h); err != nil {
			return err
		}
		for _, m := range h.Messages {
			p.message(m)
		}
		p.notice("", fmt.Sprintf("%d earlier messages", len(h.Messages)))
	case event.NewMessageType:
		var m domain.ChatMessage
		if err := e.Decode(&m); err != nil {
			return err
		}
		p.message(m)
	case event.ActiveUsersType:
		var users event.ActiveUsers
		if err := e.Decode(&users); err != nil {
			return err
		}
		p.roster(users.Users)
	case event.UserJoinedType:
		var j event.UserJoined
		if err := e.Decode(&j); err != nil {
			return err
		}
		p.notice("", fmt.Sprintf("%s joined (%d online)", j.User.Name, j.ActiveCount))
	case event.UserLeftType:
		var l event.UserLeft
		if err := e.Decode(&l); err != nil {
			return err
		}
		p.notice("", fmt.Sprintf("%s left (%d online)", l.User.Name, l.ActiveCount))
	case event.UserTypingType:
		var t event.UserTyping
		if err := e.Decode(&t); err != nil {
			return err
		}
		p.notice("", t.UserName+" is typing...")
	case event.WarningType, event.ErrorType:
		var n event.Notice
		if err := e.Decode(&n); err != nil {
			return err
		}
		p.notice(e.Type, n.Message)
	}
	return nil
}

func clock(t time.Time) string {
	return t.Local().Format(time.TimeOnly)
}

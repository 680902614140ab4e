package notification

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"library-room-booker/internal/logging"
)

// LogSender writes every message to the log. Email delivery is not wired
// up, so a configured address is only reported.
type LogSender struct {
	Log   *logging.Logger
	Email string
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if msg.Success {
		s.Log.Infof("Notification (%s): %s", msg.Status(), msg.Text)
	} else {
		s.Log.Warnf("Notification (%s): %s", msg.Status(), msg.Text)
	}
	if s.Email != "" {
		s.Log.Infof("Would send email to: %s", s.Email)
	}
	return nil
}

// CommandRunner executes an external program.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// DesktopSender shows a native notification via osascript on macOS or
// notify-send on Linux. Other platforms are skipped.
type DesktopSender struct {
	GOOS string
	Run  CommandRunner
}

// NewDesktopSender returns a sender for the current platform.
func NewDesktopSender() *DesktopSender {
	return &DesktopSender{GOOS: runtime.GOOS, Run: runCommand}
}

// Command returns the program and arguments used on goos, or "" when the
// platform has no supported notifier.
func (s *DesktopSender) Command(goos, text string) (string, []string) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", text, Title)
		return "osascript", []string{"-e", script}
	case "linux":
		return "notify-send", []string{Title, text}
	default:
		return "", nil
	}
}

func (s *DesktopSender) Send(ctx context.Context, msg Message) error {
	name, args := s.Command(s.GOOS, msg.Text)
	if name == "" {
		return nil
	}
	run := s.Run
	if run == nil {
		run = runCommand
	}
	if err := run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// BotClient is the part of the Telegram bot API used for alerts.
type BotClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts results to a single chat.
type TelegramSender struct {
	Bot    BotClient
	ChatID int64
}

// NewTelegramSender connects to the bot API with token.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &TelegramSender{Bot: bot, ChatID: chatID}, nil
}

// Format renders the chat text for msg.
func (s *TelegramSender) Format(msg Message) string {
	icon := "❌"
	switch {
	case msg.DryRun:
		icon = "🧪"
	case msg.Success:
		icon = "✅"
	}
	text := fmt.Sprintf("%s %s\n%s", icon, Title, msg.Text)
	if msg.RunID != "" {
		text += "\nrun " + msg.RunID
	}
	return text
}

func (s *TelegramSender) Send(_ context.Context, msg Message) error {
	if _, err := s.Bot.Send(tgbotapi.NewMessage(s.ChatID, s.Format(msg))); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

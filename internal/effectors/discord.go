// Package effectors delivers fired reminders to the user.
package effectors

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/remind"
)

// DiscordSink posts reminder alerts into a Discord channel.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordSink creates the sink. Open must be called before delivery;
// opening the session is the one-time grant request for alert delivery.
func NewDiscordSink(token, channelID string) (*DiscordSink, error) {
	if channelID == "" {
		return nil, fmt.Errorf("discord channel id is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &DiscordSink{session: session, channelID: channelID}, nil
}

// Open connects the session.
func (d *DiscordSink) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	logging.Info("discord-sink", "connected as %s", d.session.State.User.Username)
	return nil
}

// Close disconnects the session.
func (d *DiscordSink) Close() error {
	return d.session.Close()
}

// Deliver posts the alert: task title as the headline, fixed body below.
func (d *DiscordSink) Deliver(n remind.Notification) error {
	msg := fmt.Sprintf(":alarm_clock: **%s**\n%s", n.Title, n.Body)
	_, err := d.session.ChannelMessageSend(d.channelID, msg)
	return err
}

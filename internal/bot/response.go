package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Sender is the part of a discord session responses are written to
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

type Response interface {
	Send(channelid string, sender Sender) error
}

func (response ResponseString) Send(channelid string, sender Sender) error {
	if _, err := sender.ChannelMessageSend(channelid, response.string); err != nil {
		log.Error().Err(err).Str("channel", channelid).Msg("Could not send message")
		return err
	}
	return nil
}

func (response ResponseEmbed) Send(channelid string, sender Sender) error {
	if _, err := sender.ChannelMessageSendEmbed(channelid, &response.MessageEmbed); err != nil {
		log.Error().Err(err).Str("channel", channelid).Msg("Could not send embed")
		return err
	}
	return nil
}

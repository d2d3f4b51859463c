package discord

import (
	"context"
	"errors"

	"github.com/K3das/orange-scribe/utils"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	CommandNameTranscriber = "transcriber"
	CommandNameSettings    = "settings"
)

func (b *DiscordBot) registerCommands(ctx context.Context) error {
	adminPerms := int64(discordgo.PermissionAdministrator)
	createdCommands, err := b.discord.ApplicationCommandBulkOverwrite(b.self.ID, "", []*discordgo.ApplicationCommand{
		{
			Type:                     discordgo.ChatApplicationCommand,
			Name:                     CommandNameTranscriber,
			DefaultMemberPermissions: &adminPerms,
			Description:              "Add the transcription button to this channel.",
			Contexts:                 &[]discordgo.InteractionContextType{discordgo.InteractionContextGuild},
		},
		{
			Type:                     discordgo.ChatApplicationCommand,
			Name:                     CommandNameSettings,
			DefaultMemberPermissions: &adminPerms,
			Description:              "Configure the OpenAI API key used for transcription.",
			Contexts:                 &[]discordgo.InteractionContextType{discordgo.InteractionContextGuild},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	b.commandsMu.Lock()
	b.commands = make(map[string]*discordgo.ApplicationCommand)
	for _, command := range createdCommands {
		b.commands[command.Name] = command
	}
	b.commandsMu.Unlock()

	return nil
}

func (b *DiscordBot) handleCommandInteraction(ctx context.Context, e *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) error {
	log := utils.GetLogFromContext(ctx, b.log)

	var commandErr error
	switch data.Name {
	case CommandNameTranscriber:
		commandErr = b.handleCommandTranscriber(ctx, e)
	case CommandNameSettings:
		commandErr = b.handleCommandSettings(ctx, e)
	}

	if commandErr != nil {
		var discordErr DiscordExecutionError
		errorMessage := "Erro desconhecido."
		if errors.As(commandErr, &discordErr) && discordErr.Message != "" {
			errorMessage = discordErr.Message
		}

		if !discordErr.UserError {
			log.Error("failed to respond to command", zap.Error(commandErr))
		}

		output, err := b.executeMessageTemplate(ctx, "command_error", MessageContext{
			CommandError: &MessageContextCommandError{
				Message: errorMessage,
			},
		})
		if err != nil {
			log.Error("failed to render error message", zap.Error(err))
			return nil
		}

		err = b.discord.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Flags:           discordgo.MessageFlagsEphemeral,
				Content:         output.Content,
				Components:      output.Components,
				Embeds:          output.Embeds,
				AllowedMentions: DefaultAllowedMentions,
			},
		})
		if err != nil {
			log.Error("failed to send response", zap.Error(err))
		}
	}

	return nil
}

package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/K3das/orange-scribe/utils"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *DiscordBot) handleComponentInteraction(ctx context.Context, e *discordgo.InteractionCreate, data discordgo.MessageComponentInteractionData) error {
	if data.ComponentType != discordgo.ButtonComponent {
		return nil
	}

	componentID, err := ParseComponentID(data.CustomID)
	if err != nil {
		return nil
	}

	var interactionErr error

	switch {
	case componentID.Is(ComponentSourcePage, ComponentActionTranscribe):
		interactionErr = b.handleTranscribeClick(ctx, e)
	}

	b.respondInteractionError(ctx, e, interactionErr)
	return nil
}

func (b *DiscordBot) handleModalInteraction(ctx context.Context, e *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) error {
	componentID, err := ParseComponentID(data.CustomID)
	if err != nil {
		return nil
	}

	var interactionErr error

	switch {
	case componentID.Is(ComponentSourceSettings, ComponentActionSaveKey):
		interactionErr = b.handleSettingsSubmit(ctx, e, data)
	}

	b.respondInteractionError(ctx, e, interactionErr)
	return nil
}

// respondInteractionError tells the user an interaction failed. A nil error
// is a no-op.
func (b *DiscordBot) respondInteractionError(ctx context.Context, e *discordgo.InteractionCreate, interactionErr error) {
	if interactionErr == nil {
		return
	}

	log := utils.GetLogFromContext(ctx, b.log)

	var discordErr DiscordExecutionError
	errorMessage := "Erro desconhecido."
	if errors.As(interactionErr, &discordErr) && discordErr.Message != "" {
		errorMessage = discordErr.Message
	}

	if !discordErr.UserError {
		log.Error("failed to respond to interaction", zap.Error(interactionErr))
	}

	output, err := b.executeMessageTemplate(ctx, "interaction_error", MessageContext{
		InteractionError: &MessageContextInteractionError{
			Message: errorMessage,
		},
	})
	if err != nil {
		log.Error("failed to render error message", zap.Error(err))
		return
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

func getInteractionUser(e *discordgo.InteractionCreate) (*discordgo.User, error) {
	var discordUser *discordgo.User
	if e.Member != nil && e.Member.User != nil {
		discordUser = e.Member.User
	} else if e.User != nil {
		discordUser = e.User
	} else {
		return nil, fmt.Errorf("no user found in interaction")
	}

	return discordUser, nil
}

func requireAdministrator(e *discordgo.InteractionCreate) error {
	if e.Member == nil || e.GuildID == "" {
		return DiscordExecutionError{
			Message:   "Use este comando em um servidor.",
			UserError: true,
		}
	}
	if e.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		return DiscordExecutionError{
			Message:   "Você precisa ser administrador para usar isto.",
			UserError: true,
		}
	}
	return nil
}

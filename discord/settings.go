package discord

import (
	"context"
	"fmt"

	"github.com/K3das/orange-scribe/options"
	"github.com/K3das/orange-scribe/utils"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	ComponentSourceSettings = ComponentIDSource("settings")
	ComponentActionSaveKey  = ComponentIDAction("save_key")
	ComponentActionAPIKey   = ComponentIDAction("api_key")
)

func (b *DiscordBot) handleCommandSettings(ctx context.Context, e *discordgo.InteractionCreate) error {
	if err := requireAdministrator(e); err != nil {
		return err
	}

	key, _ := b.options.Load(ctx)

	output, err := b.executeMessageTemplate(ctx, "settings_modal", MessageContext{
		SettingsModal: &MessageContextSettingsModal{
			CustomID: ComponentIDString(ComponentSourceSettings, ComponentActionSaveKey),
			InputID:  ComponentIDString(ComponentSourceSettings, ComponentActionAPIKey),
			Label:    b.options.Text("options_label"),
			Value:    key,
		},
	})
	if err != nil {
		return fmt.Errorf("rendering modal: %w", err)
	}

	err = b.discord.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			Title:      output.Title,
			CustomID:   output.CustomID,
			Components: output.Components,
		},
	})
	if err != nil {
		return fmt.Errorf("responding with modal: %w", err)
	}

	return nil
}

// modalTextValue finds the value of the text input customID in a submitted modal.
func modalTextValue(components []discordgo.MessageComponent, customID string) (string, bool) {
	for _, component := range components {
		switch c := component.(type) {
		case *discordgo.ActionsRow:
			if value, ok := modalTextValue(c.Components, customID); ok {
				return value, true
			}
		case *discordgo.TextInput:
			if c.CustomID == customID {
				return c.Value, true
			}
		}
	}
	return "", false
}

func (b *DiscordBot) handleSettingsSubmit(ctx context.Context, e *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) error {
	if err := requireAdministrator(e); err != nil {
		return err
	}

	raw, ok := modalTextValue(data.Components, ComponentIDString(ComponentSourceSettings, ComponentActionAPIKey))
	if !ok {
		return fmt.Errorf("modal submitted without the key input")
	}

	user, err := getInteractionUser(e)
	if err != nil {
		return fmt.Errorf("getting user: %w", err)
	}
	ctx = utils.LogContext(ctx, zap.String("user_id", user.ID))
	log := utils.GetLogFromContext(ctx, b.log)

	feedback := b.options.Save(ctx, raw)
	log.With(zap.String("kind", string(feedback.Kind))).Info("settings submitted")

	return b.respondSettingsFeedback(ctx, e, feedback)
}

func (b *DiscordBot) respondSettingsFeedback(ctx context.Context, e *discordgo.InteractionCreate, feedback options.Feedback) error {
	output, err := b.executeMessageTemplate(ctx, "settings_feedback", MessageContext{
		SettingsFeedback: &MessageContextSettingsFeedback{
			Text: feedback.Text,
			Kind: string(feedback.Kind),
		},
	})
	if err != nil {
		return fmt.Errorf("rendering feedback: %w", err)
	}

	err = b.discord.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:           discordgo.MessageFlagsEphemeral,
			Content:         output.Content,
			AllowedMentions: DefaultAllowedMentions,
		},
	})
	if err != nil {
		return fmt.Errorf("responding: %w", err)
	}

	return nil
}

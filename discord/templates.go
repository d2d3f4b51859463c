package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/K3das/orange-scribe/utils"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type MessageOutput struct {
	Title      string                       `json:"title,omitempty"`
	CustomID   string                       `json:"custom_id,omitempty"`
	Content    string                       `json:"content,omitempty"`
	Components []discordgo.MessageComponent `json:"components,omitempty"`
	Embeds     []*discordgo.MessageEmbed    `json:"embeds,omitempty"`
}

type messageOutputRaw struct {
	Title      string                    `json:"title,omitempty"`
	CustomID   string                    `json:"custom_id,omitempty"`
	Content    string                    `json:"content,omitempty"`
	Components []json.RawMessage         `json:"components,omitempty"`
	Embeds     []*discordgo.MessageEmbed `json:"embeds,omitempty"`
}

type MessageContextPageControl struct {
	Label       string `json:"label"`
	Disabled    bool   `json:"disabled"`
	ComponentID string `json:"component_id"`
}
type MessageContextPageToast struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}
type MessageContextSettingsModal struct {
	CustomID string `json:"custom_id"`
	InputID  string `json:"input_id"`
	Label    string `json:"label"`
	Value    string `json:"value"`
}
type MessageContextSettingsFeedback struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}
type MessageContextInteractionError struct {
	Message string `json:"message"`
}
type MessageContextCommandError struct {
	Message string `json:"message"`
}

type MessageContext struct {
	PageControl      *MessageContextPageControl      `json:"page_control,omitempty"`
	PageToast        *MessageContextPageToast        `json:"page_toast,omitempty"`
	SettingsModal    *MessageContextSettingsModal    `json:"settings_modal,omitempty"`
	SettingsFeedback *MessageContextSettingsFeedback `json:"settings_feedback,omitempty"`
	InteractionError *MessageContextInteractionError `json:"interaction_error,omitempty"`
	CommandError     *MessageContextCommandError     `json:"command_error,omitempty"`

	Timestamp          string                                   `json:"timestamp"`
	RegisteredCommands map[string]*discordgo.ApplicationCommand `json:"registered_commands"`
}

func (b *DiscordBot) executeMessageTemplate(ctx context.Context, messageName string, data MessageContext) (*MessageOutput, error) {
	log := utils.GetLogFromContext(ctx, b.log)

	data.Timestamp = time.Now().UTC().Format(time.RFC3339)
	b.commandsMu.RLock()
	data.RegisteredCommands = b.commands
	defer b.commandsMu.RUnlock()

	jsonOut, err := b.messages.ExecuteMessage(messageName, data)
	if err != nil {
		return nil, err
	}

	output, err := decodeMessageOutput(jsonOut)
	if err != nil {
		return nil, err
	}

	log.With(zap.Any("output", output)).Debug("got message template output")

	return output, nil
}

func decodeMessageOutput(jsonOut string) (*MessageOutput, error) {
	var outputRaw messageOutputRaw
	err := json.Unmarshal([]byte(jsonOut), &outputRaw)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling output: %w", err)
	}

	output := &MessageOutput{
		Title:    outputRaw.Title,
		CustomID: outputRaw.CustomID,
		Content:  outputRaw.Content,
		Embeds:   outputRaw.Embeds,
	}

	for _, c := range outputRaw.Components {
		messageComponent, err := discordgo.MessageComponentFromJSON(c)
		if err != nil {
			return nil, fmt.Errorf("unmarshaling component: %w", err)
		}
		output.Components = append(output.Components, messageComponent)
	}

	return output, nil
}

package discord

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/K3das/orange-scribe/page"
	"github.com/K3das/orange-scribe/utils"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	ComponentSourcePage       = ComponentIDSource("page")
	ComponentActionTranscribe = ComponentIDAction("transcribe")
)

// how far back in the channel the transcribe button looks for audio
const channelHistoryLimit = 100

const workflowTimeout = time.Minute * 2

// followupSender is the part of the session that toasts go through.
type followupSender interface {
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageDelete(interaction *discordgo.Interaction, messageID string, options ...discordgo.RequestOption) error
}

type interactionKeyType struct{}

// withInteraction carries the click a workflow run answers to.
func withInteraction(ctx context.Context, interaction *discordgo.Interaction) context.Context {
	return context.WithValue(ctx, interactionKeyType{}, interaction)
}

func interactionFromContext(ctx context.Context) *discordgo.Interaction {
	interaction, _ := ctx.Value(interactionKeyType{}).(*discordgo.Interaction)
	return interaction
}

type toastMessage struct {
	interaction *discordgo.Interaction
	messageID   string
}

// channelHost runs the page workflow inside one channel: the channel's
// recent attachments are the document, a bot message with a button is the
// control, and ephemeral follow-ups are the toasts. Toasts belong to the
// user who clicked, so they are tracked per toast scope (the user ID).
type channelHost struct {
	b         *DiscordBot
	channelID string
	followups followupSender

	controller *page.Controller

	mu               sync.Mutex
	controlMessageID string
	toasts           map[string]toastMessage
}

var (
	_ page.Document = (*channelHost)(nil)
	_ page.Control  = (*channelHost)(nil)
	_ page.Surface  = (*channelHost)(nil)
)

// channelHost returns the host of channelID, creating it on first use.
func (b *DiscordBot) channelHost(channelID string) *channelHost {
	b.hostsMu.Lock()
	defer b.hostsMu.Unlock()

	if host, ok := b.hosts[channelID]; ok {
		return host
	}

	host := &channelHost{
		b:         b,
		channelID: channelID,
		followups: b.discord,
		toasts:    make(map[string]toastMessage),
	}
	host.controller = page.NewController(page.ControllerOptions{
		ParentLogger: b.log.With(zap.String("channel_id", channelID)),
		Document:     host,
		Control:      host,
		Surface:      host,
		Runtime:      b.runtime,
		Messages:     b.messages,
	}, page.WithHTTPClient(b.http))

	b.hosts[channelID] = host
	return host
}

type attachmentAudio struct {
	attachment *discordgo.MessageAttachment
}

func (a attachmentAudio) Src() string        { return a.attachment.URL }
func (a attachmentAudio) CurrentSrc() string { return a.attachment.ProxyURL }
func (a attachmentAudio) SourceSrc() string  { return "" }
func (a attachmentAudio) Type() string       { return a.attachment.ContentType }

// audioAttachments returns the audio attachments of messages, which the API
// lists newest first, in chronological order.
func audioAttachments(messages []*discordgo.Message) []page.AudioElement {
	var audios []page.AudioElement
	for _, message := range slices.Backward(messages) {
		for _, attachment := range message.Attachments {
			if strings.HasPrefix(attachment.ContentType, "audio/") {
				audios = append(audios, attachmentAudio{attachment: attachment})
			}
		}
	}
	return audios
}

func (h *channelHost) Audios(ctx context.Context) ([]page.AudioElement, error) {
	messages, err := h.b.discord.ChannelMessages(h.channelID, channelHistoryLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing channel messages: %w", err)
	}
	return audioAttachments(messages), nil
}

func (h *channelHost) Render(ctx context.Context, label string, disabled bool) error {
	output, err := h.b.executeMessageTemplate(ctx, "page_control", MessageContext{
		PageControl: &MessageContextPageControl{
			Label:       label,
			Disabled:    disabled,
			ComponentID: ComponentIDString(ComponentSourcePage, ComponentActionTranscribe),
		},
	})
	if err != nil {
		return fmt.Errorf("rendering control: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.controlMessageID == "" {
		message, err := h.b.discord.ChannelMessageSendComplex(h.channelID, &discordgo.MessageSend{
			Content:         output.Content,
			Components:      output.Components,
			AllowedMentions: DefaultAllowedMentions,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("sending control message: %w", err)
		}
		h.controlMessageID = message.ID
		return nil
	}

	_, err = h.b.discord.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    h.channelID,
		ID:         h.controlMessageID,
		Components: &output.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("editing control message: %w", err)
	}
	return nil
}

func (h *channelHost) ShowToast(ctx context.Context, text string, isError bool) error {
	interaction := interactionFromContext(ctx)
	if interaction == nil {
		return fmt.Errorf("no interaction to show a toast for")
	}

	output, err := h.b.executeMessageTemplate(ctx, "page_toast", MessageContext{
		PageToast: &MessageContextPageToast{
			Text:    text,
			IsError: isError,
		},
	})
	if err != nil {
		return fmt.Errorf("rendering toast: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	scope := page.ToastScopeFromContext(ctx)
	h.deleteToastLocked(ctx, scope)

	message, err := h.followups.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content:         output.Content,
		Embeds:          output.Embeds,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: DefaultAllowedMentions,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending toast: %w", err)
	}

	h.toasts[scope] = toastMessage{
		interaction: interaction,
		messageID:   message.ID,
	}
	return nil
}

func (h *channelHost) HideToast(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deleteToastLocked(ctx, page.ToastScopeFromContext(ctx))
	return nil
}

func (h *channelHost) deleteToastLocked(ctx context.Context, scope string) {
	toast, ok := h.toasts[scope]
	if !ok {
		return
	}
	delete(h.toasts, scope)

	err := h.followups.FollowupMessageDelete(toast.interaction, toast.messageID, discordgo.WithContext(ctx))
	if err != nil {
		utils.GetLogFromContext(ctx, h.b.log).Info("couldn't delete toast (likely dismissed by the user)", zap.Error(err))
	}
}

// setControlMessage points the host at the message holding the button.
func (h *channelHost) setControlMessage(messageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if messageID != "" {
		h.controlMessageID = messageID
	}
}

// runContext scopes a workflow run to the interaction that started it.
func runContext(ctx context.Context, e *discordgo.InteractionCreate) (context.Context, error) {
	user, err := getInteractionUser(e)
	if err != nil {
		return nil, err
	}
	ctx = utils.LogContext(ctx, zap.String("user_id", user.ID))
	ctx = page.WithToastScope(ctx, user.ID)
	return withInteraction(ctx, e.Interaction), nil
}

func (b *DiscordBot) handleTranscribeClick(ctx context.Context, e *discordgo.InteractionCreate) error {
	log := utils.GetLogFromContext(ctx, b.log)

	if e.Message == nil {
		return fmt.Errorf("click without a message")
	}

	runCtx, err := runContext(utils.DetachLogContext(ctx), e)
	if err != nil {
		return fmt.Errorf("scoping run: %w", err)
	}

	host := b.channelHost(e.ChannelID)
	host.setControlMessage(e.Message.ID)

	err = b.discord.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		return fmt.Errorf("acknowledging click: %w", err)
	}

	log = utils.GetLogFromContext(runCtx, b.log)
	go func() {
		defer utils.PanicRecovery(log)

		ctx, cancel := context.WithTimeout(runCtx, workflowTimeout)
		defer cancel()

		outcome := host.controller.Click(ctx)
		log.With(zap.Bool("is_error", outcome.IsError)).Info("transcription workflow finished")
	}()

	return nil
}

func (b *DiscordBot) handleCommandTranscriber(ctx context.Context, e *discordgo.InteractionCreate) error {
	if err := requireAdministrator(e); err != nil {
		return err
	}

	host := b.channelHost(e.ChannelID)
	if err := host.controller.Mount(ctx); err != nil {
		return DiscordExecutionError{
			Message: "Não foi possível adicionar o botão.",
			Err:     fmt.Errorf("mounting control: %w", err),
		}
	}

	output, err := b.executeMessageTemplate(ctx, "page_control_posted", MessageContext{})
	if err != nil {
		return fmt.Errorf("rendering message: %w", err)
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

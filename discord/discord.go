package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/K3das/orange-scribe/messages"
	"github.com/K3das/orange-scribe/options"
	"github.com/K3das/orange-scribe/protocol"
	"github.com/K3das/orange-scribe/utils"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var DefaultAllowedMentions = &discordgo.MessageAllowedMentions{
	Parse:       []discordgo.AllowedMentionType{},
	RepliedUser: true,
}

type DiscordExecutionError struct {
	Message string
	Err     error
	// If true, do not log this error
	UserError bool
}

func (err DiscordExecutionError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Err.Error()
}

func (err DiscordExecutionError) Unwrap() error {
	return err.Err
}

type DiscordBot struct {
	log *zap.Logger

	discord  *discordgo.Session
	messages *messages.MessageProvider
	runtime  protocol.Sender
	options  *options.Options

	http *http.Client

	self *discordgo.User

	commands   map[string]*discordgo.ApplicationCommand
	commandsMu sync.RWMutex

	hosts   map[string]*channelHost
	hostsMu sync.Mutex

	knownServers map[string]struct{}
}

type DiscordBotOptions struct {
	ParentLogger *zap.Logger
	Messages     *messages.MessageProvider
	Runtime      protocol.Sender
	Options      *options.Options

	Token   string
	Servers []string
}

type DiscordBotOptionsExtraOptions func(*DiscordBot)

func WithHTTPClient(client *http.Client) DiscordBotOptionsExtraOptions {
	return func(b *DiscordBot) {
		b.http = client
	}
}

func NewDiscordBot(ctx context.Context, options DiscordBotOptions, extraOptions ...DiscordBotOptionsExtraOptions) (*DiscordBot, error) {
	b := &DiscordBot{
		log: options.ParentLogger.Named("discord_bot"),

		messages: options.Messages,
		runtime:  options.Runtime,
		options:  options.Options,

		http:         http.DefaultClient,
		hosts:        make(map[string]*channelHost),
		knownServers: make(map[string]struct{}),
	}
	for _, option := range extraOptions {
		option(b)
	}

	for _, v := range options.Servers {
		b.knownServers[v] = struct{}{}
	}

	discord, err := discordgo.New("Bot " + options.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discordgo instance: %w", err)
	}
	b.discord = discord
	b.discord.Client = b.http

	state := discordgo.NewState()
	state.TrackChannels = false
	state.TrackThreads = false
	state.TrackEmojis = false
	state.TrackStickers = false
	state.TrackMembers = false
	state.TrackThreadMembers = false
	state.TrackRoles = false
	state.TrackVoice = false
	state.TrackPresences = false
	b.discord.State = state
	b.discord.StateEnabled = true

	b.discord.AddHandler(b.handleReady)
	b.discord.AddHandler(b.handleInteractionCreate)

	b.discord.Identify.Presence = discordgo.GatewayStatusUpdate{
		Game: discordgo.Activity{
			Name:  "🎙️",
			Type:  discordgo.ActivityTypeCustom,
			State: "🎙️",
		},
	}

	b.self, err = b.discord.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("checking discord session: %w", err)
	}

	b.log = b.log.With(zap.String("bot_id", b.self.ID))
	b.log.Info("discord api works")

	err = b.registerCommands(ctx)
	if err != nil {
		return nil, fmt.Errorf("registering commands: %w", err)
	}

	return b, nil
}

func (b *DiscordBot) handleReady(s *discordgo.Session, e *discordgo.Ready) {
	b.log.Info("gateway ready")
}

func (b *DiscordBot) Open() error {
	return b.discord.Open()
}

func (b *DiscordBot) Close() error {
	return b.discord.Close()
}

func (b *DiscordBot) Run(ctx context.Context) error {
	defer utils.PanicRecovery(b.log)

	err := b.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	<-ctx.Done()

	err = b.Close()
	if err != nil {
		return fmt.Errorf("closing discord websocket: %w", err)
	}

	return nil
}

func (b *DiscordBot) isGuildInScope(guildID string) bool {
	_, ok := b.knownServers[guildID]
	return ok
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"toornabot/internal/common"
	"toornabot/internal/render"
	"toornabot/internal/toornament"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DEFAULT_COMMAND_TIMEOUT time.Duration = 2 * time.Minute

// Outcomes reported for every command
const (
	OUTCOME_OK          string = "ok"
	OUTCOME_INVALID     string = "invalid"
	OUTCOME_DENIED      string = "denied"
	OUTCOME_NOT_FOUND   string = "not_found"
	OUTCOME_CREDENTIALS string = "credentials"
	OUTCOME_FAILED      string = "failed"
)

// Platform is what the bot needs from the tournament platform
type Platform interface {
	GetTournament(ctx context.Context, tournamentId toornament.TournamentId) (toornament.Tournament, error)
	FindGroup(ctx context.Context, tournamentId toornament.TournamentId, name string) (toornament.Group, error)
	GetRanking(ctx context.Context, tournamentId toornament.TournamentId, stageId toornament.StageId, groupId toornament.GroupId) ([]toornament.RankingEntry, error)
	GetMatches(ctx context.Context, tournamentId toornament.TournamentId, stageId toornament.StageId, groupId toornament.GroupId, rounds ...int) ([]toornament.Match, error)
	GetParticipants(ctx context.Context, tournamentId toornament.TournamentId) ([]toornament.Participant, error)
}

type CommandObserver interface {
	ObserveCommand(command string, outcome string, elapsed time.Duration)
}

type Config struct {
	Token          string
	Prefix         string
	CommandTimeout time.Duration
	Observer       CommandObserver
}

// Invocation is everything known about the member
// and the guild a command comes from
type Invocation struct {
	Id            uuid.UUID
	GuildId       string
	ChannelId     string
	AuthorId      string
	Administrator bool
	MemberRoles   []string
	GuildRoles    []*discordgo.Role
	Emojis        []*discordgo.Emoji
}

type Bot struct {
	token          string
	prefix         string
	commandTimeout time.Duration
	database       *DatabaseBot
	permissions    *Permissions
	toornament     Platform
	observer       CommandObserver
	session        *discordgo.Session
	ctx            context.Context
	cancel         context.CancelFunc
}

func NewBot(config Config, database *DatabaseBot, permissions *Permissions, platform Platform) *Bot {

	bot := &Bot{
		token:          config.Token,
		prefix:         config.Prefix,
		commandTimeout: config.CommandTimeout,
		database:       database,
		permissions:    permissions,
		toornament:     platform,
		observer:       config.Observer,
	}
	if bot.prefix == "" {
		bot.prefix = DEFAULT_PREFIX
	}
	if bot.commandTimeout <= 0 {
		bot.commandTimeout = DEFAULT_COMMAND_TIMEOUT
	}
	bot.ctx, bot.cancel = context.WithCancel(context.Background())
	return bot
}

// Start opens the discord session. Messages are handled
// in the goroutines discordgo creates for every event
func (bot *Bot) Start() error {

	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return trace.Wrap(err, "could not create discord session")
	}
	discord.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildEmojis |
		discordgo.IntentMessageContent

	// Event handler
	discord.AddHandler(bot.Receive)

	if err := discord.Open(); err != nil {
		return trace.ConnectionProblem(err, "could not open discord session")
	}
	bot.session = discord
	log.Info().Str("user", discord.State.User.Username).Msg("Connected to discord")
	return nil
}

// Stop cancels the commands in flight and closes the session
func (bot *Bot) Stop() error {
	bot.cancel()
	if bot.session == nil {
		return nil
	}
	log.Info().Msg("Closing discord session")
	return trace.Wrap(bot.session.Close())
}

func (bot *Bot) Receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages and the ones from other bots
	if message.Author == nil || message.Author.ID == discord.State.User.ID || message.Author.Bot {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Str("author", message.Author.ID).Msg("Ignoring private message")
		return
	}

	parseResult := Parse(bot.prefix, message.Content)
	if parseResult.parseid == PARSEID_NO_BOT_PREFIX {
		return
	}

	invocation := Invocation{
		Id:        uuid.New(),
		GuildId:   message.GuildID,
		ChannelId: message.ChannelID,
		AuthorId:  message.Author.ID,
	}
	permissions, err := discord.UserChannelPermissions(message.Author.ID, message.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("author", message.Author.ID).Msg("Could not compute permissions of author")
	}
	invocation.Administrator = permissions&discordgo.PermissionAdministrator != 0
	if message.Member != nil {
		invocation.MemberRoles = message.Member.Roles
	}
	invocation.GuildRoles, invocation.Emojis = guildContents(discord, message.GuildID)

	for _, response := range bot.Handle(invocation, parseResult) {
		response.Send(message.ChannelID, discord)
	}
}

// guildContents reads roles and emojis from the state cache,
// asking discord only when the guild is not cached
func guildContents(discord *discordgo.Session, guildId string) ([]*discordgo.Role, []*discordgo.Emoji) {
	if guild, err := discord.State.Guild(guildId); err == nil {
		return guild.Roles, guild.Emojis
	}
	roles, err := discord.GuildRoles(guildId)
	if err != nil {
		log.Warn().Err(err).Str("guild", guildId).Msg("Could not get guild roles")
	}
	emojis, err := discord.GuildEmojis(guildId)
	if err != nil {
		log.Warn().Err(err).Str("guild", guildId).Msg("Could not get guild emojis")
	}
	return roles, emojis
}

// Handle runs a parsed command and returns what has to be posted back
func (bot *Bot) Handle(invocation Invocation, parseResult ParseResult) []Response {

	name, ok := commandNames[parseResult.command]
	if !ok {
		name = "unknown"
	}
	logger := log.With().
		Str("command_id", invocation.Id.String()).
		Str("guild", invocation.GuildId).
		Str("command", name).
		Logger()
	ctx, cancel := context.WithTimeout(logger.WithContext(bot.ctx), bot.commandTimeout)
	defer cancel()

	start := time.Now()
	logger.Debug().Msg("Command received")
	responses, outcome := bot.dispatch(ctx, invocation, parseResult)
	elapsed := time.Since(start)
	logger.Info().Str("outcome", outcome).Dur("elapsed", elapsed).Msg("Command handled")
	if bot.observer != nil {
		bot.observer.ObserveCommand(name, outcome, elapsed)
	}
	return responses
}

func (bot *Bot) dispatch(ctx context.Context, invocation Invocation, parseResult ParseResult) ([]Response, string) {

	if parseResult.parseid != PARSEID_OK {
		// The command is invalid input, so it contains an error message
		zerolog.Ctx(ctx).Debug().Str("reason", parseResult.errorMessage).Msg("Wrong input")
		return InputNotValid(parseResult.errorMessage), OUTCOME_INVALID
	}

	if err := bot.authorize(invocation, parseResult.command); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Str("author", invocation.AuthorId).Msg("Permission denied")
		return PermissionDenied(), OUTCOME_DENIED
	}

	switch parseResult.command {
	case COMMAND_PING:
		return Pong(), OUTCOME_OK
	case COMMAND_HELP:
		return HelpMessage(bot.prefix), OUTCOME_OK
	case COMMAND_ADD_GROUP:
		switch arguments := parseResult.arguments.(type) {
		case AddGroupArguments:
			return bot.addGroup(ctx, arguments)
		default:
			panic(fmt.Sprintf("unexpected type of arguments %T", arguments))
		}
	case COMMAND_GROUP, COMMAND_SEQUENCE:
		switch arguments := parseResult.arguments.(type) {
		case RoundArguments:
			emotes := render.NewEmoteSet(invocation.Emojis)
			if parseResult.command == COMMAND_GROUP {
				return bot.group(ctx, arguments, emotes)
			}
			return bot.sequence(ctx, arguments, emotes)
		default:
			panic(fmt.Sprintf("unexpected type of arguments %T", arguments))
		}
	case COMMAND_ADD_SEQUENCE:
		switch arguments := parseResult.arguments.(type) {
		case AddSequenceArguments:
			return bot.addSequence(ctx, arguments)
		default:
			panic(fmt.Sprintf("unexpected type of arguments %T", arguments))
		}
	}

	argument, ok := parseResult.arguments.(string)
	if !ok {
		panic(fmt.Sprintf("unexpected type of arguments %T for command %d", parseResult.arguments, parseResult.command))
	}
	switch parseResult.command {
	case COMMAND_REMOVE_GROUP:
		return bot.removeGroup(ctx, argument)
	case COMMAND_REMOVE_SEQUENCE:
		return bot.removeSequence(ctx, argument)
	case COMMAND_ADD_ROLE:
		return bot.addRole(ctx, invocation, argument)
	case COMMAND_REMOVE_ROLE:
		return bot.removeRole(ctx, invocation, argument)
	case COMMAND_TEAMS:
		return bot.teams(ctx, argument, render.NewEmoteSet(invocation.Emojis))
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
}

// authorize checks that the author may run the command.
// Managing roles is reserved to administrators
func (bot *Bot) authorize(invocation Invocation, command int) error {
	switch command {
	case COMMAND_ADD_ROLE, COMMAND_REMOVE_ROLE:
		if !invocation.Administrator {
			return trace.AccessDenied("managing roles requires administrator permission")
		}
	default:
		if !bot.permissions.Allowed(invocation.GuildId, invocation.Administrator, invocation.MemberRoles) {
			return trace.AccessDenied("no role of the author is allowed to use the bot")
		}
	}
	return nil
}

func (bot *Bot) addGroup(ctx context.Context, arguments AddGroupArguments) ([]Response, string) {

	group, err := bot.toornament.FindGroup(ctx, arguments.TournamentId, arguments.GroupName)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	record := StageRecord{Alias: arguments.Alias, Group: group, Logo: arguments.Logo, Colour: arguments.Colour.String()}
	if err := bot.database.AddStage(record); err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	zerolog.Ctx(ctx).Info().Str("alias", record.Alias).Stringer("group", group).Msg("Group added")
	return GroupAdded(record), OUTCOME_OK
}

func (bot *Bot) removeGroup(ctx context.Context, name string) ([]Response, string) {
	removed, err := bot.database.RemoveStage(name)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	if !removed {
		return GroupNotRegistered(name), OUTCOME_NOT_FOUND
	}
	return GroupRemoved(name), OUTCOME_OK
}

func (bot *Bot) group(ctx context.Context, arguments RoundArguments, emotes render.EmoteSet) ([]Response, string) {
	response, outcome := bot.groupEmbed(ctx, arguments.Alias, arguments.Rounds, emotes)
	return []Response{response}, outcome
}

// groupEmbed gathers everything shown for a single group.
// Requests are sequential so that they queue up in the rate limiter in order
func (bot *Bot) groupEmbed(ctx context.Context, alias string, rounds []int, emotes render.EmoteSet) (Response, string) {

	stage, err := bot.database.GetStage(alias)
	if err != nil {
		return failure(ctx, err)
	}
	group := stage.Group

	tournament, err := bot.toornament.GetTournament(ctx, group.TournamentId)
	if err != nil {
		return failure(ctx, err)
	}
	ranking, err := bot.toornament.GetRanking(ctx, group.TournamentId, group.StageId, group.Id)
	if err != nil {
		return failure(ctx, err)
	}
	matches, err := bot.toornament.GetMatches(ctx, group.TournamentId, group.StageId, group.Id, rounds...)
	if err != nil {
		return failure(ctx, err)
	}

	return GroupEmbed(stage, tournament, render.Standings(ranking), render.Fixtures(matches, emotes), rounds), OUTCOME_OK
}

func (bot *Bot) addSequence(ctx context.Context, arguments AddSequenceArguments) ([]Response, string) {
	record := SequenceRecord{Alias: arguments.Alias, Groups: arguments.Groups}
	if err := bot.database.AddSequence(record); err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	return SequenceCreated(record), OUTCOME_OK
}

func (bot *Bot) removeSequence(ctx context.Context, alias string) ([]Response, string) {
	removed, err := bot.database.RemoveSequence(alias)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	if !removed {
		return SequenceNotRegistered(alias), OUTCOME_NOT_FOUND
	}
	return SequenceRemoved(alias), OUTCOME_OK
}

// sequence posts every group of the sequence in order.
// A group that fails only replaces its own embed with the error
func (bot *Bot) sequence(ctx context.Context, arguments RoundArguments, emotes render.EmoteSet) ([]Response, string) {

	sequence, err := bot.database.GetSequence(arguments.Alias)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}

	responses := []Response{}
	outcome := OUTCOME_OK
	for _, alias := range sequence.Groups {
		response, groupOutcome := bot.groupEmbed(ctx, alias, arguments.Rounds, emotes)
		responses = append(responses, response)
		if groupOutcome != OUTCOME_OK {
			outcome = groupOutcome
		}
		// Nothing else will succeed once the command ran out of time
		if ctx.Err() != nil {
			break
		}
	}
	return responses, outcome
}

func (bot *Bot) addRole(ctx context.Context, invocation Invocation, argument string) ([]Response, string) {

	role, ok := findRole(invocation.GuildRoles, argument)
	if !ok {
		// The role has to belong to the guild the command comes from
		return PermissionDenied(), OUTCOME_DENIED
	}
	added, err := bot.permissions.Add(invocation.GuildId, role.ID)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	if !added {
		return RoleAlreadyAdded(role.ID), OUTCOME_OK
	}
	return RoleAdded(role.ID), OUTCOME_OK
}

func (bot *Bot) removeRole(ctx context.Context, invocation Invocation, argument string) ([]Response, string) {

	role, ok := findRole(invocation.GuildRoles, argument)
	if !ok {
		return PermissionDenied(), OUTCOME_DENIED
	}
	removed, err := bot.permissions.Remove(invocation.GuildId, role.ID)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	if !removed {
		return RoleNotInList(role.ID), OUTCOME_NOT_FOUND
	}
	return RoleRemoved(role.ID), OUTCOME_OK
}

func (bot *Bot) teams(ctx context.Context, alias string, emotes render.EmoteSet) ([]Response, string) {

	stage, err := bot.database.GetStage(alias)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	tournament, err := bot.toornament.GetTournament(ctx, stage.Group.TournamentId)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	participants, err := bot.toornament.GetParticipants(ctx, stage.Group.TournamentId)
	if err != nil {
		response, outcome := failure(ctx, err)
		return []Response{response}, outcome
	}
	return []Response{TeamsEmbed(stage, tournament, participants, emotes)}, OUTCOME_OK
}

var roleMention = regexp.MustCompile(`^<@&(\d+)>$`)

// findRole accepts a role mention, a role id or a role name,
// and only matches roles of the guild
func findRole(roles []*discordgo.Role, argument string) (*discordgo.Role, bool) {
	id := argument
	if match := roleMention.FindStringSubmatch(argument); match != nil {
		id = match[1]
	}
	for _, role := range roles {
		if role.ID == id {
			return role, true
		}
	}
	for _, role := range roles {
		if role.Name == argument {
			return role, true
		}
	}
	return nil, false
}

// failure turns an error into the message shown to the user
func failure(ctx context.Context, err error) (Response, string) {

	logger := zerolog.Ctx(ctx)
	if credentialErr, ok := toornament.AsCredentialError(err); ok {
		logger.Error().Err(credentialErr).Int("status", credentialErr.StatusCode).Bool("credential", true).Msg("Command aborted, toornament credentials are not usable")
		return CredentialsUnavailable(), OUTCOME_CREDENTIALS
	}
	switch {
	case trace.IsNotFound(err):
		logger.Debug().Err(err).Msg("Not found")
		return NotFound(trace.UserMessage(err)), OUTCOME_NOT_FOUND
	case trace.IsBadParameter(err):
		// Payloads that could not be decoded end up here as well
		logger.Error().Err(err).Msg("Invalid data")
		return NoResponseToornament(), OUTCOME_FAILED
	case trace.IsConnectionProblem(err), errors.Is(err, context.DeadlineExceeded):
		logger.Error().Err(err).Msg("Toornament could not be reached")
		return NoResponseToornament(), OUTCOME_FAILED
	}
	if requestErr, ok := common.AsRequestError(err); ok {
		logger.Error().Err(requestErr).Str("url", requestErr.URL).Int("status", requestErr.StatusCode).Msg("Request to toornament failed")
		return NoResponseToornament(), OUTCOME_FAILED
	}
	logger.Error().Err(err).Msg("Command failed")
	return InternalError(), OUTCOME_FAILED
}

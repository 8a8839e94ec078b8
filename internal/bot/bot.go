package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskplanner/internal/config"
	"taskplanner/internal/query"
	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services groups what the bot drives.
type Services struct {
	Tasks    *service.TaskService
	Plans    *service.PlanService
	Calendar *service.CalendarService
	Digest   *service.DigestService
	Focus    *service.FocusService
}

type confirmationRequest struct {
	taskID uint
}

type chatView struct {
	view   *query.View
	cancel context.CancelFunc
}

var errNoChat = errors.New("no chat to deliver to")

// Bot aggregates Telegram API with services.
type Bot struct {
	client   *tgbotapi.BotAPI
	api      sender
	taskRepo *repository.TaskRepository
	svc      Services
	config   config.Config
	now      func() time.Time

	mu            sync.Mutex
	baseCtx       context.Context
	lastChat      int64
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	views         map[int64]*chatView
}

func New(cfg config.Config, taskRepo *repository.TaskRepository, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, cfg, taskRepo, svc, time.Now)
	b.client = api
	return b, nil
}

func newBot(api sender, cfg config.Config, taskRepo *repository.TaskRepository, svc Services, now func() time.Time) *Bot {
	return &Bot{
		api:           api,
		taskRepo:      taskRepo,
		svc:           svc,
		config:        cfg,
		now:           now,
		baseCtx:       context.Background(),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		views:         make(map[int64]*chatView),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("bot has no telegram client")
	}
	b.mu.Lock()
	b.baseCtx = ctx
	b.mu.Unlock()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	b.Close()
	return nil
}

// Close stops every chat view.
func (b *Bot) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, cv := range b.views {
		cv.cancel()
		delete(b.views, chatID)
	}
}

// Notify delivers a reminder, focus alert or digest. A zero ChatID targets
// the owner chat.
func (b *Bot) Notify(ctx context.Context, n service.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := n.ChatID
	if chatID == 0 {
		chatID = b.defaultChat()
	}
	if chatID == 0 {
		return errNoChat
	}

	text := fmt.Sprintf("<b>%s</b>\n%s", escape(n.Title), escape(n.Body))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if n.TaskID != 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", fmt.Sprintf("%s%d", cbDonePrefix, n.TaskID)),
		))
	}
	_, err := b.api.Send(msg)
	return err
}

// SendDailyDigest sends the daily summary to the owner chat.
func (b *Bot) SendDailyDigest(ctx context.Context) error {
	chatID := b.defaultChat()
	if chatID == 0 {
		return errNoChat
	}
	text, err := b.svc.Digest.Summary(ctx, b.now())
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID
	if !b.allowed(chatID) {
		log.Printf("[info] ignore message from chat %d", chatID)
		return nil
	}
	b.mu.Lock()
	b.lastChat = chatID
	b.mu.Unlock()

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", chatID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(chatID, "I did not get that. Use /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(chatID)
	case "newtask":
		return b.startNewTaskConversation(chatID)
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "tasks":
		return b.sendTaskList(ctx, chatID)
	case "search":
		return b.handleSearch(ctx, chatID, args)
	case "filter":
		return b.handleFilter(ctx, chatID, args)
	case "sort":
		return b.handleSort(ctx, chatID, args)
	case "group":
		return b.handleGroup(ctx, chatID, args)
	case "done":
		return b.handleDone(ctx, chatID, args)
	case "delete":
		return b.handleDelete(ctx, chatID, args)
	case "plan":
		return b.handlePlan(ctx, chatID)
	case "tomorrow":
		return b.handleTomorrow(ctx, chatID)
	case "planset":
		return b.handlePlanSet(ctx, chatID, args)
	case "unplan":
		return b.handleUnplan(ctx, chatID, args)
	case "calendar":
		return b.handleCalendar(ctx, chatID, args)
	case "dates":
		return b.handleDates(ctx, chatID)
	case "focus":
		return b.handleFocus(ctx, chatID, args)
	case "pause":
		return b.handlePause(chatID)
	case "resume":
		return b.handleResume(chatID)
	case "stop":
		return b.handleStop(chatID)
	case "status":
		return b.handleStatus(chatID)
	case "report":
		return b.handleReport(ctx, chatID)
	case "cancel":
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks, daily plan and focus sessions.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	return b.sendText(chatID, "ℹ️ <b>Commands</b>\n"+helpText)
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) error {
	text, err := b.svc.Digest.Summary(ctx, b.now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	return b.sendText(chatID, text)
}

// viewFor returns the live list view of chatID, subscribing it to the store
// on first use.
func (b *Bot) viewFor(chatID int64) (*query.View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cv, ok := b.views[chatID]; ok {
		return cv.view, nil
	}
	ctx, cancel := context.WithCancel(b.baseCtx)
	snapshots, err := b.taskRepo.Observe(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("observe tasks: %w", err)
	}
	view := query.NewView(b.now)
	view.Run(ctx, snapshots)
	b.views[chatID] = &chatView{view: view, cancel: cancel}
	return view, nil
}

func (b *Bot) allowed(chatID int64) bool {
	return b.config.OwnerChatID == 0 || b.config.OwnerChatID == chatID
}

func (b *Bot) defaultChat() int64 {
	if b.config.OwnerChatID != 0 {
		return b.config.OwnerChatID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastChat
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

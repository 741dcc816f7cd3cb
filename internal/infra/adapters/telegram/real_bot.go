package telegram

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"corporate-fund-bot/internal/application"
	"corporate-fund-bot/internal/config"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/adapter"
	"corporate-fund-bot/internal/domain/ports/repository"
	red "corporate-fund-bot/internal/infra/redis"
	"corporate-fund-bot/internal/usecase"
)

// Conversation step names shared by command handlers and the default
// text handler.
const (
	stepRegisterNumber = "register:number"
	stepFundTarget     = "fund:target"
	stepFundTitle      = "fund:title"
	stepFundDeadline   = "fund:deadline"
	stepFundAmount     = "fund:amount"
	stepDonateAmount   = "donate:amount"
	stepBroadcastDept  = "broadcast:department"
	stepBroadcastFund  = "broadcast:fund"
	stepBroadcastTitle = "broadcast:title"
	stepBroadcastBody  = "broadcast:body"
	stepRemindText     = "remind:text"
)

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to
// BotFacade. Multi-step commands keep their progress in the state repo.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	state       repository.StateRepository
	rateLimiter *red.RateLimiter

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, facade *application.BotFacade, state repository.StateRepository, rateLimiter *red.RateLimiter, updateWorkers int) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if state == nil {
		return nil, errors.New("state repository is nil")
	}
	if updateWorkers <= 0 {
		updateWorkers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		state:         state,
		rateLimiter:   rateLimiter,
		updateWorkers: updateWorkers,
	}, nil
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						log.Printf("tg worker %d error: %v", id, err)
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// SendMessage implements the adapter port.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			kbRow = append(kbRow, kb)
		}
		kbRows = append(kbRows, kbRow)
	}

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	if update.Message == nil {
		return nil
	}
	tgUser := update.Message.From
	if tgUser == nil {
		return nil
	}
	tgID := tgUser.ID
	text := strings.TrimSpace(update.Message.Text)

	fields := strings.Fields(text)
	command := "message"
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		command = fields[0]
	}

	// Basic rate limiting per user per command
	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, command), 20, time.Minute)
		if err != nil {
			log.Printf("rate limit error: %v", err)
		} else if !allowed {
			return r.SendMessage(ctx, tgID, "Rate limit exceeded. Please try again later.")
		}
	}

	// A fresh command cancels any conversation in progress.
	if command != "message" && command != "/cancel" {
		_ = r.state.ClearState(ctx, tgID)
	}

	switch command {
	case "/start":
		msg, err := r.facade.HandleStart(ctx, tgID, tgUser.UserName)
		return r.reply(ctx, tgID, msg, err)

	case "/help":
		msg, err := r.facade.HandleHelp(ctx, tgID)
		return r.reply(ctx, tgID, msg, err)

	case "/cancel":
		_ = r.state.ClearState(ctx, tgID)
		return r.SendMessage(ctx, tgID, "Cancelled.")

	case "/register":
		if len(fields) < 2 {
			if err := r.state.SetState(ctx, tgID, &repository.ConversationState{Step: stepRegisterNumber, Data: map[string]string{}}); err != nil {
				return err
			}
			return r.SendMessage(ctx, tgID, "Send your personnel number:")
		}
		msg, err := r.facade.HandleRegister(ctx, tgID, tgUser.UserName, fields[1])
		return r.reply(ctx, tgID, msg, err)

	case "/me":
		msg, err := r.facade.HandleMe(ctx, tgID)
		return r.reply(ctx, tgID, msg, err)

	case "/add_person":
		if len(fields) < 5 {
			return r.SendMessage(ctx, tgID, "Usage: /add_person <personnel_number> <first_name> <patronymic> <DD.MM.YYYY>")
		}
		msg, err := r.facade.HandleAddPerson(ctx, tgID, fields[1], fields[2], fields[3], fields[4])
		return r.reply(ctx, tgID, msg, err)

	case "/remove_person":
		if len(fields) < 2 {
			return r.SendMessage(ctx, tgID, "Usage: /remove_person <personnel_number>")
		}
		msg, err := r.facade.HandleRemovePerson(ctx, tgID, fields[1])
		return r.reply(ctx, tgID, msg, err)

	case "/people":
		msg, err := r.facade.HandlePeople(ctx, tgID)
		return r.reply(ctx, tgID, msg, err)

	case "/create_fund":
		rows := [][]adapter.InlineButton{
			{{Text: "🎂 Birthday", Data: "kind:birthday"}},
			{{Text: "🎉 Event", Data: "kind:event"}},
		}
		return r.SendButtons(ctx, tgID, "What kind of fund?", rows)

	case "/donate":
		switch {
		case len(fields) >= 3:
			amount, err := parseAmount(fields[2])
			if err != nil {
				return r.SendMessage(ctx, tgID, "The amount must be a positive number, e.g. 500 or 499.50.")
			}
			msg, err := r.facade.HandleDonate(ctx, tgID, fields[1], amount)
			return r.reply(ctx, tgID, msg, err)
		case len(fields) == 2:
			st := &repository.ConversationState{Step: stepDonateAmount, Data: map[string]string{"fund_id": fields[1]}}
			if err := r.state.SetState(ctx, tgID, st); err != nil {
				return err
			}
			return r.SendMessage(ctx, tgID, "How much did you contribute?")
		default:
			return r.SendMessage(ctx, tgID, "Usage: /donate <fund_id> <amount>")
		}

	case "/fund_status":
		if len(fields) < 2 {
			return r.SendMessage(ctx, tgID, "Usage: /fund_status <fund_id>")
		}
		msg, err := r.facade.HandleFundStatus(ctx, tgID, fields[1])
		return r.reply(ctx, tgID, msg, err)

	case "/close_fund":
		if len(fields) < 2 {
			return r.SendMessage(ctx, tgID, "Usage: /close_fund <fund_id>")
		}
		msg, err := r.facade.HandleCloseFund(ctx, tgID, fields[1])
		return r.reply(ctx, tgID, msg, err)

	case "/my_funds":
		msg, err := r.facade.HandleMyFunds(ctx, tgID)
		return r.reply(ctx, tgID, msg, err)

	case "/unpaid":
		if len(fields) < 2 {
			return r.SendMessage(ctx, tgID, "Usage: /unpaid <fund_id>")
		}
		msg, err := r.facade.HandleUnpaid(ctx, tgID, fields[1])
		return r.reply(ctx, tgID, msg, err)

	case "/grant_role":
		if len(fields) < 3 {
			return r.SendMessage(ctx, tgID, "Usage: /grant_role <tg_id> <role>")
		}
		targetID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return r.SendMessage(ctx, tgID, "The first argument must be a numeric Telegram ID.")
		}
		msg, err := r.facade.HandleGrantRole(ctx, tgID, targetID, fields[2])
		return r.reply(ctx, tgID, msg, err)

	case "/revoke_role":
		if len(fields) < 3 {
			return r.SendMessage(ctx, tgID, "Usage: /revoke_role <tg_id> <role>")
		}
		targetID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return r.SendMessage(ctx, tgID, "The first argument must be a numeric Telegram ID.")
		}
		msg, err := r.facade.HandleRevokeRole(ctx, tgID, targetID, fields[2])
		return r.reply(ctx, tgID, msg, err)

	case "/broadcast":
		rows := [][]adapter.InlineButton{
			{{Text: "Everyone", Data: "aud:all"}},
			{{Text: "Everyone except birthday person", Data: "aud:nobday"}},
			{{Text: "One department", Data: "aud:dept"}},
		}
		return r.SendButtons(ctx, tgID, "Who should receive the broadcast?", rows)

	case "/remind_fund":
		if len(fields) < 2 {
			return r.SendMessage(ctx, tgID, "Usage: /remind_fund <fund_id> [text]")
		}
		if len(fields) >= 3 {
			text := strings.Join(fields[2:], " ")
			msg, err := r.facade.HandleRemindFund(ctx, tgID, fields[1], text)
			return r.reply(ctx, tgID, msg, err)
		}
		st := &repository.ConversationState{Step: stepRemindText, Data: map[string]string{"fund_id": fields[1]}}
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "What should the reminder say?")

	case "/notifications":
		msg, err := r.facade.HandleNotifications(ctx, tgID)
		return r.reply(ctx, tgID, msg, err)

	case "/stats":
		msg, err := r.facade.HandleStats(ctx, tgID)
		return r.reply(ctx, tgID, msg, err)

	default:
		return r.handleText(ctx, tgID, tgUser.UserName, text)
	}
}

// handleText continues whatever conversation the user has in progress.
func (r *RealTelegramBotAdapter) handleText(ctx context.Context, tgID int64, username, text string) error {
	st, err := r.state.GetState(ctx, tgID)
	if err != nil {
		// No conversation pending; ignore free text.
		return nil
	}
	if st.Data == nil {
		st.Data = map[string]string{}
	}

	switch st.Step {
	case stepRegisterNumber:
		_ = r.state.ClearState(ctx, tgID)
		msg, err := r.facade.HandleRegister(ctx, tgID, username, text)
		return r.reply(ctx, tgID, msg, err)

	case stepFundTarget:
		st.Data["target"] = text
		st.Step = stepFundTitle
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "Fund title?")

	case stepFundTitle:
		st.Data["title"] = text
		st.Step = stepFundDeadline
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "Deadline? (DD.MM.YYYY)")

	case stepFundDeadline:
		if _, err := model.ParseDate(text); err != nil {
			return r.SendMessage(ctx, tgID, "Bad date. Use DD.MM.YYYY, e.g. 15.06.2026.")
		}
		st.Data["deadline"] = text
		st.Step = stepFundAmount
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "Target amount? Send 0 for no target.")

	case stepFundAmount:
		var target int64
		if text != "0" {
			var perr error
			target, perr = parseAmount(text)
			if perr != nil {
				return r.SendMessage(ctx, tgID, "The amount must be a number, e.g. 5000 or 0.")
			}
		}
		_ = r.state.ClearState(ctx, tgID)
		deadline, _ := model.ParseDate(st.Data["deadline"])
		p := usecase.CreateFundParams{
			Kind:     model.FundKind(st.Data["kind"]),
			Title:    st.Data["title"],
			Deadline: deadline,
			Target:   target,
		}
		if p.Kind == model.FundBirthday {
			p.PersonnelNumber = st.Data["target"]
		} else {
			p.EventName = st.Data["target"]
		}
		msg, err := r.facade.HandleCreateFund(ctx, tgID, p)
		return r.reply(ctx, tgID, msg, err)

	case stepDonateAmount:
		amount, perr := parseAmount(text)
		if perr != nil {
			return r.SendMessage(ctx, tgID, "The amount must be a positive number, e.g. 500 or 499.50.")
		}
		_ = r.state.ClearState(ctx, tgID)
		msg, err := r.facade.HandleDonate(ctx, tgID, st.Data["fund_id"], amount)
		return r.reply(ctx, tgID, msg, err)

	case stepBroadcastDept:
		st.Data["department"] = text
		st.Step = stepBroadcastTitle
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "Broadcast title?")

	case stepBroadcastFund:
		st.Data["fund_id"] = text
		st.Step = stepBroadcastTitle
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "Broadcast title?")

	case stepBroadcastTitle:
		st.Data["title"] = text
		st.Step = stepBroadcastBody
		if err := r.state.SetState(ctx, tgID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, tgID, "Message body?")

	case stepBroadcastBody:
		_ = r.state.ClearState(ctx, tgID)
		p := usecase.CreateBroadcastParams{
			Title:            st.Data["title"],
			Body:             text,
			Audience:         model.BroadcastAudience(st.Data["audience"]),
			TargetDepartment: st.Data["department"],
			FundID:           st.Data["fund_id"],
		}
		msg, err := r.facade.HandleBroadcast(ctx, tgID, p)
		return r.reply(ctx, tgID, msg, err)

	case stepRemindText:
		_ = r.state.ClearState(ctx, tgID)
		msg, err := r.facade.HandleRemindFund(ctx, tgID, st.Data["fund_id"], text)
		return r.reply(ctx, tgID, msg, err)

	default:
		_ = r.state.ClearState(ctx, tgID)
		return nil
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	var chatID int64
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	} else {
		chatID = query.From.ID
	}
	if chatID == 0 {
		return nil
	}

	data := strings.TrimSpace(query.Data)

	if r.rateLimiter != nil {
		if allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(chatID, "cb:"+data), 30, time.Minute); err == nil && !allowed {
			return r.SendMessage(ctx, chatID, "Rate limit exceeded. Please try again later.")
		}
	}

	switch {
	case strings.HasPrefix(data, "kind:"):
		kind := strings.TrimPrefix(data, "kind:")
		if _, err := model.ParseFundKind(kind); err != nil {
			return err
		}
		st := &repository.ConversationState{Step: stepFundTarget, Data: map[string]string{"kind": kind}}
		if err := r.state.SetState(ctx, chatID, st); err != nil {
			return err
		}
		if kind == string(model.FundBirthday) {
			return r.SendMessage(ctx, chatID, "Whose birthday? Send the personnel number.")
		}
		return r.SendMessage(ctx, chatID, "What is the occasion?")

	case data == "aud:all":
		st := &repository.ConversationState{Step: stepBroadcastTitle, Data: map[string]string{"audience": string(model.AudienceAll)}}
		if err := r.state.SetState(ctx, chatID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, "Broadcast title?")

	case data == "aud:nobday":
		// Needs the fund id to know whom to exclude.
		st := &repository.ConversationState{Step: stepBroadcastFund, Data: map[string]string{"audience": string(model.AudienceExcludeBirthdayPerson)}}
		if err := r.state.SetState(ctx, chatID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, "Send the birthday fund id:")

	case data == "aud:dept":
		st := &repository.ConversationState{Step: stepBroadcastDept, Data: map[string]string{"audience": string(model.AudienceDepartment)}}
		if err := r.state.SetState(ctx, chatID, st); err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, "Which department?")

	default:
		return errors.New("unknown callback data")
	}
}

// reply forwards a facade result to the chat, masking internal errors.
func (r *RealTelegramBotAdapter) reply(ctx context.Context, tgID int64, text string, err error) error {
	if err != nil {
		log.Printf("command failed for %d: %v", tgID, err)
		return r.SendMessage(ctx, tgID, "Something went wrong. Please try again later.")
	}
	return r.SendMessage(ctx, tgID, text)
}

// parseAmount converts a user-typed amount into minor units. Accepts
// whole numbers and up to two decimal places.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	// ParseInt("-0") is 0, so the sign must be rejected up front.
	if strings.HasPrefix(s, "-") {
		return 0, errors.New("bad amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errors.New("bad amount")
	}
	cents := int64(0)
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, errors.New("bad amount")
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, errors.New("bad amount")
		}
	}
	return units*100 + cents, nil
}

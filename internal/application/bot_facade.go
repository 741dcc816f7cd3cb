package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/usecase"
)

// BotFacade composes usecases into high-level bot commands.
// Keep the facade methods returning strings so the Telegram adapter just
// forwards them to the chat.
type BotFacade struct {
	PersonUC    usecase.PersonUseCase
	UserUC      usecase.UserUseCase
	FundUC      usecase.FundUseCase
	NotifUC     usecase.NotificationUseCase
	BroadcastUC usecase.BroadcastUseCase
	StatsUC     usecase.StatsUseCase

	// AuditRepo, when set, records each state-changing command after its
	// role check passes.
	AuditRepo repository.AuditRepository
}

func NewBotFacade(
	personUC usecase.PersonUseCase,
	userUC usecase.UserUseCase,
	fundUC usecase.FundUseCase,
	notifUC usecase.NotificationUseCase,
	broadcastUC usecase.BroadcastUseCase,
	statsUC usecase.StatsUseCase,
) *BotFacade {
	return &BotFacade{
		PersonUC:    personUC,
		UserUC:      userUC,
		FundUC:      fundUC,
		NotifUC:     notifUC,
		BroadcastUC: broadcastUC,
		StatsUC:     statsUC,
	}
}

// HandleStart greets the user. Registered users see their status;
// strangers are pointed at /register.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username string) (string, error) {
	_, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "Welcome! You are not registered yet.\nUse /register <personnel_number> to link your account.", nil
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	name := username
	if name == "" {
		name = "colleague"
	}
	return fmt.Sprintf("Hello %s!\nYou are registered. Use /help to see available commands.", name), nil
}

// HandleRegister links the chat to a roster person by personnel number.
func (b *BotFacade) HandleRegister(ctx context.Context, tgID int64, username, personnelNumber string) (string, error) {
	user, err := b.UserUC.Register(ctx, tgID, username, personnelNumber)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownPerson):
			return "No employee with that personnel number. Check the number and try again.", nil
		case errors.Is(err, domain.ErrAlreadyRegistered):
			// The same sentinel covers both sides of the conflict.
			if _, lerr := b.UserUC.GetByTelegramID(ctx, tgID); lerr == nil {
				return "You are already registered.", nil
			}
			return "This personnel number is already linked to another account.", nil
		case errors.Is(err, domain.ErrAlreadyExists):
			return "You are already registered.", nil
		}
		return "", fmt.Errorf("register: %w", err)
	}
	b.audit(ctx, user.ID, "register "+personnelNumber)
	person, perr := b.PersonUC.Find(ctx, personnelNumber)
	if perr != nil {
		return "Registration complete. Use /help to see available commands.", nil
	}
	return fmt.Sprintf("Registration complete, %s!\nUse /help to see available commands.", person.FullName()), nil
}

// HandleMe shows the caller's profile: person link, roles, department.
func (b *BotFacade) HandleMe(ctx context.Context, tgID int64) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered. Use /register <personnel_number>.", nil
		}
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Your profile:\n")
	if user.Username != "" {
		sb.WriteString(fmt.Sprintf("Username: @%s\n", user.Username))
	}
	if user.Department != "" {
		sb.WriteString(fmt.Sprintf("Department: %s\n", user.Department))
	}
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r))
	}
	sb.WriteString(fmt.Sprintf("Roles: %s\n", strings.Join(roles, ", ")))
	return sb.String(), nil
}

// HandleAddPerson adds a roster entry. Admin only.
func (b *BotFacade) HandleAddPerson(ctx context.Context, tgID int64, personnelNumber, firstName, patronymic, birthDate string) (string, error) {
	caller, msg, err := b.callerWithRole(ctx, tgID, model.RoleAdmin, model.RoleSuperadmin)
	if caller == nil {
		return msg, err
	}
	b.audit(ctx, caller.ID, "add_person "+personnelNumber)
	person, err := b.PersonUC.Add(ctx, personnelNumber, firstName, patronymic, birthDate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicatePersonnelNumber):
			return "An employee with that personnel number already exists.", nil
		case errors.Is(err, domain.ErrInvalidDate):
			return "Bad birth date. Use DD.MM.YYYY, e.g. 15.06.1990.", nil
		case errors.Is(err, domain.ErrInvalidArgument):
			return "Usage: /add_person <personnel_number> <first_name> <patronymic> <DD.MM.YYYY>", nil
		}
		return "", err
	}
	return fmt.Sprintf("Added %s (№%s), birthday %s.", person.FullName(), person.PersonnelNumber, person.BirthDate.Format(model.DateLayout)), nil
}

// HandleRemovePerson deletes a roster entry. Admin only; refuses while a
// registered account is linked to the person.
func (b *BotFacade) HandleRemovePerson(ctx context.Context, tgID int64, personnelNumber string) (string, error) {
	caller, msg, err := b.callerWithRole(ctx, tgID, model.RoleAdmin, model.RoleSuperadmin)
	if caller == nil {
		return msg, err
	}
	b.audit(ctx, caller.ID, "remove_person "+personnelNumber)
	err = b.PersonUC.Remove(ctx, personnelNumber)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "No employee with that personnel number.", nil
		case errors.Is(err, domain.ErrPersonLinked):
			return "Cannot remove: a registered account is linked to this employee.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Employee №%s removed.", personnelNumber), nil
}

// HandlePeople lists the roster. Admin only.
func (b *BotFacade) HandlePeople(ctx context.Context, tgID int64) (string, error) {
	if msg, ok, err := b.requireRole(ctx, tgID, model.RoleAdmin, model.RoleSuperadmin); !ok {
		return msg, err
	}
	people, err := b.PersonUC.List(ctx)
	if err != nil {
		return "", err
	}
	if len(people) == 0 {
		return "The roster is empty.", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Roster (%d):\n", len(people)))
	for _, p := range people {
		sb.WriteString(fmt.Sprintf("№%s %s — %s\n", p.PersonnelNumber, p.FullName(), p.BirthDate.Format(model.DateLayout)))
	}
	return sb.String(), nil
}

// HandleCreateFund opens a collection. Treasurer or admin only.
func (b *BotFacade) HandleCreateFund(ctx context.Context, tgID int64, p usecase.CreateFundParams) (string, error) {
	user, msg, err := b.callerWithRole(ctx, tgID, model.RoleTreasurer, model.RoleAdmin, model.RoleSuperadmin)
	if user == nil {
		return msg, err
	}
	p.TreasurerID = user.ID
	b.audit(ctx, user.ID, "create_fund")
	fund, err := b.FundUC.Create(ctx, p)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDeadline):
			return "The deadline must be in the future. Use DD.MM.YYYY.", nil
		case errors.Is(err, domain.ErrUnknownPerson):
			return "No employee with that personnel number.", nil
		case errors.Is(err, domain.ErrSelfCollection):
			return "You cannot run a collection for your own birthday.", nil
		case errors.Is(err, domain.ErrInvalidArgument):
			return "Missing fund details. Birthday funds need a personnel number, event funds need an event name.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Fund created: %s\nID: %s\nDeadline: %s\nShare the ID so colleagues can /donate %s <amount>.",
		fund.Title, fund.ID, fund.Deadline.Format(model.DateLayout), fund.ID), nil
}

// HandleDonate records a self-reported contribution.
func (b *BotFacade) HandleDonate(ctx context.Context, tgID int64, fundID string, amount int64) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered. Use /register <personnel_number>.", nil
		}
		return "", err
	}
	b.audit(ctx, user.ID, "donate "+fundID)
	_, err = b.FundUC.AddDonation(ctx, fundID, user.ID, amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "No such fund.", nil
		case errors.Is(err, domain.ErrFundClosed):
			return "This fund is already closed.", nil
		case errors.Is(err, domain.ErrNonPositiveAmount):
			return "The amount must be a positive number.", nil
		}
		return "", err
	}
	status, serr := b.FundUC.Status(ctx, fundID)
	if serr != nil {
		return "Donation recorded, thank you!", nil
	}
	return fmt.Sprintf("Donation recorded, thank you!\n%s", formatStatus(status)), nil
}

// HandleFundStatus reports progress for a fund.
func (b *BotFacade) HandleFundStatus(ctx context.Context, tgID int64, fundID string) (string, error) {
	if _, err := b.UserUC.GetByTelegramID(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered. Use /register <personnel_number>.", nil
		}
		return "", err
	}
	status, err := b.FundUC.Status(ctx, fundID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "No such fund.", nil
		}
		return "", err
	}
	return formatStatus(status), nil
}

// HandleCloseFund closes a fund. Only its treasurer or an admin may do it.
func (b *BotFacade) HandleCloseFund(ctx context.Context, tgID int64, fundID string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered.", nil
		}
		return "", err
	}
	fund, err := b.FundUC.Get(ctx, fundID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "No such fund.", nil
		}
		return "", err
	}
	if fund.TreasurerID != user.ID && !user.HasRole(model.RoleAdmin) && !user.HasRole(model.RoleSuperadmin) {
		return "Only the fund's treasurer or an admin can close it.", nil
	}
	b.audit(ctx, user.ID, "close_fund "+fundID)
	if err := b.FundUC.Close(ctx, fundID); err != nil {
		return "", err
	}
	status, serr := b.FundUC.Status(ctx, fundID)
	if serr != nil {
		return "Fund closed.", nil
	}
	return fmt.Sprintf("Fund closed.\n%s", formatStatus(status)), nil
}

// HandleMyFunds lists funds the caller manages and their own donations.
func (b *BotFacade) HandleMyFunds(ctx context.Context, tgID int64) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered.", nil
		}
		return "", err
	}

	var sb strings.Builder
	managed, err := b.FundUC.FundsByTreasurer(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(managed) > 0 {
		sb.WriteString("Funds you manage:\n")
		for _, f := range managed {
			state := "open"
			if f.Closed {
				state = "closed"
			}
			sb.WriteString(fmt.Sprintf("- %s [%s] (%s) until %s\n", f.Title, f.ID, state, f.Deadline.Format(model.DateLayout)))
		}
	}

	donations, err := b.FundUC.DonationsByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(donations) > 0 {
		sb.WriteString("Your donations:\n")
		for _, d := range donations {
			sb.WriteString(fmt.Sprintf("- %s to fund %s on %s\n", formatAmount(d.Amount), d.FundID, d.CreatedAt.Format(model.DateLayout)))
		}
	}
	if sb.Len() == 0 {
		return "You have no funds and no donations yet.", nil
	}
	return sb.String(), nil
}

// HandleUnpaid lists colleagues who have not donated to a fund yet.
// Restricted to the fund's treasurer and admins.
func (b *BotFacade) HandleUnpaid(ctx context.Context, tgID int64, fundID string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered.", nil
		}
		return "", err
	}
	fund, err := b.FundUC.Get(ctx, fundID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "No such fund.", nil
		}
		return "", err
	}
	if fund.TreasurerID != user.ID && !user.HasRole(model.RoleAdmin) && !user.HasRole(model.RoleSuperadmin) {
		return "Only the fund's treasurer or an admin can see the unpaid list.", nil
	}
	unpaid, err := b.FundUC.UnpaidParticipants(ctx, fundID)
	if err != nil {
		return "", err
	}
	if len(unpaid) == 0 {
		return "Everyone has donated. Nothing outstanding.", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Not donated yet (%d):\n", len(unpaid)))
	for _, u := range unpaid {
		label := u.Username
		if label == "" {
			label = u.ID
		} else {
			label = "@" + label
		}
		sb.WriteString("- " + label + "\n")
	}
	return sb.String(), nil
}

// HandleGrantRole grants a role to a user. Superadmin only.
func (b *BotFacade) HandleGrantRole(ctx context.Context, tgID int64, targetTgID int64, roleName string) (string, error) {
	caller, msg, err := b.callerWithRole(ctx, tgID, model.RoleSuperadmin)
	if caller == nil {
		return msg, err
	}
	b.audit(ctx, caller.ID, fmt.Sprintf("grant_role %d %s", targetTgID, roleName))
	role, err := model.ParseRole(roleName)
	if err != nil {
		return "Unknown role. One of: user, treasurer, admin, superadmin.", nil
	}
	target, err := b.UserUC.GetByTelegramID(ctx, targetTgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "That user is not registered.", nil
		}
		return "", err
	}
	if err := b.UserUC.GrantRole(ctx, target.ID, role); err != nil {
		return "", err
	}
	return fmt.Sprintf("Granted %s to user %d.", role, targetTgID), nil
}

// HandleRevokeRole removes a role from a user. Superadmin only.
func (b *BotFacade) HandleRevokeRole(ctx context.Context, tgID int64, targetTgID int64, roleName string) (string, error) {
	caller, msg, err := b.callerWithRole(ctx, tgID, model.RoleSuperadmin)
	if caller == nil {
		return msg, err
	}
	b.audit(ctx, caller.ID, fmt.Sprintf("revoke_role %d %s", targetTgID, roleName))
	role, err := model.ParseRole(roleName)
	if err != nil {
		return "Unknown role. One of: user, treasurer, admin, superadmin.", nil
	}
	target, err := b.UserUC.GetByTelegramID(ctx, targetTgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "That user is not registered.", nil
		}
		return "", err
	}
	if err := b.UserUC.RevokeRole(ctx, target.ID, role); err != nil {
		return "", err
	}
	return fmt.Sprintf("Revoked %s from user %d.", role, targetTgID), nil
}

// HandleBroadcast stores a broadcast and fans it out to the outbox.
// Admin only.
func (b *BotFacade) HandleBroadcast(ctx context.Context, tgID int64, p usecase.CreateBroadcastParams) (string, error) {
	user, msg, err := b.callerWithRole(ctx, tgID, model.RoleAdmin, model.RoleSuperadmin)
	if user == nil {
		return msg, err
	}
	p.SenderID = user.ID
	b.audit(ctx, user.ID, "broadcast")
	_, enqueued, err := b.BroadcastUC.Create(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return "Broadcast needs a title and a body.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Broadcast queued for %d recipients.", enqueued), nil
}

// HandleRemindFund lets a treasurer nudge unpaid participants.
func (b *BotFacade) HandleRemindFund(ctx context.Context, tgID int64, fundID, text string) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered.", nil
		}
		return "", err
	}
	b.audit(ctx, user.ID, "remind_fund "+fundID)
	n, err := b.BroadcastUC.SendFundReminder(ctx, user.ID, fundID, text)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "No such fund.", nil
		case errors.Is(err, domain.ErrNotTreasurer):
			return "Only the fund's treasurer can send reminders for it.", nil
		case errors.Is(err, domain.ErrFundClosed):
			return "This fund is already closed.", nil
		}
		return "", err
	}
	return fmt.Sprintf("Reminder queued for %d participants.", n), nil
}

// HandleNotifications lists the caller's queued, not yet delivered
// notifications.
func (b *BotFacade) HandleNotifications(ctx context.Context, tgID int64) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You are not registered.", nil
		}
		return "", err
	}
	pending, err := b.NotifUC.UnreadFor(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "No pending notifications.", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pending notifications (%d):\n", len(pending)))
	for _, n := range pending {
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", n.Category, n.Title))
	}
	return sb.String(), nil
}

// HandleStats builds an admin-facing stats string.
func (b *BotFacade) HandleStats(ctx context.Context, tgID int64) (string, error) {
	if msg, ok, err := b.requireRole(ctx, tgID, model.RoleAdmin, model.RoleSuperadmin); !ok {
		return msg, err
	}
	stats, err := b.StatsUC.Totals(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 Totals:\n👥 Users: %d\n💰 Open funds: %d\n✅ Closed funds: %d",
		stats.Users, stats.OpenFunds, stats.ClosedFunds), nil
}

// HandleHelp returns the command list tailored to the caller's roles.
func (b *BotFacade) HandleHelp(ctx context.Context, tgID int64) (string, error) {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	sb.WriteString("/register <personnel_number> - link your account\n")
	sb.WriteString("/me - your profile\n")
	sb.WriteString("/donate <fund_id> <amount> - record a donation\n")
	sb.WriteString("/fund_status <fund_id> - fund progress\n")
	sb.WriteString("/my_funds - your funds and donations\n")
	sb.WriteString("/notifications - pending notifications\n")

	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return sb.String(), nil
	}
	if user.HasRole(model.RoleTreasurer) || user.HasRole(model.RoleAdmin) || user.HasRole(model.RoleSuperadmin) {
		sb.WriteString("\nTreasurer:\n")
		sb.WriteString("/create_fund - open a collection\n")
		sb.WriteString("/close_fund <fund_id> - close a collection\n")
		sb.WriteString("/unpaid <fund_id> - who has not donated\n")
		sb.WriteString("/remind_fund <fund_id> <text> - nudge unpaid participants\n")
	}
	if user.HasRole(model.RoleAdmin) || user.HasRole(model.RoleSuperadmin) {
		sb.WriteString("\nAdmin:\n")
		sb.WriteString("/add_person <num> <name> <patronymic> <DD.MM.YYYY>\n")
		sb.WriteString("/remove_person <num>\n")
		sb.WriteString("/people - roster\n")
		sb.WriteString("/broadcast - message everyone\n")
		sb.WriteString("/stats - totals\n")
	}
	if user.HasRole(model.RoleSuperadmin) {
		sb.WriteString("\nSuperadmin:\n")
		sb.WriteString("/grant_role <tg_id> <role>\n")
		sb.WriteString("/revoke_role <tg_id> <role>\n")
	}
	return sb.String(), nil
}

// requireRole resolves the caller and checks they hold at least one of
// the given roles. Returns a user-facing message when the check fails.
func (b *BotFacade) requireRole(ctx context.Context, tgID int64, roles ...model.Role) (string, bool, error) {
	user, msg, err := b.callerWithRole(ctx, tgID, roles...)
	if user == nil {
		return msg, false, err
	}
	return "", true, nil
}

func (b *BotFacade) callerWithRole(ctx context.Context, tgID int64, roles ...model.Role) (*model.User, string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "You are not registered. Use /register <personnel_number>.", nil
		}
		return nil, "", err
	}
	for _, r := range roles {
		if user.HasRole(r) {
			return user, "", nil
		}
	}
	return nil, "You do not have permission for this command.", nil
}

// audit appends an entry to the audit trail. A broken trail must never
// block a command, so append failures are swallowed.
func (b *BotFacade) audit(ctx context.Context, userID, action string) {
	if b.AuditRepo == nil {
		return
	}
	_ = b.AuditRepo.Append(ctx, repository.NoTX, model.NewAuditEntry(userID, action))
}

func formatStatus(s *model.FundStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Fund: %s [%s]\n", s.Title, s.FundID))
	sb.WriteString(fmt.Sprintf("Collected: %s", formatAmount(s.Accumulated)))
	if s.Target > 0 {
		sb.WriteString(fmt.Sprintf(" of %s", formatAmount(s.Target)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Donors: %d\n", s.DonorCount))
	if s.Closed {
		sb.WriteString("Status: closed")
	} else {
		sb.WriteString(fmt.Sprintf("Days left: %d", s.DaysLeft))
	}
	return sb.String()
}

// formatAmount renders minor units as a decimal string, e.g. 150050 ->
// "1500.50".
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

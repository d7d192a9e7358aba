package messages

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/summary"
)

const (
	dontUnderstandMessage = "I don't understand you :("
	helloMessage          = "Hello! I am the BareMinimum ledger bot 💸\n" +
		"/add <amount> <mode> <merchant> [category] - record an expense\n" +
		"/list - recent expenses\n/delete <id> - remove one\n" +
		"/mode <id> <mode> - fix the payment channel\n" +
		"/report - totals\n/export - CSV\n" +
		"/sync /status - talk to the remote store\n" +
		"/login <token> /logout - identity"
	loveToTalkMessage = "I would love to talk about it more!"
	okMessage         = "Gotcha!"
	noExpensesMessage = "You have no expenses yet"

	incorrectUsageMessage   = "That is an incorrect command usage"
	incorrectExpenseMessage = "Your expense amount is incorrect"
	notFoundMessage         = "No expense with that id"
	localOnlyMessage        = "You are in local-only mode. /login <token> first"
	syncTriggeredMessage    = "Sync triggered"
	loggedInMessage         = "Identity set, syncing your records"
	loggedOutMessage        = "Back to local-only mode"
	cannotSyncMessage       = "Can't reach the remote store atm. Your data is safe locally"
)

const (
	startCommand  = "/start"
	addCommand    = "/add"
	listCommand   = "/list"
	deleteCommand = "/delete"
	modeCommand   = "/mode"
	reportCommand = "/report"
	exportCommand = "/export"
	syncCommand   = "/sync"
	statusCommand = "/status"
	loginCommand  = "/login"
	logoutCommand = "/logout"
)

const recentListLimit = 10

type handler func(ctx context.Context, arg string) (string, error)

type handlerMap map[string]handler

type HandlerService struct {
	handlersMap handlerMap
	ledger      ledgerService
}

func newHandler(ledger ledgerService) *HandlerService {
	res := &HandlerService{
		handlersMap: nil,
		ledger:      ledger,
	}
	res.handlersMap = newMap(res)
	return res
}

func (s *HandlerService) HandleMessage(ctx context.Context, text string) (string, error) {
	cmd, arg := parseCommand(text)

	handler, ok := s.handlersMap[cmd]
	if ok {
		return handler(ctx, arg)
	}
	return dontUnderstandMessage, nil
}

func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	split := strings.SplitN(text, " ", 2)

	if len(split) == 2 {
		return split[0], split[1]
	}
	if strings.HasPrefix(text, "/") {
		return text, ""
	}
	return "", text
}

func newMap(s *HandlerService) handlerMap {
	m := make(handlerMap)
	m[startCommand] = s.handleStart
	m[addCommand] = s.handleAdd
	m[listCommand] = s.handleList
	m[deleteCommand] = s.handleDelete
	m[modeCommand] = s.handleMode
	m[reportCommand] = s.handleReport
	m[exportCommand] = s.handleExport
	m[syncCommand] = s.handleSync
	m[statusCommand] = s.handleStatus
	m[loginCommand] = s.handleLogin
	m[logoutCommand] = s.handleLogout

	m[""] = s.handleNoCommand

	return m
}

func (s *HandlerService) handleStart(_ context.Context, _ string) (string, error) {
	return helloMessage, nil
}

func (s *HandlerService) handleAdd(ctx context.Context, arg string) (string, error) {
	args := strings.Fields(arg)
	if len(args) < 3 {
		return incorrectUsageMessage, nil
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return incorrectExpenseMessage, errors.Wrap(err, "handle add")
	}

	fields := expense.Fields{
		Amount:   amount,
		Mode:     expense.ParseMode(args[1]),
		Merchant: args[2],
	}
	if len(args) > 3 {
		fields.Category = args[3]
	}
	if len(args) > 4 {
		fields.Note = strings.Join(args[4:], " ")
	}

	rec, err := s.ledger.AddExpense(ctx, fields)
	if err != nil {
		return incorrectExpenseMessage, errors.Wrap(err, "handle add")
	}
	return fmt.Sprintf("%s\n%s", okMessage, formatRecord(rec)), nil
}

func (s *HandlerService) handleList(_ context.Context, _ string) (string, error) {
	recs := s.ledger.CurrentRecords()
	if len(recs) == 0 {
		return noExpensesMessage, nil
	}
	if len(recs) > recentListLimit {
		recs = recs[:recentListLimit]
	}

	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, formatRecord(rec))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *HandlerService) handleDelete(ctx context.Context, arg string) (string, error) {
	id := strings.TrimSpace(arg)
	if id == "" {
		return incorrectUsageMessage, nil
	}

	found, err := s.ledger.DeleteExpense(ctx, id)
	if err != nil {
		return notFoundMessage, errors.Wrap(err, "handle delete")
	}
	if !found {
		return notFoundMessage, nil
	}
	return okMessage, nil
}

func (s *HandlerService) handleMode(ctx context.Context, arg string) (string, error) {
	args := strings.Fields(arg)
	if len(args) != 2 {
		return incorrectUsageMessage, nil
	}

	err := s.ledger.EditMode(ctx, args[0], expense.ParseMode(args[1]))
	if err != nil {
		return notFoundMessage, errors.Wrap(err, "handle mode")
	}
	return okMessage, nil
}

func (s *HandlerService) handleReport(_ context.Context, _ string) (string, error) {
	recs := s.ledger.CurrentRecords()
	if len(recs) == 0 {
		return noExpensesMessage, nil
	}
	return summary.Build(recs).Format(), nil
}

func (s *HandlerService) handleExport(_ context.Context, _ string) (string, error) {
	recs := s.ledger.CurrentRecords()
	if len(recs) == 0 {
		return noExpensesMessage, nil
	}

	var buf bytes.Buffer
	if err := s.ledger.ExportCSV(&buf); err != nil {
		return "", errors.Wrap(err, "handle export")
	}
	return buf.String(), nil
}

func (s *HandlerService) handleSync(ctx context.Context, _ string) (string, error) {
	if s.ledger.Identity() == "" {
		return localOnlyMessage, nil
	}
	if err := s.ledger.TriggerSync(ctx); err != nil {
		return cannotSyncMessage, errors.Wrap(err, "handle sync")
	}
	return syncTriggeredMessage, nil
}

func (s *HandlerService) handleStatus(_ context.Context, _ string) (string, error) {
	return s.ledger.SyncStatus().String(), nil
}

func (s *HandlerService) handleLogin(ctx context.Context, arg string) (string, error) {
	token := strings.TrimSpace(arg)
	if token == "" {
		return incorrectUsageMessage, nil
	}
	s.ledger.SetIdentity(ctx, token)
	return loggedInMessage, nil
}

func (s *HandlerService) handleLogout(_ context.Context, _ string) (string, error) {
	s.ledger.ClearIdentity()
	return loggedOutMessage, nil
}

func (s *HandlerService) handleNoCommand(_ context.Context, _ string) (string, error) {
	return loveToTalkMessage, nil
}

func formatRecord(rec expense.Record) string {
	quick := ""
	if rec.Quick {
		quick = " (Quick)"
	}
	synced := "pending"
	if rec.Synced {
		synced = "synced"
	}
	return fmt.Sprintf("%s | ₹%s - %s [%s]%s | %s | %s",
		rec.ID, rec.Amount.StringFixed(2), rec.Merchant, rec.Mode, quick,
		rec.Timestamp.Format("02.01.2006"), synced)
}

package messages

import (
	"context"
	"io"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/sync"
)

type messageSender interface {
	SendMessage(text string, chatID int64) error
}

type ledgerService interface {
	AddExpense(ctx context.Context, f expense.Fields) (expense.Record, error)
	DeleteExpense(ctx context.Context, id string) (bool, error)
	EditMode(ctx context.Context, id string, mode expense.Mode) error
	CurrentRecords() []expense.Record
	TriggerSync(ctx context.Context) error
	SyncStatus() sync.State
	SetIdentity(ctx context.Context, identity string)
	ClearIdentity()
	Identity() string
	ExportCSV(w io.Writer) error
}

type Service struct {
	tgClient messageSender
	handler  *HandlerService
}

func NewService(tgClient messageSender, ledger ledgerService) *Service {
	return &Service{
		tgClient: tgClient,
		handler:  newHandler(ledger),
	}
}

type Message struct {
	Text   string
	ChatID int64
}

func (s *Service) HandleIncomingMessage(ctx context.Context, msg Message) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "handleMessage")
	defer span.Finish()

	start := time.Now()
	err := s.handle(ctx, msg)
	elapsed := time.Since(start)

	observeResponse(elapsed, err != nil)
	if err != nil {
		ext.Error.Set(span, true)
	}
	return err
}

func (s *Service) handle(ctx context.Context, msg Message) error {
	resp, err := s.handler.HandleMessage(ctx, msg.Text)
	if err != nil {
		_ = s.tgClient.SendMessage("Sorry, something wrong happened...\n"+resp, msg.ChatID)
		return err
	}
	return s.tgClient.SendMessage(resp, msg.ChatID)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/logger"
	"shopdesk/internal/model"
	"shopdesk/internal/repository"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
)

// ErrAssistantUnavailable is returned when no completion backend is configured or it failed.
var ErrAssistantUnavailable = errors.New("assistant unavailable")

// MaxAssistantMessage bounds the length of a question sent to the assistant
const MaxAssistantMessage = 500

// Assistant intents select which shop data is attached to the prompt
const (
	IntentInvoices = "invoices"
	IntentProducts = "products"
	IntentExpenses = "expenses"
	IntentStats    = "stats"
	IntentGeneral  = "general"
)

var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentInvoices, []string{"invoice", "sale", "customer", "debt", "unpaid", "paid", "facture", "vente", "client", "dette", "payé", "impayé"}},
	{IntentProducts, []string{"product", "stock", "price", "item", "produit", "prix", "article"}},
	{IntentExpenses, []string{"expense", "cost", "rent", "electricity", "dépense", "charge", "coût", "loyer", "électricité"}},
	{IntentStats, []string{"revenue", "statistic", "total", "how much", "summary", "profit", "chiffre", "statistique", "combien", "résumé", "bilan"}},
}

// ChatCompleter is the subset of the OpenAI client the assistant needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ ChatCompleter = (*openai.Client)(nil)

type AssistantRequest struct {
	Message string `json:"message" binding:"required"`
}

type AssistantReply struct {
	Response string `json:"response"`
	Intent   string `json:"intent"`
}

type AssistantService interface {
	Ask(ctx context.Context, actor Actor, message string) (AssistantReply, error)
}

type assistantService struct {
	completer   ChatCompleter
	model       string
	invoiceRepo repository.InvoiceRepository
	productRepo repository.ProductRepository
	expenseRepo repository.ExpenseRepository
	stats       StatisticsService
	now         func() time.Time
	log         zerolog.Logger
}

// NewAssistantService answers questions about a shop's data. A nil completer disables it.
func NewAssistantService(
	completer ChatCompleter,
	modelName string,
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	expenseRepo repository.ExpenseRepository,
	stats StatisticsService,
) AssistantService {
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &assistantService{
		completer:   completer,
		model:       modelName,
		invoiceRepo: invoiceRepo,
		productRepo: productRepo,
		expenseRepo: expenseRepo,
		stats:       stats,
		now:         time.Now,
		log:         logger.WithComponent("assistant"),
	}
}

// AnalyzeIntent picks the data set a question is about from its keywords
func AnalyzeIntent(message string) string {
	lower := strings.ToLower(message)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

func (s *assistantService) Ask(ctx context.Context, actor Actor, message string) (AssistantReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return AssistantReply{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if len([]rune(message)) > MaxAssistantMessage {
		return AssistantReply{}, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, MaxAssistantMessage)
	}
	if s.completer == nil {
		return AssistantReply{}, fmt.Errorf("%w: no completion backend configured", ErrAssistantUnavailable)
	}

	intent := AnalyzeIntent(message)
	data, err := s.gather(ctx, actor, intent)
	if err != nil {
		return AssistantReply{}, fmt.Errorf("failed to gather %s context: %w", intent, err)
	}

	dataJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return AssistantReply{}, fmt.Errorf("failed to encode assistant context: %w", err)
	}

	s.log.Debug().Str("intent", intent).Str("owner_id", actor.OwnerID.String()).Msg("sending assistant request")

	resp, err := s.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(string(dataJSON))},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("intent", intent).Msg("assistant completion failed")
		return AssistantReply{}, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return AssistantReply{}, fmt.Errorf("%w: empty completion", ErrAssistantUnavailable)
	}

	return AssistantReply{
		Response: strings.TrimSpace(resp.Choices[0].Message.Content),
		Intent:   intent,
	}, nil
}

func systemPrompt(data string) string {
	return "You are the assistant of a small shop's invoicing application. " +
		"Answer questions about the shop's sales, debts, stock and expenses using only the data below. " +
		"Be concise. Answer in the language of the question. " +
		"If the data is empty, say there is no data yet.\n\nDATA:\n" + data
}

// gather loads the shop data relevant to an intent
func (s *assistantService) gather(ctx context.Context, actor Actor, intent string) (map[string]interface{}, error) {
	data := map[string]interface{}{}

	switch intent {
	case IntentInvoices:
		invoices, total, err := s.invoiceRepo.List(ctx, actor.OwnerID, repository.InvoiceFilter{Page: 1, Limit: 10})
		if err != nil {
			return nil, err
		}
		debt := decimal.Zero
		for i := range invoices {
			debt = debt.Add(invoices[i].RemainingDebt())
		}
		data["recent_invoices"] = invoices
		data["invoice_count"] = total
		data["recent_outstanding_debt"] = debt

	case IntentProducts:
		products, total, err := s.productRepo.List(ctx, actor.OwnerID, 1, 100, "")
		if err != nil {
			return nil, err
		}
		var outOfStock []string
		for _, p := range products {
			if p.Stock <= 0 {
				outOfStock = append(outOfStock, p.Name)
			}
		}
		data["products"] = products
		data["product_count"] = total
		data["out_of_stock"] = outOfStock

	case IntentExpenses:
		expenses, total, err := s.expenseRepo.List(ctx, actor.OwnerID, "", 1, 10)
		if err != nil {
			return nil, err
		}
		sum := decimal.Zero
		for _, e := range expenses {
			sum = sum.Add(e.Amount)
		}
		data["recent_expenses"] = expenses
		data["expense_count"] = total
		data["recent_expenses_total"] = sum

	case IntentStats:
		summary, err := s.stats.GetDashboard(ctx, actor, time.Unix(0, 0).UTC(), s.now())
		if err != nil {
			return nil, err
		}
		data["summary"] = summary

	default:
		_, invoices, err := s.invoiceRepo.List(ctx, actor.OwnerID, repository.InvoiceFilter{Page: 1, Limit: 1})
		if err != nil {
			return nil, err
		}
		_, products, err := s.productRepo.List(ctx, actor.OwnerID, 1, 1, "")
		if err != nil {
			return nil, err
		}
		_, expenses, err := s.expenseRepo.List(ctx, actor.OwnerID, "", 1, 1)
		if err != nil {
			return nil, err
		}
		data["counts"] = map[string]int64{"invoices": invoices, "products": products, "expenses": expenses}
	}

	data["status_values"] = map[string]string{"paid": model.StatusPaid, "debt": model.StatusDebt}
	return data, nil
}

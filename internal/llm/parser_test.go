package llm

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/testutil"
)

var fixedNow = time.Date(2025, 7, 30, 12, 0, 0, 0, time.UTC)

const hdfcResponse = `{"bank": "HDFC Bank", "amount": 799, "currency": "INR", "merchant": "Payu*Swiggy Food", "cardLast4": "0088", "transactionType": "debit", "dateTime": "2025-07-30:19:56:11"}`

func newTestParser(t *testing.T, server *testutil.FakeOllama, mutate func(*Config)) *Parser {
	t.Helper()

	cfg := DefaultConfig()
	cfg.OllamaURL = server.URL()
	cfg.RetryDelay = time.Millisecond
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	p, err := NewParser(cfg, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return p
}

func TestParser_ParseSMS(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetResponse(hdfcResponse)
	p := newTestParser(t, server, nil)

	result, err := p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
	require.NoError(t, err)

	assert.Equal(t, "HDFC Bank", result.Bank)
	assert.InDelta(t, 799.0, result.Amount, 0.001)
	assert.Equal(t, "INR", result.Currency)
	assert.Equal(t, "Swiggy Food", result.Merchant)
	assert.Equal(t, "0088", result.CardLast4)
	assert.Equal(t, model.TransactionDebit, result.TransactionType)
	assert.Equal(t, "2025-07-30T19:56:11.000Z", result.DateTime)
	assert.Equal(t, testutil.HDFCSpent.Message, result.RawMessage)
	assert.Equal(t, "phi", result.Model)
	assert.InDelta(t, 1.0, result.Confidence, 0.0001)

	req, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "phi", req.Model)
	assert.False(t, req.Stream)
	assert.Contains(t, req.Prompt, "Payu*Swiggy Food")
	assert.Contains(t, req.Prompt, testutil.HDFCSpent.Sender)
	assert.InDelta(t, 0.1, req.Options.Temperature, 0.0001)
	assert.InDelta(t, 0.9, req.Options.TopP, 0.0001)
	assert.Equal(t, 150, req.Options.NumPredict)
	assert.Equal(t, 2048, req.Options.NumCtx)
	assert.Equal(t, defaultStop, req.Options.Stop)
	assert.NotEmpty(t, req.RequestID)
}

func TestParser_PropagatesRequestID(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetResponse(hdfcResponse)
	p := newTestParser(t, server, nil)

	ctx := common.WithRequestID(context.Background(), "req-42")
	_, err := p.ParseSMS(ctx, testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
	require.NoError(t, err)

	req, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "req-42", req.RequestID)
}

func TestParser_RecoversWrappedJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "fenced block",
			response: "Sure! Here is the result:\n```json\n" + hdfcResponse + "\n```\nLet me know if you need more.",
		},
		{
			name:     "json prefix",
			response: "JSON: " + hdfcResponse,
		},
		{
			name:     "trailing comma",
			response: `{"bank": "HDFC Bank", "amount": 799, "merchant": "Swiggy Food", "cardLast4": "0088",}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewFakeOllama(t)
			server.SetResponse(tt.response)
			p := newTestParser(t, server, nil)

			result, err := p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
			require.NoError(t, err)
			assert.Equal(t, "HDFC Bank", result.Bank)
			assert.InDelta(t, 799.0, result.Amount, 0.001)
			assert.Equal(t, "Swiggy Food", result.Merchant)
		})
	}
}

func TestParser_Normalization(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantBank  string
		wantMerch string
		wantCard  string
		wantType  model.TransactionType
		wantCurr  string
		wantDate  string
		wantAmt   float64
	}{
		{
			name:      "strings everywhere",
			response:  `{"bank": "HDFC Bank Ltd", "amount": "1,250.50", "currency": "usd", "merchant": "  AMAZON   PAY ", "cardLast4": "XXXX1234", "transactionType": "CREDIT", "dateTime": "2025-07-30T10:00:00Z"}`,
			wantBank:  "HDFC Bank",
			wantMerch: "AMAZON PAY",
			wantCard:  "1234",
			wantType:  model.TransactionCredit,
			wantCurr:  "USD",
			wantDate:  "2025-07-30T10:00:00.000Z",
			wantAmt:   1250.50,
		},
		{
			name:      "alias and numeric card",
			response:  `{"bank": "Kotak Mahindra Bank Limited", "amount": 42, "merchant": "", "cardLast4": 7788, "transactionType": "refund"}`,
			wantBank:  "Kotak Mahindra Bank",
			wantMerch: "Unknown",
			wantCard:  "7788",
			wantType:  model.TransactionDebit,
			wantCurr:  "INR",
			wantDate:  "2025-07-30T12:00:00.000Z",
			wantAmt:   42,
		},
		{
			name:      "unknown bank kept readable",
			response:  `{"bank": "Yes Bank", "amount": -15, "merchant": "Razorpay*Dunzo", "cardLast4": "12"}`,
			wantBank:  "Yes",
			wantMerch: "Dunzo",
			wantCard:  "",
			wantType:  model.TransactionDebit,
			wantCurr:  "INR",
			wantDate:  "2025-07-30T12:00:00.000Z",
			wantAmt:   15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewFakeOllama(t)
			server.SetResponse(tt.response)
			p := newTestParser(t, server, nil)

			result, err := p.ParseSMS(context.Background(), "some alert", "VM-TEST")
			require.NoError(t, err)
			assert.Equal(t, tt.wantBank, result.Bank)
			assert.Equal(t, tt.wantMerch, result.Merchant)
			assert.Equal(t, tt.wantCard, result.CardLast4)
			assert.Equal(t, tt.wantType, result.TransactionType)
			assert.Equal(t, tt.wantCurr, result.Currency)
			assert.Equal(t, tt.wantDate, result.DateTime)
			assert.InDelta(t, tt.wantAmt, result.Amount, 0.001)
			assert.GreaterOrEqual(t, result.Confidence, 0.0)
			assert.LessOrEqual(t, result.Confidence, 1.0)
		})
	}
}

func TestParser_EmptyObjectScoresBase(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetResponse(`{}`)
	p := newTestParser(t, server, nil)

	result, err := p.ParseSMS(context.Background(), "hello", "VM-TEST")
	require.NoError(t, err)
	assert.Equal(t, model.UnknownBankName, result.Bank)
	assert.InDelta(t, 0.2, result.Confidence, 0.0001)
}

func TestParser_Cache(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetResponse(hdfcResponse)
	p := newTestParser(t, server, nil)
	ctx := context.Background()

	first, err := p.ParseSMS(ctx, testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
	require.NoError(t, err)

	// Whitespace and case differences hit the same entry.
	second, err := p.ParseSMS(ctx, "  "+testutil.HDFCSpent.Message+"\n", testutil.HDFCSpent.Sender)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, server.GenerateCalls())

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.LLMRequests)
	assert.Equal(t, 1, stats.CacheSize)

	// A different sender is a different key.
	_, err = p.ParseSMS(ctx, testutil.HDFCSpent.Message, "OTHER")
	require.NoError(t, err)
	assert.Equal(t, 2, server.GenerateCalls())

	p.ClearCache()
	assert.Equal(t, 0, p.Stats().CacheSize)

	p.SetCaching(false)
	for range 2 {
		_, err = p.ParseSMS(ctx, testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, server.GenerateCalls())
	assert.Equal(t, 0, p.Stats().CacheSize)
}

func TestParser_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := testutil.NewFakeOllama(t)
		server.SetStatus(http.StatusInternalServerError, "model not loaded")
		p := newTestParser(t, server, nil)

		_, err := p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrLLMUnavailable)
		assert.Contains(t, err.Error(), "status 500")

		stats := p.Stats()
		assert.Equal(t, int64(1), stats.LLMFailures)
		assert.Equal(t, int64(0), stats.RegexFallbacks)

		// Failures are not cached.
		server.SetStatus(http.StatusOK, "")
		server.SetResponse(hdfcResponse)
		_, err = p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
		require.NoError(t, err)
		assert.Equal(t, 2, server.GenerateCalls())
	})

	t.Run("unparseable response", func(t *testing.T) {
		server := testutil.NewFakeOllama(t)
		server.SetResponse("I am sorry, I cannot help with that.")
		p := newTestParser(t, server, nil)

		_, err := p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
		assert.ErrorIs(t, err, common.ErrLLMResponseFormat)
	})

	t.Run("unreachable", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OllamaURL = "http://127.0.0.1:1"
		cfg.Timeout = time.Second
		p, err := NewParser(cfg, nil)
		require.NoError(t, err)

		_, err = p.ParseSMS(context.Background(), "msg", "HDFCBK")
		assert.ErrorIs(t, err, common.ErrLLMUnavailable)
		assert.False(t, p.TestConnection(context.Background()))
	})

	t.Run("empty message", func(t *testing.T) {
		server := testutil.NewFakeOllama(t)
		p := newTestParser(t, server, nil)

		_, err := p.ParseSMS(context.Background(), "   ", "HDFCBK")
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Equal(t, 0, server.GenerateCalls())
	})
}

func TestParser_HeuristicFallback(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetStatus(http.StatusServiceUnavailable, "busy")
	p := newTestParser(t, server, func(cfg *Config) {
		cfg.HeuristicFallback = true
	})

	result, err := p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, "HDFCBK")
	require.NoError(t, err)
	assert.Equal(t, HeuristicModel, result.Model)
	assert.InDelta(t, HeuristicConfidence, result.Confidence, 0.0001)
	assert.Equal(t, "HDFC Bank", result.Bank)
	assert.InDelta(t, 799.0, result.Amount, 0.001)
	assert.Equal(t, "0088", result.CardLast4)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.RegexFallbacks)
	assert.Equal(t, int64(1), stats.LLMFailures)
	assert.Equal(t, 0, stats.CacheSize)
}

func TestParser_ConcurrentUse(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetResponse(hdfcResponse)
	p := newTestParser(t, server, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.ParseSMS(context.Background(), testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, int64(20), stats.TotalRequests)
	assert.Equal(t, stats.TotalRequests, stats.CacheHits+stats.LLMRequests)
}

func TestParser_Settings(t *testing.T) {
	server := testutil.NewFakeOllama(t)
	server.SetModels("phi:latest", "llama3.2:3b")
	server.SetResponse(hdfcResponse)
	p := newTestParser(t, server, nil)
	ctx := context.Background()

	assert.True(t, p.TestConnection(ctx))

	names, err := p.AvailableModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"phi:latest", "llama3.2:3b"}, names)

	p.SetModel("llama3.2:3b")
	p.SetModel("  ")
	assert.Equal(t, "llama3.2:3b", p.Model())

	_, err = p.ParseSMS(ctx, testutil.HDFCSpent.Message, testutil.HDFCSpent.Sender)
	require.NoError(t, err)
	req, _ := server.LastRequest()
	assert.Equal(t, "llama3.2:3b", req.Model)

	other := testutil.NewFakeOllama(t)
	other.SetResponse(hdfcResponse)
	p.SetOllamaURL(other.URL())
	_, err = p.ParseSMS(ctx, "another alert", testutil.HDFCSpent.Sender)
	require.NoError(t, err)
	assert.Equal(t, 1, other.GenerateCalls())
}

func TestNewParser_RequiresModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ""
	_, err := NewParser(cfg, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	cfg = DefaultConfig()
	cfg.OllamaURL = ""
	_, err = NewParser(cfg, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/browser"
	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/resilience"
)

const (
	financialTabLabel   = "ข้อมูลงบการเงิน"
	incomeButtonLabel   = "งบกำไรขาดทุน"
	balanceButtonLabel  = "งบแสดงฐานะการเงิน"
	entityPageMarker    = "ชื่อนิติบุคคล"
	entityPageAltMarker = "ข้อมูลนิติบุคคล"
)

// profilePrefixes are the URL prefixes tried before the registration number
// when opening a detail page. Different legal forms live under different
// prefixes; 3 covers partnerships.
var profilePrefixes = []string{"5", "7", "6", "3", ""}

// ModeRevenueOnly restricts extraction to the total-revenue row of the
// income statement.
const ModeRevenueOnly = "revenue_only"

// Config tunes one extraction engine.
type Config struct {
	BaseURL string
	Waits   browser.Waits

	// MaxRetries is the total attempt budget. Zero or negative means a
	// single attempt. Each retry adds ExtraWait * retryNumber before
	// re-reading, giving slow renders progressively more time.
	MaxRetries int
	ExtraWait  time.Duration

	Mode                string
	IncomeFields        []string
	IncludeBalanceSheet bool
	BalanceFields       []string

	// DebugDir, when set, receives a screenshot per failed company.
	DebugDir string
}

// Engine extracts financial records for resolved companies over one
// worker's session.
type Engine struct {
	session browser.Session
	cfg     Config

	cookiesAccepted bool
}

// NewEngine binds an extraction engine to a session.
func NewEngine(session browser.Session, cfg Config) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = "all"
	}
	return &Engine{session: session, cfg: cfg}
}

// Extract produces the extraction outcome for one resolved company. Zero
// parsed records and interaction failures are both retried under the same
// attempt budget, but exhaust to distinct terminal states: no_data for the
// former, error for the latter.
func (e *Engine) Extract(ctx context.Context, resolution model.ResolutionResult) model.ExtractionOutcome {
	outcome := model.ExtractionOutcome{Resolution: resolution}
	log := zap.L().With(
		zap.String("company", resolution.Company.Name),
		zap.String("reg", resolution.RegistrationID),
	)

	if !resolution.Resolved() {
		outcome.Status = model.StatusError
		outcome.Reason = resolution.Reason
		return outcome
	}

	attempts := e.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := e.cfg.ExtraWait * time.Duration(attempt-1)
			log.Debug("retrying extraction",
				zap.Int("attempt", attempt), zap.Duration("extra_wait", wait))
			if err := resilience.Sleep(ctx, wait); err != nil {
				break
			}
		}

		records, err := e.extractOnce(ctx, resolution.RegistrationID)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || !resilience.IsTransient(err) {
				break
			}
			log.Warn("extraction attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		lastErr = nil

		if len(records) > 0 {
			outcome.Records = records
			outcome.Status = model.StatusOK
			log.Info("extracted", zap.Int("records", len(records)), zap.Int("attempt", attempt))
			return outcome
		}
	}

	e.debugScreenshot(ctx, resolution)

	if lastErr != nil {
		outcome.Status = model.StatusError
		outcome.Reason = "extraction failed: " + lastErr.Error()
		log.Warn("extraction failed", zap.Error(lastErr))
	} else {
		outcome.Status = model.StatusNoData
		outcome.Reason = "no financial data"
		log.Info("no financial data")
	}
	return outcome
}

// extractOnce performs one full pass: open the detail page, switch to the
// financial view, and parse the configured statement tables.
func (e *Engine) extractOnce(ctx context.Context, registrationID string) ([]model.FinancialRecord, error) {
	var lastErr error
	for _, prefix := range profilePrefixes {
		url := fmt.Sprintf("%s/company/profile/%s%s", e.cfg.BaseURL, prefix, registrationID)
		if err := e.session.Navigate(ctx, url); err != nil {
			lastErr = err
			continue
		}
		e.acceptCookies(ctx)

		text, err := e.session.BodyText(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if !strings.Contains(text, entityPageMarker) && !strings.Contains(text, entityPageAltMarker) {
			continue
		}

		return e.extractTables(ctx, registrationID)
	}
	return nil, lastErr
}

// extractTables assumes the detail page is open and pulls the statement
// tables.
func (e *Engine) extractTables(ctx context.Context, registrationID string) ([]model.FinancialRecord, error) {
	if err := e.session.ClickText(ctx, financialTabLabel); err != nil {
		return nil, err
	}
	if err := resilience.Sleep(ctx, e.cfg.Waits.TabClick); err != nil {
		return nil, err
	}

	// The income statement button can be pre-selected; a failed click is
	// not fatal.
	if err := e.session.ClickText(ctx, incomeButtonLabel); err == nil {
		if err := resilience.Sleep(ctx, e.cfg.Waits.TableLoad); err != nil {
			return nil, err
		}
	}
	if err := resilience.Sleep(ctx, e.cfg.Waits.Extra); err != nil {
		return nil, err
	}

	incomeFields := e.cfg.IncomeFields
	if e.cfg.Mode == ModeRevenueOnly {
		incomeFields = []string{"รายได้รวม"}
	}

	html, err := e.session.BodyHTML(ctx)
	if err != nil {
		return nil, err
	}
	records, err := ParseStatement(html, incomeFields, model.IncomeStatement, registrationID)
	if err != nil {
		return nil, err
	}

	if e.cfg.Mode != ModeRevenueOnly && e.cfg.IncludeBalanceSheet && len(e.cfg.BalanceFields) > 0 {
		if err := e.session.ClickText(ctx, balanceButtonLabel); err == nil {
			if err := resilience.Sleep(ctx, e.cfg.Waits.TableLoad+e.cfg.Waits.Extra); err != nil {
				return nil, err
			}
			if html, err = e.session.BodyHTML(ctx); err != nil {
				return nil, err
			}
			balance, err := ParseStatement(html, e.cfg.BalanceFields, model.BalanceSheet, registrationID)
			if err != nil {
				return nil, err
			}
			records = append(records, balance...)
		}
	}

	return records, nil
}

func (e *Engine) acceptCookies(ctx context.Context) {
	if e.cookiesAccepted {
		return
	}
	for _, label := range []string{"ยอมรับทั้งหมด", "ยอมรับ", "ปิด"} {
		if err := e.session.ClickText(ctx, label); err == nil {
			e.cookiesAccepted = true
			return
		}
	}
}

// debugScreenshot captures the final page state for a company that ended in
// no_data or error.
func (e *Engine) debugScreenshot(ctx context.Context, resolution model.ResolutionResult) {
	if e.cfg.DebugDir == "" || ctx.Err() != nil {
		return
	}
	path := filepath.Join(e.cfg.DebugDir, fmt.Sprintf("extract_%s_row%d.png",
		resolution.RegistrationID, resolution.Company.RowIndex))
	if err := e.session.Screenshot(ctx, path); err != nil {
		zap.L().Debug("debug screenshot failed", zap.Error(err))
	}
}

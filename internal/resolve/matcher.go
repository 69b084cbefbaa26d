package resolve

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/browser"
	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/resilience"
)

const noResultsMarker = "ไม่พบข้อมูล"

var (
	regNumberInLineRe = regexp.MustCompile(`(0\d{12})`)
	detailRegRe       = regexp.MustCompile(`เลขทะเบียนนิติบุคคล\s*[:\s]\s*(0\d{12})`)
	detailNameRe      = regexp.MustCompile(`(?m)ชื่อนิติบุคคล\s*[:\s]\s*(.+)$`)
	pageCountRe       = regexp.MustCompile(`หน้า\s*\d+\s*/?\s*(\d+)`)
	slashCountRe      = regexp.MustCompile(`/\s*(\d+)`)
)

// Hit is a single search result candidate: at most one is returned per
// Search call.
type Hit struct {
	RegistrationID string
	FoundName      string
	// Direct marks a single-result redirect straight to the detail page.
	Direct bool
	// Score is the similarity score for non-exact candidates.
	Score float64
}

// Matcher drives the registry's search pages for one term at a time.
type Matcher struct {
	session  browser.Session
	baseURL  string
	maxPages int
	pageWait time.Duration

	cookiesAccepted bool
}

// NewMatcher creates a matcher bound to one worker's session.
func NewMatcher(session browser.Session, baseURL string, maxPages int) *Matcher {
	if maxPages <= 0 {
		maxPages = 20
	}
	return &Matcher{
		session:  session,
		baseURL:  baseURL,
		maxPages: maxPages,
		pageWait: 3 * time.Second,
	}
}

// Search runs one term against the registry. It returns the exact match if
// one is found (stopping immediately), otherwise the best similarity-scored
// candidate observed across all scanned pages. Ties keep the first-seen
// candidate. An interaction failure on the initial load is returned as a
// transient error, never conflated with "no results".
func (m *Matcher) Search(ctx context.Context, term Term, targetName string) (exact, best *Hit, attempt model.SearchAttempt, err error) {
	attempt = model.SearchAttempt{Term: term.Text, Strategy: term.Label}
	log := zap.L().With(zap.String("term", term.Text), zap.String("strategy", term.Label))

	searchURL := m.baseURL + "/juristic/searchInfo?keyword=" + url.QueryEscape(term.Text)
	if err := m.session.Navigate(ctx, searchURL); err != nil {
		return nil, nil, attempt, eris.Wrap(err, "matcher: load search page")
	}
	m.acceptCookies(ctx)

	targetCore := CoreName(targetName)

	// A single result redirects straight to the company detail page.
	loc, err := m.session.CurrentURL(ctx)
	if err != nil {
		return nil, nil, attempt, eris.Wrap(err, "matcher: read location")
	}
	if strings.Contains(loc, "/company/profile/") {
		hit, err := m.readDetailPage(ctx)
		if err != nil {
			return nil, nil, attempt, err
		}
		if hit != nil {
			if CoreName(hit.FoundName) != targetCore {
				log.Debug("direct page name mismatch, accepting single result",
					zap.String("found", hit.FoundName))
			}
			return hit, nil, attempt, nil
		}
		return nil, nil, attempt, nil
	}

	text, err := m.session.BodyText(ctx)
	if err != nil {
		return nil, nil, attempt, eris.Wrap(err, "matcher: read results")
	}
	if strings.Contains(text, noResultsMarker) {
		return nil, nil, attempt, nil
	}

	pages := totalPages(text)
	if pages > m.maxPages {
		pages = m.maxPages
	}
	log.Debug("scanning result pages", zap.Int("pages", pages))

	for page := 1; page <= pages; page++ {
		if page > 1 {
			if err := m.session.EnterPageNumber(ctx, page); err != nil {
				log.Warn("pagination failed, stopping scan",
					zap.Int("page", page), zap.Error(err))
				break
			}
			if err := resilience.Sleep(ctx, m.pageWait); err != nil {
				return nil, best, attempt, err
			}
			if text, err = m.session.BodyText(ctx); err != nil {
				log.Warn("page read failed, stopping scan",
					zap.Int("page", page), zap.Error(err))
				break
			}
		}
		attempt.PagesScanned = page

		for _, line := range strings.Split(text, "\n") {
			regMatch := regNumberInLineRe.FindStringSubmatch(line)
			if regMatch == nil || !strings.Contains(line, "จำกัด") {
				continue
			}
			if CoreName(line) == targetCore {
				return &Hit{RegistrationID: regMatch[1], FoundName: strings.TrimSpace(line)}, best, attempt, nil
			}
			score := Similarity(targetName, line)
			if best == nil || score > best.Score {
				best = &Hit{
					RegistrationID: regMatch[1],
					FoundName:      strings.TrimSpace(line),
					Score:          score,
				}
			}
		}

		// The site sometimes redirects to the detail page via script after
		// the results render.
		if loc, err = m.session.CurrentURL(ctx); err == nil && strings.Contains(loc, "/company/profile/") {
			hit, err := m.readDetailPage(ctx)
			if err != nil {
				return nil, best, attempt, err
			}
			if hit != nil {
				return hit, best, attempt, nil
			}
		}
	}

	return nil, best, attempt, nil
}

// readDetailPage extracts the registration number and display name from a
// company detail page the search redirected to.
func (m *Matcher) readDetailPage(ctx context.Context) (*Hit, error) {
	text, err := m.session.BodyText(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: read detail page")
	}

	regMatch := detailRegRe.FindStringSubmatch(text)
	if regMatch == nil {
		return nil, nil
	}
	hit := &Hit{RegistrationID: regMatch[1], Direct: true}
	if nameMatch := detailNameRe.FindStringSubmatch(text); nameMatch != nil {
		hit.FoundName = strings.TrimSpace(nameMatch[1])
	}
	return hit, nil
}

// acceptCookies dismisses the consent banner once per session. Failures are
// ignored: the banner may simply not be there.
func (m *Matcher) acceptCookies(ctx context.Context) {
	if m.cookiesAccepted {
		return
	}
	for _, label := range []string{"ยอมรับทั้งหมด", "ยอมรับ", "ปิด"} {
		if err := m.session.ClickText(ctx, label); err == nil {
			m.cookiesAccepted = true
			return
		}
	}
}

// totalPages parses the paginator ("หน้า 1 / 12") out of the page text.
func totalPages(text string) int {
	for _, line := range strings.Split(text, "\n") {
		if match := pageCountRe.FindStringSubmatch(line); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				return n
			}
		}
		if match := slashCountRe.FindStringSubmatch(line); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil && n > 1 {
				return n
			}
		}
	}
	return 1
}
